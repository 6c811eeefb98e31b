package assemble

// AvailabilityVector records, per nominal raid_disk slot (0..raidDisks-1),
// whether an up-to-date candidate was found for it.
type AvailabilityVector []bool

// Enough reports whether avail (with okcnt up-to-date, in-range slots
// among it) suffices to run an array of the given level/layout. Mirrors
// the per-level rules mdadm's enough() encodes; each level has a
// different notion of "missing but tolerable".
func Enough(level int32, raidDisks uint32, layout int32, avail AvailabilityVector, okcnt uint32) bool {
	switch level {
	case 1:
		return okcnt >= 1
	case 4, 5:
		return missing(avail) <= 1
	case 6:
		return missing(avail) <= 2
	case 10:
		return enoughRAID10(avail, layout)
	case -4: // multipath
		return okcnt >= 1
	case -1: // linear
		return missing(avail) == 0
	default:
		// Unknown/unhandled levels (e.g. raid0, concat-like levels
		// with no redundancy) require every slot present, matching
		// the conservative fallback in the original predicate.
		return missing(avail) == 0
	}
}

func missing(avail AvailabilityVector) int {
	n := 0
	for _, ok := range avail {
		if !ok {
			n++
		}
	}
	return n
}

// enoughRAID10 checks that no mirror pair is entirely missing. layout
// encodes the near-copies count in its low byte and the far-copies
// count in the byte above it; for the assembly core, only the
// near-copies count in the low byte matters: a copies-N array
// groups slots into adjacent blocks of N, and each block needs at least
// one present member.
func enoughRAID10(avail AvailabilityVector, layout int32) bool {
	copies := int(layout & 0xff)
	if copies < 2 {
		copies = 2
	}
	for start := 0; start < len(avail); start += copies {
		end := start + copies
		if end > len(avail) {
			end = len(avail)
		}
		anyPresent := false
		for _, ok := range avail[start:end] {
			if ok {
				anyPresent = true
				break
			}
		}
		if !anyPresent {
			return false
		}
	}
	return true
}
