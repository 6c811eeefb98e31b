package identity

import "path/filepath"

// globMatch wraps filepath.Match; kept as its own function so Array's
// device-whitelist check reads like the original match_oneof() rather
// than a raw stdlib call. No third-party glob library in the example
// corpus covers this narrow a case (shell-style matching against a
// short, caller-supplied device path list), so stdlib is used directly
// here — see DESIGN.md.
func globMatch(pattern, name string) (bool, error) {
	return filepath.Match(pattern, name)
}
