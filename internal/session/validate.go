package session

import (
	"fmt"
	"regexp"
)

// MaxNameLen bounds session names so the socket path stays short.
const MaxNameLen = 64

var nameRegexp = regexp.MustCompile(fmt.Sprintf(`^[a-z0-9_-]{1,%d}$`, MaxNameLen))

// ValidateName checks that a session name is usable as a directory under
// ~/.vtexter/sessions: lowercase letters, digits, '-' and '_'.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid session name %q: use 1-%d of a-z, 0-9, '-', '_'", name, MaxNameLen)
	}
	return nil
}
