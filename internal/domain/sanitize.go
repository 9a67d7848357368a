package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// engineName matches the names the container engine accepts for containers and networks.
var engineName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ErrInvalidName is returned for names that cannot be used as engine or upstream names.
var ErrInvalidName = fmt.Errorf("%w: invalid name", ErrPrecondition)

// ValidateName checks that name can be used both as an engine object name and
// as an upstream host inside the generated nginx configuration.
func ValidateName(name string) error {
	if !engineName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// QuoteNginx escapes s for use inside a double-quoted nginx string.
func QuoteNginx(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
