package hstspreload

import (
	"fmt"

	"golang.org/x/net/idna"
)

// ToASCII converts a possibly Unicode host name to the ASCII form expected
// by IsPreloaded, using the IDNA lookup profile.
func ToASCII(host string) (string, error) {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	return ascii, nil
}
