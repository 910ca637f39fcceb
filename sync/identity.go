// Package sync implements the host-side shadow-cache synchroniser: it
// decides which files under a local directory need to be written,
// incrementally updated, or left alone on the device, using a device
// identity token to judge whether its cache is still trustworthy.
package sync

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TokenFileName is the well-known name of the device identity token,
// present at the root of every directory tree the synchroniser manages.
const TokenFileName = ".upyt_id.txt"

var deviceIDPattern = regexp.MustCompile(`^[0-9A-Fa-f]{12}$`)

// EncodeToken renders (version, deviceID) in the token's on-wire ASCII
// form: three decimal digits, a space, twelve hex digits, no trailing
// newline.
func EncodeToken(version int, deviceID string) ([]byte, error) {
	if version < 0 || version >= 1000 {
		return nil, fmt.Errorf("sync: version %d out of representable range [0,1000)", version)
	}
	if !deviceIDPattern.MatchString(deviceID) {
		return nil, fmt.Errorf("sync: malformed device id %q", deviceID)
	}
	return []byte(fmt.Sprintf("%03d %s", version, deviceID)), nil
}

// DecodeToken parses the token format, treating anything malformed
// (wrong length, extra fields, non-hex id, out-of-range version) as
// absent rather than erroring, per the token file's parsing contract.
func DecodeToken(data []byte) (version int, deviceID string, ok bool) {
	s := string(data)
	if len(s) != 16 || s[3] != ' ' {
		return 0, "", false
	}
	for _, c := range s[:3] {
		if c < '0' || c > '9' {
			return 0, "", false
		}
	}
	v, err := strconv.Atoi(s[:3])
	if err != nil || v < 0 || v >= 1000 {
		return 0, "", false
	}
	id := s[4:]
	if !deviceIDPattern.MatchString(id) {
		return 0, "", false
	}
	return v, id, true
}

// NewDeviceID generates a fresh 48-bit device identity, rendered as
// upper-case hex, for first contact with a device that has no token yet.
func NewDeviceID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("sync: generate device id: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// NextVersion returns the version that follows v. The token field is a
// fixed three decimal digits, so the counter wraps back to 0 after 999
// rather than overflowing it; see DESIGN.md for why wrapping was chosen
// over widening the field.
func NextVersion(v int) int {
	return (v + 1) % 1000
}
