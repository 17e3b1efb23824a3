package repository

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// newTempPassword returns an 8-character uppercase hex password, the
// format the reset flow has always issued.
func newTempPassword() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b[:])), nil
}
