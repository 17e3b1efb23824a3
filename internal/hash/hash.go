// Package hash derives the two password hashes the legacy game server
// expects. The derivation order and the byte reversal are wire-format
// constraints of that server; changing either produces hashes it rejects.
package hash

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// AuthHash derives the battlenet_accounts.sha_pass_hash value for an
// email/password pair. Both inputs are normalized to uppercase, the
// outer SHA256 digest is byte-reversed before hex encoding.
func AuthHash(email, password string) string {
	mu := strings.ToUpper(email)
	pu := strings.ToUpper(password)

	inner := sha256.Sum256([]byte(mu))
	innerHex := strings.ToUpper(hex.EncodeToString(inner[:]))

	outer := sha256.Sum256([]byte(innerHex + ":" + pu))

	// Reverse the raw digest bytes, not the hex characters.
	reversed := make([]byte, len(outer))
	for i, b := range outer {
		reversed[len(outer)-1-i] = b
	}
	return strings.ToUpper(hex.EncodeToString(reversed))
}

// AccountHash derives the account.sha_pass_hash value. The username is
// used as-is; only the password is uppercased.
func AccountHash(username, password string) string {
	pu := strings.ToUpper(password)
	sum := sha1.Sum([]byte(username + ":" + pu))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
