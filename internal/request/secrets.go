// SPDX-License-Identifier: MPL-2.0

package request

import (
	cryptorand "crypto/rand"
	"math/rand/v2"
)

const (
	// PasswordLength is the length of generated root passwords.
	PasswordLength = 16

	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GeneratePassword returns a PasswordLength alphanumeric password from the
// auto-seeded math/rand/v2 source. It is not suitable where a strong secret
// is required; pass --password instead.
func GeneratePassword() string {
	b := make([]byte, PasswordLength)
	for i := range b {
		b[i] = passwordAlphabet[rand.IntN(len(passwordAlphabet))]
	}
	return string(b)
}

// GenerateSecret returns a 26 character base32 secret from crypto/rand.
// The alphabet is [A-Z2-7], safe unquoted in env files and SQL passwords.
func GenerateSecret() string {
	return cryptorand.Text()
}
