// Package token generates subscription confirmation tokens.
//
// Tokens are bearer credentials: possession alone confirms a subscription.
// Generation therefore uses crypto/rand, never math/rand.
package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the number of characters in a confirmation token.
const Length = 25

// alphabet is the 62-symbol alphanumeric set tokens are drawn from.
// URL-safe, so tokens embed directly into confirmation links.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a new confirmation token: Length characters drawn
// uniformly from alphabet using a cryptographically secure source.
func Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
