// Package random produces short random strings: one-time codes and
// session tokens.
package random

import (
	crand "crypto/rand"
	"math/big"
	mrand "math/rand"
	"time"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func init() {
	seed, err := crand.Int(crand.Reader, big.NewInt(1<<62))
	if err != nil {
		mrand.Seed(time.Now().UnixNano())
		return
	}
	mrand.Seed(seed.Int64())
}

// String draws length characters from math/rand. Good enough for
// one-time codes that expire, not for secrets.
func String(length int) string {
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[mrand.Intn(len(alphabet))]
	}
	return string(out)
}

// StringSecure draws from crypto/rand, for values that act as bearer
// credentials such as anonymous cart tokens.
func StringSecure(length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))

	out := make([]byte, length)
	for i := range out {
		n, err := crand.Int(crand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
