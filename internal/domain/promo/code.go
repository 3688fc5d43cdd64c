package promo

import (
	"crypto/rand"
	"math/big"

	"github.com/go-faster/errors"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MaxCodeLength bounds generated and stored codes.
const MaxCodeLength = 10

// GenerateCode returns a random code of n uppercase letters and digits.
func GenerateCode(n int) (string, error) {
	if n <= 0 || n > MaxCodeLength {
		return "", errors.Errorf("code length must be in [1, %d], got %d", MaxCodeLength, n)
	}
	limit := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", errors.Wrap(err, "read random")
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
