package util

import (
	"math/rand"

	"github.com/lithammer/shortuuid/v4"
)

// NewIdempotencyKey generates a client-side idempotency token for a bid
// submission.
func NewIdempotencyKey() string {
	return shortuuid.New()
}

// RandomString returns a random alphanumeric string of the given length.
func RandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
