package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderNumber returns ORD-<last 6 digits of unix millis>-<3 random chars>.
func GenerateOrderNumber() string {
	return orderNumberAt(time.Now())
}

func orderNumberAt(now time.Time) string {
	tail := now.UnixMilli() % 1_000_000

	suffix := make([]byte, 3)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(orderNumberAlphabet))))
		if err != nil {
			// fallback: time-based entropy
			n = big.NewInt((now.UnixNano() >> (i * 5)) % int64(len(orderNumberAlphabet)))
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}

	return fmt.Sprintf("ORD-%06d-%s", tail, suffix)
}
