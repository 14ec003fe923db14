// Package util provides utility functions for the SantAI application.
package util

import (
	"math/rand"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand; not for cryptographic purposes.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.Intn(16)])
	}

	return builder.String()
}

// GenerateTransactionID generates a mock payment transaction ID with "txn_" prefix.
func GenerateTransactionID() string {
	return GenerateRandomID("txn_", 8)
}

// PickRandom returns a uniformly chosen element of items, or the zero value
// when items is empty.
func PickRandom[T any](items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[rand.Intn(len(items))]
}
