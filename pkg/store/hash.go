package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes the hex SHA-256 of data.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
