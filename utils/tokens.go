package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewOpaqueToken sinh token ngẫu nhiên gửi qua email; DB chỉ lưu hash.
func NewOpaqueToken() (raw string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashToken(raw), nil
}

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
