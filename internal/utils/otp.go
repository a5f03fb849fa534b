package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// RandomOTPCode returns a 6-digit numeric code, zero padded.
func RandomOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashOTP hashes a code for storage so the cache never holds it in
// the clear.
func HashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyOTP compares a submitted code against the stored hash in
// constant time.
func VerifyOTP(storedHash, code string) bool {
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashOTP(code))) == 1
}
