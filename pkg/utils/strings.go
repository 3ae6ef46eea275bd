package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	idLength  = 8
	alphabets = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func GenerateRandomString(length int) (string, error) {
	id := make([]byte, length)

	for i := range length {
		char, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabets))))
		if err != nil {
			return "", err
		}
		id[i] = alphabets[char.Int64()]
	}

	return string(id), nil
}

func GenerateID() (string, error) {
	return GenerateRandomString(idLength)
}

// ParseID parses a positive numeric entity id from a path parameter
func ParseID(val string) (uint, bool) {
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
