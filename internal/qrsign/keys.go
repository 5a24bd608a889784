package qrsign

import (
	"golang.org/x/crypto/bcrypt"
)

// HashDeviceKey hashes a scanner provisioning key for storage in config.
func HashDeviceKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckDeviceKey compares a presented scanner key against the stored hash.
func CheckDeviceKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
