package settings

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// The intake API key authenticates the panel UI to the local event-intake
// API. Only a bcrypt hash is stored; the plaintext is shown once at
// rotation time.

// RotateIntakeAPIKey generates a new random intake key, stores its bcrypt
// hash and returns the plaintext for one-time display.
func RotateIntakeAPIKey(db *gorm.DB) (string, error) {
	key := generateRandomToken(32)

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash intake API key: %w", err)
	}

	if err := CreateOrUpdateSetting(db, KeyIntakeAPIKeyHash, string(hash)); err != nil {
		return "", fmt.Errorf("failed to store intake API key hash: %w", err)
	}
	return key, nil
}

// IntakeAPIKeyConfigured reports whether a key hash is stored.
func IntakeAPIKeyConfigured(db *gorm.DB) bool {
	hash, err := GetSetting(db, KeyIntakeAPIKeyHash)
	return err == nil && hash != ""
}

// VerifyIntakeAPIKey checks a presented key against the stored hash.
func VerifyIntakeAPIKey(db *gorm.DB, presented string) (bool, error) {
	hash, err := GetSetting(db, KeyIntakeAPIKeyHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read intake API key hash: %w", err)
	}
	if hash == "" {
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)); err != nil {
		return false, nil
	}
	return true, nil
}
