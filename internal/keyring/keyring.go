// Package keyring caches store passwords in the OS keyring, keyed by the
// store ID from the store's unencrypted header.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "vaultmerge"

// ErrNotFound is returned when no password is stored for a store ID
var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a password in the OS keyring
func SavePassword(storeID string, password string) error {
	return keyring.Set(serviceName, storeID, password)
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(storeID string) (string, error) {
	return keyring.Get(serviceName, storeID)
}

// DeletePassword removes a password from the OS keyring. Deleting a missing
// password is not an error.
func DeletePassword(storeID string) error {
	err := keyring.Delete(serviceName, storeID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}
