// Package crypto provides the cryptographic envelope of a vaultmerge store.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the composite secret via PBKDF2
//   - 12-byte random nonce per encryption operation
//   - Authenticated encryption prevents tampering
//
// The composite secret is SHA-256(password), followed by SHA-256(keyfile)
// when the store is protected by a keyfile as well.
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored unencrypted)
//   - 210,000 iterations by default (OWASP minimum recommendation)
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
