// Package storage provides the BBolt container format of a vaultmerge store.
//
// Database structure uses three buckets:
//   - config: format version, KDF parameters (salt, iterations), keyfile
//     flag, store ID and timestamps (unencrypted)
//   - private: encrypted password check and encrypted group tree
//   - imports: one record per import root created in the store (unencrypted)
//
// The unencrypted config and imports buckets let history and keyring
// lookups work without a password.
//
// A store is never modified in place. Save writes a complete new database
// next to the original and renames it over the old file, so a failed write
// leaves the previous bytes intact.
package storage
