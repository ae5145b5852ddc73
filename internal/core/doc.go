// Package core provides the vaultmerge store and import operations.
//
// Core operations include:
//   - Open/Create: Decrypt an existing store or initialize a new one
//   - Persist/Discard: Release a store, atomically writing it or not
//   - Rekey: Re-encrypt a store with a new password and keyfile
//   - CloneEntry/CopyTree: Deep-copy entries and group subtrees
//   - Importer.Run: Copy a source tree into a timestamped import root
//     of the target and write the target
//
// Imports are additive. Every run creates one new group named
// "__imported__<unix-seconds>"; existing groups and entries of the target
// are never merged, renamed or deduplicated, and the source is never
// written.
//
// Failures are reported as typed errors (ErrAuth, ErrIntegrity, ErrWrite,
// ErrStructure) wrapped in a *StoreError naming the store's role. The target
// is written only after the whole import has been built in memory.
package core
