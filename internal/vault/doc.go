// Package vault holds the decrypted, in-memory credential tree of a store.
//
// A store owns exactly one root Group. Groups own ordered child groups and
// ordered entries; names are not required to be unique among siblings.
// Trees read from disk are always acyclic, but trees built in memory are
// plain pointers, so walkers guard against cycles and unbounded depth.
package vault
