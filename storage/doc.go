// Package storage defines the persistence contracts for conversation
// history. The badger subpackage provides the embedded implementation.
package storage
