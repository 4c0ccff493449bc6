// Package entity defines the shape every persisted document has: one identity
// variant, the audit fields, and the storage and sequence names of its type.
package entity
