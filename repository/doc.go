// Package repository provides a generic MongoDB repository for documents that
// embed an entity identity and audit fields: typed CRUD, soft delete,
// single-pass pagination, scrolling and sequence backed integer identities.
package repository
