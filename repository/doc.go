// Package repository provides a generic repository built on Bun for CRUD
// operations, filtered listing, pagination and table creation, usable over a
// database handle or a transaction.
package repository
