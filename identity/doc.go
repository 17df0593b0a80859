// Package identity provides the identity map used by entity stores to keep at
// most one live in-memory instance per primary key.
package identity
