// Package database provides connection management, configuration, table
// bootstrap, foreign key descriptors, query hooks, SQL error classification
// and logging for the stores, built on top of Bun.
package database
