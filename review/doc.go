// Package review maps performance reviews to the reviews table.
//
// A Review is validated on every assignment. A Store persists reviews and
// keeps an identity map so that each row has at most one live *Review per
// Store: loading a row that is already cached refreshes and returns the
// cached instance.
package review
