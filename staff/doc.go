// Package staff holds the employees and departments reviews refer to.
package staff
