// Package utils provides small helper functions with no domain knowledge,
// shared across layers of the application.
package utils

import "strconv"

// AtoiDefault parses s as an int, falling back to def when s is empty or not
// a valid integer. Handlers use it for the page and page_size query
// parameters, where a malformed value should fall back rather than fail.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
