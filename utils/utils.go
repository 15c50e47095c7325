// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

// NormalizeEmail lowercases and trims an email address for case-insensitive
// comparison. Normalization happens once at the boundary; everything below
// works with the canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
