// Package env holds the couple of raw environment reads that happen
// before the typed config is loaded (logger format selection, port
// overrides injected by the platform).
package env

import "os"

// Get returns the variable's value, falling back when it is unset or
// empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
