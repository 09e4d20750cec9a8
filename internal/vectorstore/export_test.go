package vectorstore

import "testing"

// SetIDGenerator replaces the document ID generator for the duration of a test.
func SetIDGenerator(t testing.TB, fn func() string) {
	t.Helper()
	old := newID
	newID = fn
	t.Cleanup(func() { newID = old })
}
