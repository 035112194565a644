package testhelper

import (
	"context"
	"testing"

	"github.com/yuku/dbpool"
)

// CloseOnCleanup closes s when the test finishes and reports close errors.
func CloseOnCleanup(t testing.TB, s dbpool.Session) {
	t.Helper()
	t.Cleanup(func() {
		if err := s.Close(context.Background()); err != nil {
			t.Errorf("failed to close session: %v", err)
		}
	})
}
