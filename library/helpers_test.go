package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"library-lending/internal/clock"

	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	passwordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newUser(t *testing.T, name string, limit int) *User {
	t.Helper()
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewUser(name+"@example.com", name, dob, WithBorrowLimit(limit))
}

func newEngine(t *testing.T) (*Engine, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(epoch)
	return NewEngine(clk, nil), clk
}

func newManager(t *testing.T) *LibraryManager {
	t.Helper()
	mgr, err := NewLibraryManager(Options{
		LedgerPath: filepath.Join(t.TempDir(), "ledger.db"),
		Clock:      clock.NewMockClock(epoch),
	})
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}
