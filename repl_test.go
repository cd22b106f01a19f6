package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"library-lending/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *library.LibraryManager {
	t.Helper()
	mgr, err := library.NewLibraryManager(library.Options{LedgerPath: library.MemoryLedger})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func runScript(t *testing.T, mgr *library.LibraryManager, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	script := strings.Join(lines, "\n") + "\n"
	require.NoError(t, newREPL(strings.NewReader(script), &out, mgr).Run())
	return out.String()
}

func TestREPLCirculation(t *testing.T) {
	mgr := newTestManager(t)

	out := runScript(t, mgr,
		"no", "Alice", "alice@example.com", "1990-01-01", "",
		"add book", "Clean Code", "Robert Martin", "0-13-235088-2",
		"checkout", "0132350882",
		"checkout", "0132350882",
		"my books",
		"return", "0132350882",
		"return", "0132350882",
		"checkout", "9999999999",
		"history",
		"exit",
	)

	for _, want := range []string{
		"Welcome, Alice! Your account has been created successfully.",
		"Book added successfully! (ISBN 0132350882)",
		"Book 'Clean Code' checked out to Alice (1/3)",
		"Book not available for checkout.",
		"You have 1 of 3 books:",
		"Book 'Clean Code' returned successfully!",
		"No matching checkout found for the user and book combination.",
		"Book not found.",
		"User: Alice, Book: Clean Code",
		"Goodbye!",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "not returned")

	history := mgr.History()
	require.Len(t, history, 1)
	assert.False(t, history[0].IsOpen())
}

func TestREPLBorrowLimitMessage(t *testing.T) {
	mgr := newTestManager(t)
	for _, isbn := range []string{"0132350882", "0596007973"} {
		_, err := mgr.AddBook("Book "+isbn, "Author", isbn)
		require.NoError(t, err)
	}
	_, err := mgr.AddUser(library.NewUserParams{Name: "Bob", Email: "bob@example.com", DOB: "1980-02-02", BorrowLimit: 1})
	require.NoError(t, err)

	out := runScript(t, mgr,
		"yes", "bob@example.com",
		"checkout", "0132350882",
		"checkout", "0596007973",
		"exit",
	)
	assert.Contains(t, out, "Welcome back, Bob!")
	assert.Contains(t, out, "Bob has borrowed too many books (limit 1).")
}

func TestREPLPasswordLogin(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.AddUser(library.NewUserParams{Name: "Carol", Email: "carol@example.com", DOB: "1975-07-07", Password: "secret"})
	require.NoError(t, err)

	out := runScript(t, mgr,
		"yes", "carol@example.com", "wrong",
		"yes", "nobody@example.com",
		"yes", "carol@example.com", "secret",
		"logout",
		"exit",
	)
	assert.Contains(t, out, "Authentication failed:")
	assert.Contains(t, out, "User not found. Please try again.")
	assert.Contains(t, out, "Welcome back, Carol!")
	assert.Contains(t, out, "Goodbye, Carol.")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "Goodbye!"))
}

func TestREPLEndOfInput(t *testing.T) {
	mgr := newTestManager(t)
	out := runScript(t, mgr, "maybe")
	assert.Contains(t, out, "Invalid choice.")
}

func TestREPLReportAndExport(t *testing.T) {
	mgr := newTestManager(t)
	path := filepath.Join(t.TempDir(), "history.json")

	out := runScript(t, mgr,
		"no", "Dan", "dan@example.com", "1991-03-03", "",
		"report",
		"add book", "Refactoring", "Martin Fowler", "080442957X",
		"checkout", "080442957X",
		"report",
		"export history", path,
		"list books",
		"search book", "fowler", "advanced",
		"search book", "fowler", "fuzzy",
		"exit",
	)
	assert.Contains(t, out, "No checkouts recorded yet.")
	assert.Contains(t, out, "Most borrowed books:")
	assert.Contains(t, out, "Exported 1 checkout(s) to "+path)
	assert.Contains(t, out, "Refactoring")
	assert.Contains(t, out, "Invalid search strategy.")
}

func TestREPLSearchUsers(t *testing.T) {
	mgr := newTestManager(t)
	for _, p := range []library.NewUserParams{
		{Name: "Rohan Sharma", Email: "rohan@example.com", DOB: "1990-01-01"},
		{Name: "Rohan Mehta", Email: "mehta@example.com", DOB: "1991-01-01"},
	} {
		_, err := mgr.AddUser(p)
		require.NoError(t, err)
	}

	out := runScript(t, mgr,
		"yes", "rohan@example.com",
		"search user", "sharma example", "advanced",
		"search user", "sharma example", "simple",
		"search user", "rohan", "fuzzy",
		"exit",
	)
	assert.Equal(t, 1, strings.Count(out, "Rohan Sharma <rohan@example.com>"))
	assert.NotContains(t, out, "Rohan Mehta <")
	assert.Contains(t, out, "No matching users found.")
	assert.Contains(t, out, "Invalid search strategy.")
}

func TestREPLSessionUserStaysCurrent(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.AddBook("Clean Code", "Robert Martin", "0132350882")
	require.NoError(t, err)
	u, err := mgr.AddUser(library.NewUserParams{Name: "Eve", Email: "eve@example.com", DOB: "1990-01-01", BorrowLimit: 1})
	require.NoError(t, err)

	// The limit changes behind the session's back.
	out := runScript(t, mgr,
		"yes", "eve@example.com",
		"set limit", "eve@example.com", "4",
		"checkout", "0132350882",
		"my books",
		"exit",
	)
	assert.Contains(t, out, "Borrow limit for Eve is now 4")
	assert.Contains(t, out, "Book 'Clean Code' checked out to Eve (1/4)")
	assert.Contains(t, out, "You have 1 of 4 books:")

	fresh, err := mgr.GetUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.ActiveBooks())
}
