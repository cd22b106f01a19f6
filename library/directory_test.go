package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryAddUser(t *testing.T) {
	d := NewDirectory(3)

	u, err := d.AddUser(NewUserParams{Name: "Rohan", Email: "rohan@example.com", DOB: "1990-01-01"}, epoch)
	require.NoError(t, err)
	assert.Equal(t, "Rohan", u.Name)
	assert.Equal(t, "rohan@example.com", u.Email)
	assert.Equal(t, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), u.DOB)
	assert.Equal(t, 3, u.BorrowLimit())
	assert.Equal(t, 0, u.ActiveBooks())
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.HasPassword())
	assert.Len(t, d.Users(), 1)
}

func TestDirectoryAddUserValidation(t *testing.T) {
	tests := []struct {
		name   string
		params NewUserParams
		errIs  error
	}{
		{"bad email", NewUserParams{Name: "A", Email: "invalid-email", DOB: "1990-01-01"}, ErrInvalidEmail},
		{"no at sign", NewUserParams{Name: "A", Email: "invalidemail.com", DOB: "1990-01-01"}, ErrInvalidEmail},
		{"bad dob format", NewUserParams{Name: "A", Email: "a@example.com", DOB: "01/01/1990"}, ErrInvalidDOB},
		{"future dob", NewUserParams{Name: "A", Email: "a@example.com", DOB: "2099-01-01"}, ErrInvalidDOB},
		{"negative limit", NewUserParams{Name: "A", Email: "a@example.com", DOB: "1990-01-01", BorrowLimit: -1}, ErrInvalidBorrowLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirectory(3)
			_, err := d.AddUser(tt.params, epoch)
			assert.ErrorIs(t, err, tt.errIs)
			assert.Empty(t, d.Users())
		})
	}

	t.Run("empty name", func(t *testing.T) {
		_, err := NewDirectory(3).AddUser(NewUserParams{Name: " ", Email: "a@example.com", DOB: "1990-01-01"}, epoch)
		assert.Error(t, err)
	})
}

func TestDirectoryDuplicateEmail(t *testing.T) {
	d := NewDirectory(3)
	_, err := d.AddUser(NewUserParams{Name: "Rohan", Email: "rohan@example.com", DOB: "1990-01-01"}, epoch)
	require.NoError(t, err)

	_, err = d.AddUser(NewUserParams{Name: "Other", Email: "ROHAN@example.com", DOB: "1991-01-01"}, epoch)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestDirectoryFindAndSearch(t *testing.T) {
	d := NewDirectory(3)
	for _, p := range []NewUserParams{
		{Name: "Rohan", Email: "rohan@example.com", DOB: "1990-01-01"},
		{Name: "Ashish", Email: "ashish@example.com", DOB: "1985-05-15"},
		{Name: "Suman", Email: "suman@example.com", DOB: "1995-07-20"},
	} {
		_, err := d.AddUser(p, epoch)
		require.NoError(t, err)
	}

	u, err := d.FindByEmail(" Ashish@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "Ashish", u.Name)

	byID, err := d.FindByID(u.ID)
	require.NoError(t, err)
	assert.Same(t, u, byID)

	_, err = d.FindByID("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.Len(t, d.Search("rohan", nil), 1)
	assert.Len(t, d.Search("example", AdvancedSearch{}), 3)
}

func TestDirectorySetBorrowLimit(t *testing.T) {
	d := NewDirectory(3)
	u, err := d.AddUser(NewUserParams{Name: "Rohan", Email: "rohan@example.com", DOB: "1990-01-01"}, epoch)
	require.NoError(t, err)

	require.NoError(t, d.SetBorrowLimit(u.ID, 5))
	assert.Equal(t, 5, u.BorrowLimit())

	assert.ErrorIs(t, d.SetBorrowLimit(u.ID, 0), ErrInvalidBorrowLimit)

	e, _ := newEngine(t)
	for _, isbn := range []string{"0132350882", "0596007973"} {
		_, err := e.Checkout(u, NewBook("B", "A", isbn))
		require.NoError(t, err)
	}
	assert.ErrorIs(t, d.SetBorrowLimit(u.ID, 1), ErrInvalidBorrowLimit)
	require.NoError(t, d.SetBorrowLimit(u.ID, 2))
	assert.True(t, u.HasReachedLimit())
}

func TestDirectoryAuthenticate(t *testing.T) {
	d := NewDirectory(3)
	_, err := d.AddUser(NewUserParams{Name: "Open", Email: "open@example.com", DOB: "1990-01-01"}, epoch)
	require.NoError(t, err)
	locked, err := d.AddUser(NewUserParams{Name: "Locked", Email: "locked@example.com", DOB: "1990-01-01", Password: "s3cret"}, epoch)
	require.NoError(t, err)
	assert.True(t, locked.HasPassword())
	assert.NotEqual(t, "s3cret", locked.PasswordHash)

	u, err := d.Authenticate("open@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "Open", u.Name)

	u, err = d.Authenticate("locked@example.com", "s3cret")
	require.NoError(t, err)
	assert.Same(t, locked, u)

	_, err = d.Authenticate("locked@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = d.Authenticate("nobody@example.com", "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, d.SetPassword(locked.ID, ""))
	_, err = d.Authenticate("locked@example.com", "anything")
	assert.NoError(t, err)
}
