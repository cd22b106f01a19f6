package library

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultBorrowLimit is the number of simultaneous checkouts a new user may hold.
const DefaultBorrowLimit = 3

// Book represents a catalog entry and its current availability.
// Availability is written only by the checkout engine.
type Book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`

	available bool
}

// NewBook returns an available book. The ISBN is stored normalized.
func NewBook(title, author, isbn string) *Book {
	return &Book{
		Title:     title,
		Author:    author,
		ISBN:      NormalizeISBN(isbn),
		available: true,
	}
}

func (b *Book) Available() bool { return b.available }

// snapshot returns a copy detached from engine state.
func (b *Book) snapshot() *Book {
	cp := *b
	return &cp
}

func (b *Book) String() string {
	return fmt.Sprintf("Title: %s, Author: %s, ISBN: %s, Availability: %t", b.Title, b.Author, b.ISBN, b.available)
}

// User represents a registered library user.
// ActiveBooks and BooksBorrowed are written only by the checkout engine.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	DOB          time.Time `json:"dob"`
	JoinedAt     time.Time `json:"joined_at"`
	PasswordHash string    `json:"-"` // Don't serialize password hash

	activeBooks   int
	booksBorrowed int
	borrowLimit   int
}

// UserOption customizes a User built by NewUser.
type UserOption func(*User)

func WithUserID(id string) UserOption {
	return func(u *User) { u.ID = id }
}

func WithJoinedAt(t time.Time) UserOption {
	return func(u *User) { u.JoinedAt = t }
}

func WithBorrowLimit(n int) UserOption {
	return func(u *User) { u.borrowLimit = n }
}

func WithPasswordHash(hash string) UserOption {
	return func(u *User) { u.PasswordHash = hash }
}

// NewUser builds a user with a fresh UUID, today's joining date and the default borrow limit
// unless overridden by opts.
func NewUser(email, name string, dob time.Time, opts ...UserOption) *User {
	u := &User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        name,
		DOB:         dob,
		JoinedAt:    time.Now().Truncate(24 * time.Hour),
		borrowLimit: DefaultBorrowLimit,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *User) ActiveBooks() int   { return u.activeBooks }
func (u *User) BooksBorrowed() int { return u.booksBorrowed }
func (u *User) BorrowLimit() int   { return u.borrowLimit }

// HasReachedLimit reports whether another checkout would exceed the borrow limit.
func (u *User) HasReachedLimit() bool { return u.activeBooks >= u.borrowLimit }

func (u *User) HasPassword() bool { return u.PasswordHash != "" }

func (u *User) snapshot() *User {
	cp := *u
	return &cp
}

// Checkout is a single lending transaction. It is open while ReturnTime is nil.
type Checkout struct {
	ID           string
	User         *User
	Book         *Book
	CheckoutTime time.Time
	ReturnTime   *time.Time
}

func (c *Checkout) IsOpen() bool { return c.ReturnTime == nil }

func (c *Checkout) snapshot() *Checkout {
	cp := *c
	cp.User = c.User.snapshot()
	cp.Book = c.Book.snapshot()
	if c.ReturnTime != nil {
		t := *c.ReturnTime
		cp.ReturnTime = &t
	}
	return &cp
}

// close moves the record to its terminal state. It reports false if it was already closed.
func (c *Checkout) close(at time.Time) bool {
	if c.ReturnTime != nil {
		return false
	}
	c.ReturnTime = &at
	return true
}
