package library

import (
	"fmt"
	"io"
	"log/slog"

	"library-lending/internal/clock"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Engine brokers lending transactions. It is the only writer of Book availability and of a
// user's active book count, and it owns the open checkouts and the history log.
//
// Every operation validates first and mutates only once all checks have passed, so a failed
// call leaves no trace. Engine is not safe for concurrent use.
type Engine struct {
	clock  clock.Clock
	logger *slog.Logger

	open    []*Checkout
	history []*Checkout
}

func NewEngine(clk clock.Clock, logger *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{clock: clk, logger: logger}
}

// Checkout lends book to user. It fails with ErrBookUnavailable when the book is out and with
// ErrBorrowLimitReached when the user already holds their limit.
func (e *Engine) Checkout(user *User, book *Book) (*Checkout, error) {
	if err := e.checkRefs(user, book); err != nil {
		return nil, e.violation(err)
	}
	if err := e.checkUser(user); err != nil {
		return nil, e.violation(err)
	}

	if !book.available {
		return nil, errors.Wrapf(ErrBookUnavailable, "%q (ISBN %s)", book.Title, book.ISBN)
	}
	if e.openFor(book) != nil {
		return nil, e.violation(invariantViolation(
			"book %s is marked available but has an open checkout", book.ISBN))
	}
	if user.HasReachedLimit() {
		return nil, errors.Wrapf(ErrBorrowLimitReached, "user %s holds %d of %d", user.ID, user.activeBooks, user.borrowLimit)
	}

	// Commit. Nothing below can fail.
	c := &Checkout{
		ID:           uuid.NewString(),
		User:         user,
		Book:         book,
		CheckoutTime: e.clock.Now(),
	}
	user.activeBooks++
	user.booksBorrowed++
	e.open = append(e.open, c)
	e.history = append(e.history, c)
	book.available = false

	e.logger.Info("book checked out",
		slog.String("checkout_id", c.ID),
		slog.String("user_id", user.ID),
		slog.String("isbn", book.ISBN),
		slog.Int("active_books", user.activeBooks))
	return c, nil
}

// Return closes the first open checkout of book by user. It fails with ErrNoOpenCheckout when
// there is none.
func (e *Engine) Return(user *User, book *Book) (*Checkout, error) {
	if err := e.checkRefs(user, book); err != nil {
		return nil, e.violation(err)
	}
	if err := e.checkUser(user); err != nil {
		return nil, e.violation(err)
	}

	idx := -1
	for i, c := range e.open {
		if c.User.ID == user.ID && c.Book.ISBN == book.ISBN && c.IsOpen() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Wrapf(ErrNoOpenCheckout, "user %s, ISBN %s", user.ID, book.ISBN)
	}

	c := e.open[idx]
	if book.available {
		return nil, e.violation(invariantViolation(
			"book %s is marked available but checkout %s is open", book.ISBN, c.ID))
	}
	if user.activeBooks == 0 {
		return nil, e.violation(invariantViolation(
			"user %s has an open checkout %s but no active books", user.ID, c.ID))
	}

	if !c.close(e.clock.Now()) {
		return nil, errors.Wrapf(ErrAlreadyReturned, "checkout %s", c.ID)
	}
	e.open = append(e.open[:idx], e.open[idx+1:]...)
	user.activeBooks--
	book.available = true

	e.logger.Info("book returned",
		slog.String("checkout_id", c.ID),
		slog.String("user_id", user.ID),
		slog.String("isbn", book.ISBN),
		slog.Int("active_books", user.activeBooks))
	return c, nil
}

// History returns every checkout ever made, oldest first. The slice is a copy; the records are
// shared, so a later return is visible through it.
func (e *Engine) History() []*Checkout {
	out := make([]*Checkout, len(e.history))
	copy(out, e.history)
	return out
}

// Open returns the checkouts that have not been returned, oldest first.
func (e *Engine) Open() []*Checkout {
	out := make([]*Checkout, len(e.open))
	copy(out, e.open)
	return out
}

// OpenFor returns the user's open checkouts, oldest first.
func (e *Engine) OpenFor(user *User) []*Checkout {
	var out []*Checkout
	for _, c := range e.open {
		if c.User.ID == user.ID {
			out = append(out, c)
		}
	}
	return out
}

// HasOpenCheckout reports whether any open checkout references the book.
func (e *Engine) HasOpenCheckout(book *Book) bool {
	return e.openFor(book) != nil
}

func (e *Engine) openFor(book *Book) *Checkout {
	for _, c := range e.open {
		if c.Book.ISBN == book.ISBN {
			return c
		}
	}
	return nil
}

func (e *Engine) checkRefs(user *User, book *Book) error {
	switch {
	case user == nil:
		return invariantViolation("nil user")
	case book == nil:
		return invariantViolation("nil book")
	case user.ID == "":
		return invariantViolation("user without id")
	case book.ISBN == "":
		return invariantViolation("book %q without ISBN", book.Title)
	}
	return nil
}

func (e *Engine) checkUser(user *User) error {
	if user.borrowLimit <= 0 {
		return invariantViolation("user %s has non-positive borrow limit %d", user.ID, user.borrowLimit)
	}
	if user.activeBooks < 0 || user.activeBooks > user.borrowLimit {
		return invariantViolation("user %s holds %d books with limit %d", user.ID, user.activeBooks, user.borrowLimit)
	}
	return nil
}

// violation logs an invariant violation with its stack and hands it back to the caller.
func (e *Engine) violation(err error) error {
	e.logger.Error("checkout engine invariant violated",
		slog.String("error", err.Error()),
		slog.String("stack", fmt.Sprintf("%+v", err)))
	return err
}
