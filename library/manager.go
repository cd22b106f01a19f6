package library

import (
	"io"
	"log/slog"
	"sync"

	"library-lending/internal/clock"

	"github.com/cockroachdb/errors"
)

// Options configures a LibraryManager. Zero values pick in-process defaults.
type Options struct {
	LedgerPath  string // MemoryLedger when empty
	BorrowLimit int    // DefaultBorrowLimit when zero
	Clock       clock.Clock
	Logger      *slog.Logger
}

// LibraryManager is the single owner of the catalog, the directory, the checkout engine and
// the ledger. One mutex serializes every operation, so concurrent callers observe each
// checkout or return as a whole.
//
// Books, users and checkouts handed out by the manager are snapshots taken under the lock.
// They never change afterwards; call the manager again for fresh state.
type LibraryManager struct {
	mu sync.Mutex

	catalog   *Catalog
	directory *Directory
	engine    *Engine
	ledger    *Ledger

	clock  clock.Clock
	logger *slog.Logger
}

// NewLibraryManager opens the ledger and returns an empty library.
func NewLibraryManager(opts Options) (*LibraryManager, error) {
	if opts.LedgerPath == "" {
		opts.LedgerPath = MemoryLedger
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ledger, err := OpenLedger(opts.LedgerPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger %s", opts.LedgerPath)
	}

	return &LibraryManager{
		catalog:   NewCatalog(),
		directory: NewDirectory(opts.BorrowLimit),
		engine:    NewEngine(opts.Clock, opts.Logger),
		ledger:    ledger,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}, nil
}

// Close closes the underlying ledger.
func (lm *LibraryManager) Close() error { return lm.ledger.Close() }

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(title, author, isbn string) (*Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	b, err := lm.catalog.AddBook(title, author, isbn)
	if err != nil {
		return nil, err
	}
	lm.logger.Debug("book added", slog.String("isbn", b.ISBN), slog.String("title", b.Title))
	return b.snapshot(), nil
}

func (lm *LibraryManager) RemoveBook(isbn string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.catalog.RemoveBook(isbn)
}

func (lm *LibraryManager) GetBook(isbn string) (*Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	b, err := lm.catalog.FindByISBN(isbn)
	if err != nil {
		return nil, err
	}
	return b.snapshot(), nil
}

func (lm *LibraryManager) GetAllBooks() []*Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return snapshotBooks(lm.catalog.Books())
}

func (lm *LibraryManager) SearchBooks(q string, s BookSearcher) []*Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return snapshotBooks(lm.catalog.Search(q, s))
}

// ------------------ User helpers ------------------

func (lm *LibraryManager) AddUser(p NewUserParams) (*User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	u, err := lm.directory.AddUser(p, lm.clock.Now())
	if err != nil {
		return nil, err
	}
	lm.logger.Debug("user added", slog.String("user_id", u.ID), slog.String("email", u.Email))
	return u.snapshot(), nil
}

func (lm *LibraryManager) GetUser(id string) (*User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return snapshotUser(lm.directory.FindByID(id))
}

func (lm *LibraryManager) GetUserByEmail(email string) (*User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return snapshotUser(lm.directory.FindByEmail(email))
}

func (lm *LibraryManager) GetAllUsers() []*User {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return snapshotUsers(lm.directory.Users())
}

func (lm *LibraryManager) SearchUsers(q string, s UserSearcher) []*User {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return snapshotUsers(lm.directory.Search(q, s))
}

func (lm *LibraryManager) SetBorrowLimit(userID string, limit int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.directory.SetBorrowLimit(userID, limit)
}

func (lm *LibraryManager) SetPassword(userID, password string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.directory.SetPassword(userID, password)
}

// Authenticate logs a user in by email, checking the password if the account has one.
func (lm *LibraryManager) Authenticate(email, password string) (*User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return snapshotUser(lm.directory.Authenticate(email, password))
}

// ------------------ Circulation ------------------

// CheckoutBook lends the book with the given ISBN to the user. Lending failures are reported
// through the error; classify them with KindOf.
func (lm *LibraryManager) CheckoutBook(userID, isbn string) (*Checkout, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	user, book, err := lm.resolve(userID, isbn)
	if err != nil {
		return nil, err
	}
	c, err := lm.engine.Checkout(user, book)
	if err != nil {
		lm.logFailure("checkout", user, book, err)
		return nil, err
	}
	if err := lm.ledger.RecordCheckout(c); err != nil {
		lm.logger.Error("ledger write failed", slog.String("checkout_id", c.ID), slog.String("error", err.Error()))
	}
	return c.snapshot(), nil
}

// ReturnBook closes the user's open checkout of the book with the given ISBN.
func (lm *LibraryManager) ReturnBook(userID, isbn string) (*Checkout, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	user, book, err := lm.resolve(userID, isbn)
	if err != nil {
		return nil, err
	}
	c, err := lm.engine.Return(user, book)
	if err != nil {
		lm.logFailure("return", user, book, err)
		return nil, err
	}
	if err := lm.ledger.RecordReturn(c); err != nil {
		lm.logger.Error("ledger write failed", slog.String("checkout_id", c.ID), slog.String("error", err.Error()))
	}
	return c.snapshot(), nil
}

// History returns all checkouts, oldest first.
func (lm *LibraryManager) History() []*Checkout {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return snapshotCheckouts(lm.engine.History())
}

// OpenCheckouts returns the user's books that are still out.
func (lm *LibraryManager) OpenCheckouts(userID string) ([]*Checkout, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	u, err := lm.directory.FindByID(userID)
	if err != nil {
		return nil, err
	}
	return snapshotCheckouts(lm.engine.OpenFor(u)), nil
}

func (lm *LibraryManager) resolve(userID, isbn string) (*User, *Book, error) {
	user, err := lm.directory.FindByID(userID)
	if err != nil {
		return nil, nil, err
	}
	book, err := lm.catalog.FindByISBN(isbn)
	if err != nil {
		return nil, nil, err
	}
	return user, book, nil
}

func (lm *LibraryManager) logFailure(op string, user *User, book *Book, err error) {
	kind := KindOf(err)
	if kind == KindInvariantViolation {
		// The engine already logged it with the stack.
		return
	}
	lm.logger.Info(op+" refused",
		slog.String("user_id", user.ID),
		slog.String("isbn", book.ISBN),
		slog.String("reason", kind.String()))
}

// ------------------ Reports ------------------

// MostBorrowed and UserTotals cover this session only; earlier sessions sharing a ledger file
// are left to cmd/ledger_report.

func (lm *LibraryManager) MostBorrowed(limit int) ([]BookCount, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.ledger.MostBorrowed(lm.ledger.Session(), limit)
}

func (lm *LibraryManager) UserTotals() ([]UserTotal, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.ledger.UserTotals(lm.ledger.Session())
}

// ------------------ Snapshots ------------------

func snapshotUser(u *User, err error) (*User, error) {
	if err != nil {
		return nil, err
	}
	return u.snapshot(), nil
}

func snapshotBooks(books []*Book) []*Book {
	out := make([]*Book, len(books))
	for i, b := range books {
		out[i] = b.snapshot()
	}
	return out
}

func snapshotUsers(users []*User) []*User {
	out := make([]*User, len(users))
	for i, u := range users {
		out[i] = u.snapshot()
	}
	return out
}

func snapshotCheckouts(cs []*Checkout) []*Checkout {
	out := make([]*Checkout, len(cs))
	for i, c := range cs {
		out[i] = c.snapshot()
	}
	return out
}
