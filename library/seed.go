package library

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Seed is the on-disk format used to preload a library.
type Seed struct {
	Books []SeedBook `json:"books"`
	Users []SeedUser `json:"users"`
}

type SeedBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

type SeedUser struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	DOB         string `json:"dob"`
	BorrowLimit int    `json:"borrow_limit,omitempty"`
	Password    string `json:"password,omitempty"`
}

// LoadSeed decodes a Seed from r and adds its books and users. It stops at the first entry
// that fails validation.
func (lm *LibraryManager) LoadSeed(r io.Reader) (books, users int, err error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return 0, 0, errors.Wrap(err, "decode seed")
	}

	for i, b := range seed.Books {
		if _, err := lm.AddBook(b.Title, b.Author, b.ISBN); err != nil {
			return books, users, errors.Wrapf(err, "seed book #%d", i+1)
		}
		books++
	}
	for i, u := range seed.Users {
		_, err := lm.AddUser(NewUserParams{
			Name:        u.Name,
			Email:       u.Email,
			DOB:         u.DOB,
			Password:    u.Password,
			BorrowLimit: u.BorrowLimit,
		})
		if err != nil {
			return books, users, errors.Wrapf(err, "seed user #%d", i+1)
		}
		users++
	}
	return books, users, nil
}

// LoadSeedFile reads the seed at path (relative paths resolve from cwd).
func (lm *LibraryManager) LoadSeedFile(path string) (books, users int, err error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return lm.LoadSeed(f)
}

// HistoryRecord is the exported form of a checkout.
type HistoryRecord struct {
	CheckoutID   string     `json:"checkout_id"`
	UserID       string     `json:"user_id"`
	UserName     string     `json:"user_name"`
	ISBN         string     `json:"isbn"`
	Title        string     `json:"title"`
	CheckoutTime time.Time  `json:"checkout_time"`
	ReturnTime   *time.Time `json:"return_time"`
}

func newHistoryRecord(c *Checkout) HistoryRecord {
	return HistoryRecord{
		CheckoutID:   c.ID,
		UserID:       c.User.ID,
		UserName:     c.User.Name,
		ISBN:         c.Book.ISBN,
		Title:        c.Book.Title,
		CheckoutTime: c.CheckoutTime,
		ReturnTime:   c.ReturnTime,
	}
}

// ExportHistory writes the full checkout history to w as an indented JSON array.
func (lm *LibraryManager) ExportHistory(w io.Writer) (int, error) {
	lm.mu.Lock()
	history := lm.engine.History()
	records := make([]HistoryRecord, 0, len(history))
	for _, c := range history {
		records = append(records, newHistoryRecord(c))
	}
	lm.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return 0, errors.Wrap(err, "encode history")
	}
	return len(records), nil
}
