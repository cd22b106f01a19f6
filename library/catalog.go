package library

import (
	"github.com/cockroachdb/errors"
)

// Catalog holds the library's books in insertion order, keyed by normalized ISBN.
// It is not safe for concurrent use; LibraryManager serializes access.
type Catalog struct {
	books  []*Book
	byISBN map[string]*Book
}

func NewCatalog() *Catalog {
	return &Catalog{byISBN: make(map[string]*Book)}
}

// AddBook validates the ISBN, rejects duplicates and stores a new available book.
func (c *Catalog) AddBook(title, author, isbn string) (*Book, error) {
	if !ValidISBN(isbn) {
		return nil, errors.Wrapf(ErrInvalidISBN, "%q", isbn)
	}
	key := NormalizeISBN(isbn)
	if _, ok := c.byISBN[key]; ok {
		return nil, errors.Wrapf(ErrDuplicateISBN, "ISBN %s", key)
	}

	b := NewBook(title, author, key)
	c.books = append(c.books, b)
	c.byISBN[key] = b
	return b, nil
}

// RemoveBook deletes the book with the given ISBN. Books that are lent out stay in the
// catalog until returned.
func (c *Catalog) RemoveBook(isbn string) error {
	key := NormalizeISBN(isbn)
	b, ok := c.byISBN[key]
	if !ok {
		return errors.Wrapf(ErrBookNotFound, "ISBN %s", key)
	}
	if !b.Available() {
		return errors.Wrapf(ErrBookCheckedOut, "%q", b.Title)
	}

	for i, candidate := range c.books {
		if candidate == b {
			c.books = append(c.books[:i], c.books[i+1:]...)
			break
		}
	}
	delete(c.byISBN, key)
	return nil
}

func (c *Catalog) FindByISBN(isbn string) (*Book, error) {
	key := NormalizeISBN(isbn)
	b, ok := c.byISBN[key]
	if !ok {
		return nil, errors.Wrapf(ErrBookNotFound, "ISBN %s", key)
	}
	return b, nil
}

// Books returns all books in insertion order.
func (c *Catalog) Books() []*Book {
	out := make([]*Book, len(c.books))
	copy(out, c.books)
	return out
}

func (c *Catalog) Len() int { return len(c.books) }

// Search runs the given strategy over the catalog; a nil strategy means SimpleSearch.
func (c *Catalog) Search(query string, s BookSearcher) []*Book {
	if s == nil {
		s = SimpleSearch{}
	}
	return s.SearchBooks(c.books, query)
}
