package library

import (
	"strings"
)

// BookSearcher selects the books matching query.
type BookSearcher interface {
	SearchBooks(books []*Book, query string) []*Book
}

// UserSearcher selects the users matching query.
type UserSearcher interface {
	SearchUsers(users []*User, query string) []*User
}

// BookField names a searchable book attribute.
type BookField string

const (
	FieldTitle  BookField = "title"
	FieldAuthor BookField = "author"
	FieldISBN   BookField = "isbn"
)

func (f BookField) value(b *Book) string {
	switch f {
	case FieldTitle:
		return b.Title
	case FieldAuthor:
		return b.Author
	case FieldISBN:
		return b.ISBN
	}
	return ""
}

var allBookFields = []BookField{FieldTitle, FieldAuthor, FieldISBN}

// SimpleSearch matches when the query is a case-insensitive substring of any field.
type SimpleSearch struct{}

func (SimpleSearch) SearchBooks(books []*Book, query string) []*Book {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []*Book{}
	}
	results := []*Book{}
	for _, b := range books {
		if anyFieldContains(b, allBookFields, q) {
			results = append(results, b)
		}
	}
	return results
}

func (SimpleSearch) SearchUsers(users []*User, query string) []*User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []*User{}
	}
	results := []*User{}
	for _, u := range users {
		if userContains(u, q) {
			results = append(results, u)
		}
	}
	return results
}

// AdvancedSearch matches when every whitespace-separated word of the query appears in at
// least one of Fields. An empty Fields searches title, author and ISBN.
type AdvancedSearch struct {
	Fields []BookField
}

func (s AdvancedSearch) SearchBooks(books []*Book, query string) []*Book {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return []*Book{}
	}
	fields := s.Fields
	if len(fields) == 0 {
		fields = allBookFields
	}

	results := []*Book{}
	for _, b := range books {
		if allWords(words, func(w string) bool { return anyFieldContains(b, fields, w) }) {
			results = append(results, b)
		}
	}
	return results
}

func (AdvancedSearch) SearchUsers(users []*User, query string) []*User {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return []*User{}
	}
	results := []*User{}
	for _, u := range users {
		if allWords(words, func(w string) bool { return userContains(u, w) }) {
			results = append(results, u)
		}
	}
	return results
}

// SearcherFor returns the strategy named by the front end ("simple" or "advanced").
func SearcherFor(name string) (BookSearcher, UserSearcher, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "simple":
		return SimpleSearch{}, SimpleSearch{}, true
	case "advanced":
		return AdvancedSearch{}, AdvancedSearch{}, true
	}
	return nil, nil, false
}

func anyFieldContains(b *Book, fields []BookField, q string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f.value(b)), q) {
			return true
		}
	}
	return false
}

func userContains(u *User, q string) bool {
	return strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q)
}

func allWords(words []string, match func(string) bool) bool {
	for _, w := range words {
		if !match(w) {
			return false
		}
	}
	return true
}
