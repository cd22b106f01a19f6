package library

import (
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/bcrypt"
)

const dobLayout = "2006-01-02"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// passwordCost is lowered by tests.
var passwordCost = bcrypt.DefaultCost

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailRegex.MatchString(strings.TrimSpace(s)) }

// ParseDOB parses a YYYY-MM-DD date of birth that is not in the future.
func ParseDOB(s string, now time.Time) (time.Time, error) {
	dob, err := time.Parse(dobLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidDOB, "%q is not YYYY-MM-DD", s)
	}
	if dob.After(now) {
		return time.Time{}, errors.Wrapf(ErrInvalidDOB, "%s is in the future", s)
	}
	return dob, nil
}

// Directory holds registered users in insertion order.
// It is not safe for concurrent use; LibraryManager serializes access.
type Directory struct {
	users   []*User
	byID    map[string]*User
	byEmail map[string]*User

	defaultLimit int
}

// NewDirectory returns an empty directory whose new users get defaultLimit as borrow limit.
func NewDirectory(defaultLimit int) *Directory {
	if defaultLimit <= 0 {
		defaultLimit = DefaultBorrowLimit
	}
	return &Directory{
		byID:         make(map[string]*User),
		byEmail:      make(map[string]*User),
		defaultLimit: defaultLimit,
	}
}

// NewUserParams carries the registration form.
type NewUserParams struct {
	Name        string
	Email       string
	DOB         string
	Password    string // optional
	BorrowLimit int    // 0 means the directory default
}

// AddUser validates the registration and stores a new user.
func (d *Directory) AddUser(p NewUserParams, now time.Time) (*User, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}
	email := strings.TrimSpace(p.Email)
	if !ValidEmail(email) {
		return nil, errors.Wrapf(ErrInvalidEmail, "%q", p.Email)
	}
	if _, ok := d.byEmail[strings.ToLower(email)]; ok {
		return nil, errors.Wrapf(ErrDuplicateEmail, "%s", email)
	}
	dob, err := ParseDOB(p.DOB, now)
	if err != nil {
		return nil, err
	}

	limit := p.BorrowLimit
	if limit == 0 {
		limit = d.defaultLimit
	}
	if limit < 0 {
		return nil, errors.Wrapf(ErrInvalidBorrowLimit, "%d", limit)
	}

	opts := []UserOption{
		WithBorrowLimit(limit),
		WithJoinedAt(now.Truncate(24 * time.Hour)),
	}
	if p.Password != "" {
		hash, err := hashPassword(p.Password)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithPasswordHash(hash))
	}

	u := NewUser(email, name, dob, opts...)
	d.users = append(d.users, u)
	d.byID[u.ID] = u
	d.byEmail[strings.ToLower(email)] = u
	return u, nil
}

func (d *Directory) FindByID(id string) (*User, error) {
	u, ok := d.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrUserNotFound, "id %s", id)
	}
	return u, nil
}

func (d *Directory) FindByEmail(email string) (*User, error) {
	u, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, errors.Wrapf(ErrUserNotFound, "email %s", email)
	}
	return u, nil
}

// Users returns all users in registration order.
func (d *Directory) Users() []*User {
	out := make([]*User, len(d.users))
	copy(out, d.users)
	return out
}

// Search runs the given strategy over the directory; a nil strategy means SimpleSearch.
func (d *Directory) Search(query string, s UserSearcher) []*User {
	if s == nil {
		s = SimpleSearch{}
	}
	return s.SearchUsers(d.users, query)
}

// SetBorrowLimit changes a user's limit. The new limit must be positive and may not drop
// below the number of books the user currently holds.
func (d *Directory) SetBorrowLimit(id string, limit int) error {
	u, err := d.FindByID(id)
	if err != nil {
		return err
	}
	if limit <= 0 || limit < u.activeBooks {
		return errors.Wrapf(ErrInvalidBorrowLimit, "%d (user holds %d books)", limit, u.activeBooks)
	}
	u.borrowLimit = limit
	return nil
}

// SetPassword replaces (or with an empty password clears) the user's password.
func (d *Directory) SetPassword(id, password string) error {
	u, err := d.FindByID(id)
	if err != nil {
		return err
	}
	if password == "" {
		u.PasswordHash = ""
		return nil
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// Authenticate looks the user up by email and checks the password when one is set.
func (d *Directory) Authenticate(email, password string) (*User, error) {
	u, err := d.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() {
		return u, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errors.Wrapf(ErrAuthenticationFailed, "%s", email)
		}
		return nil, errors.Wrap(err, "compare password")
	}
	return u, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}
