package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryLedger is the ledger path that keeps the database inside the process.
const MemoryLedger = ":memory:"

// Ledger mirrors every checkout and return into SQLite so that reports can be run with SQL.
// The in-memory engine stays authoritative; the ledger is never read back into it.
//
// Every ledger opened for writing gets its own session id. User and checkout ids are minted
// per process, so rows from earlier sessions are only comparable by email.
type Ledger struct {
	db      *sql.DB
	session string

	recordCheckoutStmt *sql.Stmt
	recordReturnStmt   *sql.Stmt
}

// OpenLedger opens (or creates) the ledger at path, applies schema migrations, and prepares
// common statements. Use MemoryLedger for a throwaway ledger.
func OpenLedger(path string) (*Ledger, error) {
	var dsn string
	if path == MemoryLedger {
		dsn = MemoryLedger
	} else {
		// Ensure directory exists so first-run succeeds.
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "create ledger dir")
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db, path != MemoryLedger); err != nil {
		db.Close()
		return nil, err
	}

	l := &Ledger{db: db, session: uuid.NewString()}
	if err := l.prepareStatements(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// Session identifies the rows written through this ledger.
func (l *Ledger) Session() string { return l.session }

// Close releases prepared statements and closes the DB.
func (l *Ledger) Close() error {
	if l.recordCheckoutStmt != nil {
		l.recordCheckoutStmt.Close()
	}
	if l.recordReturnStmt != nil {
		l.recordReturnStmt.Close()
	}
	return l.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

// migrations[v] upgrades a ledger at version v-1 to version v.
var migrations = [][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS checkouts (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            user_name TEXT NOT NULL,
            isbn TEXT NOT NULL,
            title TEXT NOT NULL,
            checkout_time DATETIME NOT NULL,
            return_time DATETIME
        );`,
		`CREATE INDEX IF NOT EXISTS idx_checkouts_isbn ON checkouts(isbn);`,
		`CREATE INDEX IF NOT EXISTS idx_checkouts_user ON checkouts(user_id);`,
	},
	2: {
		`ALTER TABLE checkouts ADD COLUMN session TEXT NOT NULL DEFAULT '';`,
		`ALTER TABLE checkouts ADD COLUMN user_email TEXT NOT NULL DEFAULT '';`,
		`CREATE INDEX IF NOT EXISTS idx_checkouts_session ON checkouts(session);`,
	},
}

const schemaVersion = 2

func applyMigrations(db *sql.DB, wal bool) error {
	if wal {
		// WAL lets the report tool read while a session writes.
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return errors.Wrap(err, "enable WAL")
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for v := current + 1; v <= schemaVersion; v++ {
		for _, stmt := range migrations[v] {
			if _, err := tx.Exec(stmt); err != nil {
				return errors.Wrapf(err, "apply migration %d", v)
			}
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return errors.Wrap(err, "record schema version")
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (l *Ledger) prepareStatements() error {
	var err error
	if l.recordCheckoutStmt, err = l.db.Prepare(`INSERT INTO checkouts(id,session,user_id,user_email,user_name,isbn,title,checkout_time) VALUES(?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	if l.recordReturnStmt, err = l.db.Prepare(`UPDATE checkouts SET return_time=? WHERE id=? AND session=? AND return_time IS NULL`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// RecordCheckout appends an open checkout to the current session.
func (l *Ledger) RecordCheckout(c *Checkout) error {
	_, err := l.recordCheckoutStmt.Exec(c.ID, l.session, c.User.ID, strings.ToLower(c.User.Email), c.User.Name, c.Book.ISBN, c.Book.Title, c.CheckoutTime)
	return errors.Wrapf(err, "record checkout %s", c.ID)
}

// RecordReturn stamps the return time on a checkout recorded in the current session.
func (l *Ledger) RecordReturn(c *Checkout) error {
	if c.ReturnTime == nil {
		return errors.Newf("checkout %s is still open", c.ID)
	}
	res, err := l.recordReturnStmt.Exec(*c.ReturnTime, c.ID, l.session)
	if err != nil {
		return errors.Wrapf(err, "record return %s", c.ID)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Newf("no open ledger entry for checkout %s", c.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

// AllSessions scopes a report to every session in the ledger.
const AllSessions = ""

// LedgerEntry is one row of the ledger.
type LedgerEntry struct {
	CheckoutID   string
	Session      string
	UserID       string
	UserEmail    string
	UserName     string
	ISBN         string
	Title        string
	CheckoutTime time.Time
	ReturnTime   *time.Time
}

// BookCount is how often a title has been lent.
type BookCount struct {
	ISBN  string
	Title string
	Count int
}

// UserTotal summarizes one user's lending activity. Users are matched by email so that the
// same person is one row across sessions. Open counts unreturned rows, which for an ended
// session means books that were still out when it stopped.
type UserTotal struct {
	Email    string
	UserName string
	Total    int
	Open     int
}

// Entries returns the ledger rows of session (or AllSessions) in checkout order.
func (l *Ledger) Entries(session string) ([]LedgerEntry, error) {
	rows, err := l.db.Query(`
        SELECT id,session,user_id,user_email,user_name,isbn,title,checkout_time,return_time
        FROM checkouts
        WHERE (?1 = '' OR session = ?1)
        ORDER BY checkout_time, rowid`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var (
			e        LedgerEntry
			returned sql.NullTime
		)
		if err := rows.Scan(&e.CheckoutID, &e.Session, &e.UserID, &e.UserEmail, &e.UserName, &e.ISBN, &e.Title, &e.CheckoutTime, &returned); err != nil {
			return nil, err
		}
		if returned.Valid {
			t := returned.Time
			e.ReturnTime = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MostBorrowed returns up to limit books of session (or AllSessions) ordered by number of
// checkouts, then ISBN.
func (l *Ledger) MostBorrowed(session string, limit int) ([]BookCount, error) {
	if limit <= 0 {
		return []BookCount{}, nil
	}
	rows, err := l.db.Query(`
        SELECT isbn, MAX(title), COUNT(*) AS n
        FROM checkouts
        WHERE (?1 = '' OR session = ?1)
        GROUP BY isbn
        ORDER BY n DESC, isbn ASC
        LIMIT ?2;`, session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []BookCount
	for rows.Next() {
		var c BookCount
		if err := rows.Scan(&c.ISBN, &c.Title, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// UserTotals returns per-user totals of session (or AllSessions) ordered by total descending,
// then name. Rows written before emails were recorded fall back to the user id.
func (l *Ledger) UserTotals(session string) ([]UserTotal, error) {
	rows, err := l.db.Query(`
        SELECT MAX(user_email), MAX(user_name), COUNT(*) AS total,
               SUM(CASE WHEN return_time IS NULL THEN 1 ELSE 0 END)
        FROM checkouts
        WHERE (?1 = '' OR session = ?1)
        GROUP BY CASE WHEN user_email = '' THEN user_id ELSE user_email END
        ORDER BY total DESC, MAX(user_name) ASC;`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []UserTotal
	for rows.Next() {
		var t UserTotal
		if err := rows.Scan(&t.Email, &t.UserName, &t.Total, &t.Open); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
