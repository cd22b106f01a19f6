package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"library-lending/library"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

const timeLayout = "2006-01-02 15:04"

type repl struct {
	sc   *bufio.Scanner
	out  io.Writer
	mgr  *library.LibraryManager
	user *library.User

	// passwordFD is the terminal used for masked password input, or -1 when input is piped.
	passwordFD int
}

func newREPL(in io.Reader, out io.Writer, mgr *library.LibraryManager) *repl {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &repl{sc: bufio.NewScanner(in), out: out, mgr: mgr, passwordFD: fd}
}

func (r *repl) printf(format string, args ...interface{}) { fmt.Fprintf(r.out, format, args...) }
func (r *repl) println(args ...interface{})               { fmt.Fprintln(r.out, args...) }

// prompt prints label and reads one trimmed line. ok is false at end of input.
func (r *repl) prompt(label string) (string, bool) {
	r.printf("%s", label)
	if !r.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.sc.Text()), true
}

// readPassword reads a password with masking when attached to a terminal.
func (r *repl) readPassword(label string) (string, bool) {
	if r.passwordFD < 0 {
		return r.prompt(label)
	}
	r.printf("%s", label)
	b, err := term.ReadPassword(r.passwordFD)
	r.println() // Add newline after password input
	if err != nil {
		r.printf("Error reading password: %v\n", err)
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

func (r *repl) printMenu() {
	r.println("Available commands:")
	r.println("  Books: add book, remove book, list books, search book")
	r.println("  Users: add user, list users, search user, set limit")
	r.println("  Circulation: checkout, return, my books, history")
	r.println("  Reports: report, export history")
	r.println("  Session: logout, help, exit")
}

// Run drives the session until the user exits or input ends.
func (r *repl) Run() error {
	r.println("Welcome to the Library Management System!")

	for {
		if r.user == nil {
			if quit := r.login(); quit {
				r.println("Goodbye!")
				return nil
			}
			continue
		}

		cmd, ok := r.prompt("\n> ")
		if !ok {
			return nil
		}

		switch strings.ToLower(cmd) {
		case "add book":
			r.handleAddBook()
		case "remove book":
			r.handleRemoveBook()
		case "list books":
			r.handleListBooks()
		case "search book":
			r.handleSearchBook()
		case "add user":
			r.handleRegister(false)
		case "list users":
			r.handleListUsers()
		case "search user":
			r.handleSearchUser()
		case "set limit":
			r.handleSetLimit()
		case "checkout":
			r.handleCheckout()
		case "return":
			r.handleReturn()
		case "my books":
			r.handleMyBooks()
		case "history":
			r.handleHistory()
		case "report":
			r.handleReport()
		case "export history":
			r.handleExportHistory()
		case "logout":
			r.printf("Goodbye, %s.\n", r.user.Name)
			r.user = nil
		case "help":
			r.printMenu()
		case "":
		case "exit":
			r.println("Goodbye!")
			return nil
		default:
			r.println("Unknown command. Type 'help' to list the available commands.")
		}
	}
}

// ------------------ Session ------------------

// login asks for an existing or new account. It reports true when the user wants to quit.
func (r *repl) login() bool {
	choice, ok := r.prompt("\nDo you have an account? (yes/no/exit): ")
	if !ok {
		return true
	}
	switch strings.ToLower(choice) {
	case "yes":
		r.handleLogin()
	case "no":
		r.handleRegister(true)
	case "exit":
		return true
	default:
		r.println("Invalid choice.")
	}
	return false
}

func (r *repl) handleLogin() {
	email, ok := r.prompt("Enter your email: ")
	if !ok {
		return
	}
	if !library.ValidEmail(email) {
		r.println("Invalid email format. Please enter a valid email.")
		return
	}
	user, err := r.mgr.GetUserByEmail(email)
	if err != nil {
		r.println("User not found. Please try again.")
		return
	}

	var password string
	if user.HasPassword() {
		if password, ok = r.readPassword("Enter your password: "); !ok {
			return
		}
	}
	if user, err = r.mgr.Authenticate(email, password); err != nil {
		r.printf("Authentication failed: %v\n", err)
		return
	}

	r.user = user
	r.printf("Welcome back, %s!\n", user.Name)
	r.printMenu()
}

// handleRegister creates an account; with login set the new user becomes the session user.
func (r *repl) handleRegister(login bool) {
	name, ok := r.prompt("Enter your name: ")
	if !ok {
		return
	}
	email, ok := r.prompt("Enter your email: ")
	if !ok {
		return
	}
	if !library.ValidEmail(email) {
		r.println("Invalid email format. Please enter a valid email.")
		return
	}
	dob, ok := r.prompt("Enter your date of birth (YYYY-MM-DD): ")
	if !ok {
		return
	}
	password, ok := r.readPassword("Choose a password (optional, press Enter to skip): ")
	if !ok {
		return
	}

	user, err := r.mgr.AddUser(library.NewUserParams{Name: name, Email: email, DOB: dob, Password: password})
	if err != nil {
		r.printf("Error creating account: %v\n", err)
		return
	}

	if !login {
		r.printf("Added user '%s' <%s> with borrow limit %d\n", user.Name, user.Email, user.BorrowLimit())
		return
	}
	r.user = user
	r.printf("Welcome, %s! Your account has been created successfully.\n", user.Name)
	r.printMenu()
}

// ------------------ Books ------------------

func (r *repl) handleAddBook() {
	title, ok := r.prompt("Enter the title of the book: ")
	if !ok {
		return
	}
	author, ok := r.prompt("Enter the author of the book: ")
	if !ok {
		return
	}
	isbn, ok := r.prompt("Enter the ISBN of the book: ")
	if !ok {
		return
	}

	book, err := r.mgr.AddBook(title, author, isbn)
	if err != nil {
		r.printf("Error adding book: %v\n", err)
		return
	}
	r.printf("Book added successfully! (ISBN %s)\n", book.ISBN)
}

func (r *repl) handleRemoveBook() {
	isbn, ok := r.prompt("Enter the ISBN of the book to remove: ")
	if !ok {
		return
	}
	if err := r.mgr.RemoveBook(isbn); err != nil {
		r.printf("Error removing book: %v\n", err)
		return
	}
	r.println("Book successfully removed")
}

func (r *repl) handleListBooks() {
	books := r.mgr.GetAllBooks()
	if len(books) == 0 {
		r.println("No books in library.")
		return
	}

	r.printf("%-14s %-30s %-25s %-10s\n", "ISBN", "Title", "Author", "Available")
	r.println(strings.Repeat("-", 82))
	for _, b := range books {
		r.printf("%-14s %-30s %-25s %-10s\n",
			b.ISBN,
			library.TruncateString(b.Title, 30),
			library.TruncateString(b.Author, 25),
			yesNo(b.Available()))
	}
}

func (r *repl) handleSearchBook() {
	query, ok := r.prompt("Enter your search query: ")
	if !ok {
		return
	}
	strategy, ok := r.prompt("Enter search strategy (simple/advanced): ")
	if !ok {
		return
	}
	books, _, valid := library.SearcherFor(strategy)
	if !valid {
		r.println("Invalid search strategy.")
		return
	}

	found := r.mgr.SearchBooks(query, books)
	if len(found) == 0 {
		r.println("No matching books found.")
		return
	}
	for _, b := range found {
		r.println(b.String())
	}
}

// ------------------ Users ------------------

func (r *repl) handleListUsers() {
	users := r.mgr.GetAllUsers()
	if len(users) == 0 {
		r.println("No users registered.")
		return
	}

	r.printf("%-25s %-30s %-8s %-6s %-8s\n", "Name", "Email", "Active", "Limit", "Password")
	r.println(strings.Repeat("-", 82))
	for _, u := range users {
		r.printf("%-25s %-30s %-8d %-6d %-8s\n",
			library.TruncateString(u.Name, 25),
			library.TruncateString(u.Email, 30),
			u.ActiveBooks(),
			u.BorrowLimit(),
			yesNo(u.HasPassword()))
	}
}

func (r *repl) handleSearchUser() {
	query, ok := r.prompt("Enter your search query: ")
	if !ok {
		return
	}
	strategy, ok := r.prompt("Enter search strategy (simple/advanced): ")
	if !ok {
		return
	}
	_, searcher, valid := library.SearcherFor(strategy)
	if !valid {
		r.println("Invalid search strategy.")
		return
	}
	users := r.mgr.SearchUsers(query, searcher)
	if len(users) == 0 {
		r.println("No matching users found.")
		return
	}
	for _, u := range users {
		r.printf("%s <%s> born %s, joined %s, %d/%d books\n",
			u.Name, u.Email, u.DOB.Format("2006-01-02"), u.JoinedAt.Format("2006-01-02"), u.ActiveBooks(), u.BorrowLimit())
	}
}

func (r *repl) handleSetLimit() {
	email, ok := r.prompt("User email: ")
	if !ok {
		return
	}
	limitStr, ok := r.prompt("New borrow limit: ")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		r.printf("Invalid limit: %s\n", limitStr)
		return
	}

	user, err := r.mgr.GetUserByEmail(email)
	if err != nil {
		r.printf("Error: %v\n", err)
		return
	}
	if err := r.mgr.SetBorrowLimit(user.ID, limit); err != nil {
		r.printf("Error setting limit: %v\n", err)
		return
	}
	r.printf("Borrow limit for %s is now %d\n", user.Name, limit)
}

// ------------------ Circulation ------------------

func (r *repl) handleCheckout() {
	isbn, ok := r.prompt("Enter the ISBN of the book to checkout: ")
	if !ok {
		return
	}
	c, err := r.mgr.CheckoutBook(r.user.ID, isbn)
	if err != nil {
		r.println(r.describeFailure(err))
		return
	}
	r.user = c.User
	r.printf("Book '%s' checked out to %s (%d/%d)\n", c.Book.Title, c.User.Name, c.User.ActiveBooks(), c.User.BorrowLimit())
}

func (r *repl) handleReturn() {
	isbn, ok := r.prompt("Enter the ISBN of the book to return: ")
	if !ok {
		return
	}
	c, err := r.mgr.ReturnBook(r.user.ID, isbn)
	if err != nil {
		r.println(r.describeFailure(err))
		return
	}
	r.user = c.User
	r.printf("Book '%s' returned successfully!\n", c.Book.Title)
}

func (r *repl) handleMyBooks() {
	open, err := r.mgr.OpenCheckouts(r.user.ID)
	if err != nil {
		r.printf("Error: %v\n", err)
		return
	}
	if len(open) == 0 {
		r.println("You have no books checked out.")
		return
	}
	r.refreshUser()
	r.printf("You have %d of %d books:\n", len(open), r.user.BorrowLimit())
	for _, c := range open {
		r.printf("  %-14s %-30s since %s\n", c.Book.ISBN, library.TruncateString(c.Book.Title, 30), c.CheckoutTime.Format(timeLayout))
	}
}

func (r *repl) handleHistory() {
	history := r.mgr.History()
	if len(history) == 0 {
		r.println("No checkout history found.")
		return
	}
	for _, c := range history {
		r.printf("User: %s, Book: %s, Checkout Date: %s, Return Date: %s\n",
			c.User.Name, c.Book.Title, c.CheckoutTime.Format(timeLayout), formatReturn(c.ReturnTime))
	}
}

// refreshUser replaces the session user with a fresh snapshot.
func (r *repl) refreshUser() {
	if u, err := r.mgr.GetUser(r.user.ID); err == nil {
		r.user = u
	}
}

// describeFailure turns a circulation error into a message for the user.
func (r *repl) describeFailure(err error) string {
	switch library.KindOf(err) {
	case library.KindBookUnavailable:
		return "Book not available for checkout."
	case library.KindBorrowLimitReached:
		r.refreshUser()
		return fmt.Sprintf("%s has borrowed too many books (limit %d).", r.user.Name, r.user.BorrowLimit())
	case library.KindNoOpenCheckout:
		return "No matching checkout found for the user and book combination."
	case library.KindAlreadyReturned:
		return "Book already returned."
	case library.KindInvariantViolation:
		return "Internal error: the library state is inconsistent, nothing was changed."
	}
	if errors.Is(err, library.ErrBookNotFound) {
		return "Book not found."
	}
	return fmt.Sprintf("Error: %v", err)
}

// ------------------ Reports ------------------

func (r *repl) handleReport() {
	counts, err := r.mgr.MostBorrowed(5)
	if err != nil {
		r.printf("Error reading ledger: %v\n", err)
		return
	}
	totals, err := r.mgr.UserTotals()
	if err != nil {
		r.printf("Error reading ledger: %v\n", err)
		return
	}
	library.WriteReport(r.out, counts, totals)
}

func (r *repl) handleExportHistory() {
	path, ok := r.prompt("Path to write JSON to: ")
	if !ok {
		return
	}
	if path == "" {
		r.println("Error: path cannot be empty")
		return
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		r.printf("Error creating file: %v\n", err)
		return
	}
	defer f.Close()

	n, err := r.mgr.ExportHistory(f)
	if err != nil {
		r.printf("Error exporting history: %v\n", err)
		return
	}
	r.printf("Exported %d checkout(s) to %s\n", n, path)
}

func formatReturn(t *time.Time) string {
	if t == nil {
		return "not returned"
	}
	return t.Format(timeLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
