package library

import "testing"

func TestValidISBN(t *testing.T) {
	tests := []struct {
		isbn string
		want bool
	}{
		{"0132350882", true},
		{"0596007973", true},
		{"0-13-235088-2", true},
		{"080442957X", true},
		{"0-8044-2957-x", true},
		{"9780132350884", true},
		{"978-0-13-235088-4", true},
		{"01323508", false},
		{"978-0-13-235088-4X", false},
		{"9780132350889", false},
		{"1234567890", false},
		{"X804429570", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.isbn, func(t *testing.T) {
			if got := ValidISBN(tt.isbn); got != tt.want {
				t.Fatalf("ValidISBN(%q) = %v, want %v", tt.isbn, got, tt.want)
			}
		})
	}
}

func TestNormalizeISBN(t *testing.T) {
	if got := NormalizeISBN(" 0-8044 2957-x "); got != "080442957X" {
		t.Fatalf("got %q", got)
	}
}
