package library

import (
	"strings"
)

// NormalizeISBN strips hyphens and spaces and upper-cases a trailing X.
func NormalizeISBN(isbn string) string {
	r := strings.NewReplacer("-", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(isbn)))
}

// ValidISBN reports whether isbn is a well-formed ISBN-10 or ISBN-13 with a correct check digit.
func ValidISBN(isbn string) bool {
	s := NormalizeISBN(isbn)
	switch len(s) {
	case 10:
		return validISBN10(s)
	case 13:
		return validISBN13(s)
	default:
		return false
	}
}

// ISBN-10: the weighted sum of the first nine digits (weights 1..9) mod 11 equals the check
// digit, where X stands for 10.
func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 9; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += (i + 1) * int(c-'0')
	}

	var check int
	switch c := s[9]; {
	case c == 'X':
		check = 10
	case c >= '0' && c <= '9':
		check = int(c - '0')
	default:
		return false
	}
	return sum%11 == check
}

func validISBN13(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}
