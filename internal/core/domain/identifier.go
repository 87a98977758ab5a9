package domain

import "strings"

// Identifier bounds follow ISO 13616: two letters, two check digits, up to 30 BBAN characters.
const (
	minIdentifierLength = 15
	maxIdentifierLength = 34
)

// IdentifierCheckDigits computes the ISO 13616 mod-97 check digits for an
// account identifier with the given country code and BBAN.
func IdentifierCheckDigits(country, bban string) (string, bool) {
	rem, ok := mod97(bban + country + "00")
	if !ok {
		return "", false
	}
	check := 98 - rem
	return string([]byte{byte('0' + check/10), byte('0' + check%10)}), true
}

// ValidIdentifier reports whether s is a well-formed account identifier:
// upper-case alphanumerics, a two-letter country prefix and a valid mod-97 checksum.
func ValidIdentifier(s string) bool {
	if len(s) < minIdentifierLength || len(s) > maxIdentifierLength {
		return false
	}
	if !isUpper(s[0]) || !isUpper(s[1]) || !isDigit(s[2]) || !isDigit(s[3]) {
		return false
	}
	rem, ok := mod97(s[4:] + s[:4])
	return ok && rem == 1
}

// mod97 reduces s modulo 97, reading letters as 10..35.
func mod97(s string) (int, bool) {
	rem := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isDigit(c):
			rem = (rem*10 + int(c-'0')) % 97
		case isUpper(c):
			rem = (rem*100 + int(c-'A') + 10) % 97
		default:
			return 0, false
		}
	}
	return rem, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

// NormalizeIdentifier strips spaces and upper-cases a user-supplied identifier.
func NormalizeIdentifier(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
