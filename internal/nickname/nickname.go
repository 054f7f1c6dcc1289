// Package nickname validates and normalizes profile nicknames.
//
// Validation is pure and synchronous; availability against stored profiles
// lives in the availability package.
package nickname

import (
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 3
	MaxLength = 36
)

// ErrorKind identifies the first rule a candidate failed.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindTooShort           ErrorKind = "too_short"
	KindTooLong            ErrorKind = "too_long"
	KindInvalidCharacters  ErrorKind = "invalid_characters"
	KindBoundarySymbol     ErrorKind = "boundary_symbol"
	KindConsecutiveSymbols ErrorKind = "consecutive_symbols"
	KindReserved           ErrorKind = "reserved"
)

var messages = map[ErrorKind]string{
	KindTooShort:           "nickname too short",
	KindTooLong:            "nickname too long",
	KindInvalidCharacters:  "nickname contains invalid characters",
	KindBoundarySymbol:     "nickname cannot start or end with a symbol",
	KindConsecutiveSymbols: "nickname cannot contain consecutive symbols",
	KindReserved:           "nickname is a reserved word",
}

// Message returns the user-facing text for k.
func (k ErrorKind) Message() string {
	return messages[k]
}

// Result is the outcome of Validate. Error is empty when IsValid is true.
type Result struct {
	IsValid bool      `json:"isValid"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Error   string    `json:"error,omitempty"`
}

func valid() Result { return Result{IsValid: true} }

func invalid(k ErrorKind) Result {
	return Result{Kind: k, Error: k.Message()}
}

// Validate checks candidate against the nickname rules in order and reports
// the first failure. Length is measured in characters, not bytes.
func Validate(candidate string) Result {
	n := utf8.RuneCountInString(candidate)
	switch {
	case n < MinLength:
		return invalid(KindTooShort)
	case n > MaxLength:
		return invalid(KindTooLong)
	}

	for _, r := range candidate {
		if !isSymbol(r) && !isAlnum(r) {
			return invalid(KindInvalidCharacters)
		}
	}

	// Only ASCII remains, so byte indexing is safe.
	if isSymbol(rune(candidate[0])) || isSymbol(rune(candidate[len(candidate)-1])) {
		return invalid(KindBoundarySymbol)
	}

	prevSymbol := false
	for _, r := range candidate {
		sym := isSymbol(r)
		if sym && prevSymbol {
			return invalid(KindConsecutiveSymbols)
		}
		prevSymbol = sym
	}

	if IsReserved(candidate) {
		return invalid(KindReserved)
	}
	return valid()
}

// Normalize returns the form used for every nickname comparison and for the
// uniqueness constraint in both stores.
func Normalize(s string) string {
	return strings.ToLower(s)
}

// Equal reports whether a and b are the same nickname.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

func isSymbol(r rune) bool {
	return r == '-' || r == '_'
}

func isAlnum(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}
