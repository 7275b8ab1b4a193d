// Package rut validates and normalizes Chilean national tax identifiers
// (Rol Único Tributario). A RUT consists of a numeric body and a single
// verification digit computed with the modulus-11 algorithm. Surface
// formats vary in the wild ("12.345.678-5", "12345678-5", "123456785",
// lowercase "k"), so every entry point normalizes before comparing.
package rut

import (
	"errors"
	"strings"
)

// ErrMalformedInput is returned when the numeric body of a RUT is empty or
// contains characters other than digits.
var ErrMalformedInput = errors.New("rut: malformed input")

// ErrInvalidChecksum is returned when the supplied verification digit does
// not match the one computed from the numeric body.
var ErrInvalidChecksum = errors.New("rut: invalid check digit")

// Normalize parses s in any accepted surface format and returns the
// canonical form "body-check" (e.g. "12.345.678-5" → "12345678-5").
// The check digit is uppercased. Normalize is idempotent: feeding its own
// output back yields the same string.
func Normalize(s string) (string, error) {
	body, check, err := split(s)
	if err != nil {
		return "", err
	}
	if computeCheckDigit(body) != check {
		return "", ErrInvalidChecksum
	}
	return body + "-" + string(check), nil
}

// Valid reports whether s is a well-formed RUT with a correct check digit.
func Valid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

// Equal reports whether two RUT strings identify the same taxpayer,
// comparing canonical forms rather than raw text. Invalid input on either
// side yields false.
func Equal(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}

// split strips separators and returns the numeric body plus the uppercased
// check digit. The last alphanumeric character is always the check digit.
func split(s string) (string, byte, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteByte(byte(r))
		case r == 'k':
			b.WriteByte('K')
		case r == 'K':
			b.WriteByte('K')
		case r == '.' || r == '-' || r == ' ':
			// separators are ignored
		default:
			return "", 0, ErrMalformedInput
		}
	}
	cleaned := b.String()
	if len(cleaned) < 2 {
		return "", 0, ErrMalformedInput
	}
	body, check := cleaned[:len(cleaned)-1], cleaned[len(cleaned)-1]
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return "", 0, ErrMalformedInput
		}
	}
	return body, check, nil
}

// computeCheckDigit implements the modulus-11 weighted sum over the body
// digits from least to most significant, with weights cycling 2..7.
// The remainder maps 11→'0', 10→'K', otherwise to the digit itself.
func computeCheckDigit(body string) byte {
	sum, weight := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch d := 11 - sum%11; d {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + d)
	}
}
