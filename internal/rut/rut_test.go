package rut

import (
	"errors"
	"testing"
)

func TestNormalize_SurfaceFormats(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"dots and dash", "12.345.678-5", "12345678-5"},
		{"dash only", "12345678-5", "12345678-5"},
		{"bare digits", "123456785", "12345678-5"},
		{"lowercase k check digit", "20.347.878-k", "20347878-K"},
		{"uppercase K check digit", "20347878K", "20347878-K"},
		{"internal spaces", " 12 345 678 - 5 ", "12345678-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize("12.345.678-5")
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := Normalize(first)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if first != second {
		t.Fatalf("not idempotent: %q != %q", first, second)
	}
}

func TestNormalize_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"wrong check digit", "12345678-9", ErrInvalidChecksum},
		{"empty", "", ErrMalformedInput},
		{"only separators", ".-", ErrMalformedInput},
		{"single char", "5", ErrMalformedInput},
		{"letters in body", "12a45678-5", ErrMalformedInput},
		{"k inside body", "12K45678-5", ErrMalformedInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("Normalize(%q) err = %v, want %v", tc.in, err, tc.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	if !Valid("12345678-5") {
		t.Fatalf("expected 12345678-5 to be valid")
	}
	if Valid("12345678-9") {
		t.Fatalf("expected 12345678-9 to be invalid")
	}
	if Valid("not a rut") {
		t.Fatalf("expected garbage to be invalid")
	}
}

func TestEqual(t *testing.T) {
	if !Equal("12.345.678-5", "123456785") {
		t.Fatalf("expected surface variants of the same RUT to be equal")
	}
	if Equal("12345678-5", "20347878-K") {
		t.Fatalf("different taxpayers must not be equal")
	}
	if Equal("12345678-9", "12345678-9") {
		t.Fatalf("invalid inputs must not compare equal")
	}
}

func TestComputeCheckDigit_EdgeMappings(t *testing.T) {
	// Bodies chosen so the modulus-11 remainder exercises each mapping.
	cases := []struct {
		body string
		want byte
	}{
		{"12345678", '5'}, // plain digit mapping
		{"20347878", 'K'}, // remainder 10 maps to K
		{"0", '0'},        // remainder 11 maps to 0
	}
	for _, tc := range cases {
		if got := computeCheckDigit(tc.body); got != tc.want {
			t.Fatalf("computeCheckDigit(%q) = %c, want %c", tc.body, got, tc.want)
		}
	}
}
