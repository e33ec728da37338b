package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "plain dollars", input: "45", want: 4500},
		{name: "dollars and cents", input: "45.50", want: 4550},
		{name: "negative", input: "-45.50", want: -4550},
		{name: "explicit plus", input: "+12.34", want: 1234},
		{name: "comma decimal separator", input: "45,50", want: 4550},
		{name: "single fractional digit", input: "45.5", want: 4550},
		{name: "third digit rounds half up", input: "1.005", want: 101},
		{name: "third digit rounds down", input: "1.004", want: 100},
		{name: "leading whitespace", input: "  3.00", want: 300},
		{name: "zero", input: "0", want: 0},
		{name: "bare fraction", input: ".99", want: 99},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "two separators", input: "1.2.3", wantErr: true},
		{name: "lone sign", input: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %v, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) error = %v", tt.input, err)
			}
			if got.Cents != tt.want {
				t.Errorf("ParseAmount(%q) = %d cents, want %d", tt.input, got.Cents, tt.want)
			}
		})
	}
}

func TestParsePositiveAmount(t *testing.T) {
	if _, err := ParsePositiveAmount("-5.00"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount error = %v, want ErrInvalidAmount", err)
	}
	if _, err := ParsePositiveAmount("0"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	m, err := ParsePositiveAmount("10.00")
	if err != nil {
		t.Fatalf("ParsePositiveAmount(10.00) error = %v", err)
	}
	if m.Cents != 1000 {
		t.Errorf("ParsePositiveAmount(10.00) = %d cents, want 1000", m.Cents)
	}
}

func TestMoney_Fixed2(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{4550, "45.50"},
		{-4550, "-45.50"},
		{-5, "-0.05"},
		{123456789, "1234567.89"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).Fixed2(); got != tt.want {
			t.Errorf("Fixed2(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := Money{Cents: 250}
	b := Money{Cents: -100}

	if got := a.Add(b); got.Cents != 150 {
		t.Errorf("Add = %d, want 150", got.Cents)
	}
	if got := b.Abs(); got.Cents != 100 {
		t.Errorf("Abs = %d, want 100", got.Cents)
	}
	if got := a.Neg(); got.Cents != -250 {
		t.Errorf("Neg = %d, want -250", got.Cents)
	}
	if !(Money{}).IsZero() {
		t.Error("zero value should report IsZero")
	}
	if b.IsZero() {
		t.Error("non-zero value reported IsZero")
	}
}
