package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input   string
		want    Month
		wantErr bool
	}{
		{input: "2026-03", want: Month{Year: 2026, Mon: time.March}},
		{input: "1999-12", want: Month{Year: 1999, Mon: time.December}},
		{input: "2026-13", wantErr: true},
		{input: "2026-3", wantErr: true},
		{input: "March 2026", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMonth(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMonth(%q) = %v, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidDate) {
					t.Errorf("error = %v, want ErrInvalidDate", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMonth(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMonth(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMonth_Bounds(t *testing.T) {
	m := NewMonth(2026, time.February)

	wantStart := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	if got := m.Start(); !got.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", got, wantStart)
	}
	if got := m.End(); !got.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", got, wantEnd)
	}

	if !m.Contains(time.Date(2026, time.February, 28, 23, 0, 0, 0, time.UTC)) {
		t.Error("last day of month should be contained")
	}
	if m.Contains(wantEnd) {
		t.Error("first day of next month should not be contained")
	}
}

func TestMonth_AddMonths(t *testing.T) {
	tests := []struct {
		start Month
		n     int
		want  Month
	}{
		{NewMonth(2026, time.March), 1, NewMonth(2026, time.April)},
		{NewMonth(2026, time.December), 1, NewMonth(2027, time.January)},
		{NewMonth(2026, time.January), -1, NewMonth(2025, time.December)},
		{NewMonth(2026, time.March), -3, NewMonth(2025, time.December)},
		{NewMonth(2026, time.March), 0, NewMonth(2026, time.March)},
	}

	for _, tt := range tests {
		if got := tt.start.AddMonths(tt.n); got != tt.want {
			t.Errorf("%v.AddMonths(%d) = %v, want %v", tt.start, tt.n, got, tt.want)
		}
	}
}

func TestMonth_String(t *testing.T) {
	if got := NewMonth(2026, time.March).String(); got != "2026-03" {
		t.Errorf("String = %q, want 2026-03", got)
	}
	// Lexicographic order on the rendered form must match chronology;
	// the storage layer compares these strings with < and >=.
	a := NewMonth(2025, time.December).String()
	b := NewMonth(2026, time.January).String()
	if !(a < b) {
		t.Errorf("expected %q < %q", a, b)
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		a, b Month
		want int
	}{
		{NewMonth(2026, time.January), NewMonth(2026, time.April), 3},
		{NewMonth(2026, time.April), NewMonth(2026, time.January), -3},
		{NewMonth(2025, time.November), NewMonth(2026, time.February), 3},
		{NewMonth(2026, time.March), NewMonth(2026, time.March), 0},
	}

	for _, tt := range tests {
		if got := MonthsBetween(tt.a, tt.b); got != tt.want {
			t.Errorf("MonthsBetween(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
