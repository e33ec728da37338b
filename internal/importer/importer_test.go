package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestImportID_Deterministic(t *testing.T) {
	date := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	amount := core.Money{Cents: -4550}

	a := ImportID(1, date, amount, "NETFLIX.COM")
	b := ImportID(1, date, amount, "NETFLIX.COM")
	if a != b {
		t.Errorf("same inputs produced different ids: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("id length = %d, want 32 hex chars", len(a))
	}
}

func TestImportID_FieldSensitivity(t *testing.T) {
	date := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	amount := core.Money{Cents: -4550}
	base := ImportID(1, date, amount, "NETFLIX.COM")

	variants := map[string]string{
		"account": ImportID(2, date, amount, "NETFLIX.COM"),
		"date":    ImportID(1, date.AddDate(0, 0, 1), amount, "NETFLIX.COM"),
		"amount":  ImportID(1, date, core.Money{Cents: -4551}, "NETFLIX.COM"),
		"payee":   ImportID(1, date, amount, "NETFLIX.CO"),
	}
	for field, id := range variants {
		if id == base {
			t.Errorf("changing %s did not change the id", field)
		}
	}
}

func TestChaseImporter_Detect(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{
			name:   "credit card schema",
			header: "Transaction Date,Post Date,Description,Category,Type,Amount,Memo\n",
			want:   true,
		},
		{
			name:   "checking schema",
			header: "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n",
			want:   true,
		},
		{
			name:   "foreign bank",
			header: "Datum,Betrag,Verwendungszweck\n",
			want:   false,
		},
	}

	imp := NewChaseImporter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, tt.header)
			if got := imp.Detect(path); got != tt.want {
				t.Errorf("Detect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChaseImporter_ParseCreditCard(t *testing.T) {
	csv := "Transaction Date,Post Date,Description,Category,Type,Amount,Memo\n" +
		"03/15/2026,03/16/2026,NETFLIX.COM,Entertainment,Sale,-15.49,streaming\n" +
		"03/16/2026,03/17/2026,PAYMENT THANK YOU,,Payment,500.00,\n" +
		"not-a-date,03/18/2026,BROKEN ROW,,,x,\n"

	txns, err := NewChaseImporter().Parse(writeCSV(t, csv), 7)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("parsed %d transactions, want 2 (bad row skipped)", len(txns))
	}

	first := txns[0]
	if first.AccountID != 7 {
		t.Errorf("account = %d, want 7", first.AccountID)
	}
	if first.Amount.Cents != -1549 {
		t.Errorf("amount = %d, want -1549", first.Amount.Cents)
	}
	if first.RawPayee != "NETFLIX.COM" {
		t.Errorf("payee = %q", first.RawPayee)
	}
	if first.Memo != "streaming" {
		t.Errorf("memo = %q, want streaming", first.Memo)
	}
	if first.ImportSource != "chase_cc" {
		t.Errorf("source = %q, want chase_cc", first.ImportSource)
	}
	if first.ImportID == "" {
		t.Error("candidate missing import id")
	}
	wantDate := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(wantDate) {
		t.Errorf("date = %v, want %v", first.Date, wantDate)
	}
}

func TestChaseImporter_ParseMissingColumn(t *testing.T) {
	csv := "Transaction Date,Description\n03/15/2026,NETFLIX.COM\n"
	_, err := NewChaseImporter().Parse(writeCSV(t, csv), 1)
	if err == nil {
		t.Fatal("expected FormatError for missing Amount column")
	}
	if _, ok := err.(*FormatError); !ok {
		t.Errorf("error type = %T, want *FormatError", err)
	}
}

func TestGenericImporter_Parse(t *testing.T) {
	csv := "Date,Description,Amount\n" +
		"2026-03-15,GROCERY MART,($45.00)\n" +
		"03/16/2026,PAYROLL INC,\"$1,200.00\"\n" +
		"2026-03-17,,-3.50\n"

	txns, err := NewGenericImporter().Parse(writeCSV(t, csv), 3)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("parsed %d transactions, want 3", len(txns))
	}

	if txns[0].Amount.Cents != -4500 {
		t.Errorf("parenthesized amount = %d, want -4500", txns[0].Amount.Cents)
	}
	if txns[1].Amount.Cents != 120000 {
		t.Errorf("currency-formatted amount = %d, want 120000", txns[1].Amount.Cents)
	}
	if txns[2].RawPayee != "Unknown" {
		t.Errorf("blank payee = %q, want Unknown", txns[2].RawPayee)
	}
}

func TestGenericImporter_DebitCreditColumns(t *testing.T) {
	csv := "Date,Description,Debit,Credit\n" +
		"2026-03-15,COFFEE SHOP,4.75,\n" +
		"2026-03-16,REFUND,,12.00\n" +
		"2026-03-17,EMPTY ROW,,\n"

	txns, err := NewGenericImporter().Parse(writeCSV(t, csv), 1)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("parsed %d transactions, want 2 (net-zero row dropped)", len(txns))
	}
	if txns[0].Amount.Cents != -475 {
		t.Errorf("debit amount = %d, want -475", txns[0].Amount.Cents)
	}
	if txns[1].Amount.Cents != 1200 {
		t.Errorf("credit amount = %d, want 1200", txns[1].Amount.Cents)
	}
}

func TestGenericImporter_MissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "no date", header: "Description,Amount\nfoo,1.00\n"},
		{name: "no amount", header: "Date,Description\n2026-03-15,foo\n"},
		{name: "no payee", header: "Date,Amount\n2026-03-15,1.00\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenericImporter().Parse(writeCSV(t, tt.header), 1)
			if err == nil {
				t.Fatal("expected FormatError")
			}
			if _, ok := err.(*FormatError); !ok {
				t.Errorf("error type = %T, want *FormatError", err)
			}
		})
	}
}

func TestRegistry_DetectAndFallback(t *testing.T) {
	r := NewRegistry()

	chase := writeCSV(t, "Transaction Date,Description,Amount\n")
	if got := r.DetectFormat(chase); got != FormatChase {
		t.Errorf("DetectFormat(chase file) = %q, want %q", got, FormatChase)
	}

	other := writeCSV(t, "Date,Description,Amount\n")
	if got := r.DetectFormat(other); got != "" {
		t.Errorf("DetectFormat(generic file) = %q, want no match", got)
	}
	if r.Fallback().Name() != FormatGeneric {
		t.Errorf("fallback = %q, want %q", r.Fallback().Name(), FormatGeneric)
	}

	if _, err := r.Get("unknown-bank"); err == nil {
		t.Error("Get(unknown) should fail")
	}
}
