package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
)

const (
	FormatGeneric = "generic"

	// unknownPayee stands in when a row has no payee text; a blank payee
	// is not a reason to drop the row.
	unknownPayee = "Unknown"
)

// Candidate column names, probed case-insensitively in order.
var (
	genericDateCols   = []string{"date", "transaction date", "trans date", "posting date", "post date", "transaction_date"}
	genericAmountCols = []string{"amount", "transaction amount", "debit/credit"}
	genericDebitCols  = []string{"debit", "withdrawal", "debit amount", "withdrawals"}
	genericCreditCols = []string{"credit", "deposit", "credit amount", "deposits"}
	genericPayeeCols  = []string{"description", "payee", "merchant", "name", "memo", "transaction description"}
	genericMemoCols   = []string{"memo", "notes", "reference", "check number"}

	// Date layouts tried in order until one parses.
	genericDateLayouts = []string{
		"01/02/2006",
		"2006-01-02",
		"01/02/06",
		"02/01/2006",
		"2006/01/02",
		"01-02-2006",
		"02-01-2006",
	}
)

// GenericImporter sniffs common column names, so most bank exports work
// without a dedicated profile. It never participates in auto-detection;
// it is the explicit fallback.
type GenericImporter struct{}

func NewGenericImporter() *GenericImporter { return &GenericImporter{} }

func (g *GenericImporter) Name() string        { return FormatGeneric }
func (g *GenericImporter) Institution() string { return "Any" }
func (g *GenericImporter) Description() string {
	return "Generic importer - auto-detects common column formats"
}

func (g *GenericImporter) Detect(path string) bool { return false }

func (g *GenericImporter) Parse(path string, accountID int64) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Format: FormatGeneric, Reason: fmt.Sprintf("open file: %v", err)}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, &FormatError{Format: FormatGeneric, Reason: fmt.Sprintf("read header: %v", err)}
	}

	dateCol := findColumn(header, genericDateCols)
	amountCol := findColumn(header, genericAmountCols)
	debitCol := findColumn(header, genericDebitCols)
	creditCol := findColumn(header, genericCreditCols)
	payeeCol := findColumn(header, genericPayeeCols)
	memoCol := findColumn(header, genericMemoCols)

	if dateCol < 0 {
		return nil, &FormatError{Format: FormatGeneric, Reason: "could not find date column"}
	}
	if amountCol < 0 && debitCol < 0 && creditCol < 0 {
		return nil, &FormatError{Format: FormatGeneric, Reason: "could not find amount column(s)"}
	}
	if payeeCol < 0 {
		return nil, &FormatError{Format: FormatGeneric, Reason: "could not find payee/description column"}
	}

	var txns []core.Transaction
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		date, ok := parseAnyDate(field(row, dateCol))
		if !ok {
			continue
		}

		var amount core.Money
		if amountCol >= 0 {
			amount, ok = parseStatementAmount(field(row, amountCol))
			if !ok {
				continue
			}
		} else {
			// Split columns: debit contributes negatively, credit
			// positively; magnitudes combine.
			if debitCol >= 0 {
				if m, ok := parseStatementAmount(field(row, debitCol)); ok {
					amount = amount.Add(m.Abs().Neg())
				}
			}
			if creditCol >= 0 {
				if m, ok := parseStatementAmount(field(row, creditCol)); ok {
					amount = amount.Add(m.Abs())
				}
			}
		}
		// Net zero is not a transaction (blank trailer rows and the like).
		if amount.IsZero() {
			continue
		}

		payee := strings.TrimSpace(field(row, payeeCol))
		if payee == "" {
			payee = unknownPayee
		}
		memo := ""
		if memoCol >= 0 {
			memo = strings.TrimSpace(field(row, memoCol))
		}
		txns = append(txns, newCandidate(accountID, date, amount, payee, memo, FormatGeneric))
	}
	return txns, nil
}

// findColumn probes the header for each candidate name, case-insensitively,
// returning the position of the first hit or -1.
func findColumn(header []string, candidates []string) int {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, cand := range candidates {
		for i, h := range lowered {
			if h == cand {
				return i
			}
		}
	}
	return -1
}

func parseAnyDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseStatementAmount tolerates currency symbols, thousands separators and
// parenthesized-negative accounting notation: "($45.00)" is -45.00.
func parseStatementAmount(s string) (core.Money, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.TrimSpace(s[1:len(s)-1])
	}
	if s == "" {
		return core.Money{}, false
	}
	m, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}, false
	}
	return m, true
}
