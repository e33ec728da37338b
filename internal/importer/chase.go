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
	FormatChase = "chase"

	chaseDateLayout = "01/02/2006"
)

// Chase exports come in two fixed schemas: the credit-card export keyed by
// "Transaction Date", and the checking/savings export keyed by
// "Posting Date". The schema is chosen once per file, not per row.
type ChaseImporter struct{}

func NewChaseImporter() *ChaseImporter { return &ChaseImporter{} }

func (c *ChaseImporter) Name() string        { return FormatChase }
func (c *ChaseImporter) Institution() string { return "Chase Bank" }
func (c *ChaseImporter) Description() string {
	return "Chase checking, savings, and credit card statements"
}

// Detect sniffs the header row for either schema. Detection is deliberately
// exact so another institution's file is never routed through Chase column
// semantics.
func (c *ChaseImporter) Detect(path string) bool {
	header, err := readHeader(path)
	if err != nil {
		return false
	}
	cols := headerSet(header)
	if cols["Transaction Date"] && cols["Description"] {
		return true
	}
	if cols["Posting Date"] && cols["Description"] {
		return true
	}
	return false
}

func (c *ChaseImporter) Parse(path string, accountID int64) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Format: FormatChase, Reason: fmt.Sprintf("open file: %v", err)}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, &FormatError{Format: FormatChase, Reason: fmt.Sprintf("read header: %v", err)}
	}
	cols := headerIndex(header)

	// Schema selection happens once per file.
	creditCard := false
	var dateCol string
	switch {
	case cols.at("Transaction Date") >= 0:
		creditCard = true
		dateCol = "Transaction Date"
	case cols.at("Posting Date") >= 0:
		dateCol = "Posting Date"
	default:
		return nil, &FormatError{Format: FormatChase, Reason: "missing date column (Transaction Date or Posting Date)"}
	}
	if cols.at("Description") < 0 {
		return nil, &FormatError{Format: FormatChase, Reason: "missing Description column"}
	}
	if cols.at("Amount") < 0 {
		return nil, &FormatError{Format: FormatChase, Reason: "missing Amount column"}
	}

	source := "chase_bank"
	if creditCard {
		source = "chase_cc"
	}

	var txns []core.Transaction
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row, not a malformed file. Skip and continue.
			continue
		}
		date, err := time.Parse(chaseDateLayout, strings.TrimSpace(field(row, cols.at(dateCol))))
		if err != nil {
			continue
		}
		// Amount sign is taken as-is; Chase already exports charges as
		// negative values.
		amount, err := core.ParseAmount(field(row, cols.at("Amount")))
		if err != nil {
			continue
		}
		payee := strings.TrimSpace(field(row, cols.at("Description")))
		memo := ""
		if creditCard && cols.at("Memo") >= 0 {
			memo = strings.TrimSpace(field(row, cols.at("Memo")))
		}
		txns = append(txns, newCandidate(accountID, date.UTC(), amount, payee, memo, source))
	}
	return txns, nil
}

// readHeader returns the first CSV record of the file.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.Read()
}

func headerSet(header []string) map[string]bool {
	set := make(map[string]bool, len(header))
	for _, h := range header {
		set[strings.TrimSpace(h)] = true
	}
	return set
}

// headerIndex maps exact column names to positions.
func headerIndex(header []string) colIndex {
	idx := make(colIndex, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

type colIndex map[string]int

// at returns the column position, or -1 when the column is absent.
func (c colIndex) at(name string) int {
	if i, ok := c[name]; ok {
		return i
	}
	return -1
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
