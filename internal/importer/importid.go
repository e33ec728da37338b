package importer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
)

// ImportID derives the deduplication key for a transaction: the hex digest
// of account id, ISO date, amount fixed to two decimals and the raw payee
// string, colon-joined. Equal inputs always produce equal keys, so
// re-importing the same file finds the same keys again. A content
// fingerprint, not a security boundary.
func ImportID(accountID int64, date time.Time, amount core.Money, payee string) string {
	data := fmt.Sprintf("%d:%s:%s:%s", accountID, date.Format("2006-01-02"), amount.Fixed2(), payee)
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

// newCandidate assembles an import candidate with its dedup key stamped.
func newCandidate(accountID int64, date time.Time, amount core.Money, payee, memo, source string) core.Transaction {
	return core.Transaction{
		AccountID:    accountID,
		Date:         date,
		Amount:       amount,
		ImportID:     ImportID(accountID, date, amount, payee),
		ImportSource: source,
		RawPayee:     payee,
		Memo:         memo,
	}
}
