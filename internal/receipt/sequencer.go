package receipt

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"sikeu/internal/models"
)

// Sequencer derives the next receipt number for a (school, period) scope.
//
// Next is a read inside the caller's database transaction; the unique
// constraint on (school_id, receipt_number) is the correctness backstop.
// Two concurrent creations in the same scope can both observe the same
// maximum, in which case exactly one insert succeeds and the loser retries
// the whole allocation (see IsConflict).
type Sequencer struct{}

// Next returns the next receipt number for the school and date, using the
// given transaction handle. The sequence is MAX(existing)+1, or 1 when the
// period has no receipts yet.
func (Sequencer) Next(tx *gorm.DB, schoolID string, date time.Time) (string, error) {
	prefix := PeriodPrefix(date)

	// Lexicographic ordering breaks once the sequence outgrows its zero
	// padding, so order by length first.
	var last []string
	err := tx.Model(&models.Transaction{}).
		Where("school_id = ? AND receipt_number LIKE ?", schoolID, prefix+"%").
		Order("LENGTH(receipt_number) DESC, receipt_number DESC").
		Limit(1).
		Pluck("receipt_number", &last).Error
	if err != nil {
		return "", err
	}

	if len(last) == 0 {
		return Format(date, 1), nil
	}

	_, seq, err := Parse(last[0])
	if err != nil {
		return "", err
	}
	return Format(date, seq+1), nil
}

// IsConflict reports whether err is a uniqueness violation on the receipt
// number, i.e. a lost allocation race that the caller should retry.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Driver-specific fallbacks: postgres does not always map to
	// gorm.ErrDuplicatedKey through the simple protocol, and the sqlite
	// driver used in tests reports a plain constraint message.
	msg := err.Error()
	if strings.Contains(msg, "duplicate key value") && strings.Contains(msg, "receipt_number") {
		return true
	}
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "transactions.receipt_number")
}
