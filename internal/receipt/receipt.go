// Package receipt implements period-scoped receipt numbering for the ledger.
//
// A receipt number has the form KW-<YYYYMM>-<NNN>: the "KW" prefix, the
// year and month of the transaction date, and a sequence that starts at 1
// for each (school, month) and is zero-padded to at least three digits.
// Numbers are unique within a school and immutable once issued; editing a
// transaction's date later never renumbers it.
package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Prefix is the constant leading segment of every receipt number.
const Prefix = "KW"

var numberRe = regexp.MustCompile(`^KW-(\d{6})-(\d{3,})$`)

// PeriodKey returns the YYYYMM period segment for a date.
func PeriodKey(date time.Time) string {
	return date.Format("200601")
}

// PeriodPrefix returns the "KW-YYYYMM-" prefix shared by all receipts of a
// period, suitable for LIKE matching.
func PeriodPrefix(date time.Time) string {
	return Prefix + "-" + PeriodKey(date) + "-"
}

// Format renders a receipt number for the given date and sequence value.
func Format(date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", Prefix, PeriodKey(date), seq)
}

// Parse splits a receipt number into its period key and sequence value.
func Parse(number string) (period string, seq int, err error) {
	m := numberRe.FindStringSubmatch(number)
	if m == nil {
		return "", 0, fmt.Errorf("malformed receipt number %q", number)
	}
	seq, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("malformed receipt sequence in %q", number)
	}
	return m[1], seq, nil
}
