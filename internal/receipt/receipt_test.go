package receipt

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestFormat(t *testing.T) {
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		seq  int
		want string
	}{
		{name: "pads to three digits", seq: 1, want: "KW-202601-001"},
		{name: "two digit sequence", seq: 42, want: "KW-202601-042"},
		{name: "three digit sequence", seq: 999, want: "KW-202601-999"},
		{name: "grows past padding", seq: 1000, want: "KW-202601-1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(date, tt.seq); got != tt.want {
				t.Errorf("Format(%d) = %q, want %q", tt.seq, got, tt.want)
			}
		})
	}
}

func TestPeriodKey(t *testing.T) {
	date := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	if got := PeriodKey(date); got != "202512" {
		t.Errorf("PeriodKey = %q, want %q", got, "202512")
	}
	if got := PeriodPrefix(date); got != "KW-202512-" {
		t.Errorf("PeriodPrefix = %q, want %q", got, "KW-202512-")
	}
}

func TestParse(t *testing.T) {
	t.Run("valid numbers", func(t *testing.T) {
		tests := []struct {
			number     string
			wantPeriod string
			wantSeq    int
		}{
			{"KW-202601-001", "202601", 1},
			{"KW-202601-999", "202601", 999},
			{"KW-202601-1000", "202601", 1000},
		}
		for _, tt := range tests {
			period, seq, err := Parse(tt.number)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.number, err)
			}
			if period != tt.wantPeriod || seq != tt.wantSeq {
				t.Errorf("Parse(%q) = (%q, %d), want (%q, %d)", tt.number, period, seq, tt.wantPeriod, tt.wantSeq)
			}
		}
	})

	t.Run("malformed numbers", func(t *testing.T) {
		malformed := []string{
			"",
			"KW-202601",
			"KW-202601-01",
			"KW-2026-001",
			"XX-202601-001",
			"KW-202601-abc",
			"KW-202601-001-extra",
		}
		for _, number := range malformed {
			if _, _, err := Parse(number); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", number)
			}
		}
	})
}

func TestFormatParseRoundTrip(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, seq := range []int{1, 99, 100, 999, 1000, 12345} {
		number := Format(date, seq)
		period, parsed, err := Parse(number)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", number, err)
		}
		if period != "202603" || parsed != seq {
			t.Errorf("round trip of seq %d via %q gave (%q, %d)", seq, number, period, parsed)
		}
	}
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "gorm duplicated key", err: gorm.ErrDuplicatedKey, want: true},
		{name: "wrapped gorm duplicated key", err: fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), want: true},
		{
			name: "postgres message",
			err:  errors.New(`ERROR: duplicate key value violates unique constraint "idx_transactions_school_receipt_number" (SQLSTATE 23505)`),
			want: true,
		},
		{
			name: "sqlite message",
			err:  errors.New("UNIQUE constraint failed: transactions.school_id, transactions.receipt_number"),
			want: true,
		},
		{
			name: "unrelated duplicate",
			err:  errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`),
			want: false,
		},
		{name: "unrelated error", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConflict(tt.err); got != tt.want {
				t.Errorf("IsConflict(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
