package discussion

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/lysyi3m/steno-comb/app/database"
)

// Matcher links free-text bill identifiers to rows in the bill registry.
type Matcher struct {
	bills database.BillRepository
}

func NewMatcher(bills database.BillRepository) *Matcher {
	return &Matcher{bills: bills}
}

// NumericCore keeps only the ASCII digits of an identifier, so "ПЗ №123"
// becomes "123".
func NumericCore(identifier string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, identifier)
}

// Match returns the bills.id of the first bill whose number equals the numeric
// core, or whose sign or signature contains it. No core or no bill is not an
// error.
func (m *Matcher) Match(ctx context.Context, identifier string) (*int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	core := NumericCore(identifier)
	if core == "" {
		return nil, nil
	}

	bill, err := m.bills.FindBillByNumber(core)
	if err != nil {
		return nil, fmt.Errorf("failed to match bill %q: %w", identifier, err)
	}
	if bill == nil {
		return nil, nil
	}

	return &bill.ID, nil
}
