// Package period implements the engine's typed reporting-period value type
// and an ordered, duplicate-free index over periods.
//
// A Period is one of annual (year), quarterly (year, quarter) or monthly
// (year, month). Periods are immutable and compare by an ordering key that
// places the year first and then a within-year position: month -> month,
// quarter -> quarter*3, annual -> 13. This means an annual period sorts
// after every intra-year period of the same year, including Q4/December —
// carried over from the source system's behavior (see SPEC_FULL.md §9).
package period

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
)

// Kind identifies which of the three period shapes a Period holds.
type Kind string

const (
	KindAnnual    Kind = "annual"
	KindQuarterly Kind = "quarterly"
	KindMonthly   Kind = "monthly"
)

// Period is an immutable, hashable value object representing a single
// reporting interval: annual, quarterly, or monthly.
type Period struct {
	kind    Kind
	year    int
	quarter int // 1..4, set iff kind == KindQuarterly
	month   int // 1..12, set iff kind == KindMonthly
}

// Annual constructs an annual Period for the given year.
func Annual(year int) Period {
	return Period{kind: KindAnnual, year: year}
}

// Quarterly constructs a quarterly Period. q must be in 1..4.
func Quarterly(year, q int) (Period, error) {
	if q < 1 || q > 4 {
		return Period{}, fsmerrors.New(fsmerrors.CodeInvalidPeriod,
			fmt.Sprintf("quarter %d out of range 1..4", q), nil)
	}
	return Period{kind: KindQuarterly, year: year, quarter: q}, nil
}

// Monthly constructs a monthly Period. m must be in 1..12.
func Monthly(year, m int) (Period, error) {
	if m < 1 || m > 12 {
		return Period{}, fsmerrors.New(fsmerrors.CodeInvalidPeriod,
			fmt.Sprintf("month %d out of range 1..12", m), nil)
	}
	return Period{kind: KindMonthly, year: year, month: m}, nil
}

// Kind returns the period's shape.
func (p Period) Kind() Kind { return p.kind }

// Year returns the period's year.
func (p Period) Year() int { return p.year }

// Quarter returns the quarter (1..4); only meaningful when IsQuarterly.
func (p Period) Quarter() int { return p.quarter }

// Month returns the month (1..12); only meaningful when IsMonthly.
func (p Period) Month() int { return p.month }

// IsAnnual reports whether p is an annual period.
func (p Period) IsAnnual() bool { return p.kind == KindAnnual }

// IsQuarterly reports whether p is a quarterly period.
func (p Period) IsQuarterly() bool { return p.kind == KindQuarterly }

// IsMonthly reports whether p is a monthly period.
func (p Period) IsMonthly() bool { return p.kind == KindMonthly }

// Equal reports whether p and other represent the same period.
func (p Period) Equal(other Period) bool {
	return p.kind == other.kind && p.year == other.year &&
		p.quarter == other.quarter && p.month == other.month
}

// orderKey returns the (year, within-year position) ordering key described
// in the package doc comment.
func (p Period) orderKey() (int, int) {
	switch p.kind {
	case KindMonthly:
		return p.year, p.month
	case KindQuarterly:
		return p.year, p.quarter * 3
	default: // annual
		return p.year, 13
	}
}

// Less reports whether p sorts strictly before other.
func (p Period) Less(other Period) bool {
	py, pk := p.orderKey()
	oy, ok := other.orderKey()
	if py != oy {
		return py < oy
	}
	return pk < ok
}

// Compare returns -1, 0, or 1 as p is less than, equal to, or greater than
// other, using the same ordering as Less.
func (p Period) Compare(other Period) int {
	if p.Equal(other) {
		return 0
	}
	if p.Less(other) {
		return -1
	}
	return 1
}

// String formats the period back to its canonical textual form:
// "YYYY", "YYYYQn", or "YYYY-MM" (zero-padded month).
func (p Period) String() string {
	switch p.kind {
	case KindMonthly:
		return fmt.Sprintf("%04d-%02d", p.year, p.month)
	case KindQuarterly:
		return fmt.Sprintf("%04dQ%d", p.year, p.quarter)
	default:
		return fmt.Sprintf("%04d", p.year)
	}
}

// Parse parses a period string in one of the forms "YYYY", "YYYYQ[1-4]", or
// "YYYY-MM" (MM in 01..12). It fails with CodeInvalidPeriod on any other
// shape.
func Parse(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}, fsmerrors.New(fsmerrors.CodeInvalidPeriod, "empty period string", nil)
	}

	if idx := strings.IndexByte(s, 'Q'); idx > 0 {
		yearPart, qPart := s[:idx], s[idx+1:]
		year, err := strconv.Atoi(yearPart)
		if err != nil {
			return Period{}, fsmerrors.New(fsmerrors.CodeInvalidPeriod,
				fmt.Sprintf("invalid year in %q", s), err)
		}
		q, err := strconv.Atoi(qPart)
		if err != nil {
			return Period{}, fsmerrors.New(fsmerrors.CodeInvalidPeriod,
				fmt.Sprintf("invalid quarter in %q", s), err)
		}
		return Quarterly(year, q)
	}

	if idx := strings.IndexByte(s, '-'); idx > 0 {
		yearPart, monthPart := s[:idx], s[idx+1:]
		year, err := strconv.Atoi(yearPart)
		if err != nil {
			return Period{}, fsmerrors.New(fsmerrors.CodeInvalidPeriod,
				fmt.Sprintf("invalid year in %q", s), err)
		}
		month, err := strconv.Atoi(monthPart)
		if err != nil {
			return Period{}, fsmerrors.New(fsmerrors.CodeInvalidPeriod,
				fmt.Sprintf("invalid month in %q", s), err)
		}
		return Monthly(year, month)
	}

	year, err := strconv.Atoi(s)
	if err != nil {
		return Period{}, fsmerrors.New(fsmerrors.CodeInvalidPeriod,
			fmt.Sprintf("invalid period string %q", s), err)
	}
	return Annual(year), nil
}

// TryParse parses s and reports whether it succeeded, without returning an
// error value — convenient for callers that just want a boolean check.
func TryParse(s string) (Period, bool) {
	p, err := Parse(s)
	return p, err == nil
}
