package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// fiscal year runs April..March
var fiscalMonths = map[string]int{
	"april": 1, "may": 2, "june": 3, "july": 4, "august": 5, "september": 6,
	"october": 7, "november": 8, "december": 9, "january": 10, "february": 11, "march": 12,
}

var fiscalOrder = [...]string{"",
	"April", "May", "June", "July", "August", "September",
	"October", "November", "December", "January", "February", "March",
}

// CanonicalMonth maps any spelling FiscalMonthIndex accepts to the full English name,
// e.g. "oct" -> "October". Unknown names are returned trimmed.
func CanonicalMonth(month string) string {
	if i := FiscalMonthIndex(month); i > 0 {
		return fiscalOrder[i]
	}
	return strings.TrimSpace(month)
}

// FiscalMonthIndex returns 1 for April through 12 for March, 0 for unknown names.
// Three-letter abbreviations are accepted.
func FiscalMonthIndex(month string) int {
	m := strings.ToLower(strings.TrimSpace(month))
	if i, ok := fiscalMonths[m]; ok {
		return i
	}
	if len(m) == 3 {
		for name, i := range fiscalMonths {
			if strings.HasPrefix(name, m) {
				return i
			}
		}
	}
	return 0
}

// MonthName is the English month name used as the period key, e.g. "October".
func MonthName(t time.Time) string {
	return t.Month().String()
}

// FiscalYearOf formats the fiscal year containing t as "YYYY-YY".
func FiscalYearOf(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%04d-%02d", start, (start+1)%100)
}

// SortHistory orders records newest period first: fiscal year descending, then fiscal
// month descending. Unrecognised month names sort after every known month.
func SortHistory(recs []PerformanceRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.FiscalYear != b.FiscalYear {
			return a.FiscalYear > b.FiscalYear
		}
		ai, bi := FiscalMonthIndex(a.Month), FiscalMonthIndex(b.Month)
		if ai != bi {
			return ai > bi
		}
		return a.Month > b.Month
	})
}

// SortByDistrictName orders records by district name ascending, code breaking ties.
func SortByDistrictName(recs []PerformanceRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].DistrictName != recs[j].DistrictName {
			return recs[i].DistrictName < recs[j].DistrictName
		}
		return recs[i].DistrictCode < recs[j].DistrictCode
	})
}
