// Package keys builds the Redis key scheme for performance records and their indexes.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	prefix      = "perf"
	maxPartLen  = 48
	maxRecordLn = 160
)

// Record is the key for one performance record, e.g. perf:rec:MH:MH05:2024-25:october.
// Keys over the length cap are truncated and suffixed with a hash of the full key.
func Record(stateCode, districtCode, fiscalYear, month string) string {
	k := fmt.Sprintf("%s:rec:%s:%s:%s:%s", prefix,
		part(stateCode), part(districtCode), part(fiscalYear), strings.ToLower(part(month)))
	return capLen(k)
}

// DistrictIndex is the set of record keys for one district across periods.
func DistrictIndex(stateCode, districtCode string) string {
	return capLen(fmt.Sprintf("%s:idx:district:%s:%s", prefix, part(stateCode), part(districtCode)))
}

// PeriodIndex is the set of record keys for every district of a state in one period.
func PeriodIndex(stateCode, fiscalYear, month string) string {
	return capLen(fmt.Sprintf("%s:idx:period:%s:%s:%s", prefix,
		part(stateCode), part(fiscalYear), strings.ToLower(part(month))))
}

func part(s string) string {
	s = sanitizeForKey(strings.TrimSpace(s))
	if len(s) > maxPartLen {
		s = s[:maxPartLen]
	}
	return s
}

func capLen(k string) string {
	if len(k) <= maxRecordLn {
		return k
	}
	return fmt.Sprintf("%s:h=%016x", k[:maxRecordLn], xxhash.Sum64String(k))
}

// whitespace runs become '_', other disallowed runes '-'; repeats collapse
func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// Any other rune (including ':' and non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
