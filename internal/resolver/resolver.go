// Package resolver picks the reminder a vague natural-language reference
// points at, out of a user's pending set.
//
// Precedence is deliberately precision-over-recall: an explicit time beats
// an explicit keyword beats a vague ordinal. The cancel-only "just take the
// earliest" fallback lives in the bot layer, not here.
package resolver

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"remindline/internal/models"
)

// Reference is what the intent classifier extracted about the target
// reminder. Either field may be empty.
type Reference struct {
	At      *time.Time
	Keyword string
}

// Resolve selects at most one reminder from pending, which must be ordered
// ascending by scheduled time. Returns nil when nothing matches.
func Resolve(pending []*models.Reminder, ref Reference, rawText string) *models.Reminder {
	if len(pending) == 0 {
		return nil
	}

	if ref.At != nil {
		if r := byNearestTime(pending, *ref.At); r != nil {
			return r
		}
	}

	if ref.Keyword != "" {
		for _, r := range pending {
			if strings.Contains(r.Message, ref.Keyword) {
				return r
			}
		}
	}

	if idx, ok := ParseOrdinal(rawText); ok && idx <= len(pending) {
		return pending[idx-1]
	}

	return nil
}

func byNearestTime(pending []*models.Reminder, target time.Time) *models.Reminder {
	var best *models.Reminder
	bestDiff := math.MaxFloat64
	for _, r := range pending {
		diff := math.Abs(r.ScheduledAt.Sub(target).Seconds())
		// Strict less-than keeps the earliest reminder on a tie, since the
		// list is in ascending scheduled order.
		if diff < bestDiff {
			bestDiff = diff
			best = r
		}
	}
	return best
}

var (
	zhOrdinalRe = regexp.MustCompile(`第?([一二三四五六七八九十]|[0-9]+)[個个項项]`)
	enOrdinalRe = regexp.MustCompile(`\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|[0-9]+(?:st|nd|rd|th))\b`)
)

var zhNumerals = map[string]int{
	"一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
}

var enOrdinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// ParseOrdinal extracts a 1-based ordinal position ("第一個", "the 2nd one")
// from raw user text. Only 1-10 are recognized.
func ParseOrdinal(text string) (int, bool) {
	if m := zhOrdinalRe.FindStringSubmatch(text); m != nil {
		if n, ok := zhNumerals[m[1]]; ok {
			return n, true
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 10 {
			return n, true
		}
		return 0, false
	}

	lower := strings.ToLower(text)
	if m := enOrdinalRe.FindStringSubmatch(lower); m != nil {
		if n, ok := enOrdinals[m[1]]; ok {
			return n, true
		}
		digits := strings.TrimRight(m[1], "stndrh")
		if n, err := strconv.Atoi(digits); err == nil && n >= 1 && n <= 10 {
			return n, true
		}
	}

	return 0, false
}
