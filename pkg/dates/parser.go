// Package dates extracts date ranges from Spanish natural-language
// questions and formats them back into human-readable period labels.
//
// All ranges are half-open: date_to is exclusive.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// spanishMonths maps month names and common abbreviations to month numbers.
var spanishMonths = map[string]time.Month{
	"enero": 1, "ene": 1,
	"febrero": 2, "feb": 2,
	"marzo": 3, "mar": 3,
	"abril": 4, "abr": 4,
	"mayo": 5, "may": 5,
	"junio": 6, "jun": 6,
	"julio": 7, "jul": 7,
	"agosto": 8, "ago": 8,
	"septiembre": 9, "sep": 9, "sept": 9,
	"octubre": 10, "oct": 10,
	"noviembre": 11, "nov": 11,
	"diciembre": 12, "dic": 12,
}

var monthNames = [13]string{"", "enero", "febrero", "marzo", "abril", "mayo",
	"junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// quarters maps quarter expressions to (start month, end month).
var quarters = map[string][2]time.Month{
	"q1": {1, 3}, "primer trimestre": {1, 3}, "1er trimestre": {1, 3},
	"q2": {4, 6}, "segundo trimestre": {4, 6}, "2do trimestre": {4, 6},
	"q3": {7, 9}, "tercer trimestre": {7, 9}, "3er trimestre": {7, 9},
	"q4": {10, 12}, "cuarto trimestre": {10, 12}, "4to trimestre": {10, 12},
}

var (
	reToday        = regexp.MustCompile(`\bhoy\b`)
	reYesterday    = regexp.MustCompile(`\bayer\b`)
	reThisWeek     = regexp.MustCompile(`\besta\s+semana\b`)
	reLastWeek     = regexp.MustCompile(`\b(semana\s+pasada|ultima\s+semana|últimas?\s+semana)\b`)
	reThisMonth    = regexp.MustCompile(`\beste\s+mes\b`)
	reLastMonth    = regexp.MustCompile(`\b(mes\s+pasado|ultimo\s+mes|último\s+mes)\b`)
	reLastNDays    = regexp.MustCompile(`\b[uú]ltimos?\s+(\d+)\s+d[ií]as?\b`)
	reLastNWeeks   = regexp.MustCompile(`\b[uú]ltimas?\s+(\d+)\s+semanas?\b`)
	reYear         = regexp.MustCompile(`\b(20\d{2})\b`)
	reYearKeyword  = regexp.MustCompile(`\b(a[ñn]o|year)\b`)
	reCyberEvent   = regexp.MustCompile(`\b(cyber\s*monday|black\s*friday)\b`)
	reDayRange     = regexp.MustCompile(`\bdel?\s+(\d{1,2})\s+al?\s+(\d{1,2})\s+de\s+([a-záéíóúñ]+)(?:\s+(?:de\s+)?(\d{4}))?\b`)
	reSpecificDay  = regexp.MustCompile(`\b(\d{1,2})\s+de\s+([a-záéíóúñ]+)(?:\s+(?:de\s+)?(\d{4}))?\b`)
	reTrailingYear = regexp.MustCompile(`^\s*(?:de\s+)?\d{4}`)
)

// Range is a half-open ISO date range.
type Range struct {
	From string
	To   string
}

// ExtractRange finds a date range in a Spanish question. ok is false when
// the question carries no date expression.
func ExtractRange(question string) (r Range, ok bool) {
	return extractRangeAt(question, time.Now())
}

// extractRangeAt is the clock-injected implementation, split out for tests.
func extractRangeAt(question string, now time.Time) (Range, bool) {
	q := strings.ToLower(strings.TrimSpace(question))
	today := dateOnly(now)

	// --- relative patterns ---

	if reToday.MatchString(q) {
		return dayRange(today), true
	}

	if reYesterday.MatchString(q) {
		return dayRange(today.AddDate(0, 0, -1)), true
	}

	if reThisWeek.MatchString(q) {
		start := startOfWeek(today)
		return Range{iso(start), iso(start.AddDate(0, 0, 7))}, true
	}

	if reLastWeek.MatchString(q) {
		start := startOfWeek(today).AddDate(0, 0, -7)
		return Range{iso(start), iso(start.AddDate(0, 0, 7))}, true
	}

	if reThisMonth.MatchString(q) {
		return monthRange(today.Year(), today.Month()), true
	}

	if reLastMonth.MatchString(q) {
		year, month := today.Year(), today.Month()
		if month == time.January {
			return monthRange(year-1, time.December), true
		}
		return monthRange(year, month-1), true
	}

	if m := reLastNDays.FindStringSubmatch(q); m != nil {
		days, _ := strconv.Atoi(m[1])
		return Range{iso(today.AddDate(0, 0, -days)), iso(today.AddDate(0, 0, 1))}, true
	}

	if m := reLastNWeeks.FindStringSubmatch(q); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		return Range{iso(today.AddDate(0, 0, -7*weeks)), iso(today.AddDate(0, 0, 1))}, true
	}

	// --- special events (before month-name scan: "cyber monday" has no month) ---

	if reCyberEvent.MatchString(q) {
		year := today.Year()
		if m := reYear.FindStringSubmatch(q); m != nil {
			year, _ = strconv.Atoi(m[1])
		}
		// Both fall in late November; the whole month keeps the range inclusive.
		return monthRange(year, time.November), true
	}

	// --- day ranges before bare month names ("del 1 al 15 de diciembre") ---

	if m := reDayRange.FindStringSubmatch(q); m != nil {
		if r, ok := parseDayRange(m, today); ok {
			return r, true
		}
	}

	// "15 de diciembre [2024]": a specific day beats the whole-month read.
	if m := reSpecificDay.FindStringSubmatch(q); m != nil {
		if r, ok := parseSpecificDay(m, today); ok {
			return r, true
		}
	}

	// --- absolute month patterns ---

	// "diciembre 2024" / "diciembre de 2024"
	for name, month := range spanishMonths {
		re := regexp.MustCompile(`\b` + name + `\s+(?:de\s+)?(\d{4})\b`)
		if m := re.FindStringSubmatch(q); m != nil {
			year, _ := strconv.Atoi(m[1])
			return monthRange(year, month), true
		}
	}

	// Bare month name → current year.
	for name, month := range spanishMonths {
		re := regexp.MustCompile(`\b(?:en\s+)?` + name + `\b`)
		if loc := re.FindStringIndex(q); loc != nil {
			if !reTrailingYear.MatchString(q[loc[1]:]) {
				return monthRange(today.Year(), month), true
			}
		}
	}

	// Whole year, only when "año"/"year" is mentioned.
	if m := reYear.FindStringSubmatch(q); m != nil && !mentionsMonth(q) && reYearKeyword.MatchString(q) {
		year, _ := strconv.Atoi(m[1])
		return Range{fmt.Sprintf("%d-01-01", year), fmt.Sprintf("%d-01-01", year + 1)}, true
	}

	// Quarters: "Q4 2024", "cuarto trimestre 2024".
	for name, span := range quarters {
		re := regexp.MustCompile(`\b` + name + `\s+(?:de\s+)?(\d{4})\b`)
		if m := re.FindStringSubmatch(q); m != nil {
			year, _ := strconv.Atoi(m[1])
			return quarterRange(year, span[0], span[1]), true
		}
	}

	return Range{}, false
}

func parseDayRange(m []string, today time.Time) (Range, bool) {
	dayStart, _ := strconv.Atoi(m[1])
	dayEnd, _ := strconv.Atoi(m[2])
	month, ok := spanishMonths[strings.ToLower(m[3])]
	if !ok {
		return Range{}, false
	}
	year := today.Year()
	if m[4] != "" {
		year, _ = strconv.Atoi(m[4])
	}
	start := time.Date(year, month, dayStart, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, month, dayEnd, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return Range{iso(start), iso(end)}, true
}

func parseSpecificDay(m []string, today time.Time) (Range, bool) {
	day, _ := strconv.Atoi(m[1])
	month, ok := spanishMonths[strings.ToLower(m[2])]
	if !ok || day < 1 || day > 31 {
		return Range{}, false
	}
	year := today.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day {
		return Range{}, false // day overflowed the month (e.g. 31 de febrero)
	}
	return dayRange(d), true
}

func mentionsMonth(q string) bool {
	for name := range spanishMonths {
		if strings.Contains(q, name) {
			return true
		}
	}
	return false
}

// FormatContext renders a range as a human period label for prompts and
// progress messages.
func FormatContext(from, to string) string {
	if from == "" || to == "" {
		return "ultimos 30 dias"
	}

	dFrom, err1 := time.Parse(isoDate, from)
	dTo, err2 := time.Parse(isoDate, to)
	if err1 != nil || err2 != nil {
		return fmt.Sprintf("%s a %s", from, to)
	}
	dTo = dTo.AddDate(0, 0, -1) // back to inclusive for display

	if dFrom.Equal(dTo) {
		return dFrom.Format("02/01/2006")
	}

	if dFrom.Year() == dTo.Year() && dFrom.Month() == dTo.Month() &&
		dFrom.Day() == 1 && dTo.Day() == daysIn(dTo.Year(), dTo.Month()) {
		return fmt.Sprintf("%s %d", monthNames[dFrom.Month()], dFrom.Year())
	}

	return fmt.Sprintf("%s a %s", dFrom.Format("02/01/2006"), dTo.Format("02/01/2006"))
}

func iso(d time.Time) string { return d.Format(isoDate) }

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayRange(d time.Time) Range {
	return Range{iso(d), iso(d.AddDate(0, 0, 1))}
}

// startOfWeek returns the Monday of d's week.
func startOfWeek(d time.Time) time.Time {
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return d.AddDate(0, 0, -(weekday - 1))
}

func monthRange(year int, month time.Month) Range {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Range{iso(first), iso(first.AddDate(0, 1, 0))}
}

func quarterRange(year int, start, end time.Month) Range {
	first := time.Date(year, start, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, end, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return Range{iso(first), iso(last)}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
