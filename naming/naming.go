// Package naming resolves output filename templates from document text.
//
// A template may carry the tokens %o (organization), %d (date), %s (store
// number), %t (transaction id) and %a (amount). Each token is substituted
// with a value parsed out of the document's extracted text, falling back to
// a bracketed placeholder when the text yields nothing.
package naming

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Placeholders substituted when a token cannot be resolved. The square
// bracket form marks a token that was never attempted (no guesser wired);
// the angle form marks a failed extraction.
const (
	OrgUnavailable = "[org]"
	OrgUnknown     = "<org>"
	StoreUnknown   = "<store>"
	TxnUnknown     = "<transaction>"
	AmountUnknown  = "<total>"
)

var (
	// Numeric dates: month, delimiter, day, delimiter, 2- or 4-digit year.
	// Mixed delimiters are rejected after the match.
	reNumericDate = regexp.MustCompile(`\b(0?[1-9]|1[0-2])([/.-])(0?[1-9]|[12]\d|3[01])([/.-])((?:1[6-9]|[2-9]\d)?\d{2})\b`)

	// Spelled-out dates: "Jan 5, 2024", "January 5 2024".
	reNamedDate = regexp.MustCompile(`\b(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+(0?[1-9]|[12]\d|3[01]),?\s+((?:1[6-9]|[2-9]\d)?\d{2})\b`)

	reStore = regexp.MustCompile(`(?i)\bst(?:ore)?\s*[#:]?\s*[#:]?\s*(\d+)`)

	reTransaction = regexp.MustCompile(`(?i)(?:\btr(?:n|an(?:saction)?)?(?:\s*number)?|\binvoice)\s*[:#]+\s*[:#]?\s*([a-zA-Z\d-]+)`)

	reTotal = regexp.MustCompile(`(?i)(?:\btotal\b(?:\s+\bsale\b)?|\bbalance\s+due\b|\bpurchase\b|\bamount\b)\s*:?\s*\$?\s*(\d+\.?\d*)`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate extracts the first plausible calendar date from text and returns
// it formatted as YYYY-MM-DD, or fallback when none is found. Two-digit
// years are taken as 20xx. Impossible dates (Feb 30, Apr 31, Feb 29 outside
// a leap year) are skipped, not truncated.
func ParseDate(text, fallback string) string {
	for _, m := range reNumericDate.FindAllStringSubmatch(text, -1) {
		if m[2] != m[4] {
			continue
		}
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[3])
		year, _ := strconv.Atoi(m[5])
		if s, ok := formatDate(year, time.Month(month), day); ok {
			return s
		}
	}
	for _, m := range reNamedDate.FindAllStringSubmatch(text, -1) {
		month, ok := monthNumbers[strings.ToLower(m[1][:3])]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if s, ok := formatDate(year, month, day); ok {
			return s
		}
	}
	return fallback
}

func formatDate(year int, month time.Month, day int) (string, bool) {
	if year < 100 {
		year += 2000
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return "", false
	}
	return d.Format("2006-01-02"), true
}

// ParseStore extracts a store number ("Store #0482", "ST: 17").
func ParseStore(text, fallback string) string {
	if m := reStore.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return fallback
}

// ParseTransaction extracts a transaction or invoice identifier
// ("Transaction #: 55-1034", "TRN# A5512", "Invoice: 2210").
func ParseTransaction(text, fallback string) string {
	if m := reTransaction.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return fallback
}

// ParseTotal extracts the amount following a total/balance/amount label.
func ParseTotal(text, fallback string) string {
	if m := reTotal.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return fallback
}

// OrgGuesser extracts the issuing organization's name from document text.
type OrgGuesser interface {
	GuessOrganization(text string) (string, error)
}

// HeuristicGuesser guesses the organization without a language model: the
// most frequent plausible name line wins, normalized to lowercase with
// hyphens for spaces. Receipts repeat the letterhead on every page, so the
// mode across lines is a usable stand-in for entity recognition.
type HeuristicGuesser struct{}

func (HeuristicGuesser) GuessOrganization(text string) (string, error) {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !plausibleOrgLine(line) {
			continue
		}
		key := normalizeOrg(line)
		counts[key]++
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	if best == "" {
		return "", errors.New("no organization candidates in text")
	}
	return best, nil
}

// plausibleOrgLine filters to short, digit-free, letter-heavy lines; address
// and amount lines fail one of the three.
func plausibleOrgLine(line string) bool {
	if len(line) < 3 || len(line) > 40 {
		return false
	}
	if len(strings.Fields(line)) > 4 {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsDigit(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters*10 >= len(line)*6
}

func normalizeOrg(line string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(strings.ToLower(line)), " "), " ", "-")
}

// Resolver substitutes filename template tokens from document text.
type Resolver struct {
	// Org supplies %o; nil substitutes OrgUnavailable without attempting.
	Org OrgGuesser
	// Now supplies the %d fallback date; nil uses time.Now.
	Now func() time.Time
}

// Resolve expands every token in name against text. Unknown percent pairs
// pass through untouched.
func (r *Resolver) Resolve(name, text string) string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if strings.Contains(name, "%o") {
		name = strings.ReplaceAll(name, "%o", r.org(text))
	}
	if strings.Contains(name, "%d") {
		name = strings.ReplaceAll(name, "%d", ParseDate(text, now().Format("2006-01-02")))
	}
	name = strings.ReplaceAll(name, "%s", ParseStore(text, StoreUnknown))
	name = strings.ReplaceAll(name, "%t", ParseTransaction(text, TxnUnknown))
	name = strings.ReplaceAll(name, "%a", ParseTotal(text, AmountUnknown))
	return name
}

func (r *Resolver) org(text string) string {
	if r.Org == nil {
		return OrgUnavailable
	}
	org, err := r.Org.GuessOrganization(text)
	if err != nil || org == "" {
		return OrgUnknown
	}
	return org
}
