// Package extract turns loaded page snapshots into normalized records. Every
// field is resolved through an ordered list of fallback strategies; a field
// nobody can resolve degrades to its zero value instead of failing the page.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// asinPatterns are tried in order against a product URL; first match wins.
// An ASIN is 10 alphanumeric characters.
var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)[?&]asin=([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/gp/aw/d/([A-Z0-9]{10})`),
}

// ExtractASIN pulls the catalog identifier out of a product URL, upper-cased.
// Returns "" when no known pattern matches; it never fails.
func ExtractASIN(url string) string {
	if url == "" {
		return ""
	}
	for _, re := range asinPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

var storefrontIDRe = regexp.MustCompile(`(?i)/shop/([^/?&]+)`)

// ExtractStorefrontID pulls the lowercase handle from a storefront URL, or
// "unknown" when the URL has no shop path segment.
func ExtractStorefrontID(url string) string {
	if m := storefrontIDRe.FindStringSubmatch(url); m != nil {
		return strings.ToLower(m[1])
	}
	return "unknown"
}

var listIDRe = regexp.MustCompile(`(?i)/list/([^/?&]+)`)

// ExtractListID pulls the list id from a list URL path segment.
func ExtractListID(url string) string {
	if m := listIDRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return "unknown"
}

var compactNumberRe = regexp.MustCompile(`(\d+(?:,\d+)*(?:\.\d+)?)\s*([KMBkmb])?`)

// ParseCompactNumber parses counts like "2.3K", "1M" or "12,345". Suffixes
// multiply by 1e3/1e6/1e9; thousands separators are stripped. Reports whether
// a number was found at all.
func ParseCompactNumber(text string) (int64, bool) {
	m := compactNumberRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		n *= 1e3
	case "M":
		n *= 1e6
	case "B":
		n *= 1e9
	}
	return int64(n + 0.5), true
}

// Price is a parsed price: raw text plus numeric value and currency when one
// of the known currency patterns matched.
type Price struct {
	Raw      string
	Numeric  float64
	Known    bool
	Currency string
}

var currencyPatterns = []struct {
	re       *regexp.Regexp
	currency string
}{
	{regexp.MustCompile(`\$\s*([\d,]+\.?\d*)`), "USD"},
	{regexp.MustCompile(`£\s*([\d,]+\.?\d*)`), "GBP"},
	{regexp.MustCompile(`€\s*([\d,]+\.?\d*)`), "EUR"},
	{regexp.MustCompile(`¥\s*([\d,]+\.?\d*)`), "JPY"},
	{regexp.MustCompile(`([\d,]+\.?\d*)\s*€`), "EUR"},
	{regexp.MustCompile(`(?i)USD\s*([\d,]+\.?\d*)`), "USD"},
}

// ParsePrice tries the currency patterns in order; the first match fixes both
// the numeric value and the currency code. Unparseable text keeps the raw
// string with no numeric value and an empty currency.
func ParsePrice(text string) Price {
	cleaned := strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	if cleaned == "" {
		return Price{}
	}
	for _, p := range currencyPatterns {
		m := p.re.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return Price{Raw: cleaned, Numeric: n, Known: true, Currency: p.currency}
	}
	return Price{Raw: cleaned}
}

var spaceRe = regexp.MustCompile(`\s+`)

// badTitlePrefixes is the boilerplate a product card leaks when the real
// title failed to render.
var badTitlePrefixes = []string{
	"skip to",
	"skip to main content",
	"product detail page link",
}

// IsBadTitle classifies a product title as boilerplate: empty, under five
// characters, or starting with a known junk phrase. Bad titles are re-fetched
// by the fix-titles pass rather than accepted.
func IsBadTitle(title string) bool {
	if len(title) < 5 {
		return true
	}
	lower := strings.ToLower(title)
	for _, prefix := range badTitlePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

var relativeTimeRe = regexp.MustCompile(`(?i)updated\s+(\d+)\s+(minute|hour|day|week|month)s?\s+ago`)

// ParseRelativeTime resolves "updated N days ago" text to an absolute
// timestamp relative to now. Reports whether the phrase was found.
func ParseRelativeTime(text string, now time.Time) (time.Time, bool) {
	m := relativeTimeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	switch strings.ToLower(m[2]) {
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "day":
		return now.AddDate(0, 0, -n), true
	case "week":
		return now.AddDate(0, 0, -7*n), true
	case "month":
		return now.AddDate(0, -n, 0), true
	}
	return time.Time{}, false
}

var marketplaceRe = regexp.MustCompile(`(?i)amazon\.([a-z.]+)`)

var marketplaceMap = map[string]string{
	"com":    "US",
	"co.uk":  "UK",
	"de":     "DE",
	"fr":     "FR",
	"ca":     "CA",
	"co.jp":  "JP",
	"es":     "ES",
	"it":     "IT",
	"com.au": "AU",
	"in":     "IN",
}

// Marketplace maps a storefront URL's domain to its region tag.
func Marketplace(url string) string {
	m := marketplaceRe.FindStringSubmatch(url)
	if m == nil {
		return "com"
	}
	domain := strings.ToLower(strings.TrimRight(m[1], "./"))
	if region, ok := marketplaceMap[domain]; ok {
		return region
	}
	return strings.ToUpper(domain)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
