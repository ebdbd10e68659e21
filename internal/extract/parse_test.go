package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractASIN(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.amazon.com/dp/B08N5WRWNW", "B08N5WRWNW"},
		{"https://www.amazon.com/Some-Product-Name/dp/b08n5wrwnw?ref=sr_1_1", "B08N5WRWNW"},
		{"https://www.amazon.com/gp/product/B000123456", "B000123456"},
		{"https://www.amazon.com/product/B0C1234567/", "B0C1234567"},
		{"https://www.amazon.com/something?asin=B09ABCDEF1&tag=x", "B09ABCDEF1"},
		{"https://www.amazon.com/gp/aw/d/B07XYZ1234", "B07XYZ1234"},
		{"https://www.amazon.com/shop/janedoe", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExtractASIN(c.url), "url: %s", c.url)
	}
}

func TestExtractStorefrontID(t *testing.T) {
	assert.Equal(t, "janedoe", ExtractStorefrontID("https://www.amazon.com/shop/JaneDoe?ref=x"))
	assert.Equal(t, "janedoe", ExtractStorefrontID("https://www.amazon.co.uk/shop/janedoe/list/ABC"))
	assert.Equal(t, "unknown", ExtractStorefrontID("https://www.amazon.com/dp/B08N5WRWNW"))
}

func TestExtractListID(t *testing.T) {
	assert.Equal(t, "2ABCDEF34GHIJ", ExtractListID("https://www.amazon.com/shop/janedoe/list/2ABCDEF34GHIJ?ref=x"))
	assert.Equal(t, "unknown", ExtractListID("https://www.amazon.com/shop/janedoe"))
}

func TestParseCompactNumber(t *testing.T) {
	cases := []struct {
		text string
		want int64
		ok   bool
	}{
		{"2.3K", 2300, true},
		{"1M followers", 1000000, true},
		{"1.5B", 1500000000, true},
		{"12,345", 12345, true},
		{"847", 847, true},
		{"no digits here", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseCompactNumber(c.text)
		assert.Equal(t, c.ok, ok, "text: %s", c.text)
		assert.Equal(t, c.want, got, "text: %s", c.text)
	}
}

func TestParsePrice(t *testing.T) {
	p := ParsePrice("$19.99")
	assert.True(t, p.Known)
	assert.Equal(t, 19.99, p.Numeric)
	assert.Equal(t, "USD", p.Currency)

	p = ParsePrice("$1,234.56")
	assert.True(t, p.Known)
	assert.Equal(t, "$1,234.56", p.Raw)
	assert.Equal(t, 1234.56, p.Numeric)
	assert.Equal(t, "USD", p.Currency)

	p = ParsePrice("£5.50")
	assert.Equal(t, "GBP", p.Currency)
	assert.Equal(t, 5.5, p.Numeric)

	p = ParsePrice("€7.50")
	assert.Equal(t, "EUR", p.Currency)

	p = ParsePrice("749 €")
	assert.True(t, p.Known)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, 749.0, p.Numeric)

	p = ParsePrice("¥1,200")
	assert.Equal(t, "JPY", p.Currency)
	assert.Equal(t, 1200.0, p.Numeric)

	p = ParsePrice("USD 25")
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, 25.0, p.Numeric)

	p = ParsePrice("Price unavailable")
	assert.False(t, p.Known)
	assert.Equal(t, "Price unavailable", p.Raw)
	assert.Empty(t, p.Currency)

	p = ParsePrice("   ")
	assert.False(t, p.Known)
	assert.Empty(t, p.Raw)
}

func TestIsBadTitle(t *testing.T) {
	assert.True(t, IsBadTitle(""))
	assert.True(t, IsBadTitle("ab"))
	assert.True(t, IsBadTitle("Skip to main content"))
	assert.True(t, IsBadTitle("skip to results"))
	assert.True(t, IsBadTitle("Product Detail Page Link for B08N5WRWNW"))
	assert.False(t, IsBadTitle("Ninja Air Fryer Pro 4-in-1"))
}

func TestParseRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	got, ok := ParseRelativeTime("Updated 3 days ago", now)
	assert.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, -3), got)

	got, ok = ParseRelativeTime("updated 2 weeks ago", now)
	assert.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, -14), got)

	got, ok = ParseRelativeTime("updated 1 hour ago", now)
	assert.True(t, ok)
	assert.Equal(t, now.Add(-time.Hour), got)

	got, ok = ParseRelativeTime("updated 6 months ago", now)
	assert.True(t, ok)
	assert.Equal(t, now.AddDate(0, -6, 0), got)

	_, ok = ParseRelativeTime("Curated picks", now)
	assert.False(t, ok)
}

func TestMarketplace(t *testing.T) {
	assert.Equal(t, "US", Marketplace("https://www.amazon.com/shop/janedoe"))
	assert.Equal(t, "UK", Marketplace("https://www.amazon.co.uk/shop/janedoe"))
	assert.Equal(t, "AU", Marketplace("https://www.amazon.com.au/shop/janedoe"))
	assert.Equal(t, "DE", Marketplace("https://www.amazon.de/shop/janedoe"))
	assert.Equal(t, "NL", Marketplace("https://www.amazon.nl/shop/janedoe"))
	assert.Equal(t, "com", Marketplace("https://example.com/shop/janedoe"))
}
