package extract

import (
	"strings"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/model"
)

const maxTitleLength = 500

// ExtractProducts reads every product reference from a loaded list page.
// Products without a resolvable ASIN are dropped; a product appearing in
// several DOM matches keeps its first occurrence and position.
func ExtractProducts(snap *browser.Snapshot, storefrontID, listID string, now time.Time) []model.Product {
	var out []model.Product
	seen := make(map[string]struct{})
	position := 0

	add := func(p model.Product) {
		if p.ASIN == "" {
			return
		}
		if _, dup := seen[p.ASIN]; dup {
			return
		}
		seen[p.ASIN] = struct{}{}
		position++
		p.PositionInList = position
		out = append(out, p)
	}

	if len(snap.Cards) > 0 {
		for _, card := range snap.Cards {
			add(productFromCard(&card, storefrontID, listID, now))
		}
	}

	// Bare product links catch whatever the card pass missed (or everything,
	// on pages with no recognizable cards).
	if len(out) == 0 {
		for _, link := range snap.FindAll(productLink) {
			add(model.Product{
				ASIN:         ExtractASIN(link.Href),
				ListID:       listID,
				StorefrontID: storefrontID,
				ProductTitle: truncate(strings.TrimSpace(link.Text), maxTitleLength),
				ProductURL:   link.Href,
				ScrapedAt:    now,
			})
		}
	}

	return out
}

func productFromCard(card *browser.Card, storefrontID, listID string, now time.Time) model.Product {
	link, ok := card.Find(productLink)
	if !ok {
		link, _ = card.Find(browser.WithHrefContains("amazon"))
	}

	title := ""
	if el, found := card.Find(browser.WithTag("h2", "h3", "h4"), browser.WithText()); found {
		title = el.Text
	} else if el, found := card.Find(browser.WithClassContains("title"), browser.WithText()); found {
		title = el.Text
	} else if el, found := card.Find(browser.WithClassContains("a-text-normal"), browser.WithText()); found {
		title = el.Text
	}

	priceText := ""
	if el, found := card.Find(browser.WithClassContains("price"), browser.WithText()); found {
		priceText = el.Text
	}
	price := ParsePrice(priceText)

	imageURL := ""
	if el, found := card.Find(browser.WithTag("img")); found && el.Src != "" {
		imageURL = el.Src
	}

	return model.Product{
		ASIN:         ExtractASIN(link.Href),
		ListID:       listID,
		StorefrontID: storefrontID,
		ProductTitle: truncate(strings.TrimSpace(title), maxTitleLength),
		Price:        price.Raw,
		PriceNumeric: price.Numeric,
		PriceKnown:   price.Known,
		Currency:     price.Currency,
		ImageURL:     imageURL,
		ProductURL:   link.Href,
		ScrapedAt:    now,
	}
}

func productLink(el browser.Element) bool {
	if el.Href == "" {
		return false
	}
	return strings.Contains(el.Href, "/dp/") || strings.Contains(el.Href, "/gp/product/")
}

// productTitleStrategies resolve a title on a product detail page, used by
// the fix-titles pass.
var productTitleStrategies = []textStrategy{
	elementText(idEquals("productTitle"), browser.WithText()),
	elementText(idEquals("title"), browser.WithText()),
	elementText(browser.WithTag("h1"), browser.WithClassContains("a-size-large"), browser.WithText()),
	elementText(browser.WithClassContains("product-title-word-break"), browser.WithText()),
	elementText(browser.WithTag("h1"), browser.WithText()),
}

// ExtractProductTitle resolves the title from a loaded product detail page,
// or "" when nothing matches.
func ExtractProductTitle(snap *browser.Snapshot) string {
	return truncate(firstText(snap, productTitleStrategies...), maxTitleLength)
}

func idEquals(id string) func(browser.Element) bool {
	return func(el browser.Element) bool {
		return el.ID == id
	}
}
