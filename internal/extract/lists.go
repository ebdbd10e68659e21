package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/model"
)

const maxListNameLength = 200

var itemCountRe = regexp.MustCompile(`(?i)(?:See all\s*)?(\d+)\s*items?`)

// ExtractLists reads every list tile from a storefront page. Card grouping is
// tried first; pages without recognizable tiles fall back to scanning bare
// list links. The same list can appear in several carousels, so results are
// deduplicated by list id keeping the first occurrence.
func ExtractLists(snap *browser.Snapshot, storefrontID string, now time.Time) []model.List {
	lists := extractListsFromCards(snap, storefrontID, now)
	if len(lists) == 0 {
		lists = extractListsFromLinks(snap, storefrontID, now)
	}
	return lists
}

func extractListsFromCards(snap *browser.Snapshot, storefrontID string, now time.Time) []model.List {
	var out []model.List
	seen := make(map[string]struct{})

	position := 0
	for _, card := range snap.Cards {
		link, ok := card.Find(browser.WithHrefContains("/list/"))
		if !ok {
			continue
		}

		listID := ExtractListID(link.Href)
		if _, dup := seen[listID]; dup {
			continue
		}
		seen[listID] = struct{}{}
		position++

		name := listName(&card, link)
		likes := cardLikeCount(&card)

		productsCount := 0
		if m := itemCountRe.FindStringSubmatch(card.Text); m != nil {
			if n, ok := ParseCompactNumber(m[1]); ok {
				productsCount = int(n)
			}
		}

		out = append(out, model.List{
			ListID:        listID,
			StorefrontID:  storefrontID,
			ListName:      truncate(name, maxListNameLength),
			ListURL:       link.Href,
			LikesCount:    likes,
			ProductsCount: productsCount,
			Position:      position,
			ScrapedAt:     now,
		})
	}
	return out
}

func extractListsFromLinks(snap *browser.Snapshot, storefrontID string, now time.Time) []model.List {
	var out []model.List
	seen := make(map[string]struct{})

	position := 0
	for _, link := range snap.FindAll(browser.WithHrefContains("/list/")) {
		listID := ExtractListID(link.Href)
		if _, dup := seen[listID]; dup {
			continue
		}
		seen[listID] = struct{}{}
		position++

		out = append(out, model.List{
			ListID:       listID,
			StorefrontID: storefrontID,
			ListName:     truncate(strings.TrimSpace(link.Text), maxListNameLength),
			ListURL:      link.Href,
			Position:     position,
			ScrapedAt:    now,
		})
	}
	return out
}

func listName(card *browser.Card, link browser.Element) string {
	if el, ok := card.Find(browser.WithClassContains("list-link"), browser.WithText()); ok {
		return strings.TrimSpace(el.Text)
	}
	if el, ok := card.Find(browser.WithTag("h2", "h3"), browser.WithText()); ok {
		return strings.TrimSpace(el.Text)
	}
	if el, ok := card.Find(browser.WithClassContains("title"), browser.WithText()); ok {
		return strings.TrimSpace(el.Text)
	}
	if t := strings.TrimSpace(link.Text); t != "" {
		return t
	}
	// first line of the card text, whatever it is
	lines := strings.SplitN(strings.TrimSpace(card.Text), "\n", 2)
	return strings.TrimSpace(lines[0])
}

func cardLikeCount(card *browser.Card) int64 {
	if el, ok := card.Find(browser.WithClassContains("heart-count")); ok {
		if n, ok := ParseCompactNumber(el.Text); ok {
			return n
		}
	}
	return 0
}

var listLikesRe = regexp.MustCompile(`(?i)(\d+(?:,\d+)*)\s*(?:likes?|hearts?|favorites?)`)

// ExtractListMetadata reads a loaded list page's own header: name, likes,
// category and the "updated N days ago" stamp.
func ExtractListMetadata(snap *browser.Snapshot, listURL, storefrontID string, now time.Time) model.List {
	name := firstText(snap,
		elementText(browser.WithTag("h1"), browser.WithText()),
		elementText(browser.WithClassContains("list-title"), browser.WithText()),
	)

	var likes int64
	for _, fragment := range []string{"like", "heart", "favorite"} {
		if el, ok := snap.Find(browser.WithClassContains(fragment), browser.WithText()); ok {
			if n, ok := ParseCompactNumber(el.Text); ok && n > 0 {
				likes = n
				break
			}
		}
	}
	if likes == 0 {
		if m := listLikesRe.FindStringSubmatch(snap.BodyText); m != nil {
			if n, ok := ParseCompactNumber(m[1]); ok {
				likes = n
			}
		}
	}

	category := firstText(snap,
		elementText(browser.WithClassContains("category"), browser.WithText()),
		elementText(browser.WithClassContains("breadcrumb"), browser.WithText()),
	)

	list := model.List{
		ListID:       ExtractListID(listURL),
		StorefrontID: storefrontID,
		ListName:     truncate(name, maxListNameLength),
		ListURL:      listURL,
		LikesCount:   likes,
		Category:     category,
		ScrapedAt:    now,
	}
	if updated, ok := ParseRelativeTime(snap.BodyText, now); ok {
		list.LastUpdated = updated
	}
	return list
}
