package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/model"
)

const maxBioLength = 1000

// textStrategy resolves one text field from a snapshot. Strategies are tried
// in order; the first hit wins and a total miss leaves the field empty.
type textStrategy func(*browser.Snapshot) (string, bool)

func firstText(snap *browser.Snapshot, strategies ...textStrategy) string {
	for _, s := range strategies {
		if v, ok := s(snap); ok {
			return v
		}
	}
	return ""
}

// ExtractProfile builds a pending storefront record from a loaded storefront
// page. Missing fields degrade to empty values; this never fails.
func ExtractProfile(snap *browser.Snapshot, url, discoverySource string, now time.Time) model.Storefront {
	id := ExtractStorefrontID(url)

	likes, _ := extractLikeCount(snap)
	followers, _ := extractFollowerCount(snap)

	return model.Storefront{
		StorefrontID:    id,
		StorefrontURL:   url,
		Username:        id,
		CreatorName:     extractCreatorName(snap),
		Bio:             truncate(extractBio(snap), maxBioLength),
		ProfileImageURL: extractProfileImage(snap),
		IsTopCreator:    extractTopCreator(snap),
		StorefrontLikes: likes,
		FollowerCount:   followers,
		DiscoverySource: discoverySource,
		Marketplace:     Marketplace(url),
		ScrapedAt:       now,
		ScrapeStatus:    model.StatusPending,
	}
}

func extractCreatorName(snap *browser.Snapshot) string {
	return firstText(snap,
		elementText(browser.WithTag("h1"), browser.WithText()),
		elementText(browser.WithClassContains("creator-name"), browser.WithText()),
		elementText(browser.WithClassContains("profile-name"), browser.WithText()),
		elementText(browser.WithClassContains("shop-name"), browser.WithText()),
		elementText(browser.WithClassContains("storename"), browser.WithText()),
	)
}

func extractBio(snap *browser.Snapshot) string {
	longText := func(el browser.Element) bool {
		return len(strings.TrimSpace(el.Text)) > 20
	}
	return firstText(snap,
		elementText(browser.WithClassContains("bio"), longText),
		elementText(browser.WithClassContains("description"), longText),
		elementText(browser.WithClassContains("about"), longText),
	)
}

func extractProfileImage(snap *browser.Snapshot) string {
	withImage := func(el browser.Element) bool {
		return el.Src != "" && !strings.Contains(el.Src, "transparent")
	}
	for _, fragment := range []string{"avatar", "profile", "creator"} {
		if el, ok := snap.Find(browser.WithClassContains(fragment), withImage); ok {
			return el.Src
		}
	}
	return ""
}

// extractTopCreator looks for a top-creator or verified badge: explicit badge
// elements first, then badge-ish text anywhere in a header region.
func extractTopCreator(snap *browser.Snapshot) bool {
	badgeFragments := []string{"badge", "verified", "top-creator", "topcreator"}
	for _, fragment := range badgeFragments {
		for _, el := range snap.FindAll(browser.WithClassContains(fragment)) {
			if isBadgeText(el.Text) || isBadgeText(el.AriaLabel) || strings.Contains(strings.ToLower(el.Class), "topcreator") {
				return true
			}
		}
	}
	for _, el := range snap.FindAll(browser.WithAriaContains("top")) {
		if isBadgeText(el.AriaLabel) {
			return true
		}
	}
	for _, fragment := range []string{"header", "profile"} {
		if el, ok := snap.Find(browser.WithClassContains(fragment)); ok {
			if strings.Contains(strings.ToLower(el.Text), "top creator") {
				return true
			}
		}
	}
	return false
}

func isBadgeText(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "top creator") || strings.Contains(lower, "verified")
}

var pureCountRe = regexp.MustCompile(`^(\d+(?:,\d+)*(?:\.\d+)?)\s*[KMBkmb]?$`)

// extractLikeCount reads the storefront's aggregate heart count. Dedicated
// count elements are preferred; the fallback scans heart/like styled elements
// whose whole text is a bare number.
func extractLikeCount(snap *browser.Snapshot) (int64, bool) {
	countClasses := []string{"like-count", "likecount", "heart-count", "likes"}
	for _, fragment := range countClasses {
		for _, el := range snap.FindAll(browser.WithClassContains(fragment)) {
			text := el.Text
			if text == "" {
				text = el.AriaLabel
			}
			if n, ok := ParseCompactNumber(text); ok && n > 0 {
				return n, true
			}
		}
	}
	for _, fragment := range []string{"heart", "like"} {
		for _, el := range snap.FindAll(browser.WithClassContains(fragment)) {
			if pureCountRe.MatchString(strings.TrimSpace(el.Text)) {
				if n, ok := ParseCompactNumber(el.Text); ok && n > 0 {
					return n, true
				}
			}
		}
	}
	return 0, false
}

var followerRe = regexp.MustCompile(`(?i)(\d+(?:,\d+)*(?:\.\d+)?[KMB]?)\s*(?:followers?|following)`)

func extractFollowerCount(snap *browser.Snapshot) (int64, bool) {
	m := followerRe.FindStringSubmatch(snap.BodyText)
	if m == nil {
		return 0, false
	}
	return ParseCompactNumber(m[1])
}

func elementText(preds ...func(browser.Element) bool) textStrategy {
	return func(snap *browser.Snapshot) (string, bool) {
		if el, ok := snap.Find(preds...); ok {
			return strings.TrimSpace(el.Text), true
		}
		return "", false
	}
}
