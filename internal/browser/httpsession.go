package browser

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultNavigateTimeout = 30 * time.Second
	maxElementText         = 2000
)

// cardSelector matches the tile containers the marketplace renders lists and
// products into. Pages without them fall through to flat link scans.
const cardSelector = "div[class*='card'], li[class*='card'], div[class*='tile'], li[class*='tile'], div[class*='grid-item'], li[class*='grid-item'], div[class*='list-item'], div[class*='product-item']"

// elementSelector is the attribute surface the extractors look at. Anything
// outside these tags never matters to them.
const elementSelector = "a, img, h1, h2, h3, h4, span, div, p, li, button"

// HTTPSession is a plain-HTTP Session implementation. It fetches documents
// with net/http and parses them into snapshots. Scroll and click are inert:
// a static fetch renders everything at once, so growth-detection loops settle
// after their idle threshold and lazy-load affordances simply are not there.
type HTTPSession struct {
	client    *http.Client
	userAgent string
	logger    *log.Logger
}

func NewHTTPSession(userAgent string, logger *log.Logger) *HTTPSession {
	if logger == nil {
		logger = log.Default()
	}
	return &HTTPSession{
		client:    &http.Client{Timeout: defaultNavigateTimeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

func (s *HTTPSession) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpPage{session: s}, nil
}

func (s *HTTPSession) Close(ctx context.Context) error {
	s.client.CloseIdleConnections()
	return nil
}

type httpPage struct {
	session *HTTPSession
	url     string
	doc     *goquery.Document
	rawHTML string
}

func (p *httpPage) Goto(ctx context.Context, target string, opts NavigateOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultNavigateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", p.session.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.session.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", resp.Status, ErrRateLimited)
	case resp.StatusCode >= 400:
		return fmt.Errorf("fetch %s: %s", target, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", target, err)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	p.url = finalURL
	p.doc = doc
	if html, err := doc.Html(); err == nil {
		p.rawHTML = html
	}
	return nil
}

func (p *httpPage) Title(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("no document loaded")
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text()), nil
}

func (p *httpPage) Snapshot(ctx context.Context) (*Snapshot, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	base, _ := url.Parse(p.url)

	snap := &Snapshot{
		URL:      p.url,
		BodyText: normalizeText(p.doc.Find("body").Text()),
	}
	snap.Title = strings.TrimSpace(p.doc.Find("title").First().Text())

	p.doc.Find(elementSelector).Each(func(_ int, sel *goquery.Selection) {
		snap.Elements = append(snap.Elements, elementFrom(sel, base))
	})

	p.doc.Find(cardSelector).Each(func(_ int, sel *goquery.Selection) {
		card := Card{
			Class: sel.AttrOr("class", ""),
			Text:  normalizeText(sel.Text()),
		}
		sel.Find(elementSelector).Each(func(_ int, inner *goquery.Selection) {
			card.Elements = append(card.Elements, elementFrom(inner, base))
		})
		snap.Cards = append(snap.Cards, card)
	})

	return snap, nil
}

// ScrollBy is inert: the whole document arrived in one response.
func (p *httpPage) ScrollBy(ctx context.Context, pixels int) error { return nil }

// PageHeight is constant per document, so callers watching for growth give up
// after their idle threshold.
func (p *httpPage) PageHeight(ctx context.Context) (int, error) {
	return len(p.rawHTML), nil
}

// ClickByText never clicks; static documents carry no load-more behaviour.
func (p *httpPage) ClickByText(ctx context.Context, fragments ...string) (bool, error) {
	return false, nil
}

// Screenshot saves the raw HTML instead of pixels.
func (p *httpPage) Screenshot(ctx context.Context, path string) error {
	if p.rawHTML == "" {
		return fmt.Errorf("no document loaded")
	}
	return os.WriteFile(path, []byte(p.rawHTML), 0o644)
}

func (p *httpPage) Close(ctx context.Context) error {
	p.doc = nil
	p.rawHTML = ""
	return nil
}

func elementFrom(sel *goquery.Selection, base *url.URL) Element {
	el := Element{
		Tag:       goquery.NodeName(sel),
		ID:        sel.AttrOr("id", ""),
		Class:     sel.AttrOr("class", ""),
		Text:      truncateText(normalizeText(sel.Text())),
		AriaLabel: sel.AttrOr("aria-label", ""),
	}
	if href, ok := sel.Attr("href"); ok {
		el.Href = absoluteURL(base, href)
	}
	if src, ok := sel.Attr("src"); ok {
		el.Src = absoluteURL(base, src)
	}
	return el
}

func absoluteURL(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// normalizeText collapses runs of whitespace within lines and trims the
// result, keeping line breaks so first-line heuristics still work.
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func truncateText(s string) string {
	if len(s) <= maxElementText {
		return s
	}
	return s[:maxElementText]
}
