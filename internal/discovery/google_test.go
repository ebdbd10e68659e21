package discovery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
)

type fakePage struct {
	onGoto  func(url string) (*browser.Snapshot, error)
	current *browser.Snapshot
	visited []string
}

func (p *fakePage) Goto(ctx context.Context, url string, opts browser.NavigateOptions) error {
	p.visited = append(p.visited, url)
	snap, err := p.onGoto(url)
	if err != nil {
		return err
	}
	p.current = snap
	return nil
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	if p.current == nil {
		return "", nil
	}
	return p.current.Title, nil
}

func (p *fakePage) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	return p.current, nil
}

func (p *fakePage) ScrollBy(ctx context.Context, pixels int) error { return nil }

func (p *fakePage) PageHeight(ctx context.Context) (int, error) { return 1, nil }

func (p *fakePage) ClickByText(ctx context.Context, fragments ...string) (bool, error) {
	return false, nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error { return nil }

func (p *fakePage) Close(ctx context.Context) error { return nil }

type fakeSession struct {
	page *fakePage
}

func (s *fakeSession) NewPage(ctx context.Context) (browser.Page, error) { return s.page, nil }

func (s *fakeSession) Close(ctx context.Context) error { return nil }

func fastLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Options{
		MinDelay:        time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		StorefrontDelay: time.Millisecond,
		BatchDelay:      time.Millisecond,
	})
}

func shopLinks(hrefs ...string) *browser.Snapshot {
	snap := &browser.Snapshot{}
	for _, h := range hrefs {
		snap.Elements = append(snap.Elements, browser.Element{Tag: "a", Href: h})
	}
	return snap
}

func TestGoogleSourceCollectsUniqueHandles(t *testing.T) {
	page := &fakePage{}
	page.onGoto = func(url string) (*browser.Snapshot, error) {
		if strings.Contains(url, "start=0") {
			return shopLinks(
				"https://www.amazon.com/shop/alpha?ref=x",
				"https://www.amazon.com/shop/beta",
				"https://www.amazon.com/shop/Alpha", // dup, different case
				"https://www.google.com/imgres",
			), nil
		}
		// later pages: empty result set ends pagination
		return &browser.Snapshot{}, nil
	}

	src := NewGoogleSource(&fakeSession{page: page}, fastLimiter(), nil, "com", 5)
	got, err := src.Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].StorefrontID)
	assert.Equal(t, "beta", got[1].StorefrontID)
	// page 1 had links, page 2 came back empty, then it stopped
	assert.Len(t, page.visited, 2)
}

func TestGoogleSourceStopsOnChallenge(t *testing.T) {
	page := &fakePage{}
	page.onGoto = func(url string) (*browser.Snapshot, error) {
		if strings.Contains(url, "start=0") {
			return shopLinks("https://www.amazon.com/shop/alpha"), nil
		}
		return &browser.Snapshot{
			Title:    "Sorry...",
			BodyText: "Our systems have detected unusual traffic from your computer network.",
		}, nil
	}

	src := NewGoogleSource(&fakeSession{page: page}, fastLimiter(), nil, "com", 10)
	got, err := src.Discover(context.Background())
	require.NoError(t, err)

	// the challenge halts pagination but keeps what was gathered
	require.Len(t, got, 1)
	assert.Equal(t, "alpha", got[0].StorefrontID)
	assert.Len(t, page.visited, 2)
}
