// Package fetcher retrieves company website content as plaintext for the
// extraction stage. It fetches the homepage, follows one about-style page,
// and strips markup locally without any rendering dependency.
package fetcher

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/resilience"
)

const (
	maxBodyBytes = 512 * 1024
	maxTextRunes = 50_000
)

// Page is the plaintext content of a fetched site.
type Page struct {
	URL       string
	Title     string
	Text      string
	AboutURL  string
	AboutText string
}

// Combined returns homepage and about text joined for extraction prompts.
func (p *Page) Combined() string {
	if p.AboutText == "" {
		return p.Text
	}
	return p.Text + "\n\n" + p.AboutText
}

// HTTPFetcher implements site fetching over net/http with pacing and retry.
type HTTPFetcher struct {
	client    *http.Client
	gate      *resilience.Gate
	retry     resilience.RetryConfig
	userAgent string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithGate sets the pacing gate applied before each request.
func WithGate(g *resilience.Gate) FetcherOption {
	return func(f *HTTPFetcher) { f.gate = g }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) FetcherOption {
	return func(f *HTTPFetcher) { f.retry = cfg }
}

// WithUserAgent overrides the request User-Agent.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// NewHTTPFetcher creates a fetcher with sensible defaults.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		gate:      resilience.NewGate(0),
		retry:     resilience.DefaultRetryConfig(),
		userAgent: "Mozilla/5.0 (compatible; VentureScout/1.0)",
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchSite fetches the homepage and at most one about-style page.
func (f *HTTPFetcher) FetchSite(ctx context.Context, siteURL string) (*Page, error) {
	body, err := f.fetch(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	page := &Page{
		URL:   siteURL,
		Title: extractTitle(body),
		Text:  truncateRunes(stripHTML(string(body)), maxTextRunes),
	}

	if aboutURL := findAboutLink(string(body), siteURL); aboutURL != "" {
		aboutBody, err := f.fetch(ctx, aboutURL)
		if err != nil {
			// The homepage alone is still usable.
			zap.L().Debug("about page fetch failed",
				zap.String("url", aboutURL),
				zap.Error(err),
			)
		} else {
			page.AboutURL = aboutURL
			page.AboutText = truncateRunes(stripHTML(string(aboutBody)), maxTextRunes)
		}
	}

	return page, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.gate.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate gate")
	}

	return resilience.Retry(ctx, f.retry, "fetch page", func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: fetch")
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read body")
		}

		if resp.StatusCode >= 400 {
			err := eris.Errorf("fetcher: status %d from %s", resp.StatusCode, rawURL)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return body, nil
	})
}

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)

func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

var (
	anchorRe = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
)

// aboutKeywords mark links worth following for company background.
var aboutKeywords = []string{"about", "team", "company", "who we are", "our story"}

// findAboutLink returns the first same-site link that looks like an about
// page, resolved against the base URL.
func findAboutLink(html, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	for _, m := range anchorRe.FindAllStringSubmatch(html, 50) {
		href, text := m[1], strings.ToLower(tagRe.ReplaceAllString(m[2], " "))
		hrefLower := strings.ToLower(href)

		match := false
		for _, kw := range aboutKeywords {
			if strings.Contains(hrefLower, strings.ReplaceAll(kw, " ", "-")) || strings.Contains(text, kw) {
				match = true
				break
			}
		}
		if !match {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			continue
		}
		if resolved.String() == baseURL {
			continue
		}
		return resolved.String()
	}
	return ""
}

// stripHTML removes script/style/nav/footer blocks, strips tags, decodes
// common entities, and collapses whitespace.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	lines := strings.Split(html, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
