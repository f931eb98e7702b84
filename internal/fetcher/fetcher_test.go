package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venture-scout/internal/resilience"
)

const homepage = `<html><head><title>BrightWave - AI Analytics</title>
<style>body { color: red }</style></head>
<body>
<nav><a href="/products">Products</a></nav>
<h1>BrightWave</h1>
<p>AI analytics for renewable energy operators.</p>
<script>console.log("tracking")</script>
<a href="/about-us">About Us</a>
<footer>Copyright 2026</footer>
</body></html>`

const aboutPage = `<html><head><title>About</title></head>
<body><p>Founded in 2023 by Dana Reyes and Kim Osei in Denver, CO.</p></body></html>`

func TestFetchSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(homepage))
		case "/about-us":
			_, _ = w.Write([]byte(aboutPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	page, err := f.FetchSite(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "BrightWave - AI Analytics", page.Title)
	assert.Contains(t, page.Text, "AI analytics for renewable energy")
	assert.NotContains(t, page.Text, "console.log")
	assert.NotContains(t, page.Text, "color: red")
	assert.NotContains(t, page.Text, "Copyright 2026")

	assert.Equal(t, srv.URL+"/about-us", page.AboutURL)
	assert.Contains(t, page.AboutText, "Founded in 2023")
	assert.Contains(t, page.Combined(), "Dana Reyes")
}

func TestFetchSiteSurvivesAboutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte(homepage))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	page, err := f.FetchSite(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Empty(t, page.AboutText)
	assert.Contains(t, page.Combined(), "BrightWave")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("<html><body>recovered page content here</body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}))
	page, err := f.FetchSite(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, page.Text, "recovered")
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	_, err := f.FetchSite(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFindAboutLink(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"href keyword", `<a href="/about-us">Learn more</a>`, "https://acme.io/about-us"},
		{"anchor text keyword", `<a href="/story">Our Story</a>`, "https://acme.io/story"},
		{"team page", `<a href="/team">Meet the Team</a>`, "https://acme.io/team"},
		{"external link skipped", `<a href="https://other.com/about">About</a>`, ""},
		{"no match", `<a href="/pricing">Pricing</a>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findAboutLink(tt.html, "https://acme.io"))
		})
	}
}

func TestStripHTMLCollapsesWhitespace(t *testing.T) {
	text := stripHTML("<div>  hello   <b>world</b>\n\n\n  again </div>")
	assert.Equal(t, "hello world\nagain", text)
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("é", 100)
	assert.Len(t, []rune(truncateRunes(long, 10)), 10)
	assert.Equal(t, "short", truncateRunes("short", 10))
}
