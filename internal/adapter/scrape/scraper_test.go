package scrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"launchdock/internal/domain"
	"launchdock/internal/infra/config"
)

func newTestScraper(maxChars int) *Scraper {
	return New(config.ScraperConfig{
		UserAgent:         "test-agent/1.0",
		MaxChars:          maxChars,
		RequestsPerSecond: 1000,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const samplePage = `<html>
<head><title>News</title><style>body { color: red }</style></head>
<body>
<nav>Home | About</nav>
<script>console.log("tracking")</script>
<h1>Big Headline</h1>
<p>First paragraph of the article.</p>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestScrapeStripsBoilerplate(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		io.WriteString(w, samplePage)
	}))
	defer srv.Close()

	s := newTestScraper(32000)
	content, err := s.Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	if gotUA != "test-agent/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
	if !strings.Contains(content, "Big Headline") || !strings.Contains(content, "First paragraph of the article.") {
		t.Errorf("article text missing: %q", content)
	}
	for _, stripped := range []string{"console.log", "color: red", "Home | About", "Copyright 2026"} {
		if strings.Contains(content, stripped) {
			t.Errorf("boilerplate %q leaked into %q", stripped, content)
		}
	}
	if strings.Contains(content, "\n") {
		t.Errorf("text not whitespace-normalized: %q", content)
	}
}

func TestScrapeMarkdownFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, samplePage)
	}))
	defer srv.Close()

	s := newTestScraper(32000)
	content, err := s.ScrapeFormat(context.Background(), srv.URL, domain.ScrapeFormatMarkdown)
	if err != nil {
		t.Fatalf("ScrapeFormat: %v", err)
	}
	if !strings.Contains(content, "# Big Headline") {
		t.Errorf("heading not converted: %q", content)
	}
	if strings.Contains(content, "console.log") {
		t.Errorf("script leaked into markdown: %q", content)
	}
}

func TestScrapeTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body><p>"+strings.Repeat("word ", 200)+"</p></body></html>")
	}))
	defer srv.Close()

	s := newTestScraper(100)
	content, err := s.Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if !strings.HasSuffix(content, "...\n\n[Content truncated due to length]") {
		t.Errorf("truncation marker missing: %q", content)
	}
	if len(content) > 100+len(truncationMarker) {
		t.Errorf("content over cap: %d chars", len(content))
	}
}

func TestScrapeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestScraper(32000)
	_, err := s.Scrape(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrScrapeFailed) {
		t.Fatalf("want ErrScrapeFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to fetch URL") {
		t.Errorf("error text = %q", err)
	}
}

func TestScrapeUnreachable(t *testing.T) {
	s := newTestScraper(32000)
	_, err := s.Scrape(context.Background(), "http://127.0.0.1:1/nope")
	if !errors.Is(err, domain.ErrScrapeFailed) {
		t.Fatalf("want ErrScrapeFailed, got %v", err)
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	content := strings.Repeat("é", 60) // 2 bytes each
	got := truncate(content, 99)
	cut := strings.TrimSuffix(got, truncationMarker)
	if !strings.HasSuffix(got, truncationMarker) {
		t.Fatalf("marker missing: %q", got)
	}
	if strings.ContainsRune(cut, '�') || len(cut)%2 != 0 {
		t.Errorf("cut mid-rune: %d bytes", len(cut))
	}
}
