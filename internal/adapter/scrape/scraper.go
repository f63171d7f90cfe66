package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"launchdock/internal/domain"
	"launchdock/internal/infra/config"
	"launchdock/internal/infra/tracer"
)

// maxFetchBody caps how much HTML we pull off the wire before extraction.
const maxFetchBody = 5 * 1024 * 1024 // 5 MB

// truncationMarker is appended when extracted content exceeds the char cap.
const truncationMarker = "...\n\n[Content truncated due to length]"

// boilerplateSelector matches elements stripped before text extraction.
const boilerplateSelector = "script, style, noscript, template, nav, header, footer, aside, iframe, form"

// Scraper fetches a page and extracts its content as plain text or
// markdown, capped at a fixed character budget.
type Scraper struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxChars  int
	logger    *slog.Logger
}

// New creates a Scraper from config.
func New(cfg config.ScraperConfig, logger *slog.Logger) *Scraper {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Scraper{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		userAgent: cfg.UserAgent,
		maxChars:  cfg.MaxChars,
		logger:    logger,
	}
}

// Scrape fetches url and returns boilerplate-stripped plain text.
func (s *Scraper) Scrape(ctx context.Context, url string) (string, error) {
	return s.ScrapeFormat(ctx, url, domain.ScrapeFormatText)
}

// ScrapeFormat fetches url and extracts content in the given format
// ("text" or "markdown").
func (s *Scraper) ScrapeFormat(ctx context.Context, url, format string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "scrape.fetch",
		trace.WithAttributes(
			tracer.StringAttr("scrape.url", url),
			tracer.StringAttr("scrape.format", format),
		),
	)
	defer span.End()

	if err := s.limiter.Wait(ctx); err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	html, err := s.fetch(ctx, url)
	if err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("%w: %s", domain.ErrScrapeFailed, err)
	}

	var content string
	switch format {
	case domain.ScrapeFormatMarkdown:
		content, err = extractMarkdown(html)
	default:
		content, err = extractText(html)
	}
	if err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("%w: %s", domain.ErrScrapeFailed, err)
	}

	content = truncate(content, s.maxChars)
	span.SetAttributes(tracer.IntAttr("scrape.chars", len(content)))
	tracer.SetOK(span)
	s.logger.Debug("website scraped", "url", url, "format", format, "chars", len(content))
	return content, nil
}

func (s *Scraper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch URL: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// extractText strips boilerplate elements and returns whitespace-normalized
// visible text.
func extractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(boilerplateSelector).Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " "), nil
}

// extractMarkdown converts the page body to markdown.
func extractMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(boilerplateSelector).Remove()

	inner, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(inner) == "" {
		inner = html
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(inner)
	if err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// truncate caps content at maxChars bytes (backing off to a rune boundary)
// and appends the truncation marker.
func truncate(content string, maxChars int) string {
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + truncationMarker
}
