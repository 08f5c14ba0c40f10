// Package fetch retrieves job postings over HTTP and reduces the returned
// HTML to its main text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/logger"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (compatible; CodexAgent/1.0)"

// MaxBodyBytes caps how much of a response body is read.
const MaxBodyBytes = 10 << 20

// Result holds the raw and processed content of a fetched page.
type Result struct {
	URL         string   `json:"url"`
	HTML        string   `json:"html"`
	Text        string   `json:"text"`
	ContentType string   `json:"content_type"`
	StatusCode  int      `json:"status_code"`
	Platform    Platform `json:"platform"`
	Rendered    bool     `json:"rendered"`
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// UseBrowser enables headless rendering when the HTTP text looks like an
	// unrendered single-page app.
	UseBrowser bool
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Fetcher is the page retrieval abstraction used by ingestion.
type Fetcher interface {
	Fetch(ctx context.Context, urlStr string) (*Result, error)
}

// HTTPFetcher fetches pages with net/http and optionally renders them with a
// headless browser.
type HTTPFetcher struct {
	client  *http.Client
	opts    Options
	logger  *zap.Logger
	renderf func(ctx context.Context, urlStr string, timeout time.Duration) (string, error)
}

// New creates an HTTPFetcher. A nil opts uses DefaultOptions.
func New(opts *Options, log *zap.Logger) *HTTPFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: o.Timeout},
		opts:    o,
		logger:  logger.OrNop(log),
		renderf: Render,
	}
}

// Fetch retrieves urlStr and extracts its main text using the selectors for
// the detected job board.
func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	for key, value := range f.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	platform := DetectPlatform(urlStr)
	result := &Result{
		URL:         urlStr,
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		Platform:    platform,
	}
	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	result.Text, err = ExtractMainText(result.HTML, ContentSelectors(platform), NoiseSelectors(platform)...)
	if err != nil {
		return result, &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
	}

	if f.opts.UseBrowser && NeedsRendering(result.Text) {
		f.logger.Debug("content too short, rendering in browser",
			zap.String("url", urlStr), zap.Int("chars", len(result.Text)))
		html, renderErr := f.renderf(ctx, urlStr, f.opts.Timeout)
		if renderErr != nil {
			// the plain HTTP text is still usable
			f.logger.Warn("browser rendering failed", zap.String("url", urlStr), zap.Error(renderErr))
			return result, nil
		}
		text, extractErr := ExtractMainText(html, ContentSelectors(platform), NoiseSelectors(platform)...)
		if extractErr == nil {
			result.HTML = html
			result.Text = text
			result.Rendered = true
		}
	}

	f.logger.Debug("fetched page",
		zap.String("url", urlStr),
		zap.String("platform", string(platform)),
		zap.Int("chars", len(result.Text)))
	return result, nil
}

// ExtractMainText parses HTML and returns the main body text.
// Noise elements are removed first, then the first matching content
// selector wins; the body is the fallback.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()
	if len(noiseSelectors) > 0 {
		doc.Find(strings.Join(noiseSelectors, ", ")).Remove()
	}

	content := doc.Find("body")
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			content = selection.First()
			break
		}
	}

	// block elements become line breaks so list items stay separate
	content.Find("p, li, br, div, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return collapseLines(content.Text()), nil
}

func collapseLines(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
