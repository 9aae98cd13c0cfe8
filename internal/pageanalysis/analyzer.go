// Package pageanalysis turns a web page URL into plain-text context for generation requests.
package pageanalysis

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"gwi.com/chat-agent/internal/core"
	"gwi.com/chat-agent/internal/utils"
)

const (
	maxBodyBytes   = 2 << 20
	maxContentRune = 8000
)

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, &core.ValidationError{Field: "url", Message: "is required"}
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &core.ValidationError{Field: "url", Message: "must be an absolute http(s) URL"}
	}
	return u, nil
}

// MockAnalyzer returns canned content after a delay.
type MockAnalyzer struct {
	Delay time.Duration
}

func (a MockAnalyzer) Analyze(ctx context.Context, rawURL string) (*core.PageContext, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if a.Delay > 0 {
		timer := time.NewTimer(a.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return &core.PageContext{
		Content: fmt.Sprintf("Simulated content of the page %s. Headings, paragraphs and links would appear here.", u.String()),
		URL:     u.String(),
	}, nil
}

// HTTPAnalyzer fetches the page and strips it down to readable text.
type HTTPAnalyzer struct {
	client *http.Client
	policy *bluemonday.Policy
}

func NewHTTPAnalyzer(timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		client: &http.Client{Timeout: timeout},
		policy: bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true),
	}
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, rawURL string) (*core.PageContext, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/html, text/plain;q=0.9")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	text := a.extractText(string(body))
	if text == "" {
		return nil, errors.New("page has no readable text")
	}
	return &core.PageContext{Content: text, URL: u.String()}, nil
}

// extractText strips every tag, dropping script and style bodies, and collapses whitespace.
func (a *HTTPAnalyzer) extractText(page string) string {
	text := html.UnescapeString(a.policy.Sanitize(page))
	text = utils.CollapseWhitespace(text)
	return utils.TruncateRunes(text, maxContentRune, "...")
}

// New returns the analyzer named by kind ("mock" or "http").
func New(kind string, timeout time.Duration) (core.PageAnalyzer, error) {
	switch kind {
	case "mock":
		return MockAnalyzer{Delay: 2 * time.Second}, nil
	case "http":
		return NewHTTPAnalyzer(timeout), nil
	default:
		return nil, fmt.Errorf("unknown page analyzer %q", kind)
	}
}
