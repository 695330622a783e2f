package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"gwi.com/toolchat/internal/utils"
)

const (
	defaultFetchChars = 8000
	maxFetchBytes     = 4 << 20
	maxRedirects      = 5
)

// WebFetch downloads a page and returns its readable text.
type WebFetch struct {
	client   *http.Client
	maxChars int
}

// NewWebFetch creates the fetch tool; maxChars <= 0 uses the default.
func NewWebFetch(opts Options, maxChars int) *WebFetch {
	if maxChars <= 0 {
		maxChars = defaultFetchChars
	}
	client := &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &WebFetch{client: client, maxChars: maxChars}
}

func (f *WebFetch) Name() string { return "web_fetch" }

func (f *WebFetch) Description() string {
	return "Fetch a web page and extract its readable text. Useful for reading a page found by a search. " +
		"Input should be an http or https URL."
}

func (f *WebFetch) Param() Param {
	return Param{Name: "url", Description: "http or https URL to read"}
}

func (f *WebFetch) Run(ctx context.Context, input string) (string, error) {
	rawURL := strings.TrimSpace(input)
	if rawURL == "" {
		return "", errors.New("url is empty")
	}
	pageURL, err := validateURL(rawURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	var text string
	if isHTML(resp.Header.Get("Content-Type"), body) {
		article, err := readability.FromReader(bytes.NewReader(body), pageURL)
		if err != nil {
			return "", fmt.Errorf("failed to extract readable content: %w", err)
		}
		text = utils.NormalizeWhitespace(article.TextContent)
		if article.Title != "" {
			text = "# " + article.Title + "\n\n" + text
		}
	} else {
		text = utils.NormalizeWhitespace(string(body))
	}

	return utils.Truncate(text, f.maxChars, "\n[TRUNCATED]"), nil
}

func validateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing domain in URL")
	}
	return u, nil
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	prefix := strings.ToLower(strings.TrimSpace(string(body[:min(256, len(body))])))
	return strings.HasPrefix(prefix, "<!doctype") || strings.HasPrefix(prefix, "<html")
}
