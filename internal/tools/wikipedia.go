package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"gwi.com/toolchat/internal/utils"
)

const (
	wikipediaTopK        = 3
	wikipediaMaxQueryLen = 300
	wikipediaMaxDocChars = 4000
	noWikipediaMatch     = "No good Wikipedia Search Result was found"
)

// Wikipedia answers a query with the intro summaries of the best matching pages.
type Wikipedia struct {
	client   *http.Client
	endpoint string
}

func NewWikipedia(opts Options) *Wikipedia {
	lang := opts.Lang
	if lang == "" {
		lang = "en"
	}
	return &Wikipedia{
		client:   &http.Client{Timeout: opts.Timeout},
		endpoint: fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang),
	}
}

// WithEndpoint points the tool at another MediaWiki api.php.
func (w *Wikipedia) WithEndpoint(endpoint string) *Wikipedia {
	w.endpoint = endpoint
	return w
}

func (w *Wikipedia) Name() string { return "wikipedia" }

func (w *Wikipedia) Description() string {
	return "A wrapper around Wikipedia. Useful for when you need to answer general questions about people, places, " +
		"companies, facts, historical events, or other subjects. Input should be a search query."
}

func (w *Wikipedia) Param() Param {
	return Param{Name: "query", Description: "query to look up on Wikipedia"}
}

func (w *Wikipedia) Run(ctx context.Context, input string) (string, error) {
	query := utils.Truncate(strings.TrimSpace(input), wikipediaMaxQueryLen, "")
	if query == "" {
		return "", errors.New("query is empty")
	}

	titles, err := w.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return noWikipediaMatch, nil
	}

	summaries, err := w.summaries(ctx, titles)
	if err != nil {
		return "", err
	}

	var pages []string
	for _, title := range titles {
		summary, ok := summaries[title]
		if !ok || summary == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("Page: %s\nSummary: %s", title, summary))
	}
	if len(pages) == 0 {
		return noWikipediaMatch, nil
	}
	return utils.Truncate(strings.Join(pages, "\n\n"), wikipediaMaxDocChars, ""), nil
}

func (w *Wikipedia) search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprintf("%d", wikipediaTopK))
	params.Set("format", "json")
	params.Set("utf8", "1")

	var root struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := w.get(ctx, params, &root); err != nil {
		return nil, fmt.Errorf("wikipedia search failed: %w", err)
	}

	titles := make([]string, 0, len(root.Query.Search))
	for _, s := range root.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

func (w *Wikipedia) summaries(ctx context.Context, titles []string) (map[string]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("titles", strings.Join(titles, "|"))
	params.Set("format", "json")

	var root struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := w.get(ctx, params, &root); err != nil {
		return nil, fmt.Errorf("wikipedia extracts failed: %w", err)
	}

	out := make(map[string]string, len(root.Query.Pages))
	for _, p := range root.Query.Pages {
		out[p.Title] = strings.TrimSpace(p.Extract)
	}
	return out, nil
}

func (w *Wikipedia) get(ctx context.Context, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode wikipedia response: %w", err)
	}
	return nil
}
