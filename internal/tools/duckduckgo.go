package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"gwi.com/toolchat/internal/utils"
)

const (
	duckDuckGoLiteURL = "https://lite.duckduckgo.com/lite/"
	noDuckDuckGoMatch = "No good DuckDuckGo Search Result was found"
)

// SearchResult is one hit from the search page.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// DuckDuckGo searches the web through the key-less DuckDuckGo lite page.
type DuckDuckGo struct {
	client     *http.Client
	endpoint   string
	maxResults int
}

func NewDuckDuckGo(opts Options) *DuckDuckGo {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &DuckDuckGo{
		client:     &http.Client{Timeout: opts.Timeout},
		endpoint:   duckDuckGoLiteURL,
		maxResults: maxResults,
	}
}

// WithEndpoint points the searcher at another lite-compatible page.
func (d *DuckDuckGo) WithEndpoint(endpoint string) *DuckDuckGo {
	d.endpoint = endpoint
	return d
}

func (d *DuckDuckGo) Name() string { return "duckduckgo_search" }

func (d *DuckDuckGo) Description() string {
	return "A wrapper around DuckDuckGo Search. Useful for when you need to answer questions about current events, " +
		"ratings, reviews or news. Input should be a search query."
}

func (d *DuckDuckGo) Param() Param {
	return Param{Name: "query", Description: "search query"}
}

func (d *DuckDuckGo) Run(ctx context.Context, input string) (string, error) {
	results, err := d.Search(ctx, input)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return noDuckDuckGoMatch, nil
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. %s\n   %s", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			sb.WriteString("\n   " + r.Snippet)
		}
	}
	return sb.String(), nil
}

// Search posts the query to the lite page and parses the result table.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}

	form := url.Values{}
	form.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build duckduckgo request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to parse duckduckgo page: %w", err)
	}
	return parseLiteResults(doc, d.maxResults), nil
}

// parseLiteResults walks the lite page in document order: every
// a.result-link opens a result and the next td.result-snippet fills it.
func parseLiteResults(doc *html.Node, limit int) []SearchResult {
	var results []SearchResult

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result-link"):
				title := utils.NormalizeWhitespace(nodeText(n))
				link := resolveLink(attr(n, "href"))
				if title != "" && link != "" {
					results = append(results, SearchResult{Title: title, URL: link})
				}
				return
			case n.Data == "td" && hasClass(n, "result-snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = utils.NormalizeWhitespace(nodeText(n))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// resolveLink unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasSuffix(u.Host, "duckduckgo.com") {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
