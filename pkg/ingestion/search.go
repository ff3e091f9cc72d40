package ingestion

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/curricle-systems/core/pkg/schemas"
)

// DuckDuckGoSearcher is the production Searcher. search_provider.py drives
// the duckduckgo_search package against DDG's result feed; this hits the
// same no-API-key HTML surface (html.duckduckgo.com/html) and parses it
// with goquery rather than a headless browser.
type DuckDuckGoSearcher struct {
	httpClient *http.Client
	baseURL    string
}

// NewDuckDuckGoSearcher builds a Searcher with the given HTTP client. A nil
// client gets a 15s-timeout default.
func NewDuckDuckGoSearcher(httpClient *http.Client) *DuckDuckGoSearcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &DuckDuckGoSearcher{httpClient: httpClient, baseURL: "https://html.duckduckgo.com/html/"}
}

// Search implements Searcher. countryISO2 is not used: it is neither added
// to the query nor forwarded as a DDG region parameter.
func (s *DuckDuckGoSearcher) Search(query, countryISO2 string) ([]schemas.SourceCandidate, error) {
	req, err := http.NewRequest(http.MethodGet, s.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ingestion: build search request: %w", err)
	}
	q := url.Values{"q": {query}}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; curriculumd/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingestion: search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingestion: search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ingestion: parse search results: %w", err)
	}

	var out []schemas.SourceCandidate
	doc.Find(".result").Each(func(i int, sel *goquery.Selection) {
		link := sel.Find(".result__a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())
		if href == "" || title == "" {
			return
		}
		target := resolveDuckDuckGoRedirect(href)
		parsed, err := url.Parse(target)
		if err != nil || parsed.Host == "" {
			return
		}
		out = append(out, schemas.SourceCandidate{
			Title:   title,
			URL:     target,
			Snippet: snippet,
			Domain:  parsed.Host,
		})
	})
	return out, nil
}

// resolveDuckDuckGoRedirect unwraps DDG's "/l/?uddg=<encoded-target>"
// tracking links down to the real destination URL.
func resolveDuckDuckGoRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	return href
}
