package searchapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"SerialWatch/internal/marketplace"
	"SerialWatch/internal/search"
)

// PageScraper extracts results from a search engine's HTML results page for
// deployments without API access.
type PageScraper struct {
	baseURL string
	client  *http.Client
}

var _ search.Provider = (*PageScraper)(nil)

// NewPageScraper wires an HTTP client; timeout defaults to 20 seconds.
func NewPageScraper(baseURL string, client *http.Client) *PageScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &PageScraper{baseURL: baseURL, client: client}
}

// Name identifies the provider inside the registry.
func (p *PageScraper) Name() string {
	return "scrape"
}

// Search fetches one results page and extracts result blocks.
func (p *PageScraper) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	query := req.SerialValue
	if req.Scope == search.ScopeMarketplace {
		query = fmt.Sprintf("%s site:%s", query, marketplace.PrimaryDomain())
	}

	pageURL, err := buildPageURL(p.baseURL, query)
	if err != nil {
		return nil, err
	}

	doc, err := p.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	return extractResults(doc, req.MaxResults), nil
}

func (p *PageScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "SerialWatch/1.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request results page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractResults(doc *goquery.Document, limit int) []search.Result {
	var collected []search.Result

	doc.Find("div.result").EachWithBreak(func(i int, block *goquery.Selection) bool {
		if limit > 0 && len(collected) >= limit {
			return false
		}

		link := block.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}

		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(block.Find(".snippet").First().Text())

		collected = append(collected, search.Result{
			URL:     href,
			Title:   title,
			Snippet: snippet,
		})
		return true
	})

	return collected
}

func buildPageURL(base, query string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid results url %s: %w", base, err)
	}

	params := parsed.Query()
	params.Set("q", query)
	parsed.RawQuery = params.Encode()
	return parsed.String(), nil
}
