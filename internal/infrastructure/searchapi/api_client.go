package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"SerialWatch/internal/marketplace"
	"SerialWatch/internal/search"
)

const defaultMaxResults = 50

// APIClient queries a JSON search API (Google CSE style) for serial listings.
type APIClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ search.Provider = (*APIClient)(nil)

// NewAPIClient wires an HTTP client; timeout defaults to 20 seconds.
func NewAPIClient(endpoint, apiKey string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &APIClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider inside the registry.
func (c *APIClient) Name() string {
	return "api"
}

// Search issues one scoped query. Marketplace scope restricts the query to
// the marketplace domain; an empty hit list is a valid, non-error outcome.
func (c *APIClient) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("search api client misconfigured")
	}

	limit := req.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	query := req.SerialValue
	if req.Scope == search.ScopeMarketplace {
		query = fmt.Sprintf("%s site:%s", query, marketplace.PrimaryDomain())
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint %s: %w", c.endpoint, err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api returned %s", resp.Status)
	}

	var payload struct {
		Items []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]search.Result, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, search.Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
