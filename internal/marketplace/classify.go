package marketplace

import (
	"net/url"
	"regexp"
	"strings"
)

// Accepted marketplace domain variants.
const (
	domainShort = "shopee.tw"
	domainLong  = "shopee.com.tw"
)

// Product pages embed shop and product ids as an i.<shop>.<product> infix
// inside the last path segment, e.g. /some-listing-i.123456.789012.
var productExpr = regexp.MustCompile(`i\.(\d+)\.(\d+)`)

// Classification is the structured outcome of inspecting one result URL.
type Classification struct {
	IsMarketplace bool
	ShopID        string
	ProductID     string
	ShopName      string
}

// Classify decides marketplace membership for a URL and extracts shop/product
// identifiers when the path allows it. It never fails: malformed URLs classify
// as non-marketplace with no identifiers.
func Classify(rawURL string) Classification {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return Classification{}
	}

	if !matchesDomain(parsed.Hostname()) {
		return Classification{}
	}

	c := Classification{IsMarketplace: true}

	// Product pattern wins because it is unambiguous.
	if m := productExpr.FindStringSubmatch(parsed.Path); m != nil {
		c.ShopID = m[1]
		c.ProductID = m[2]
		return c
	}

	// A single path segment without the product infix is a shop page.
	trimmed := strings.Trim(parsed.Path, "/")
	if trimmed != "" && !strings.Contains(trimmed, "/") && !productExpr.MatchString(trimmed) {
		c.ShopName = trimmed
	}

	return c
}

// MatchesDomain reports whether a URL belongs to the marketplace. Used by the
// scan aggregator to pre-filter general-query results.
func MatchesDomain(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return matchesDomain(parsed.Hostname())
}

func matchesDomain(host string) bool {
	host = strings.ToLower(host)
	for _, domain := range []string{domainLong, domainShort} {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// PrimaryDomain is the domain used to scope marketplace search queries.
func PrimaryDomain() string {
	return domainShort
}
