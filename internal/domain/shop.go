package domain

import (
	"net/url"
	"regexp"
	"strings"
)

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// NormalizeShop lowercases a shop parameter, strips any scheme or path and expands
// bare store names to their myshopify.com domain
func NormalizeShop(shop string) string {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if shop == "" {
		return ""
	}
	if strings.Contains(shop, "://") {
		if u, err := url.Parse(shop); err == nil && u.Host != "" {
			shop = u.Host
		}
	}
	shop = strings.TrimSuffix(shop, "/")
	if !strings.Contains(shop, ".") {
		shop += ".myshopify.com"
	}
	return shop
}

// IsValidShopDomain reports whether shop is a well-formed myshopify.com domain
func IsValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}
