package domain

import "time"

// Invalidation types published by webhook handlers
const (
	InvalidationShopUpdate     = "shop_update"
	InvalidationAppUninstalled = "app_uninstalled"
)

// InvalidationSignal marks client-side cached data for a shop as stale
type InvalidationSignal struct {
	Shop          string                 `json:"shop"`
	InvalidatedAt time.Time              `json:"invalidatedAt"`
	Changes       map[string]interface{} `json:"changes"`
	Type          string                 `json:"type"`
}
