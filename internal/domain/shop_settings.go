package domain

import "time"

// ShopSettings holds the storefront settings the admin UI formats prices with
type ShopSettings struct {
	Shop          string    `json:"shop"`
	ShopName      string    `json:"shopName,omitempty"`
	CurrencyCode  string    `json:"currencyCode"`
	Locale        string    `json:"locale"`
	MoneyFormat   string    `json:"moneyFormat,omitempty"`
	LastFetched   time.Time `json:"lastFetched"`
	IsInitialized bool      `json:"isInitialized"`
}
