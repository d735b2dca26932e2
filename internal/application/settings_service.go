package application

import (
	"context"
	"sync"
	"time"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

const shopSettingsQuery = `query ShopSettings {
  shop {
    name
    currencyCode
    currencyFormats {
      moneyFormat
    }
  }
  shopLocales {
    locale
    primary
  }
}`

type shopSettingsResponse struct {
	Shop struct {
		Name            string `json:"name"`
		CurrencyCode    string `json:"currencyCode"`
		CurrencyFormats struct {
			MoneyFormat string `json:"moneyFormat"`
		} `json:"currencyFormats"`
	} `json:"shop"`
	ShopLocales []struct {
		Locale  string `json:"locale"`
		Primary bool   `json:"primary"`
	} `json:"shopLocales"`
}

// SettingsService caches shop settings per shop until a webhook invalidates them
type SettingsService struct {
	client ports.ShopifyClient
	mu     sync.RWMutex
	cache  map[string]domain.ShopSettings
	logger zerolog.Logger
	now    func() time.Time
}

// NewSettingsService creates a new settings service
func NewSettingsService(client ports.ShopifyClient, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		client: client,
		cache:  make(map[string]domain.ShopSettings),
		logger: logger,
		now:    time.Now,
	}
}

// GetSettings returns cached settings for the session's shop, fetching them
// when the cache is empty or was invalidated
func (s *SettingsService) GetSettings(ctx context.Context, session *domain.Session) (*domain.ShopSettings, error) {
	if !session.IsActive() {
		return nil, &domain.InvalidSessionError{Reason: "no active session"}
	}

	s.mu.RLock()
	cached, ok := s.cache[session.Shop]
	s.mu.RUnlock()
	if ok && cached.IsInitialized {
		return &cached, nil
	}

	var resp shopSettingsResponse
	if err := s.client.Query(ctx, session.Shop, session.AccessToken, shopSettingsQuery, nil, &resp); err != nil {
		s.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to fetch shop settings")
		return nil, &domain.UpstreamError{Op: "shop settings query", Err: err}
	}

	settings := domain.ShopSettings{
		Shop:          session.Shop,
		ShopName:      resp.Shop.Name,
		CurrencyCode:  resp.Shop.CurrencyCode,
		MoneyFormat:   resp.Shop.CurrencyFormats.MoneyFormat,
		LastFetched:   s.now().UTC(),
		IsInitialized: true,
	}
	for _, l := range resp.ShopLocales {
		if l.Primary {
			settings.Locale = l.Locale
			break
		}
	}

	s.mu.Lock()
	s.cache[session.Shop] = settings
	s.mu.Unlock()

	s.logger.Debug().
		Str("shop", session.Shop).
		Str("currencyCode", settings.CurrencyCode).
		Str("locale", settings.Locale).
		Msg("Refreshed shop settings")

	return &settings, nil
}

// Invalidate marks the shop's cached settings stale so the next read refetches
func (s *SettingsService) Invalidate(shop string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[shop]; ok {
		cached.IsInitialized = false
		s.cache[shop] = cached
	}
}

// Forget drops everything cached for the shop
func (s *SettingsService) Forget(shop string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, shop)
}
