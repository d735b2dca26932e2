package api

import (
	"io"
	"net/http"
	"time"

	"bundle-app-shopify-layer/internal/application"
	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// authHandler starts the OAuth install flow
func authHandler(oauth *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		returnTo := q.Get("returnTo")
		if returnTo == "" {
			returnTo = q.Get("return_to")
		}

		authURL, err := oauth.Initiate(r.Context(), q.Get("shop"), returnTo)
		if err != nil {
			status := domain.HTTPStatus(err)
			if status >= http.StatusInternalServerError {
				logger.Error().Err(err).Msg("Failed to start OAuth")
				writeError(w, status, "Failed to start authentication")
				return
			}
			writeError(w, status, err.Error())
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// callbackHandler completes the OAuth install flow
func callbackHandler(oauth *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := oauth.Callback(r.Context(), r.URL.Query())
		if err != nil {
			if status := domain.HTTPStatus(err); status == http.StatusBadRequest {
				writeError(w, status, err.Error())
				return
			}
			logger.Error().Err(err).Str("shop", r.URL.Query().Get("shop")).Msg("OAuth callback failed")
			writeError(w, http.StatusInternalServerError, "Authentication failed")
			return
		}

		http.Redirect(w, r, target, http.StatusFound)
	}
}

// webhookHandler hands the raw delivery to the dispatcher and echoes its status
func webhookHandler(dispatcher *application.WebhookDispatcher, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read webhook payload")
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		status := dispatcher.Process(r.Context(), payload, r)
		if status >= http.StatusInternalServerError {
			http.Error(w, "Webhook processing failed", status)
			return
		}
		w.WriteHeader(status)
	}
}

type cacheStatusResponse struct {
	Invalidated bool `json:"invalidated"`
}

// invalidatedResponse always carries every signal field, even an empty changes map
type invalidatedResponse struct {
	Invalidated   bool                   `json:"invalidated"`
	InvalidatedAt time.Time              `json:"invalidatedAt"`
	Changes       map[string]interface{} `json:"changes"`
	Type          string                 `json:"type"`
}

// cacheStatusHandler hands out, and consumes, the pending invalidation for a shop
func cacheStatusHandler(relay ports.InvalidationRelay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := domain.NormalizeShop(r.URL.Query().Get("shop"))
		if shop == "" {
			writeError(w, http.StatusBadRequest, "Missing shop parameter")
			return
		}

		w.Header().Set("Cache-Control", "no-store")

		signal := relay.Poll(shop)
		if signal == nil {
			writeJSON(w, http.StatusOK, cacheStatusResponse{Invalidated: false})
			return
		}

		changes := signal.Changes
		if changes == nil {
			changes = map[string]interface{}{}
		}
		writeJSON(w, http.StatusOK, invalidatedResponse{
			Invalidated:   true,
			InvalidatedAt: signal.InvalidatedAt,
			Changes:       changes,
			Type:          signal.Type,
		})
	}
}

// sessionContext attaches the verified session, or nil, to the request context.
// A missing session is an expected branch for these routes, so it uses the
// non-throwing verification contract.
func sessionContext(verifier *application.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := domain.WithSession(r.Context(), verifier.VerifyRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// productsHandler lists the shop's products
func productsHandler(products *application.ProductsService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.SessionFromContext(r.Context())
		if session == nil {
			writeActionError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		list, err := products.ListProducts(r.Context(), session)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("shop", domain.GetShopFromContext(r.Context())).
				Msg("Products request failed")
			writeActionError(w, domain.HTTPStatus(err), err.Error())
			return
		}
		writeActionSuccess(w, list)
	}
}

// shopSettingsHandler returns the cached shop settings
func shopSettingsHandler(verifier *application.TokenVerifier, settings *application.SettingsService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := verifier.HandleSessionToken(r.Context(), application.SessionTokenFromRequest(r))
		if err != nil {
			logger.Debug().Err(err).Msg("Shop settings request rejected")
			writeError(w, domain.HTTPStatus(err), "Unauthorized")
			return
		}

		result, err := settings.GetSettings(r.Context(), session)
		if err != nil {
			writeError(w, domain.HTTPStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
