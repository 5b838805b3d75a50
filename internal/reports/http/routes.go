package reportshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/odyssey-erp/opsdash/internal/upstream"
)

// ExportLimit caps CSV downloads per client per minute.
const ExportLimit = 10

// MountRoutes registers report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(ExportLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Group(func(gr chi.Router) {
		gr.Use(Credentials)
		gr.Get("/api/reports/overview", h.handleOverview)
		gr.Get("/api/reports/{kind}", h.handleList)
		gr.Get("/api/finance/balance-sheet", h.handleBalanceSheet)
		gr.Group(func(ex chi.Router) {
			ex.Use(limiter)
			ex.Get("/api/reports/{kind}/export", h.handleExport)
		})
	})
}

// Credentials forwards the caller's bearer token to the upstream client.
func Credentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := upstream.BearerToken(r.Header.Get("Authorization")); token != "" {
			r = r.WithContext(upstream.ContextWithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if token := upstream.BearerToken(r.Header.Get("Authorization")); token != "" {
		return "token:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(token)).String(), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
