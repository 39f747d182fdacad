package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"brokerlink/internal/shared/config"
	"brokerlink/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with
// middleware. The returned stop func releases the rate limiter.
func SetupRoutes(deps *Dependencies, cfg *config.Config) (http.Handler, func()) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", deps.HealthHandler.HandleHealth)

	connectLimiter := middleware.NewRateLimiter(cfg.Brokerage.ConnectRatePerMinute, 10*time.Minute)

	// Brokerage
	mux.Handle("POST /api/brokerage/connect", connectLimiter.Limit(http.HandlerFunc(deps.BrokerageHandler.HandleConnect)))
	mux.HandleFunc("DELETE /api/brokerage/connect", deps.BrokerageHandler.HandleDisconnect)
	mux.HandleFunc("GET /api/brokerage/callback", deps.CallbackHandler.HandleCallback)
	mux.HandleFunc("GET /api/brokerage/accounts", deps.HoldingsHandler.HandleAccounts)
	mux.HandleFunc("GET /api/brokerage/holdings", deps.HoldingsHandler.HandleHoldings)

	var handler http.Handler = mux
	handler = middleware.Session(deps.JWT)(handler)
	handler = middleware.CORS(cfg.Server.AllowedHosts)(handler)
	handler = middleware.Timeout(cfg.Server.RequestTimeout)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(log.Logger)(handler)
	handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(handler)
	handler = middleware.SecurityHeaders(cfg.TLS.Enabled)(handler)

	if cfg.TLS.Enabled {
		handler = middleware.SecureCookies(handler)
		log.Info().Msg("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler, connectLimiter.Stop
}
