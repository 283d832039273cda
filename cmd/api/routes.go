package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	httphandlers "certlink/internal/interfaces/http"
	"certlink/internal/shared/config"
	"certlink/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth(deps.DB))

	// Public auth routes
	mux.HandleFunc("/api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("/api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes: valid session from an allowed domain
	authMiddleware := middleware.Auth(deps.JWT)
	domainMiddleware := middleware.RequireDomain(deps.Domains)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(domainMiddleware(middleware.NoStore(h)))
	}

	ws := deps.WorkspaceHandler

	mux.Handle("/api/auth/me", protect(deps.AuthHandler.HandleMe))
	mux.Handle("/api/clients", protect(deps.ClientHandler.HandleListClients))

	mux.Handle("/api/workspace", protect(ws.HandleWorkspace))
	mux.Handle("/api/workspace/client", protect(ws.HandleSelectClient))
	mux.Handle("/api/workspace/expand", protect(ws.HandleToggleExpanded))

	mux.Handle("/api/certificates", protect(ws.HandleCertificates))
	mux.Handle("/api/certificates/refresh", protect(ws.HandleRefreshCertificates))
	mux.Handle("/api/certificates/{id}", protect(ws.HandleCertificateByID))
	mux.Handle("/api/certificates/{id}/link", protect(ws.HandleOpenLinking))

	mux.Handle("/api/accounts", protect(ws.HandleAccounts))
	mux.Handle("/api/accounts/refresh", protect(ws.HandleRefreshAccounts))

	mux.Handle("/api/linking", protect(ws.HandleLinking))
	mux.Handle("/api/linking/toggle", protect(ws.HandleToggleAccount))
	mux.Handle("/api/linking/confirm", protect(ws.HandleConfirmLinking))
	mux.Handle("/api/linking/cancel", protect(ws.HandleCancelLinking))

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(middleware.Tracing(handler))
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(middleware.RequireHTTPS(handler)))
		log.Info().Msg("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
