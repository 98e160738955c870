package adapthttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"habits/internal/app"
	"habits/internal/metrics"
)

// OIDCConfig holds the SSO provider once discovered.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	habits  *app.HabitService
	cards   *app.CardService
	authSvc *app.AuthService
	log     *zap.Logger
	webDir  string

	oidcConfig   OIDCConfig
	disableAuth  bool
	loginLimiter *rate.Limiter
}

// New creates a Server wired to the given application services. An empty
// webDir disables static file serving.
func New(habits *app.HabitService, cards *app.CardService, authSvc *app.AuthService, log *zap.Logger, webDir string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		habits:       habits,
		cards:        cards,
		authSvc:      authSvc,
		log:          log,
		webDir:       webDir,
		loginLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// WithoutAuth serves every request as the local user.
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// WithLoginLimit replaces the login rate limit.
func (s *Server) WithLoginLimit(every time.Duration, burst int) *Server {
	s.loginLimiter = rate.NewLimiter(rate.Every(every), burst)
	return s
}

// WithOIDC discovers issuer and enables SSO login.
func (s *Server) WithOIDC(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) error {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return fmt.Errorf("oidc discovery: %w", err)
	}
	s.oidcConfig = OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}
	return nil
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	s.route(api, "GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	s.route(api, "POST /auth/login", s.handleLogin)
	s.route(api, "POST /auth/logout", s.handleLogout)
	s.route(api, "POST /auth/setup", s.handleSetupUser)
	s.route(api, "GET /auth/config", s.handleConfig)
	s.route(api, "GET /auth/sso/login", s.handleSSOLogin)
	s.route(api, "GET /auth/sso/callback", s.handleSSOCallback)

	s.protected(api, "GET /auth/me", s.handleMe)

	s.protected(api, "GET /habits", s.handleHabitList)
	s.protected(api, "POST /habits", s.handleHabitCreate)
	s.protected(api, "GET /habits/{id}", s.handleHabitGet)
	s.protected(api, "PUT /habits/{id}", s.handleHabitUpdate)
	s.protected(api, "DELETE /habits/{id}", s.handleHabitDelete)

	s.protected(api, "GET /habits/{id}/card", s.handleCard)
	s.protected(api, "POST /habits/{id}/shift", s.handleCardShift)
	s.protected(api, "POST /habits/{id}/jump", s.handleCardJump)
	s.protected(api, "POST /habits/{id}/increment", s.handleCardMutation(s.cards.Increment))
	s.protected(api, "POST /habits/{id}/decrement", s.handleCardMutation(s.cards.Decrement))
	s.protected(api, "POST /habits/{id}/reset", s.handleCardMutation(s.cards.Reset))
	s.protected(api, "POST /habits/{id}/randomize", s.handleCardRandomize)
	s.protected(api, "GET /habits/{id}/grid", s.handleCardGrid)
	s.protected(api, "GET /habits/{id}/history", s.handleCardHistory)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("GET /metrics", metrics.Handler())
	if s.webDir != "" {
		root.Handle("/", spaFromDisk(s.webDir))
	}

	return withNoCache(s.loggingMiddleware(root))
}

// route registers h under pattern with request metrics labelled by pattern.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, metricsMiddleware(pattern, h))
}

func (s *Server) protected(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, metricsMiddleware(pattern, s.authMiddleware(h)))
}
