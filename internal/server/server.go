package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"tokenjar/internal/handler"
	"tokenjar/internal/ledger"
	"tokenjar/internal/middleware"
	"tokenjar/internal/push"
	"tokenjar/internal/store"
	"tokenjar/internal/sweep"
	ws "tokenjar/internal/websocket"
)

// Config holds the server's runtime options.
type Config struct {
	Sweep sweep.Config
	Push  push.Config
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	accountH       *handler.AccountHandler
	choreH         *handler.ChoreHandler
	rewardH        *handler.RewardHandler
	notificationH  *handler.NotificationHandler
	pushH          *handler.PushHandler
	sessionStore   *store.SessionStore
	accountStore   *store.AccountStore
	rateLimiter    *middleware.RateLimiter
	ledger         *ledger.Service
	sweepScheduler *sweep.Scheduler
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	accountStore := store.NewAccountStore(db)
	choreStore := store.NewChoreStore(db)
	rewardStore := store.NewRewardStore(db)
	notificationStore := store.NewNotificationStore(db)
	sessionStore := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)

	ledgerSvc := ledger.New(db, accountStore, choreStore, rewardStore, notificationStore, logger.With("component", "ledger"))

	var pushSvc *push.Service
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push, pushStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	sweepSched := sweep.NewScheduler(ledgerSvc, accountStore, cfg.Sweep, func(count int64) {
		hub.Broadcast(ws.Message{
			Type:   "sweep_completed",
			Entity: "sweep",
			Action: "completed",
			Extra:  map[string]any{"chores_reset": count},
		})
	}, logger.With("component", "sweep"))

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(accountStore, sessionStore, logger.With("component", "auth")),
		accountH:       handler.NewAccountHandler(accountStore, logger.With("component", "account")),
		choreH:         handler.NewChoreHandler(ledgerSvc, choreStore, hub, logger.With("component", "chore")),
		rewardH:        handler.NewRewardHandler(ledgerSvc, rewardStore, pushSvc, hub, logger.With("component", "reward")),
		notificationH:  handler.NewNotificationHandler(ledgerSvc, notificationStore, hub, logger.With("component", "notification")),
		pushH:          pushH,
		sessionStore:   sessionStore,
		accountStore:   accountStore,
		rateLimiter:    middleware.NewRateLimiter(),
		ledger:         ledgerSvc,
		sweepScheduler: sweepSched,
		logger:         logger,
	}
}

// SweepScheduler returns the daily reset scheduler for lifecycle management.
func (s *Server) SweepScheduler() *sweep.Scheduler {
	return s.sweepScheduler
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.accountStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/account", s.accountH.Get)

	// Chore routes
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)
	mux.HandleFunc("POST /api/chores/{id}/uncomplete", s.choreH.Uncomplete)

	// Reward routes
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)

	// Notification routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("POST /api/notifications/{id}/toggle", s.notificationH.Toggle)

	// Push notification routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
