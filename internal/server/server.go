package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/email"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/handler"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/middleware"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/notify"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/push"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/service"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
	ws "github.com/krishnaganguri/choreo-sweep-sub000/internal/websocket"
)

// Config carries what the server needs beyond the database.
type Config struct {
	Auth            auth.Config
	Push            push.Config
	NotifyInterval  time.Duration
	NotifyLookahead time.Duration
	WebDir          string
	AllowedOrigins  []string
}

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	authProvider *auth.Provider
	familySvc    *service.FamilyService
	familyStore  *store.FamilyStore
	pushStore    *store.PushStore

	authH       *handler.AuthHandler
	profileH    *handler.ProfileHandler
	choreH      *handler.ChoreHandler
	groceryH    *handler.GroceryHandler
	expenseH    *handler.ExpenseHandler
	reminderH   *handler.ReminderHandler
	familyH     *handler.FamilyHandler
	pushH       *handler.PushHandler
	webDir      string
	origins     []string
	unsubAuth   func()
	scheduler   *notify.Scheduler
	watcher     *push.Watcher
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, emailClient *email.Client, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	profileStore := store.NewProfileStore(db)
	sessionStore := store.NewSessionStore(db)
	resetStore := store.NewPasswordResetStore(db)
	familyStore := store.NewFamilyStore(db)
	choreStore := store.NewChoreStore(db)
	groceryStore := store.NewGroceryStore(db)
	expenseStore := store.NewExpenseStore(db)
	reminderStore := store.NewReminderStore(db)
	pushStore := store.NewPushStore(db)

	provider := auth.NewProvider(userStore, profileStore, sessionStore, resetStore, emailClient, cfg.Auth, logger.With("component", "auth"))
	unsubAuth := provider.OnAuthStateChange(hub.AuthEvent)

	// Push notification service, scheduler and due watcher
	pushSvc := push.NewService(cfg.Push)
	notifier := push.NewNotifier(pushSvc, pushStore, logger)
	sched := notify.NewScheduler(notifier, logger.With("component", "scheduler"))
	watcher := push.NewWatcher(sched, pushStore, choreStore, reminderStore, cfg.NotifyInterval, cfg.NotifyLookahead, logger)

	familySvc := service.NewFamilyService(familyStore, userStore, profileStore, emailClient, logger)
	choreSvc := service.NewChoreService(choreStore, familyStore, pushStore, sched, logger)
	grocerySvc := service.NewGroceryService(groceryStore, familyStore, notifier, logger)
	expenseSvc := service.NewExpenseService(expenseStore, familyStore, logger)
	reminderSvc := service.NewReminderService(reminderStore, familyStore, pushStore, sched, logger)
	profileSvc := service.NewProfileService(profileStore, logger)

	s := &Server{
		db:           db,
		hub:          hub,
		authProvider: provider,
		familySvc:    familySvc,
		familyStore:  familyStore,
		pushStore:    pushStore,
		authH:        handler.NewAuthHandler(provider, logger.With("component", "auth_handler")),
		profileH:     handler.NewProfileHandler(profileSvc, logger.With("component", "profile_handler")),
		choreH:       handler.NewChoreHandler(choreSvc, hub, logger.With("component", "chore_handler")),
		groceryH:     handler.NewGroceryHandler(grocerySvc, hub, logger.With("component", "grocery_handler")),
		expenseH:     handler.NewExpenseHandler(expenseSvc, hub, logger.With("component", "expense_handler")),
		reminderH:    handler.NewReminderHandler(reminderSvc, hub, logger.With("component", "reminder_handler")),
		pushH:        handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		webDir:       cfg.WebDir,
		origins:      cfg.AllowedOrigins,
		unsubAuth:    unsubAuth,
		scheduler:    sched,
		watcher:      watcher,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
	s.familyH = handler.NewFamilyHandler(familySvc, hub, s.resyncFamilies, logger.With("component", "family_handler"))
	return s
}

// resyncFamilies refreshes the families a user's realtime connections follow.
func (s *Server) resyncFamilies(userID string) {
	ids, err := s.familyStore.VerifiedFamilyIDs(userID)
	if err != nil {
		s.logger.Error("resync realtime families", "user_id", userID, "error", err)
		return
	}
	s.hub.SetFamilies(userID, ids)
}

// Start runs the due watcher until ctx is cancelled or Close is called.
func (s *Server) Start(ctx context.Context) {
	s.watcher.Start(ctx)
}

// Close stops background work and disarms pending notifications.
func (s *Server) Close() {
	s.watcher.Stop()
	s.scheduler.Stop()
	s.unsubAuth()
}

// Cleanup removes expired sessions, reset tokens, rate limit windows and
// old sent-notification records.
func (s *Server) Cleanup() {
	s.authProvider.Cleanup()
	s.rateLimiter.Cleanup()
	if err := s.pushStore.CleanupSent(time.Now().Add(-7 * 24 * time.Hour)); err != nil {
		s.logger.Error("cleanup sent notifications", "error", err)
	}
}

// Hub returns the realtime hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/signup", s.rateLimited(s.authH.SignUp, 10))
	outerMux.HandleFunc("POST /api/auth/signin", s.rateLimited(s.authH.SignIn, 10))
	outerMux.HandleFunc("POST /api/auth/refresh", s.authH.Refresh)
	outerMux.HandleFunc("POST /api/auth/reset-password", s.rateLimited(s.authH.ResetPassword, 5))
	outerMux.HandleFunc("POST /api/auth/update-password", s.rateLimited(s.authH.UpdatePassword, 10))
	outerMux.HandleFunc("GET /health", handler.Health(s.db))
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.authProvider, s.familyStore, s.origins, s.logger))
	if s.webDir != "" {
		outerMux.Handle("/", handler.SPA(s.webDir))
	}

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.authProvider, s.familySvc)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) rateLimited(h http.HandlerFunc, perMinute int) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIPAndPath, perMinute, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/session", s.authH.Session)
	mux.HandleFunc("POST /api/auth/signout", s.authH.SignOut)

	mux.HandleFunc("GET /api/profile", s.profileH.Get)
	mux.HandleFunc("PUT /api/profile", s.profileH.Update)

	// Chore API routes
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PATCH /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Grocery API routes
	mux.HandleFunc("GET /api/groceries", s.groceryH.List)
	mux.HandleFunc("POST /api/groceries", s.groceryH.Create)
	mux.HandleFunc("DELETE /api/groceries/completed", s.groceryH.ClearCompleted)
	mux.HandleFunc("GET /api/groceries/{id}", s.groceryH.Get)
	mux.HandleFunc("PATCH /api/groceries/{id}", s.groceryH.Update)
	mux.HandleFunc("DELETE /api/groceries/{id}", s.groceryH.Delete)

	// Expense API routes
	mux.HandleFunc("GET /api/expenses", s.expenseH.List)
	mux.HandleFunc("POST /api/expenses", s.expenseH.Create)
	mux.HandleFunc("GET /api/expenses/summary", s.expenseH.Summary)
	mux.HandleFunc("GET /api/expenses/{id}", s.expenseH.Get)
	mux.HandleFunc("PATCH /api/expenses/{id}", s.expenseH.Update)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.expenseH.Delete)

	// Reminder API routes
	mux.HandleFunc("GET /api/reminders", s.reminderH.List)
	mux.HandleFunc("POST /api/reminders", s.reminderH.Create)
	mux.HandleFunc("GET /api/reminders/{id}", s.reminderH.Get)
	mux.HandleFunc("PATCH /api/reminders/{id}", s.reminderH.Update)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.reminderH.Delete)

	// Family API routes
	mux.HandleFunc("GET /api/families", s.familyH.ListFamilies)
	mux.HandleFunc("POST /api/families", s.familyH.CreateFamily)
	mux.HandleFunc("GET /api/families/current", s.familyH.CurrentFamily)
	mux.HandleFunc("GET /api/families/{id}/members", s.familyH.ListMembers)
	mux.HandleFunc("POST /api/families/{id}/members", s.familyH.AddMember)
	mux.HandleFunc("PUT /api/families/{id}/members/{user_id}/role", s.familyH.UpdateRole)
	mux.HandleFunc("PUT /api/families/{id}/members/{user_id}/features", s.familyH.UpdateFeatures)
	mux.HandleFunc("DELETE /api/families/{id}/members/{user_id}", s.familyH.RemoveMember)
	mux.HandleFunc("GET /api/invitations", s.familyH.ListInvitations)
	mux.HandleFunc("POST /api/invitations/{family_id}/accept", s.familyH.AcceptInvitation)
	mux.HandleFunc("DELETE /api/invitations/{family_id}", s.familyH.DeclineInvitation)

	// Push notification API routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/preferences", s.pushH.GetPreferences)
	mux.HandleFunc("PUT /api/push/preferences", s.pushH.UpdatePreferences)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
}
