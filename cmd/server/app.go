package main

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/gate"
	"github.com/diewo77/cna-billing/internal/config"
	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/handlers"
	"github.com/diewo77/cna-billing/internal/metrics"
	"github.com/diewo77/cna-billing/internal/middleware"
	"github.com/diewo77/cna-billing/internal/policy"
	"github.com/diewo77/cna-billing/internal/repository"
	"github.com/diewo77/cna-billing/internal/security"
	"github.com/diewo77/cna-billing/internal/services"
	"github.com/diewo77/cna-billing/internal/session"
	"github.com/diewo77/cna-billing/internal/storage"
	"github.com/diewo77/cna-billing/view"
)

// roleCacheTTL bounds how long a role change takes to reach a signed-in user.
const roleCacheTTL = 30 * time.Second

// Deps are the long-lived resources main builds before the app.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Sessions session.Store
	Audit    *security.AuditLog // nil disables the security log
	Storage  storage.Storage    // nil when object storage is not configured
	Throttle *security.Throttle // nil disables per-IP throttling of the auth forms
	Checks   map[string]handlers.Pinger
	Log      *slog.Logger
}

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	handler http.Handler
	deps    Deps
	gate    *policy.AuthGate
	view    *view.Renderer

	invoices *repository.InvoiceRepository
	pages    *handlers.PageHandler

	auth      *handlers.AuthHandler
	clients   *handlers.ClientHandler
	estimates *handlers.EstimateHandler
	invoiceH  *handlers.InvoiceHandler
	users     *handlers.AdminUserHandler
}

// NewApp creates a new application with all routes configured.
func NewApp(d Deps) *App {
	cfg := d.Config
	g := db.NewGateway(d.DB, d.Log)

	userRepo := repository.NewUserRepository(g)
	clientRepo := repository.NewClientRepository(g)
	estimateRepo := repository.NewEstimateRepository(g)
	invoiceRepo := repository.NewInvoiceRepository(g)

	authGate := policy.NewAuthGate(userRepo, roleCacheTTL)
	authGate.Audit = d.Audit
	renderer := view.New(view.Options{
		BaseDir: cfg.App.TemplatesDir,
		AppName: cfg.App.Name,
		Dev:     cfg.App.Debug && !cfg.App.IsProduction(),
		Can: func(r *http.Request, resource, action string) bool {
			return authGate.CanRole(r.Context(), gate.Action(action), resource)
		},
		Log: d.Log,
	})

	base := handlers.NewBase(renderer, d.Log)
	tax := decimal.NewFromFloat(cfg.Business.TaxRate).Round(3)
	hasher := auth.NewHasher(cfg.Security.ArgonMemory, cfg.Security.ArgonTime, cfg.Security.ArgonThreads)
	remember := auth.NewRemember(cfg.App.Key, cfg.Session.Secure)
	exporter := services.NewInvoiceExporter(invoiceRepo, d.Storage, d.Log)
	dashboard := services.NewDashboard(clientRepo, estimateRepo, invoiceRepo)

	a := &App{
		mux:      http.NewServeMux(),
		deps:     d,
		gate:     authGate,
		view:     renderer,
		invoices: invoiceRepo,
		pages:    handlers.NewPageHandler(base, dashboard, cfg.App.SupportedLanguages, d.Checks),
		auth: handlers.NewAuthHandler(base, userRepo, hasher, remember, d.Audit, handlers.LoginLimit{
			Max:    cfg.Security.RateLimitRequests,
			Window: cfg.Security.RateLimitWindow(),
		}),
		clients:   handlers.NewClientHandler(base, clientRepo),
		estimates: handlers.NewEstimateHandler(base, estimateRepo, clientRepo, tax),
		invoiceH:  handlers.NewInvoiceHandler(base, invoiceRepo, clientRepo, exporter, tax),
		users:     handlers.NewAdminUserHandler(base, userRepo, authGate),
	}
	a.setupRoutes()

	sessions := session.NewManager(d.Sessions, session.Options{
		Lifetime: cfg.Session.LifetimeDuration(),
		Secure:   cfg.Session.Secure,
		HTTPOnly: cfg.Session.HTTPOnly,
		SameSite: cfg.Session.SameSiteMode(),
	}, d.Log)

	a.handler = middleware.Chain(a.mux,
		middleware.Recover(d.Log, cfg.App.Debug, a.pages.ErrorPage),
		middleware.RequestLogger(d.Log),
		metrics.InstrumentHandler,
		security.Headers(security.HeaderOptions{Production: cfg.App.IsProduction(), StorageURL: cfg.Storage.URL}),
		sessions.Middleware,
		middleware.Language(cfg.App.DefaultLanguage, cfg.App.SupportedLanguages),
		auth.New(userRepo, remember, d.Log).Middleware,
	)
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	ph := a.pages
	ah := a.auth
	guest := auth.RedirectIfAuthenticated("/dashboard")

	a.mux.HandleFunc("/", ph.Home)
	a.mux.Handle("GET /login", guest(http.HandlerFunc(ah.LoginForm)))
	a.mux.Handle("POST /login", a.throttled(guest(http.HandlerFunc(ah.Login))))
	a.mux.Handle("GET /register", guest(http.HandlerFunc(ah.RegisterForm)))
	a.mux.Handle("POST /register", a.throttled(guest(http.HandlerFunc(ah.Register))))
	a.mux.HandleFunc("GET /logout", ah.Logout)
	a.mux.HandleFunc("POST /logout", ah.Logout)
	a.mux.HandleFunc("GET /lang/{lang}", ph.Language)
	a.mux.HandleFunc("GET /health", ph.Health)
	a.mux.HandleFunc("GET /healthz", ph.Ready)
	a.mux.Handle("GET /metrics", metrics.Handler())

	static := filepath.Join(filepath.Dir(a.view.BaseDir()), "static")
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(static))))

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /dashboard", a.protect(policy.ResourceDashboard, gate.ActionView, ph.Dashboard))

	ch := a.clients
	a.mux.Handle("GET /clients", a.protect(policy.ResourceClient, gate.ActionList, ch.List))
	a.mux.Handle("GET /clients/create", a.protect(policy.ResourceClient, gate.ActionCreate, ch.New))
	a.mux.Handle("POST /clients", a.protect(policy.ResourceClient, gate.ActionCreate, ch.Create))
	a.mux.Handle("GET /clients/{id}", a.protect(policy.ResourceClient, gate.ActionView, ch.Show))
	a.mux.Handle("GET /clients/{id}/edit", a.protect(policy.ResourceClient, gate.ActionUpdate, ch.Edit))
	a.mux.Handle("POST /clients/{id}", a.protect(policy.ResourceClient, gate.ActionUpdate, ch.Update))
	a.mux.Handle("DELETE /clients/{id}", a.protect(policy.ResourceClient, gate.ActionDelete, ch.Delete))
	a.mux.Handle("POST /clients/{id}/delete", a.protect(policy.ResourceClient, gate.ActionDelete, ch.Delete))

	eh := a.estimates
	a.mux.Handle("GET /estimates", a.protect(policy.ResourceEstimate, gate.ActionList, eh.List))
	a.mux.Handle("GET /estimates/create", a.protect(policy.ResourceEstimate, gate.ActionCreate, eh.New))
	a.mux.Handle("POST /estimates", a.protect(policy.ResourceEstimate, gate.ActionCreate, eh.Create))
	a.mux.Handle("GET /estimates/{id}", a.protect(policy.ResourceEstimate, gate.ActionView, eh.Show))
	a.mux.Handle("GET /estimates/{id}/edit", a.protect(policy.ResourceEstimate, gate.ActionUpdate, eh.Edit))
	a.mux.Handle("POST /estimates/{id}", a.protect(policy.ResourceEstimate, gate.ActionUpdate, eh.Update))
	a.mux.Handle("DELETE /estimates/{id}", a.protect(policy.ResourceEstimate, gate.ActionDelete, eh.Delete))
	a.mux.Handle("POST /estimates/{id}/delete", a.protect(policy.ResourceEstimate, gate.ActionDelete, eh.Delete))
	a.mux.Handle("POST /estimates/{id}/status", a.protect(policy.ResourceEstimate, gate.ActionUpdate, eh.Status))
	a.mux.Handle("POST /estimates/{id}/convert", a.protect(policy.ResourceInvoice, gate.ActionCreate, eh.Convert))

	ih := a.invoiceH
	a.mux.Handle("GET /invoices", a.protect(policy.ResourceInvoice, gate.ActionList, ih.List))
	a.mux.Handle("GET /invoices/create", a.protect(policy.ResourceInvoice, gate.ActionCreate, ih.New))
	a.mux.Handle("GET /invoices/export", a.protect(policy.ResourceInvoice, gate.ActionList, ih.Export))
	a.mux.Handle("POST /invoices", a.protect(policy.ResourceInvoice, gate.ActionCreate, ih.Create))
	a.mux.Handle("GET /invoices/{id}", a.protect(policy.ResourceInvoice, gate.ActionView, ih.Show))
	a.mux.Handle("GET /invoices/{id}/edit", a.protect(policy.ResourceInvoice, gate.ActionUpdate, ih.Edit))
	a.mux.Handle("POST /invoices/{id}", a.protect(policy.ResourceInvoice, gate.ActionUpdate, ih.Update))
	a.mux.Handle("DELETE /invoices/{id}", a.protect(policy.ResourceInvoice, gate.ActionDelete, ih.Delete))
	a.mux.Handle("POST /invoices/{id}/delete", a.protect(policy.ResourceInvoice, gate.ActionDelete, ih.Delete))
	a.mux.Handle("POST /invoices/{id}/status", a.protect(policy.ResourceInvoice, gate.ActionUpdate, ih.Status))
	a.mux.Handle("POST /invoices/{id}/payment", a.protect(policy.ResourceInvoice, gate.ActionUpdate, ih.Payment))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes
	// ─────────────────────────────────────────────────────────────────────────
	uh := a.users
	a.mux.Handle("GET /admin/users", a.admin(uh.List))
	a.mux.Handle("POST /admin/users/{id}/activate", a.admin(uh.Activate))
	a.mux.Handle("POST /admin/users/{id}/deactivate", a.admin(uh.Deactivate))
	a.mux.Handle("POST /admin/users/{id}/role", a.admin(uh.Role))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// protect requires a signed-in user whose role grants action on resource.
func (a *App) protect(resource string, action gate.Action, h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(a.gate.RequirePermission(resource, action)(h))
}

func (a *App) admin(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(a.gate.RequireAdmin()(h))
}

func (a *App) throttled(h http.Handler) http.Handler {
	if a.deps.Throttle == nil {
		return h
	}
	return a.deps.Throttle.Middleware(h)
}

// OverdueJob builds the job that marks late invoices overdue.
func (a *App) OverdueJob() *services.OverdueJob {
	return services.NewOverdueJob(a.invoices, a.deps.Log)
}
