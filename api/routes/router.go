package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sarana-io/lending-backend/api/controllers"
	"github.com/sarana-io/lending-backend/api/middleware"
	authsvc "github.com/sarana-io/lending-backend/internal/auth"
	borrowsvc "github.com/sarana-io/lending-backend/internal/borrowing"
	catalogsvc "github.com/sarana-io/lending-backend/internal/catalog"
	financesvc "github.com/sarana-io/lending-backend/internal/finance"
	ledgersvc "github.com/sarana-io/lending-backend/internal/ledger"
	reportsvc "github.com/sarana-io/lending-backend/internal/reports"
	"github.com/sarana-io/lending-backend/pkg/config"
	"github.com/sarana-io/lending-backend/pkg/enums"
	"github.com/sarana-io/lending-backend/pkg/logger"
	"github.com/sarana-io/lending-backend/pkg/redis"
)

// Params bundles everything the router needs.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Auth    authsvc.Service
	Ledger  ledgersvc.Service
	Catalog catalogsvc.Service
	Borrow  borrowsvc.Service
	Finance financesvc.Service
	Reports reportsvc.Service
}

// NewRouter assembles the HTTP surface.
func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.Login(p.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.Register(p.Auth, logg))
	})

	adminOnly := middleware.RequireRole(string(enums.UserRoleAdmin), logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/transfers", controllers.Transfer(p.Ledger, logg))

		r.Route("/accounts", func(r chi.Router) {
			r.With(adminOnly).Get("/", controllers.ListAccounts(p.Ledger, logg))
			r.Get("/{accountID}", controllers.GetAccount(p.Ledger, logg))
			r.Get("/{accountID}/entries", controllers.ListAccountEntries(p.Ledger, logg))
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ListItems(p.Catalog, logg))
			r.Get("/{itemID}", controllers.GetItem(p.Catalog, logg))
			r.Get("/{itemID}/availability", controllers.ItemAvailability(p.Borrow, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", controllers.CreateItem(p.Catalog, logg))
				r.Put("/{itemID}", controllers.UpdateItem(p.Catalog, logg))
				r.Delete("/{itemID}", controllers.DeleteItem(p.Catalog, logg))
				r.Get("/{itemID}/reservations", controllers.ItemReservations(p.Borrow, logg))
			})
		})

		r.Route("/borrowings", func(r chi.Router) {
			r.Post("/", controllers.CreateBorrowing(p.Borrow, logg))
			r.With(adminOnly).Get("/", controllers.ListBorrowings(p.Borrow, logg))
			r.Get("/mine", controllers.ListMyBorrowings(p.Borrow, logg))
			r.With(adminOnly).Get("/overdue", controllers.ListOverdueBorrowings(p.Borrow, logg))
			r.Get("/{borrowingID}", controllers.GetBorrowing(p.Borrow, logg))
			r.Post("/{borrowingID}/return", controllers.ReturnBorrowing(p.Borrow, logg))
		})

		r.Route("/finance", func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/records", controllers.CreateFinancialRecord(p.Finance, logg))
			r.Get("/records", controllers.ListFinancialRecords(p.Finance, logg))
			r.Get("/records/{recordID}", controllers.GetFinancialRecord(p.Finance, logg))
			r.Put("/records/{recordID}", controllers.UpdateFinancialRecord(p.Finance, logg))
			r.Delete("/records/{recordID}", controllers.DeleteFinancialRecord(p.Finance, logg))
			r.Get("/totals", controllers.FinancialSummary(p.Finance, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/usage", controllers.UsageReport(p.Reports, logg))
			r.Get("/efficiency", controllers.BorrowAnalysisReport(p.Reports, logg))
		})
	})

	return r
}
