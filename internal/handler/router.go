package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kalendar/internal/metrics"
	"github.com/hitoshi/kalendar/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFEnabled       bool
	CSRFConfig        middleware.CSRFConfig

	// 運用
	HealthChecker   HealthChecker
	MetricsGatherer prometheus.Gatherer
	MetricsRecorder middleware.HTTPRecorder

	// 認証・ユーザー
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	UserService UserServiceInterface

	// リマインダー
	ReminderService ReminderServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  /api/users/register, /api/users/login: (CSRF) → Login(IP単位のレート制限)
//	  認証必須ルート: (CSRF) → Session → General(ユーザー単位のレート制限)
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	reminderHandler := NewReminderHandler(deps.ReminderService)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		r.Group(func(r chi.Router) {
			if deps.CSRFEnabled {
				r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
			}

			// --- 認証不要のルート ---
			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.LoginMiddleware())
				r.Post("/users/register", userHandler.Register)
				r.Post("/users/login", authHandler.Login)
			})
			r.Post("/users/logout", authHandler.Logout)
			r.Get("/users/me", authHandler.Me)

			// --- 認証が必要なルート ---
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
				r.Use(deps.RateLimiter.GeneralMiddleware())

				r.Get("/users", userHandler.List)

				r.Route("/reminders", func(r chi.Router) {
					r.Get("/", reminderHandler.ListByDate)
					r.Post("/", reminderHandler.Create)
					r.Get("/all", reminderHandler.ListAll)
					r.Put("/{id}", reminderHandler.Update)
					r.Delete("/{id}", reminderHandler.Delete)
				})
			})
		})
	})

	return r
}
