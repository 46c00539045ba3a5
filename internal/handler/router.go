package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/employeeinfo/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 従業員情報
	Profiles ProfileControllerProvider
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	mountAuthRoutes(r, NewAuthHandler(service, config))
	return r
}

// SetupProfileRoutes は従業員情報関連のルーティングを設定したchi.Routerを返す。
// 認証ミドルウェアは含まないため、呼び出し側でセッションをコンテキストに設定すること。
func SetupProfileRoutes(provider ProfileControllerProvider) http.Handler {
	r := chi.NewRouter()
	mountProfileRoutes(r, NewProfileHandler(provider))
	return r
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  /auth/*: RateLimit(Auth)（/auth/signoutのみCSRF）
//	  /api/profile*: Session → CSRF → RateLimit(General)
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.Profiles)

	// --- 認証不要のルート ---

	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（クライアントIP単位のレート制限）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		// サインアウトはCookie認証でも受け付けるためCSRF検証を通す
		mountAuthRoutes(r, authHandler, middleware.NewCSRFMiddleware(deps.CSRFConfig))
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		mountProfileRoutes(r, profileHandler)
	})

	return r
}

// mountAuthRoutes は認証ルートを登録する。signoutMiddlewaresはサインアウトにのみ適用する。
func mountAuthRoutes(r chi.Router, h *AuthHandler, signoutMiddlewares ...func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
		r.With(signoutMiddlewares...).Post("/signout", h.SignOut)
		r.Get("/me", h.Me)
	})
}

func mountProfileRoutes(r chi.Router, h *ProfileHandler) {
	r.Route("/api/profile", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/form", h.UpdateForm)
		r.Post("/submit", h.Submit)
		r.Post("/edit", h.Edit)
		r.Post("/cancel", h.CancelEdit)
		r.Post("/toggle", h.Toggle)
		r.Post("/retry", h.Retry)
	})
}
