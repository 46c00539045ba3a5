package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/employeeinfo/internal/middleware"
	"github.com/hitoshi/employeeinfo/internal/model"
	"github.com/hitoshi/employeeinfo/internal/validation"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, in validation.SignUpInput) (*model.Session, error)
	SignIn(ctx context.Context, in validation.SignInInput) (*model.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインアップ・サインイン・サインアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// sessionResponse はサインアップ・サインイン成功時のレスポンス。
// モバイルクライアントはsession_tokenをBearerトークンとして使用する。
type sessionResponse struct {
	SessionToken string    `json:"session_token"`
	OwnerID      string    `json:"owner_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// userResponse は現在のユーザー情報のレスポンス。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SignUp はアカウントを作成し、セッションを開始する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in validation.SignUpInput
	if _, err := decodeJSON(r, &in, false); err != nil {
		handleServiceError(w, err)
		return
	}

	session, err := h.service.SignUp(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// SignIn は既存アカウントでセッションを開始する。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in validation.SignInInput
	if _, err := decodeJSON(r, &in, false); err != nil {
		handleServiceError(w, err)
		return
	}

	session, err := h.service.SignIn(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// SignOut はセッションを破棄する。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionTokenFromRequest(r)
	if token == "" {
		handleServiceError(w, model.NewUnauthenticatedError())
		return
	}

	if err := h.service.SignOut(r.Context(), token); err != nil {
		slog.Error("failed to sign out", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	// セッションCookieをクリア
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionTokenFromRequest(r)
	if token == "" {
		handleServiceError(w, model.NewUnauthenticatedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	})
}

// setSessionCookie はセッションCookieを設定する。maxAgeが負の場合はCookieを削除する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func toSessionResponse(session *model.Session) sessionResponse {
	return sessionResponse{
		SessionToken: session.ID,
		OwnerID:      session.UserID,
		ExpiresAt:    session.ExpiresAt,
	}
}
