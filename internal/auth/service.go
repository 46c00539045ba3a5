// Package auth はメールアドレスとパスワードによる認証、セッション管理、
// セッションの認証状態の変化通知を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/employeeinfo/internal/metrics"
	"github.com/hitoshi/employeeinfo/internal/model"
	"github.com/hitoshi/employeeinfo/internal/repository"
	"github.com/hitoshi/employeeinfo/internal/validation"
)

// 認証操作のメトリクスラベル
const (
	actionSignUp  = "signup"
	actionSignIn  = "signin"
	actionSignOut = "signout"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	validator   *validation.Validator
	watcher     *SessionWatcher
	metrics     metrics.MetricsCollector
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。watcherがnilの場合は状態変化を通知しない。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	watcher *SessionWatcher,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		validator:   validation.New(),
		watcher:     watcher,
		metrics:     collector,
		config:      config,
		now:         time.Now,
	}
}

// SignUp は新規アカウントを作成し、セッションを発行する。
// 入力が不正な場合は検証エラー、登録済みメールアドレスの場合はEMAIL_ALREADY_REGISTEREDを返す。
func (s *Service) SignUp(ctx context.Context, in validation.SignUpInput) (*model.Session, error) {
	session, err := s.signUp(ctx, in)
	s.recordResult(actionSignUp, err)
	return session, err
}

func (s *Service) signUp(ctx context.Context, in validation.SignUpInput) (*model.Session, error) {
	if errs := s.validator.ValidateSignUp(in); !errs.Valid() {
		s.recordValidation("signup", errs)
		return nil, model.NewValidationError(errs)
	}

	email := strings.TrimSpace(in.Email)
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailAlreadyRegisteredError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
	)
	return session, nil
}

// SignIn はメールアドレスとパスワードを照合し、セッションを発行する。
// 未登録のメールアドレスはACCOUNT_NOT_FOUND、パスワード不一致はINVALID_CREDENTIALSを返す。
func (s *Service) SignIn(ctx context.Context, in validation.SignInInput) (*model.Session, error) {
	session, err := s.signIn(ctx, in)
	s.recordResult(actionSignIn, err)
	return session, err
}

func (s *Service) signIn(ctx context.Context, in validation.SignInInput) (*model.Session, error) {
	if errs := s.validator.ValidateSignIn(in); !errs.Valid() {
		s.recordValidation("signin", errs)
		return nil, model.NewValidationError(errs)
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.NewAccountNotFoundError()
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user signed in", slog.String("user_id", user.ID))
	return session, nil
}

// SignOut はセッションを破棄し、購読者に匿名状態を通知する。
// 存在しないセッションの破棄もエラーにしない。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	err := s.signOut(ctx, sessionID)
	s.recordResult(actionSignOut, err)
	return err
}

func (s *Service) signOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return model.NewUnauthenticatedError()
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if s.watcher != nil {
		s.watcher.Publish(ctx, sessionID, "")
	}

	slog.Info("user signed out")
	return nil
}

// ResolveSession はセッションIDから有効なセッションを取得する。
// 存在しないか期限切れの場合はUNAUTHENTICATEDを返す。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return session, nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	session, err := s.ResolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (s *Service) recordResult(action string, err error) {
	if err == nil {
		s.metrics.RecordAuth(action, metrics.ResultSuccess)
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		s.metrics.RecordAuth(action, apiErr.Code)
		return
	}
	s.metrics.RecordAuth(action, metrics.ResultFailure)
}

func (s *Service) recordValidation(form string, errs validation.Errors) {
	for field := range errs {
		s.metrics.RecordValidationFailure(form, field)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
