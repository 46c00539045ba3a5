package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// requestLogFieldsContextKey はアクセスログ用の可変フィールドを格納するキー。
var requestLogFieldsContextKey = contextKey("request_log_fields")

// requestLogFields はルーター内側のミドルウェアが判明させた値をアクセスログへ渡す入れ物。
// 内側のミドルウェアはr.WithContextで新しいリクエストを作るため、
// 外側のロギングミドルウェアからはコンテキストの値が見えない。
type requestLogFields struct {
	mu     sync.Mutex
	userID string
}

// setRequestLogUserID はロギングミドルウェア配下のリクエストであれば、ログに出すユーザーIDを記録する。
func setRequestLogUserID(ctx context.Context, userID string) {
	if fields, ok := ctx.Value(requestLogFieldsContextKey).(*requestLogFields); ok {
		fields.mu.Lock()
		fields.userID = userID
		fields.mu.Unlock()
	}
}

func (f *requestLogFields) loggedUserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			fields := &requestLogFields{}
			r = r.WithContext(context.WithValue(r.Context(), requestLogFieldsContextKey, fields))

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			// セッションミドルウェアが記録したユーザーID、なければコンテキストの値を使う
			userID := fields.loggedUserID()
			if userID == "" {
				userID, _ = UserIDFromContext(r.Context())
			}
			if userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}

			// slogのログレベルをステータスコードに応じて変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			// slog.Attr をany スライスに変換
			args := make([]any, len(attrs))
			for i, attr := range attrs {
				args[i] = attr
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
