package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/hitoshi/employeeinfo/internal/model"
)

// SessionListener はセッションの認証状態の変化を受け取るコールバック。
// ownerIDは認証済みユーザーのID、匿名（サインアウト・期限切れ）の場合は空文字列。
type SessionListener func(ctx context.Context, ownerID string)

// SessionFinder はセッションの検索に必要なインターフェース。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// SessionWatcher はセッションIDごとの購読者に認証状態の変化を通知する。
type SessionWatcher struct {
	sessions SessionFinder

	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]SessionListener
}

// NewSessionWatcher はSessionWatcherを生成する。
func NewSessionWatcher(sessions SessionFinder) *SessionWatcher {
	return &SessionWatcher{
		sessions:  sessions,
		listeners: make(map[string]map[int]SessionListener),
	}
}

// Subscribe はsessionIDの認証状態の変化を購読する。
// 登録時に現在の状態（ユーザーIDまたは空文字列）で一度だけ即座にlistenerを呼び出し、
// 以降はPublishのたびに呼び出す。戻り値の関数で購読を解除する。
func (w *SessionWatcher) Subscribe(ctx context.Context, sessionID string, listener SessionListener) (func(), error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	ownerID := ""
	session, err := w.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if session != nil {
		ownerID = session.UserID
	}

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	if w.listeners[sessionID] == nil {
		w.listeners[sessionID] = make(map[int]SessionListener)
	}
	w.listeners[sessionID][id] = listener
	w.mu.Unlock()

	listener(ctx, ownerID)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.listeners[sessionID], id)
			if len(w.listeners[sessionID]) == 0 {
				delete(w.listeners, sessionID)
			}
		})
	}
	return unsubscribe, nil
}

// Publish はsessionIDの購読者全員に新しい認証状態を通知する。
// リスナーはロック外で呼び出すため、リスナー内で購読解除してもよい。
func (w *SessionWatcher) Publish(ctx context.Context, sessionID, ownerID string) {
	w.mu.Lock()
	targets := make([]SessionListener, 0, len(w.listeners[sessionID]))
	for _, l := range w.listeners[sessionID] {
		targets = append(targets, l)
	}
	w.mu.Unlock()

	for _, l := range targets {
		l(ctx, ownerID)
	}
}

// SubscriberCount はsessionIDの購読者数を返す。
func (w *SessionWatcher) SubscriberCount(sessionID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners[sessionID])
}
