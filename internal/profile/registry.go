package profile

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/employeeinfo/internal/auth"
	"github.com/hitoshi/employeeinfo/internal/metrics"
	"github.com/hitoshi/employeeinfo/internal/model"
)

// SessionSubscriber はセッションの認証状態の変化を購読するインターフェース。
// auth.SessionWatcherが満たす。
type SessionSubscriber interface {
	Subscribe(ctx context.Context, sessionID string, listener auth.SessionListener) (func(), error)
}

// RegistryConfig はRegistryの設定。
type RegistryConfig struct {
	IdleTTL         time.Duration // 最終利用からこの時間を超えたコントローラーを破棄する
	CleanupInterval time.Duration // 破棄判定の間隔
}

// DefaultRegistryConfig はデフォルトのRegistry設定を返す。
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		IdleTTL:         30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// entry はセッション1件分のコントローラーと購読状態。
type entry struct {
	ctrl        *Controller
	once        sync.Once
	err         error
	subscribed  atomic.Bool
	unsubscribe func() // Registry.muで保護
	lastAccess  time.Time
}

// Registry はセッションIDごとにControllerを保持する。
// 初回利用時にControllerをSessionSubscriberへ登録し、サインアウトで破棄する。
type Registry struct {
	subscriber    SessionSubscriber
	newController func() *Controller
	metrics       metrics.MetricsCollector
	config        RegistryConfig
	now           func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry はRegistryを生成し、バックグラウンドでアイドルなコントローラーの破棄を開始する。
func NewRegistry(subscriber SessionSubscriber, newController func() *Controller, collector metrics.MetricsCollector, config RegistryConfig) *Registry {
	if collector == nil {
		collector = metrics.Noop{}
	}
	r := &Registry{
		subscriber:    subscriber,
		newController: newController,
		metrics:       collector,
		config:        config,
		now:           time.Now,
		entries:       make(map[string]*entry),
		stopCh:        make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go r.cleanupLoop()
	}

	return r
}

// ForSession はセッションのControllerを返す。存在しない場合は生成して購読を開始する。
// 購読開始時の初回通知でレコードの取得まで完了する。
// セッションが無効な場合はUNAUTHENTICATEDを返し、Controllerを保持しない。
func (r *Registry) ForSession(ctx context.Context, sessionID string) (*Controller, error) {
	if sessionID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{ctrl: r.newController()}
		r.entries[sessionID] = e
		r.metrics.SetActiveControllers(len(r.entries))
	}
	e.lastAccess = r.now()
	r.mu.Unlock()

	e.once.Do(func() {
		e.err = r.subscribe(ctx, sessionID, e)
	})
	if e.err != nil {
		return nil, e.err
	}
	if e.ctrl.State() == StateUnauthenticated {
		r.Remove(sessionID)
		return nil, model.NewUnauthenticatedError()
	}
	return e.ctrl, nil
}

func (r *Registry) subscribe(ctx context.Context, sessionID string, e *entry) error {
	listener := func(ctx context.Context, ownerID string) {
		e.ctrl.OnSessionChange(ctx, ownerID)
		if ownerID == "" && e.subscribed.Load() {
			r.Remove(sessionID)
		}
	}

	unsubscribe, err := r.subscriber.Subscribe(ctx, sessionID, listener)
	if err != nil {
		r.Remove(sessionID)
		slog.Error("failed to subscribe profile controller",
			slog.String("error", err.Error()),
		)
		return model.NewStoreUnavailableError("session")
	}

	r.mu.Lock()
	current, ok := r.entries[sessionID]
	stillRegistered := ok && current == e
	if stillRegistered {
		e.unsubscribe = unsubscribe
	}
	r.mu.Unlock()

	if !stillRegistered {
		unsubscribe()
		return nil
	}
	e.subscribed.Store(true)
	return nil
}

// Remove はセッションのControllerを破棄し、購読を解除する。存在しない場合は何もしない。
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.entries, sessionID)
	unsubscribe := e.unsubscribe
	r.metrics.SetActiveControllers(len(r.entries))
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Count は保持中のController数を返す。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Stop はバックグラウンドの破棄処理を停止する。複数回呼び出してもよい。
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// cleanupLoop は定期的にアイドルなコントローラーを破棄する。
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweepIdle()
		case <-r.stopCh:
			return
		}
	}
}

// sweepIdle はIdleTTLを超えて利用されていないコントローラーを破棄する。
// ストア操作の実行中のものは対象外。
func (r *Registry) sweepIdle() int {
	threshold := r.now().Add(-r.config.IdleTTL)

	r.mu.Lock()
	var idle []string
	for id, e := range r.entries {
		if e.lastAccess.Before(threshold) && !e.ctrl.Busy() {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	for _, id := range idle {
		r.Remove(id)
	}
	if len(idle) > 0 {
		slog.Info("swept idle profile controllers", slog.Int("count", len(idle)))
	}
	return len(idle)
}
