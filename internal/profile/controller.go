package profile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/employeeinfo/internal/metrics"
	"github.com/hitoshi/employeeinfo/internal/model"
	"github.com/hitoshi/employeeinfo/internal/security"
	"github.com/hitoshi/employeeinfo/internal/validation"
)

// DefaultStoreTimeout はストア操作1回あたりのデフォルトのタイムアウト。
const DefaultStoreTimeout = 10 * time.Second

// Store はコントローラーが使用するレコードストアのインターフェース。
// repository.ProfileRepositoryが満たす。
type Store interface {
	FindByOwner(ctx context.Context, ownerID string) (*model.Profile, error)
	Create(ctx context.Context, ownerID string, fields model.ProfileFields) (*model.Profile, error)
	Replace(ctx context.Context, id, ownerID string, fields model.ProfileFields) error
}

// Sanitizer は入力値からマークアップを除去する。nilの場合はsecurity.NewFieldSanitizerを使う。
type Sanitizer interface {
	SanitizeText(raw string) string
}

// Config はコントローラーの設定。
type Config struct {
	StoreTimeout time.Duration // ストア操作1回あたりのタイムアウト（0の場合DefaultStoreTimeout）
}

// View はコントローラーの状態のスナップショット。呼び出し側で変更しても状態に影響しない。
type View struct {
	State       State
	OwnerID     string
	Record      *model.Profile       // Summary/EditFormで表示するレコード
	Form        *model.ProfileFields // EmptyForm/EditFormの入力値
	FieldErrors map[string]string
	ShowData    bool
	Pending     bool            // ストア操作の実行中
	Error       *model.APIError // 直近のストア操作の失敗
	CanRetry    bool
}

// Controller は1セッション分の従業員情報画面の状態機械。
// 状態はmuで保護し、ストア操作はロック外で実行する。
// generationはサインイン状態が変わるたびに進み、古い操作の結果を破棄するために使う。
type Controller struct {
	store     Store
	validator *validation.Validator
	sanitizer Sanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	timeout   time.Duration

	mu          sync.Mutex
	state       State
	ownerID     string
	record      *model.Profile
	form        model.ProfileFields
	fieldErrors map[string]string
	showData    bool
	pending     bool
	lastErr     *model.APIError
	retry       retryOp
	generation  uint64
}

// NewController はUnauthenticated状態のControllerを生成する。
func NewController(store Store, sanitizer Sanitizer, collector metrics.MetricsCollector, logger *slog.Logger, cfg Config) *Controller {
	if collector == nil {
		collector = metrics.Noop{}
	}
	if sanitizer == nil {
		sanitizer = security.NewFieldSanitizer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Controller{
		store:       store,
		validator:   validation.New(),
		sanitizer:   sanitizer,
		metrics:     collector,
		logger:      logger,
		timeout:     timeout,
		state:       StateUnauthenticated,
		fieldErrors: map[string]string{},
	}
}

// OnSessionChange はサインイン状態の変化を反映する。
// ownerIDが空の場合はレコードとフォームを破棄してUnauthenticatedへ遷移する。
// それ以外はLoadingへ遷移して所有者のレコードを取得し、
// EmptyForm・Summary・LoadFailedのいずれかへ遷移する。
func (c *Controller) OnSessionChange(ctx context.Context, ownerID string) {
	c.mu.Lock()
	c.generation++
	c.resetLocked()
	c.ownerID = ownerID
	if ownerID == "" {
		c.setStateLocked(StateUnauthenticated)
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateLoading)
	c.pending = true
	gen := c.generation
	c.mu.Unlock()

	_ = c.load(ctx, gen, ownerID)
}

// load は所有者のレコードを取得して結果の状態へ遷移する。
func (c *Controller) load(ctx context.Context, gen uint64, ownerID string) error {
	var rec *model.Profile
	err := c.call(ctx, opFetch, func(ctx context.Context) error {
		var err error
		rec, err = c.store.FindByOwner(ctx, ownerID)
		return err
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Info("discarded stale profile fetch result", slog.String("owner_id", ownerID))
		return nil
	}
	c.pending = false

	if err != nil {
		c.lastErr = toAPIError(err)
		c.retry = retryFetch
		c.setStateLocked(StateLoadFailed)
		return c.lastErr
	}

	c.lastErr = nil
	c.retry = retryNone
	c.form = model.ProfileFields{}
	c.fieldErrors = map[string]string{}
	if rec == nil {
		c.record = nil
		c.setStateLocked(StateEmptyForm)
		return nil
	}
	c.record = rec
	c.showData = false
	c.setStateLocked(StateSummary)
	return nil
}

// SetField はフォームの1フィールドを更新し、そのフィールドを即座に再検証する。
func (c *Controller) SetField(name, value string) (View, error) {
	return c.SetFields(map[string]string{name: value})
}

// SetFields はフォームの複数フィールドを更新し、変更されたフィールドを再検証する。
// 不明なフィールド名を含む場合は何も変更しない。
func (c *Controller) SetFields(values map[string]string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.isForm() {
		return c.viewLocked(), model.NewInvalidStateError("edit form", string(c.state))
	}
	if c.pending {
		return c.viewLocked(), model.NewRequestInFlightError()
	}
	for name := range values {
		if _, ok := c.form.Get(name); !ok {
			return c.viewLocked(), model.NewUnknownFieldError(name)
		}
	}

	for name, value := range values {
		c.form.Set(name, c.sanitizer.SanitizeText(value))
	}
	for name := range values {
		if msg := c.validator.ValidateField(name, c.form); msg != "" {
			c.fieldErrors[name] = msg
		} else {
			delete(c.fieldErrors, name)
		}
	}
	return c.viewLocked(), nil
}

// Submit はフォームを全項目検証し、合格した場合のみストアへ書き込む。
// EmptyFormでは新規作成、EditFormではキャッシュ済みIDのレコードを置き換えた後に再取得する。
// 成功するとSummaryへ遷移する。失敗した場合は状態と入力値を保持したままエラーを返す。
func (c *Controller) Submit(ctx context.Context) (View, error) {
	c.mu.Lock()

	if !c.state.isForm() {
		defer c.mu.Unlock()
		return c.viewLocked(), model.NewInvalidStateError("submit", string(c.state))
	}
	if c.pending {
		defer c.mu.Unlock()
		return c.viewLocked(), model.NewRequestInFlightError()
	}
	if c.ownerID == "" {
		defer c.mu.Unlock()
		return c.viewLocked(), model.NewUnauthenticatedError()
	}

	errs := c.validator.ValidateProfile(c.form)
	c.fieldErrors = errs
	if !errs.Valid() {
		for field := range errs {
			c.metrics.RecordValidationFailure("profile", field)
		}
		defer c.mu.Unlock()
		return c.viewLocked(), model.NewValidationError(errs)
	}

	var (
		gen      = c.generation
		ownerID  = c.ownerID
		fields   = c.form
		editing  = c.state == StateEditForm
		recordID string
	)
	if editing {
		recordID = c.record.ID
	}
	c.pending = true
	c.mu.Unlock()

	var (
		saved *model.Profile
		err   error
	)
	if editing {
		err = c.call(ctx, opReplace, func(ctx context.Context) error {
			return c.store.Replace(ctx, recordID, ownerID, fields)
		})
	} else {
		err = c.call(ctx, opCreate, func(ctx context.Context) error {
			var err error
			saved, err = c.store.Create(ctx, ownerID, fields)
			return err
		})
	}

	if err == nil && editing {
		// 置き換え成功後は保存された内容を表示するため再取得する
		return c.reloadAfterReplace(ctx, gen, ownerID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Info("discarded stale profile write result", slog.String("owner_id", ownerID))
		return c.viewLocked(), nil
	}
	c.pending = false

	if err != nil {
		c.lastErr = toAPIError(err)
		c.retry = retrySubmit
		return c.viewLocked(), c.lastErr
	}

	c.record = saved
	c.form = model.ProfileFields{}
	c.fieldErrors = map[string]string{}
	c.showData = false
	c.lastErr = nil
	c.retry = retryNone
	c.setStateLocked(StateSummary)
	return c.viewLocked(), nil
}

// reloadAfterReplace は置き換え後の再取得を行う。
// 再取得に失敗した場合は書き込み済みのためLoadFailedへ遷移し、再試行で取得し直す。
func (c *Controller) reloadAfterReplace(ctx context.Context, gen uint64, ownerID string) (View, error) {
	err := c.load(ctx, gen, ownerID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation && err == nil && c.state == StateEmptyForm {
		// 置き換えたレコードが再取得時に存在しない
		c.lastErr = model.NewProfileNotFoundError()
		c.retry = retryFetch
		c.setStateLocked(StateLoadFailed)
		return c.viewLocked(), c.lastErr
	}
	return c.viewLocked(), err
}

// Retry は直近に失敗したストア操作（取得または送信）を再実行する。
func (c *Controller) Retry(ctx context.Context) (View, error) {
	c.mu.Lock()

	if c.pending {
		defer c.mu.Unlock()
		return c.viewLocked(), model.NewRequestInFlightError()
	}

	switch c.retry {
	case retryFetch:
		c.generation++
		gen := c.generation
		ownerID := c.ownerID
		c.pending = true
		c.setStateLocked(StateLoading)
		c.mu.Unlock()

		err := c.load(ctx, gen, ownerID)
		return c.View(), err

	case retrySubmit:
		c.mu.Unlock()
		return c.Submit(ctx)

	default:
		defer c.mu.Unlock()
		return c.viewLocked(), model.NewNothingToRetryError()
	}
}

// ToggleShowData はSummaryでレコード内容の表示・非表示を切り替える。ストアへはアクセスしない。
func (c *Controller) ToggleShowData() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSummary {
		return c.viewLocked(), model.NewInvalidStateError("toggle", string(c.state))
	}
	c.showData = !c.showData
	return c.viewLocked(), nil
}

// Edit はSummaryから表示中のレコードの値を入力済みのEditFormへ遷移する。
func (c *Controller) Edit() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSummary || c.record == nil {
		return c.viewLocked(), model.NewInvalidStateError("edit", string(c.state))
	}
	c.form = c.record.ProfileFields
	c.fieldErrors = map[string]string{}
	c.lastErr = nil
	c.retry = retryNone
	c.setStateLocked(StateEditForm)
	return c.viewLocked(), nil
}

// CancelEdit はEditFormの変更を破棄してSummaryへ戻る。
func (c *Controller) CancelEdit() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEditForm {
		return c.viewLocked(), model.NewInvalidStateError("cancel", string(c.state))
	}
	if c.pending {
		return c.viewLocked(), model.NewRequestInFlightError()
	}
	c.form = model.ProfileFields{}
	c.fieldErrors = map[string]string{}
	c.lastErr = nil
	c.retry = retryNone
	c.setStateLocked(StateSummary)
	return c.viewLocked(), nil
}

// View は現在の状態のスナップショットを返す。
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// State は現在の状態を返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy はストア操作の実行中かどうかを返す。
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Controller) viewLocked() View {
	v := View{
		State:       c.state,
		OwnerID:     c.ownerID,
		FieldErrors: make(map[string]string, len(c.fieldErrors)),
		ShowData:    c.showData,
		Pending:     c.pending,
		CanRetry:    c.retry != retryNone && !c.pending,
	}
	for k, msg := range c.fieldErrors {
		v.FieldErrors[k] = msg
	}
	if c.record != nil && (c.state == StateSummary || c.state == StateEditForm) {
		rec := *c.record
		v.Record = &rec
	}
	if c.state.isForm() {
		form := c.form
		v.Form = &form
	}
	if c.lastErr != nil {
		e := *c.lastErr
		v.Error = &e
	}
	return v
}

// resetLocked はセッション依存の状態をすべて破棄する。
func (c *Controller) resetLocked() {
	c.ownerID = ""
	c.record = nil
	c.form = model.ProfileFields{}
	c.fieldErrors = map[string]string{}
	c.showData = false
	c.pending = false
	c.lastErr = nil
	c.retry = retryNone
}

func (c *Controller) setStateLocked(to State) {
	if c.state == to {
		return
	}
	c.metrics.RecordTransition(string(c.state), string(to))
	c.logger.Debug("profile state transition",
		slog.String("from", string(c.state)),
		slog.String("to", string(to)),
	)
	c.state = to
}

// call はタイムアウト付きでストア操作を実行し、結果をメトリクスに記録する。
// タイムアウトはSTORE_TIMEOUT、その他のストアエラーはSTORE_UNAVAILABLEに変換する。
// ストアが返したAPIErrorはそのまま返す。
func (c *Controller) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if err == nil {
		c.metrics.RecordStoreOperation(op, metrics.ResultSuccess, duration)
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.metrics.RecordStoreOperation(op, metrics.ResultTimeout, duration)
		c.logger.Warn("profile store operation timed out",
			slog.String("op", op),
			slog.Duration("timeout", c.timeout),
		)
		return model.NewStoreTimeoutError(op)
	}

	c.metrics.RecordStoreOperation(op, metrics.ResultFailure, duration)

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("profile store operation rejected",
			slog.String("op", op),
			slog.String("code", apiErr.Code),
		)
		return apiErr
	}

	c.logger.Error("profile store operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return model.NewStoreUnavailableError(op)
}

func toAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewStoreUnavailableError("unknown")
}
