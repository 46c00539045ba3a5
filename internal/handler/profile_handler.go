package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/employeeinfo/internal/middleware"
	"github.com/hitoshi/employeeinfo/internal/model"
	"github.com/hitoshi/employeeinfo/internal/profile"
)

// ProfileController はプロフィールハンドラーが操作する画面状態機械のインターフェース。
type ProfileController interface {
	View() profile.View
	SetFields(values map[string]string) (profile.View, error)
	Submit(ctx context.Context) (profile.View, error)
	Retry(ctx context.Context) (profile.View, error)
	ToggleShowData() (profile.View, error)
	Edit() (profile.View, error)
	CancelEdit() (profile.View, error)
}

// ProfileControllerProvider はセッションIDに対応するProfileControllerを返す。
type ProfileControllerProvider interface {
	ForSession(ctx context.Context, sessionID string) (ProfileController, error)
}

// ProfileHandler は従業員情報画面のHTTPハンドラー。
type ProfileHandler struct {
	provider ProfileControllerProvider
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(provider ProfileControllerProvider) *ProfileHandler {
	return &ProfileHandler{provider: provider}
}

// profileRecordResponse は保存済みレコードのレスポンス。
type profileRecordResponse struct {
	ID string `json:"id"`
	model.ProfileFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// profileViewResponse は画面状態のスナップショットのレスポンス。
// Summaryではshow_dataが有効な場合のみレコードを含める。
type profileViewResponse struct {
	State       string                        `json:"state"`
	Record      *profileRecordResponse        `json:"record,omitempty"`
	Form        *model.ProfileFields          `json:"form,omitempty"`
	FieldErrors map[string]string             `json:"field_errors,omitempty"`
	ShowData    bool                          `json:"show_data"`
	Pending     bool                          `json:"pending"`
	Error       *middleware.ErrorResponseBody `json:"error,omitempty"`
	CanRetry    bool                          `json:"can_retry"`
}

// Get は現在の画面状態を返す。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProfileViewResponse(ctrl.View()))
}

// UpdateForm はフォームの入力値を更新し、変更されたフィールドを再検証する。
// PATCH /api/profile/form
func (h *ProfileHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var values map[string]string
	if _, err := decodeJSON(r, &values, false); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respond(w)(ctrl.SetFields(values))
}

// Submit はフォームを送信する。ボディが指定された場合は入力値を反映してから送信する。
// POST /api/profile/submit
func (h *ProfileHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var values map[string]string
	present, err := decodeJSON(r, &values, true)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if present && len(values) > 0 {
		if _, err := ctrl.SetFields(values); err != nil {
			handleServiceError(w, err)
			return
		}
	}

	h.respond(w)(ctrl.Submit(r.Context()))
}

// Edit は保存済みレコードを編集フォームに展開する。
// POST /api/profile/edit
func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := h.controller(w, r); ok {
		h.respond(w)(ctrl.Edit())
	}
}

// CancelEdit は編集内容を破棄してSummaryに戻る。
// POST /api/profile/cancel
func (h *ProfileHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := h.controller(w, r); ok {
		h.respond(w)(ctrl.CancelEdit())
	}
}

// Toggle はレコードの表示・非表示を切り替える。
// POST /api/profile/toggle
func (h *ProfileHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := h.controller(w, r); ok {
		h.respond(w)(ctrl.ToggleShowData())
	}
}

// Retry は直前に失敗したストア操作を再実行する。
// POST /api/profile/retry
func (h *ProfileHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := h.controller(w, r); ok {
		h.respond(w)(ctrl.Retry(r.Context()))
	}
}

// controller はリクエストのセッションに対応するProfileControllerを取得する。
// 取得できない場合はエラーレスポンスを書き込みfalseを返す。
func (h *ProfileHandler) controller(w http.ResponseWriter, r *http.Request) (ProfileController, bool) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, model.NewUnauthenticatedError())
		return nil, false
	}

	ctrl, err := h.provider.ForSession(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return ctrl, true
}

// respond は操作結果の画面状態またはエラーを書き込む関数を返す。
func (h *ProfileHandler) respond(w http.ResponseWriter) func(profile.View, error) {
	return func(view profile.View, err error) {
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileViewResponse(view))
	}
}

// toProfileViewResponse は画面状態のスナップショットをレスポンス型に変換する。
func toProfileViewResponse(v profile.View) profileViewResponse {
	resp := profileViewResponse{
		State:       string(v.State),
		Form:        v.Form,
		FieldErrors: v.FieldErrors,
		ShowData:    v.ShowData,
		Pending:     v.Pending,
		CanRetry:    v.CanRetry,
	}
	if v.Record != nil && (v.State != profile.StateSummary || v.ShowData) {
		resp.Record = &profileRecordResponse{
			ID:            v.Record.ID,
			ProfileFields: v.Record.ProfileFields,
			CreatedAt:     v.Record.CreatedAt,
			UpdatedAt:     v.Record.UpdatedAt,
		}
	}
	if v.Error != nil {
		body := middleware.NewErrorResponseBody(v.Error)
		resp.Error = &body
	}
	return resp
}
