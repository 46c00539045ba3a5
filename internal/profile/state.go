// Package profile は従業員情報画面の状態機械を提供する。
//
// Controller はセッションごとにサーバー側で保持され、サインイン状態の変化、
// フォーム入力、送信、表示切り替えを受け取り、レコードストアとの入出力を行う。
// HTTPハンドラーはControllerのViewをそのまま提示するだけの薄い層になる。
package profile

// State はコントローラーの状態。
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateLoading         State = "loading"
	StateLoadFailed      State = "load_failed"
	StateEmptyForm       State = "empty_form"
	StateSummary         State = "summary"
	StateEditForm        State = "edit_form"
)

// isForm はフォーム入力を受け付ける状態かどうかを返す。
func (s State) isForm() bool {
	return s == StateEmptyForm || s == StateEditForm
}

// retryOp は再試行対象の操作。
type retryOp int

const (
	retryNone retryOp = iota
	retryFetch
	retrySubmit
)

// ストア操作名（ログ・メトリクス・エラーメッセージに使用）
const (
	opFetch   = "fetch"
	opCreate  = "create"
	opReplace = "replace"
)
