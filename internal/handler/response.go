// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/employeeinfo/internal/middleware"
	"github.com/hitoshi/employeeinfo/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
const maxRequestBodyBytes = 64 << 10

// errInvalidRequestBody はリクエストボディが解析できない場合のエラー。
var errInvalidRequestBody = &model.APIError{
	Code:     "INVALID_REQUEST",
	Message:  "Failed to parse the request body.",
	Category: model.CategoryValidation,
	Action:   "Send a valid JSON object.",
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvにデコードする。
// allowEmptyがtrueの場合、空ボディはエラーにせずfalseを返す。
func decodeJSON(r *http.Request, v any, allowEmpty bool) (bool, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, errInvalidRequestBody
	}
	return true, nil
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeUnknownField:
		return http.StatusUnprocessableEntity
	case errInvalidRequestBody.Code:
		return http.StatusBadRequest
	case model.ErrCodeUnauthenticated, model.ErrCodeInvalidCredentials, model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	case model.ErrCodeAccountNotFound, model.ErrCodeProfileNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailAlreadyRegistered, model.ErrCodeProfileExists:
		return http.StatusConflict
	case model.ErrCodeInvalidState, model.ErrCodeRequestInFlight, model.ErrCodeNothingToRetry:
		return http.StatusConflict
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeStoreTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
