package handler

import (
	"context"

	"github.com/hitoshi/employeeinfo/internal/profile"
)

// RegistryAdapter は profile.Registry を ProfileControllerProvider に適合させるアダプタ。
type RegistryAdapter struct {
	registry *profile.Registry
}

// NewRegistryAdapter はRegistryAdapterを生成する。
func NewRegistryAdapter(registry *profile.Registry) *RegistryAdapter {
	return &RegistryAdapter{registry: registry}
}

// ForSession はセッションに紐付くProfileControllerを返す。
// 初回アクセス時はセッション変更の購読とレコードの取得が行われる。
func (a *RegistryAdapter) ForSession(ctx context.Context, sessionID string) (ProfileController, error) {
	ctrl, err := a.registry.ForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ctrl, nil
}

// --- compile-time interface checks ---

var _ ProfileControllerProvider = (*RegistryAdapter)(nil)
var _ ProfileController = (*profile.Controller)(nil)
