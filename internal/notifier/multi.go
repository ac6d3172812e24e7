package notifier

import (
	"context"
	"errors"

	"interview-tracker/internal/model"
)

// Notifier 为通知统一接口。
type Notifier interface {
	Notify(ctx context.Context, ev model.Event) error
}

// Multi 依次调用所有通知器，单个失败不影响其余通知器。
type Multi []Notifier

// Notify 汇总所有失败。
func (m Multi) Notify(ctx context.Context, ev model.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
