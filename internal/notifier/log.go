package notifier

import (
	"context"

	"interview-tracker/internal/logging"
	"interview-tracker/internal/model"
)

// LogNotifier 仅记录变更日志，适合开发阶段使用。
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier 创建日志通知器，未提供 logger 时默认输出到生产配置的 zap。
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.New("info")
	}
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// Notify 打印一条结构化日志。
func (n LogNotifier) Notify(ctx context.Context, ev model.Event) error {
	n.logger.Info("interview changed",
		"type", string(ev.Type),
		"ownerId", ev.OwnerID,
		"interviewId", ev.Interview.ID,
		"company", ev.Interview.Company,
		"result", ev.Interview.Result.String(),
	)
	return nil
}
