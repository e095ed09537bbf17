package usecase

import (
	"context"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

// FreeSlotsFinder 空き時間を算出するポート
type FreeSlotsFinder interface {
	Execute(ctx context.Context, start, end civil.Date) (domain.Schedule, error)
}

// Notifier 通知を送信するポート
type Notifier interface {
	SendFreeSlots(ctx context.Context, schedule domain.Schedule) error
}

// NotifyFreeSlotsUseCase 空き時間通知ユースケース
type NotifyFreeSlotsUseCase struct {
	finder   FreeSlotsFinder
	notifier Notifier
	logger   *zap.Logger
}

// NewNotifyFreeSlotsUseCase ユースケースを生成
func NewNotifyFreeSlotsUseCase(finder FreeSlotsFinder, notifier Notifier, logger *zap.Logger) *NotifyFreeSlotsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyFreeSlotsUseCase{
		finder:   finder,
		notifier: notifier,
		logger:   logger,
	}
}

// Execute 期間の空き時間を算出し、通知を送信する
//
// 空き時間が1件もない場合は通知せず skipped を返す。
func (uc *NotifyFreeSlotsUseCase) Execute(ctx context.Context, start, end civil.Date) (skipped bool, err error) {
	schedule, err := uc.finder.Execute(ctx, start, end)
	if err != nil {
		uc.logger.Error("空き時間の算出に失敗しました", zap.Error(err))
		return false, err
	}

	if schedule.IsEmpty() {
		return true, nil
	}

	if err := uc.notifier.SendFreeSlots(ctx, schedule); err != nil {
		uc.logger.Error("通知の送信に失敗しました", zap.Error(err))
		return false, err
	}

	return false, nil
}
