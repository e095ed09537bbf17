package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/k-negishi/google-calendar-free-slots/internal/config"
	"github.com/k-negishi/google-calendar-free-slots/internal/gateway"
	"github.com/k-negishi/google-calendar-free-slots/internal/usecase"
)

// newCalendarRepository 認証情報からGoogle Calendarリポジトリを作成
//
// Lambda上では対話的な認可ができないため、保存済みトークンがない場合はエラーになる。
func newCalendarRepository(ctx context.Context, cfg *config.Config, timezone *time.Location, logger *zap.Logger) (*gateway.GoogleCalendarRepository, error) {
	var authorize gateway.AuthorizeFunc
	if !cfg.IsLambda {
		authorize = gateway.NewLoopbackAuthorizer(logger)
	}

	clientOption, err := gateway.NewGoogleClientOption(ctx, []byte(cfg.GoogleCredentials), gateway.FileTokenStore{Path: cfg.TokenFile}, authorize)
	if err != nil {
		return nil, err
	}

	return gateway.NewGoogleCalendarRepository(ctx, timezone, logger, clientOption)
}

// newFindFreeSlotsUseCase 設定から空き時間検索ユースケースを組み立てる
func newFindFreeSlotsUseCase(repo usecase.CalendarRepository, cfg *config.Config, schedule *config.Schedule, logger *zap.Logger) *usecase.FindFreeSlotsUseCase {
	var holidaySource usecase.HolidaySource
	if schedule.HolidayICSURL != "" {
		holidaySource = gateway.NewICSHolidaySource(schedule.HolidayICSURL, schedule.Availability.Location, logger)
	}

	return usecase.NewFindFreeSlotsUseCase(repo, holidaySource, usecase.FindFreeSlotsOptions{
		CalendarID:        cfg.CalendarID,
		HolidayCalendarID: schedule.HolidayCalendarID,
		Settings:          schedule.Availability,
		Criteria:          schedule.Criteria,
		ManualHolidays:    schedule.Holidays,
	}, logger)
}

// newLINENotifier LINE通知の設定がなければエラー
func newLINENotifier(cfg *config.Config, timezone *time.Location) (*gateway.LINENotifier, error) {
	if !cfg.LINEEnabled() {
		return nil, fmt.Errorf("%w: LINE_CHANNEL_ACCESS_TOKEN と LINE_USER_ID", config.ErrMissingSetting)
	}
	return gateway.NewLINENotifier(cfg.LineChannelAccessToken, cfg.LineUserID, timezone), nil
}
