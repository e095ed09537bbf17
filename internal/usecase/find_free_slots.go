package usecase

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/k-negishi/google-calendar-free-slots/internal/availability"
	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

// CalendarRepository カレンダーからイベントを取得するポート
type CalendarRepository interface {
	GetEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]domain.Event, error)
}

// HolidaySource カレンダー以外から祝日を取得するポート
type HolidaySource interface {
	GetHolidayEvents(ctx context.Context, timeMin, timeMax time.Time) ([]domain.Event, error)
}

// FindFreeSlotsOptions 空き時間検索の条件
type FindFreeSlotsOptions struct {
	CalendarID string
	// 空の場合は祝日カレンダーを参照しない
	HolidayCalendarID string
	Settings          availability.Settings
	Criteria          domain.BusyCriteria
	ManualHolidays    []civil.Date
}

// FindFreeSlotsUseCase 空き時間検索ユースケース
type FindFreeSlotsUseCase struct {
	calendarRepo  CalendarRepository
	holidaySource HolidaySource
	options       FindFreeSlotsOptions
	logger        *zap.Logger
}

// NewFindFreeSlotsUseCase ユースケースを生成
//
// holidaySource は nil でもよい。
func NewFindFreeSlotsUseCase(calendarRepo CalendarRepository, holidaySource HolidaySource, options FindFreeSlotsOptions, logger *zap.Logger) *FindFreeSlotsUseCase {
	if options.CalendarID == "" {
		options.CalendarID = "primary"
	}
	if options.Settings.Location == nil {
		options.Settings.Location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FindFreeSlotsUseCase{
		calendarRepo:  calendarRepo,
		holidaySource: holidaySource,
		options:       options,
		logger:        logger,
	}
}

// Execute start から end まで（両端含む）の空き時間を取得する
func (uc *FindFreeSlotsUseCase) Execute(ctx context.Context, start, end civil.Date) (domain.Schedule, error) {
	if end.Before(start) {
		uc.logger.Warn("終了日が開始日より前のため、空き時間はありません",
			zap.Stringer("start_date", start),
			zap.Stringer("end_date", end))
		return domain.Schedule{}, nil
	}

	loc := uc.options.Settings.Location
	timeMin := civil.DateTime{Date: start}.In(loc)
	timeMax := civil.DateTime{Date: end.AddDays(1)}.In(loc)

	var events, holidayEvents, feedEvents []domain.Event
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		events, err = uc.calendarRepo.GetEvents(gctx, uc.options.CalendarID, timeMin, timeMax)
		return err
	})
	if uc.options.HolidayCalendarID != "" {
		g.Go(func() error {
			var err error
			holidayEvents, err = uc.calendarRepo.GetEvents(gctx, uc.options.HolidayCalendarID, timeMin, timeMax)
			return err
		})
	}
	if uc.holidaySource != nil {
		g.Go(func() error {
			var err error
			feedEvents, err = uc.holidaySource.GetHolidayEvents(gctx, timeMin, timeMax)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		uc.logger.Error("予定の取得に失敗しました", zap.Error(err))
		return domain.Schedule{}, err
	}

	holidayEvents = append(holidayEvents, feedEvents...)

	busy, holidays := availability.BuildBusyIntervals(events, holidayEvents, uc.options.Criteria, uc.options.ManualHolidays, loc)
	uc.logger.Debug("予定ありの時間帯を算出しました",
		zap.Int("events", len(events)),
		zap.Int("holiday_events", len(holidayEvents)),
		zap.Int("busy_intervals", len(busy)),
		zap.Stringers("holidays", holidays.Sorted()))

	schedule := availability.BuildSchedule(start, end, uc.options.Settings, busy, holidays)
	uc.logger.Info("空き時間を算出しました",
		zap.Stringer("start_date", start),
		zap.Stringer("end_date", end),
		zap.Int("days", len(schedule.Days)),
		zap.Int("slots", schedule.SlotCount()))

	return schedule, nil
}
