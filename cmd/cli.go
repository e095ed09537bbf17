package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/k-negishi/google-calendar-free-slots/internal/availability"
	"github.com/k-negishi/google-calendar-free-slots/internal/config"
	"github.com/k-negishi/google-calendar-free-slots/internal/gateway"
	"github.com/k-negishi/google-calendar-free-slots/internal/logger"
	"github.com/k-negishi/google-calendar-free-slots/internal/usecase"
)

// CLI コマンドライン引数
type CLI struct {
	StartDate  string `name:"start-date" placeholder:"YYYY-MM-DD" help:"Start date in YYYY-MM-DD format. Defaults to the beginning of next week."`
	EndDate    string `name:"end-date" placeholder:"YYYY-MM-DD" help:"End date in YYYY-MM-DD format. Defaults to the end of next week."`
	ListColors bool   `name:"list-colors" help:"List available calendar colors and exit."`
	Notify     bool   `name:"notify" help:"Also push the result to LINE."`
	Cron       string `name:"cron" placeholder:"SPEC" help:"Keep running and push next week's free slots to LINE on this cron schedule."`
}

// Run 引数に応じて処理を実行
func (c *CLI) Run(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsLambda)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	presenter := gateway.NewConsolePresenter(out)

	if c.ListColors {
		repo, err := newCalendarRepository(ctx, cfg, time.Local, log)
		if err != nil {
			return err
		}
		colors, err := repo.ListEventColors(ctx)
		if err != nil {
			return err
		}
		return presenter.RenderColors(colors)
	}

	schedule, err := cfg.LoadSchedule()
	if err != nil {
		return err
	}
	loc := schedule.Availability.Location

	repo, err := newCalendarRepository(ctx, cfg, loc, log)
	if err != nil {
		return err
	}
	finder := newFindFreeSlotsUseCase(repo, cfg, schedule, log)

	if c.Cron != "" {
		notifier, err := newLINENotifier(cfg, loc)
		if err != nil {
			return err
		}
		return runCron(ctx, c.Cron, loc, usecase.NewNotifyFreeSlotsUseCase(finder, notifier, log), log)
	}

	start, end, err := resolveDateRange(c.StartDate, c.EndDate, time.Now().In(loc))
	if err != nil {
		return err
	}

	if err := presenter.RenderSettings(schedule.Availability.MinDuration, schedule.Criteria); err != nil {
		return err
	}

	result, err := finder.Execute(ctx, start, end)
	if err != nil {
		return err
	}
	if err := presenter.SendFreeSlots(ctx, result); err != nil {
		return err
	}

	if !c.Notify {
		return nil
	}
	notifier, err := newLINENotifier(cfg, loc)
	if err != nil {
		return err
	}
	if result.IsEmpty() {
		log.Info("空き時間がないため通知をスキップしました")
		return nil
	}
	return notifier.SendFreeSlots(ctx, result)
}

// resolveDateRange 引数から検索期間を決める
//
// 開始日がなければ翌週の月曜日、終了日がなければ開始日の5日後とする。
func resolveDateRange(startArg, endArg string, now time.Time) (civil.Date, civil.Date, error) {
	start, end := availability.NextWeekRange(now)

	if startArg != "" {
		d, err := config.ParseDate(startArg)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("--start-date %q はYYYY-MM-DD形式で指定してください: %w", startArg, err)
		}
		start = d
		end = d.AddDays(5)
	}

	if endArg != "" {
		d, err := config.ParseDate(endArg)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("--end-date %q はYYYY-MM-DD形式で指定してください: %w", endArg, err)
		}
		end = d
	}

	return start, end, nil
}

// runCron シグナルを受けるまで、スケジュールに従って翌週の空き時間を通知する
func runCron(ctx context.Context, spec string, loc *time.Location, uc *usecase.NotifyFreeSlotsUseCase, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := cron.New(cron.WithLocation(loc))
	_, err := scheduler.AddFunc(spec, func() {
		start, end := availability.NextWeekRange(time.Now().In(loc))
		skipped, err := uc.Execute(ctx, start, end)
		switch {
		case err != nil:
			log.Error("定期通知に失敗しました", zap.Error(err))
		case skipped:
			log.Info("空き時間がないため通知をスキップしました")
		default:
			log.Info("定期通知を送信しました", zap.Stringer("start_date", start), zap.Stringer("end_date", end))
		}
	})
	if err != nil {
		return fmt.Errorf("%w: cron %q: %v", config.ErrInvalidSetting, spec, err)
	}

	scheduler.Start()
	log.Info("定期通知を開始しました", zap.String("cron", spec))

	<-ctx.Done()
	<-scheduler.Stop().Done()
	log.Info("定期通知を停止しました")
	return nil
}
