package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/k-negishi/google-calendar-free-slots/internal/availability"
	"github.com/k-negishi/google-calendar-free-slots/internal/config"
	"github.com/k-negishi/google-calendar-free-slots/internal/logger"
	"github.com/k-negishi/google-calendar-free-slots/internal/usecase"
)

// LambdaEvent Lambda実行時のイベント構造体
type LambdaEvent struct {
	// EventBridge Schedulerからの実行なので特に使用しない
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// handler Lambda関数のメインハンドラー
//
// 翌週の空き時間を算出してLINEに通知する。
func handler(ctx context.Context, _ LambdaEvent) (LambdaResponse, error) {
	// 設定を読み込み
	cfg, err := config.Load(ctx)
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "設定読み込みエラー",
		}, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsLambda)
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "ロガー初期化エラー",
		}, err
	}
	defer func() {
		_ = log.Sync()
	}()

	schedule, err := cfg.LoadSchedule()
	if err != nil {
		log.Error("空き時間検索の設定が不正です", zap.Error(err))
		return LambdaResponse{
			StatusCode: 500,
			Message:    "空き時間検索の設定エラー",
		}, err
	}
	loc := schedule.Availability.Location

	// Google Calendarクライアントを初期化
	repo, err := newCalendarRepository(ctx, cfg, loc, log)
	if err != nil {
		log.Error("Google Calendarの初期化に失敗しました", zap.Error(err))
		return LambdaResponse{
			StatusCode: 500,
			Message:    "Google Calendar初期化エラー",
		}, err
	}

	// LINE通知クライアントを初期化
	notifier, err := newLINENotifier(cfg, loc)
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "LINE設定エラー",
		}, err
	}

	uc := usecase.NewNotifyFreeSlotsUseCase(newFindFreeSlotsUseCase(repo, cfg, schedule, log), notifier, log)

	start, end := availability.NextWeekRange(time.Now().In(loc))
	skipped, err := uc.Execute(ctx, start, end)
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "空き時間通知エラー",
		}, err
	}

	if skipped {
		log.Info("空き時間がないため通知をスキップしました")
		return LambdaResponse{
			StatusCode: 200,
			Message:    "空き時間なしのため通知スキップ",
		}, nil
	}

	return LambdaResponse{
		StatusCode: 200,
		Message:    "通知送信完了",
	}, nil
}

func main() {
	// AWS Lambda環境ではハンドラーとして起動
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(handler)
		return
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("google-calendar-free-slots"),
		kong.Description("Find available time in your Google Calendar."),
		kong.UsageOnError(),
	)

	if err := cli.Run(context.Background(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		kctx.Exit(1)
	}
}
