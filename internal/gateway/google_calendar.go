package gateway

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

// EventsProvider Google Calendar APIの呼び出しを抽象化したインターフェース
type EventsProvider interface {
	ListEvents(ctx context.Context, calendarID, timeMin, timeMax string) ([]*calendar.Event, error)
	GetColors(ctx context.Context) (*calendar.Colors, error)
}

// serviceEventsProvider calendar.Serviceを使ったEventsProviderの実装
type serviceEventsProvider struct {
	service *calendar.Service
}

// ListEvents 繰り返し予定を展開した状態で、全ページのイベントを開始時刻順に取得
func (p *serviceEventsProvider) ListEvents(ctx context.Context, calendarID, timeMin, timeMax string) ([]*calendar.Event, error) {
	var items []*calendar.Event
	err := p.service.Events.List(calendarID).
		TimeMin(timeMin).
		TimeMax(timeMax).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Pages(ctx, func(page *calendar.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetColors カラーパレットを取得
func (p *serviceEventsProvider) GetColors(ctx context.Context) (*calendar.Colors, error) {
	return p.service.Colors.Get().Context(ctx).Do()
}

// GoogleCalendarRepository Google Calendar APIを使用したCalendarRepositoryの実装
type GoogleCalendarRepository struct {
	provider EventsProvider
	timezone *time.Location
	logger   *zap.Logger
}

// NewGoogleCalendarRepository Google Calendarリポジトリを作成
func NewGoogleCalendarRepository(ctx context.Context, timezone *time.Location, logger *zap.Logger, opts ...option.ClientOption) (*GoogleCalendarRepository, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %w", err)
	}

	return NewGoogleCalendarRepositoryWithProvider(&serviceEventsProvider{service: service}, timezone, logger), nil
}

// NewGoogleCalendarRepositoryWithProvider 任意のEventsProviderでリポジトリを作成
func NewGoogleCalendarRepositoryWithProvider(provider EventsProvider, timezone *time.Location, logger *zap.Logger) *GoogleCalendarRepository {
	if timezone == nil {
		timezone = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleCalendarRepository{
		provider: provider,
		timezone: timezone,
		logger:   logger,
	}
}

// GetEvents 指定期間 [timeMin, timeMax) の予定を取得
func (r *GoogleCalendarRepository) GetEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]domain.Event, error) {
	// RFC3339形式に変換（タイムゾーン情報付き）
	timeMinStr := timeMin.In(r.timezone).Format(time.RFC3339)
	timeMaxStr := timeMax.In(r.timezone).Format(time.RFC3339)

	r.logger.Debug("Google Calendar API リクエスト",
		zap.String("calendar_id", calendarID),
		zap.String("time_min", timeMinStr),
		zap.String("time_max", timeMaxStr))

	items, err := r.provider.ListEvents(ctx, calendarID, timeMinStr, timeMaxStr)
	if err != nil {
		return nil, fmt.Errorf("カレンダーイベントの取得に失敗しました (%s): %w", calendarID, err)
	}

	r.logger.Debug("取得したイベント数", zap.String("calendar_id", calendarID), zap.Int("count", len(items)))

	// イベントを変換
	domainEvents := make([]domain.Event, 0, len(items))
	for _, event := range items {
		domainEvent, err := r.convertToEvent(event)
		if err != nil {
			r.logger.Warn("イベントの変換をスキップしました", zap.String("event_id", event.Id), zap.Error(err))
			continue
		}
		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, nil
}

// ListEventColors イベントのカラーパレットをID順に取得
func (r *GoogleCalendarRepository) ListEventColors(ctx context.Context) ([]domain.EventColor, error) {
	colors, err := r.provider.GetColors(ctx)
	if err != nil {
		return nil, fmt.Errorf("カラーパレットの取得に失敗しました: %w", err)
	}

	result := make([]domain.EventColor, 0, len(colors.Event))
	for id, def := range colors.Event {
		result = append(result, domain.EventColor{
			ID:         id,
			Background: def.Background,
			Foreground: def.Foreground,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		a, errA := strconv.Atoi(result[i].ID)
		b, errB := strconv.Atoi(result[j].ID)
		if errA != nil || errB != nil {
			return result[i].ID < result[j].ID
		}
		return a < b
	})

	return result, nil
}

// convertToEvent Google Calendar APIのイベントをドメインエンティティに変換
func (r *GoogleCalendarRepository) convertToEvent(event *calendar.Event) (domain.Event, error) {
	domainEvent := domain.Event{
		ID:          event.Id,
		Title:       event.Summary,
		Location:    event.Location,
		Description: event.Description,
		ColorID:     event.ColorId,
		EventType:   event.EventType,
	}

	for _, attendee := range event.Attendees {
		if attendee == nil {
			continue
		}
		domainEvent.Attendees = append(domainEvent.Attendees, domain.Attendee{Email: attendee.Email})
	}
	if event.Organizer != nil {
		domainEvent.OrganizerEmail = event.Organizer.Email
	}

	// 開始時刻の処理
	startTime, allDay, err := r.parseEventTime(event.Start)
	if err != nil {
		return domain.Event{}, fmt.Errorf("開始時刻の解析に失敗しました: %w", err)
	}
	domainEvent.StartTime = startTime
	domainEvent.IsAllDay = allDay

	// 終了時刻の処理
	endTime, _, err := r.parseEventTime(event.End)
	if err != nil {
		return domain.Event{}, fmt.Errorf("終了時刻の解析に失敗しました: %w", err)
	}
	domainEvent.EndTime = endTime

	return domainEvent, nil
}

// parseEventTime 時刻指定ありは RFC3339、終日は日付としてタイムゾーンに合わせて解析
func (r *GoogleCalendarRepository) parseEventTime(eventTime *calendar.EventDateTime) (time.Time, bool, error) {
	if eventTime == nil {
		return time.Time{}, false, fmt.Errorf("時刻が設定されていません")
	}

	if eventTime.DateTime != "" {
		t, err := time.Parse(time.RFC3339, eventTime.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(r.timezone), false, nil
	}

	if eventTime.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", eventTime.Date, r.timezone)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}

	return time.Time{}, false, fmt.Errorf("時刻が設定されていません")
}
