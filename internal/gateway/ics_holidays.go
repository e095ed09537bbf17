package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

const icsDateLayout = "20060102"

// ICSHolidaySource iCalendar形式の祝日フィードから祝日を取得する
type ICSHolidaySource struct {
	httpClient *http.Client
	url        string
	timezone   *time.Location
	logger     *zap.Logger
}

// NewICSHolidaySource 祝日フィードの取得元を作成
func NewICSHolidaySource(url string, timezone *time.Location, logger *zap.Logger) *ICSHolidaySource {
	if timezone == nil {
		timezone = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ICSHolidaySource{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        url,
		timezone:   timezone,
		logger:     logger,
	}
}

// GetHolidayEvents 期間 [timeMin, timeMax) に重なる祝日イベントを取得
func (s *ICSHolidaySource) GetHolidayEvents(ctx context.Context, timeMin, timeMax time.Time) ([]domain.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("祝日フィードのリクエスト作成に失敗しました: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("祝日フィードの取得に失敗しました: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("レスポンスボディのクローズに失敗しました", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("祝日フィードの取得に失敗しました (status: %d): %s", resp.StatusCode, string(body))
	}

	cal, err := ical.ParseCalendar(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("祝日フィードの解析に失敗しました: %w", err)
	}

	var events []domain.Event
	for _, ve := range cal.Events() {
		event, err := s.convertVEvent(ve)
		if err != nil {
			s.logger.Warn("祝日イベントの変換をスキップしました", zap.String("uid", ve.Id()), zap.Error(err))
			continue
		}
		if !event.EndTime.After(timeMin) || !event.StartTime.Before(timeMax) {
			continue
		}
		events = append(events, event)
	}

	s.logger.Debug("祝日フィードを取得しました", zap.Int("count", len(events)))
	return events, nil
}

// convertVEvent VEVENTをドメインエンティティに変換
func (s *ICSHolidaySource) convertVEvent(ve *ical.VEvent) (domain.Event, error) {
	event := domain.Event{ID: ve.Id()}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		event.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		event.Description = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return domain.Event{}, fmt.Errorf("DTSTART がありません")
	}

	if isDateValue(dtStart) {
		start, err := time.ParseInLocation(icsDateLayout, strings.TrimSpace(dtStart.Value), s.timezone)
		if err != nil {
			return domain.Event{}, fmt.Errorf("開始日の解析に失敗しました: %w", err)
		}
		end := start.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			parsed, err := time.ParseInLocation(icsDateLayout, strings.TrimSpace(dtEnd.Value), s.timezone)
			if err != nil {
				return domain.Event{}, fmt.Errorf("終了日の解析に失敗しました: %w", err)
			}
			end = parsed
		}
		event.StartTime = start
		event.EndTime = end
		event.IsAllDay = true
		return event, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return domain.Event{}, fmt.Errorf("開始時刻の解析に失敗しました: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return domain.Event{}, fmt.Errorf("終了時刻の解析に失敗しました: %w", err)
	}
	event.StartTime = start.In(s.timezone)
	event.EndTime = end.In(s.timezone)
	return event, nil
}

// isDateValue VALUE=DATE または時刻部分のない値なら終日
func isDateValue(prop *ical.IANAProperty) bool {
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}
