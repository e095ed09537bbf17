package availability

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

// HolidaySet 終日除外する日付の集合
type HolidaySet map[civil.Date]struct{}

// NewHolidaySet 日付一覧から集合を作成
func NewHolidaySet(dates ...civil.Date) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// Contains 日付が集合に含まれるか
func (h HolidaySet) Contains(d civil.Date) bool {
	_, ok := h[d]
	return ok
}

// Sorted 日付の昇順で返す
func (h HolidaySet) Sorted() []civil.Date {
	dates := make([]civil.Date, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b civil.Date) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return dates
}

// BuildBusyIntervals 予定ありの時間帯と祝日の集合を作成
//
// events はメインカレンダー、holidayEvents は祝日カレンダーのイベント。
// 時刻指定のイベントは両方とも判定対象になり、祝日集合は holidayEvents の
// 終日イベントのみから作られる。manualHolidays は終日の予定として追加する。
func BuildBusyIntervals(
	events, holidayEvents []domain.Event,
	criteria domain.BusyCriteria,
	manualHolidays []civil.Date,
	loc *time.Location,
) ([]domain.TimeInterval, HolidaySet) {
	holidays := NewHolidaySet()
	for _, event := range holidayEvents {
		if event.IsAllDay {
			holidays[civil.DateOf(event.StartTime.In(loc))] = struct{}{}
		}
	}

	busy := make([]domain.TimeInterval, 0, len(events)+len(manualHolidays))
	for _, list := range [][]domain.Event{events, holidayEvents} {
		for _, event := range list {
			if event.IsAllDay || !IsBusy(event, criteria) {
				continue
			}
			busy = append(busy, domain.TimeInterval{
				Start: event.StartTime.In(loc),
				End:   event.EndTime.In(loc),
			})
		}
	}

	for _, d := range manualHolidays {
		busy = append(busy, wholeDay(d, loc))
	}

	sortIntervals(busy)
	return busy, holidays
}

// wholeDay 指定日の 00:00 から 23:59:59.999999999 まで
func wholeDay(d civil.Date, loc *time.Location) domain.TimeInterval {
	start := d.In(loc)
	end := time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 999999999, loc)
	return domain.TimeInterval{Start: start, End: end}
}

// sortIntervals 開始時刻、同時刻なら終了時刻の昇順に並べ替える
func sortIntervals(intervals []domain.TimeInterval) {
	slices.SortStableFunc(intervals, func(a, b domain.TimeInterval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
}
