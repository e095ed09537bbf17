package availability

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

// FreeSlots 1日分の空き時間を算出
//
// 昼休みとその日に掛かる予定を開始順に並べ、勤務開始から左から右へ
// 1回走査する。カーソルは予定の終了時刻までしか進まないため、
// 重なった予定は明示的にマージしなくても吸収される。
// 勤務時間外に出る空き時間は勤務終了で切り詰める。
func FreeSlots(
	day civil.Date,
	working, lunch domain.TimeInterval,
	busy []domain.TimeInterval,
	minDuration time.Duration,
	loc *time.Location,
) []domain.TimeInterval {
	if !working.Start.Before(working.End) {
		return nil
	}

	obstructions := make([]domain.TimeInterval, 0, len(busy)+1)
	obstructions = append(obstructions, lunch)
	for _, interval := range busy {
		if touchesDay(interval, day, loc) {
			obstructions = append(obstructions, interval)
		}
	}
	sortIntervals(obstructions)

	var slots []domain.TimeInterval
	cursor := working.Start
	for _, obstruction := range obstructions {
		gapEnd := obstruction.Start
		if gapEnd.After(working.End) {
			gapEnd = working.End
		}
		if cursor.Before(gapEnd) && gapEnd.Sub(cursor) >= minDuration {
			slots = append(slots, domain.TimeInterval{Start: cursor, End: gapEnd})
		}
		if obstruction.End.After(cursor) {
			cursor = obstruction.End
		}
	}

	if cursor.Before(working.End) && working.End.Sub(cursor) >= minDuration {
		slots = append(slots, domain.TimeInterval{Start: cursor, End: working.End})
	}

	return slots
}

// touchesDay 開始日か終了日が指定日と一致するか
//
// 複数日にまたがり、両端とも指定日にない区間は対象外になる。
func touchesDay(interval domain.TimeInterval, day civil.Date, loc *time.Location) bool {
	return civil.DateOf(interval.Start.In(loc)) == day || civil.DateOf(interval.End.In(loc)) == day
}
