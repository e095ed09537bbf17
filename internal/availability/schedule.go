package availability

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

// dayLabelLayout 日ごとの見出し（例: "Monday, 6/3"）
const dayLabelLayout = "Monday, 1/2"

// ClockRange 1日の中の時刻範囲（勤務時間・昼休み）
type ClockRange struct {
	Start civil.Time
	End   civil.Time
}

// On 指定日の時刻範囲を loc の時刻に変換
//
// 夏時間でオフセットが変わるため日ごとに計算する必要がある。
func (r ClockRange) On(day civil.Date, loc *time.Location) domain.TimeInterval {
	return domain.TimeInterval{
		Start: civil.DateTime{Date: day, Time: r.Start}.In(loc),
		End:   civil.DateTime{Date: day, Time: r.End}.In(loc),
	}
}

// Settings 空き時間算出の設定
type Settings struct {
	MinDuration  time.Duration
	WorkingHours ClockRange
	LunchBreak   ClockRange
	Location     *time.Location
}

// BuildSchedule start から end までの各日（両端含む）の空き時間を算出
//
// 祝日は丸ごと除外し、空き時間のない日は結果に含めない。
// end が start より前なら空の結果を返す。
func BuildSchedule(
	start, end civil.Date,
	settings Settings,
	busy []domain.TimeInterval,
	holidays HolidaySet,
) domain.Schedule {
	loc := settings.Location
	if loc == nil {
		loc = time.Local
	}

	var schedule domain.Schedule
	for day := start; !day.After(end); day = day.AddDays(1) {
		if holidays.Contains(day) {
			continue
		}

		working := settings.WorkingHours.On(day, loc)
		lunch := settings.LunchBreak.On(day, loc)

		slots := FreeSlots(day, working, lunch, busy, settings.MinDuration, loc)
		if len(slots) == 0 {
			continue
		}

		schedule.Days = append(schedule.Days, domain.DaySlots{
			Date:  day,
			Label: DayLabel(day, loc),
			Slots: slots,
		})
	}

	return schedule
}

// DayLabel 日付の見出し文字列
func DayLabel(day civil.Date, loc *time.Location) string {
	return day.In(loc).Format(dayLabelLayout)
}

// NextWeekRange now の翌週月曜日から5日後までの範囲
//
// now が月曜日の場合も翌週の月曜日を返す。
func NextWeekRange(now time.Time) (civil.Date, civil.Date) {
	today := civil.DateOf(now)
	offset := (8 - int(now.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	start := today.AddDays(offset)
	return start, start.AddDays(5)
}
