package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// BusyCriteria イベントを「予定あり」とみなす条件
type BusyCriteria struct {
	ConsiderAttendees   bool
	ConsiderOutOfOffice bool
	// nilの場合は色による判定を行わない
	ConsiderColorID *string
}

// TimeInterval 開始・終了時刻の組
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

// Duration 区間の長さ
func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// DaySlots 1日分の空き時間
type DaySlots struct {
	Date  civil.Date
	Label string
	Slots []TimeInterval
}

// Schedule 日付順に並んだ空き時間一覧
type Schedule struct {
	Days []DaySlots
}

// IsEmpty 空き時間が1件もない場合にtrue
func (s Schedule) IsEmpty() bool {
	return len(s.Days) == 0
}

// SlotCount 全日の空き時間の件数
func (s Schedule) SlotCount() int {
	count := 0
	for _, day := range s.Days {
		count += len(day.Slots)
	}
	return count
}
