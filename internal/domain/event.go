package domain

import "time"

// Event カレンダーイベントのドメインエンティティ
type Event struct {
	ID          string
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	IsAllDay    bool
	Location    string
	Description string

	// 予定判定に使用する属性
	ColorID        string
	EventType      string
	Attendees      []Attendee
	OrganizerEmail string
}

// Attendee イベント参加者
type Attendee struct {
	Email string
}

// EventTypeOutOfOffice Google Calendarの「不在」イベント種別
const EventTypeOutOfOffice = "outOfOffice"

// EventColor イベントカラーパレットの1色
type EventColor struct {
	ID         string
	Background string
	Foreground string
}
