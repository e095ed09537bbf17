// Package availability は予定一覧から空き時間を算出する。
// 入出力を持たない純粋な計算のみを扱う。
package availability

import (
	"strings"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

// outOfOfficeKeywords タイトルに含まれていれば不在とみなすキーワード（小文字）
var outOfOfficeKeywords = []string{"out of office", "ooo", "vacation", "sick", "personal", "away"}

// IsBusy 有効な条件のいずれかに該当すればイベントを「予定あり」と判定
func IsBusy(event domain.Event, criteria domain.BusyCriteria) bool {
	if criteria.ConsiderColorID != nil && event.ColorID != "" && event.ColorID == *criteria.ConsiderColorID {
		return true
	}
	if criteria.ConsiderAttendees && hasOtherAttendees(event) {
		return true
	}
	if criteria.ConsiderOutOfOffice && isOutOfOffice(event) {
		return true
	}
	return false
}

// hasOtherAttendees 主催者以外の参加者がいるか
//
// 参加者数と主催者メールアドレスの2条件は独立に評価する。
// 参加者が1人でも主催者と異なるアドレスなら後者で判定される。
func hasOtherAttendees(event domain.Event) bool {
	if len(event.Attendees) > 1 {
		return true
	}
	for _, attendee := range event.Attendees {
		if attendee.Email != event.OrganizerEmail {
			return true
		}
	}
	return false
}

// isOutOfOffice イベント種別またはタイトルから不在を判定
func isOutOfOffice(event domain.Event) bool {
	if event.EventType == domain.EventTypeOutOfOffice {
		return true
	}
	title := strings.ToLower(event.Title)
	for _, keyword := range outOfOfficeKeywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}
