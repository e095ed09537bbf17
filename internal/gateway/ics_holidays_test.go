package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icsBody(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

var holidayICS = icsBody(
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//test//holidays//JA",
	"BEGIN:VEVENT",
	"UID:20240101_ganjitsu",
	"DTSTART;VALUE=DATE:20240101",
	"DTEND;VALUE=DATE:20240102",
	"SUMMARY:元日",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:20240108_seijin",
	"DTSTART;VALUE=DATE:20240108",
	"DTEND;VALUE=DATE:20240109",
	"SUMMARY:成人の日",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:20240211_kenkoku",
	"DTSTART;VALUE=DATE:20240211",
	"SUMMARY:建国記念の日",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:timed_event",
	"DTSTART:20240109T010000Z",
	"DTEND:20240109T020000Z",
	"SUMMARY:時刻指定あり",
	"END:VEVENT",
	"END:VCALENDAR",
)

func newICSServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "text/calendar")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// --- ICSHolidaySource テスト ---

func TestICSHolidaySource_GetHolidayEvents(t *testing.T) {
	jst := loadJST(t)
	server := newICSServer(t, http.StatusOK, holidayICS)
	source := NewICSHolidaySource(server.URL, jst, nil)

	timeMin := time.Date(2024, 1, 8, 0, 0, 0, 0, jst)
	timeMax := time.Date(2024, 1, 13, 0, 0, 0, 0, jst)

	events, err := source.GetHolidayEvents(context.Background(), timeMin, timeMax)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// 期間内の終日イベントは日付どおりに解釈される
	assert.Equal(t, "成人の日", events[0].Title)
	assert.True(t, events[0].IsAllDay)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, jst), events[0].StartTime)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, jst), events[0].EndTime)

	// 時刻指定ありのイベントはタイムゾーンを合わせて取得
	assert.Equal(t, "時刻指定あり", events[1].Title)
	assert.False(t, events[1].IsAllDay)
	assert.True(t, events[1].StartTime.Equal(time.Date(2024, 1, 9, 10, 0, 0, 0, jst)))
	assert.Equal(t, jst, events[1].StartTime.Location())
}

func TestICSHolidaySource_DTENDなしは1日扱い(t *testing.T) {
	jst := loadJST(t)
	server := newICSServer(t, http.StatusOK, holidayICS)
	source := NewICSHolidaySource(server.URL, jst, nil)

	events, err := source.GetHolidayEvents(context.Background(),
		time.Date(2024, 2, 1, 0, 0, 0, 0, jst),
		time.Date(2024, 3, 1, 0, 0, 0, 0, jst))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "建国記念の日", events[0].Title)
	assert.Equal(t, time.Date(2024, 2, 12, 0, 0, 0, 0, jst), events[0].EndTime)
}

func TestICSHolidaySource_HTTPError(t *testing.T) {
	server := newICSServer(t, http.StatusNotFound, "not found")
	source := NewICSHolidaySource(server.URL, time.UTC, nil)

	_, err := source.GetHolidayEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status: 404")
}

func TestICSHolidaySource_InvalidBody(t *testing.T) {
	server := newICSServer(t, http.StatusOK, icsBody("BEGIN:VCALENDAR", "VERSION:2.0", "BEGIN:VEVENT"))
	source := NewICSHolidaySource(server.URL, time.UTC, nil)

	_, err := source.GetHolidayEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}
