package availability

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

var jst = time.FixedZone("JST", 9*60*60)

// at 2024-01-15 の指定時刻（JST）
func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 15, hour, minute, 0, 0, jst)
}

func interval(startHour, startMinute, endHour, endMinute int) domain.TimeInterval {
	return domain.TimeInterval{Start: at(startHour, startMinute), End: at(endHour, endMinute)}
}

// overlaps 2つの区間が重なっているか（端点の接触は重なりとしない）
func overlaps(a, b domain.TimeInterval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

var testDay = civil.Date{Year: 2024, Month: time.January, Day: 15}

// --- FreeSlots テスト ---

func TestFreeSlots_LunchOnly(t *testing.T) {
	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), nil, 30*time.Minute, jst)

	assert.Equal(t, []domain.TimeInterval{
		interval(9, 0, 12, 0),
		interval(13, 0, 17, 0),
	}, slots)
}

func TestFreeSlots_ZeroMinDurationSkipsEmptyGaps(t *testing.T) {
	// 連続した予定の間や昼休憩との境界に長さ0の空きを作らない
	busy := []domain.TimeInterval{
		interval(9, 0, 10, 0),
		interval(10, 0, 11, 0),
		interval(11, 30, 12, 0),
	}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 0, jst)

	assert.Equal(t, []domain.TimeInterval{
		interval(11, 0, 11, 30),
		interval(13, 0, 17, 0),
	}, slots)
}

func TestFreeSlots_ShortMeetingSplitsMorning(t *testing.T) {
	busy := []domain.TimeInterval{interval(10, 0, 10, 15)}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Equal(t, []domain.TimeInterval{
		interval(9, 0, 10, 0),
		interval(10, 15, 12, 0),
		interval(13, 0, 17, 0),
	}, slots)
}

func TestFreeSlots_GapShorterThanMinimumIsDropped(t *testing.T) {
	busy := []domain.TimeInterval{
		interval(9, 20, 10, 0),
		interval(16, 45, 17, 0),
	}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Equal(t, []domain.TimeInterval{
		interval(10, 0, 12, 0),
		interval(13, 0, 16, 45),
	}, slots)
}

func TestFreeSlots_GapEqualToMinimumIsKept(t *testing.T) {
	busy := []domain.TimeInterval{interval(9, 30, 12, 0)}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	require.Len(t, slots, 2)
	assert.Equal(t, interval(9, 0, 9, 30), slots[0])
}

func TestFreeSlots_OverlappingMeetingsAreAbsorbed(t *testing.T) {
	busy := []domain.TimeInterval{
		interval(14, 0, 16, 0),
		interval(14, 30, 15, 0), // 前の予定に内包される
		interval(15, 30, 16, 30),
	}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Equal(t, []domain.TimeInterval{
		interval(9, 0, 12, 0),
		interval(13, 0, 14, 0),
		interval(16, 30, 17, 0),
	}, slots)
}

func TestFreeSlots_UnsortedInput(t *testing.T) {
	busy := []domain.TimeInterval{
		interval(15, 0, 16, 0),
		interval(10, 0, 11, 0),
	}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Equal(t, []domain.TimeInterval{
		interval(9, 0, 10, 0),
		interval(11, 0, 12, 0),
		interval(13, 0, 15, 0),
		interval(16, 0, 17, 0),
	}, slots)
}

func TestFreeSlots_ObstructionsOutsideWorkingHours(t *testing.T) {
	busy := []domain.TimeInterval{
		interval(7, 0, 8, 0),
		interval(18, 0, 19, 0),
	}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Equal(t, []domain.TimeInterval{
		interval(9, 0, 12, 0),
		interval(13, 0, 17, 0),
	}, slots)
}

func TestFreeSlots_MeetingStraddlingWorkStart(t *testing.T) {
	busy := []domain.TimeInterval{interval(8, 30, 9, 45)}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Equal(t, interval(9, 45, 12, 0), slots[0])
}

func TestFreeSlots_LunchAfterWorkingEnd(t *testing.T) {
	// 昼休みが勤務終了より後でも勤務時間外の空き時間は出さない
	slots := FreeSlots(testDay, interval(9, 0, 11, 0), interval(12, 0, 13, 0), nil, 30*time.Minute, jst)

	assert.Equal(t, []domain.TimeInterval{interval(9, 0, 11, 0)}, slots)
}

func TestFreeSlots_InvertedWorkingHours(t *testing.T) {
	slots := FreeSlots(testDay, interval(17, 0, 9, 0), interval(12, 0, 13, 0), nil, 30*time.Minute, jst)
	assert.Empty(t, slots)

	slots = FreeSlots(testDay, interval(9, 0, 9, 0), interval(12, 0, 13, 0), nil, 0, jst)
	assert.Empty(t, slots)
}

func TestFreeSlots_FullyBooked(t *testing.T) {
	busy := []domain.TimeInterval{interval(8, 0, 18, 0)}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Empty(t, slots)
}

func TestFreeSlots_IgnoresOtherDays(t *testing.T) {
	nextDay := func(h int) time.Time { return time.Date(2024, 1, 16, h, 0, 0, 0, jst) }
	busy := []domain.TimeInterval{{Start: nextDay(10), End: nextDay(11)}}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Len(t, slots, 2)
}

func TestFreeSlots_IntervalEndingOnDayIsIncluded(t *testing.T) {
	// 前日から続く予定は終了日で当日に掛かる
	busy := []domain.TimeInterval{{
		Start: time.Date(2024, 1, 14, 22, 0, 0, 0, jst),
		End:   at(10, 0),
	}}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Equal(t, interval(10, 0, 12, 0), slots[0])
}

func TestFreeSlots_MultiDaySpanWithoutEndpointsIsIgnored(t *testing.T) {
	// 両端が当日にない複数日の区間は判定対象外（既知の制約）
	busy := []domain.TimeInterval{{
		Start: time.Date(2024, 1, 14, 9, 0, 0, 0, jst),
		End:   time.Date(2024, 1, 16, 18, 0, 0, 0, jst),
	}}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	assert.Len(t, slots, 2)
}

func TestFreeSlots_NormalizesTimezone(t *testing.T) {
	// UTC で渡された予定も loc の日付で判定する
	busy := []domain.TimeInterval{{
		Start: time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC), // 10:00 JST
		End:   time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC), // 11:00 JST
	}}

	slots := FreeSlots(testDay, interval(9, 0, 17, 0), interval(12, 0, 13, 0), busy, 30*time.Minute, jst)

	require.Len(t, slots, 3)
	assert.True(t, slots[0].End.Equal(at(10, 0)))
	assert.True(t, slots[1].Start.Equal(at(11, 0)))
}

func TestFreeSlots_Properties(t *testing.T) {
	working := interval(9, 0, 18, 0)
	lunch := interval(12, 0, 13, 0)
	busy := []domain.TimeInterval{
		interval(8, 0, 9, 10),
		interval(9, 40, 10, 20),
		interval(10, 0, 10, 50),
		interval(11, 30, 12, 30),
		interval(13, 5, 13, 20),
		interval(14, 0, 14, 25),
		interval(14, 20, 14, 30),
		interval(16, 0, 16, 10),
		interval(17, 50, 19, 0),
	}
	minDuration := 25 * time.Minute

	slots := FreeSlots(testDay, working, lunch, busy, minDuration, jst)
	require.NotEmpty(t, slots)

	obstructions := append([]domain.TimeInterval{lunch}, busy...)
	for i, slot := range slots {
		assert.GreaterOrEqual(t, slot.Duration(), minDuration)
		assert.False(t, slot.Start.Before(working.Start))
		assert.False(t, slot.End.After(working.End))
		assert.True(t, slot.Start.Before(slot.End))
		for _, o := range obstructions {
			assert.False(t, overlaps(slot, o), "slot %v overlaps %v", slot, o)
		}
		if i > 0 {
			assert.False(t, slot.Start.Before(slots[i-1].End))
		}
	}
}
