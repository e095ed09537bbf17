package gateway

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

const (
	consoleSlotLayout = "3:04pm"
	ansiReset         = "\033[0m"
)

// ConsolePresenter 空き時間などを端末向けのテキストで出力する
type ConsolePresenter struct {
	out io.Writer
}

// NewConsolePresenter 出力先を指定してPresenterを作成
func NewConsolePresenter(out io.Writer) *ConsolePresenter {
	return &ConsolePresenter{out: out}
}

// SendFreeSlots 日ごとの見出しと空き時間を出力
//
//	Monday, 6/3:
//	9:00am - 12:00pm
func (p *ConsolePresenter) SendFreeSlots(_ context.Context, schedule domain.Schedule) error {
	var b strings.Builder
	for _, day := range schedule.Days {
		fmt.Fprintf(&b, "%s:\n", day.Label)
		for _, slot := range day.Slots {
			fmt.Fprintf(&b, "%s - %s\n", slot.Start.Format(consoleSlotLayout), slot.End.Format(consoleSlotLayout))
		}
		b.WriteString("\n")
	}
	return p.write(b.String())
}

// RenderSettings 接続後に判定条件を出力
func (p *ConsolePresenter) RenderSettings(minDuration time.Duration, criteria domain.BusyCriteria) error {
	var b strings.Builder
	b.WriteString("Successfully connected to Google Calendar API.\n")
	fmt.Fprintf(&b, "Minimum meeting duration: %d minutes\n", int(minDuration.Minutes()))
	b.WriteString("Busy criteria:\n")
	fmt.Fprintf(&b, "  - Consider attendees: %t\n", criteria.ConsiderAttendees)
	fmt.Fprintf(&b, "  - Consider out of office: %t\n", criteria.ConsiderOutOfOffice)
	if criteria.ConsiderColorID != nil {
		fmt.Fprintf(&b, "  - Consider color ID: %s\n", *criteria.ConsiderColorID)
	} else {
		b.WriteString("  - Color criteria: disabled\n")
	}
	b.WriteString("\n")
	return p.write(b.String())
}

// RenderColors カラーパレットを色見本付きで出力
func (p *ConsolePresenter) RenderColors(colors []domain.EventColor) error {
	var b strings.Builder
	b.WriteString("Available Event Colors:\n")
	for _, color := range colors {
		fmt.Fprintf(&b, "  %s  %s ID: %s, Hex: %s\n", backgroundEscape(color.Background), ansiReset, color.ID, color.Background)
	}
	return p.write(b.String())
}

func (p *ConsolePresenter) write(s string) error {
	if _, err := io.WriteString(p.out, s); err != nil {
		return fmt.Errorf("出力に失敗しました: %w", err)
	}
	return nil
}

// backgroundEscape "#rrggbb" を24bitカラーの背景色エスケープシーケンスに変換
//
// 解析できない場合は空文字を返す。
func backgroundEscape(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return ""
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\033[48;2;%d;%d;%dm", rgb>>16&0xff, rgb>>8&0xff, rgb&0xff)
}
