package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"

	"github.com/k-negishi/google-calendar-free-slots/internal/availability"
	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

var (
	// ErrMissingSetting 必須の設定項目がない
	ErrMissingSetting = errors.New("必須の設定項目がありません")
	// ErrInvalidSetting 設定値の形式が不正
	ErrInvalidSetting = errors.New("設定値が不正です")
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

// ScheduleConfig 空き時間検索の設定ファイル（YAML）
type ScheduleConfig struct {
	MinDuration       *int               `yaml:"min_duration"`
	WorkingHours      *ClockRangeConfig  `yaml:"working_hours"`
	LunchBreak        *ClockRangeConfig  `yaml:"lunch_break"`
	HolidayCalendarID string             `yaml:"holiday_calendar_id"`
	HolidayICSURL     string             `yaml:"holiday_ics_url"`
	Holidays          []string           `yaml:"holidays"`
	BusyCriteria      BusyCriteriaConfig `yaml:"busy_criteria"`
	Timezone          string             `yaml:"timezone"`
}

// ClockRangeConfig "HH:MM" 形式の開始・終了時刻
type ClockRangeConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// BusyCriteriaConfig 予定ありと判定する条件。未指定の項目のみデフォルト値を使う
type BusyCriteriaConfig struct {
	ConsiderAttendees   *bool   `yaml:"consider_attendees"`
	ConsiderOutOfOffice *bool   `yaml:"consider_out_of_office"`
	ConsiderColorID     *string `yaml:"consider_color_id"`
}

// Schedule 検証済みの空き時間検索設定
type Schedule struct {
	Availability      availability.Settings
	Criteria          domain.BusyCriteria
	Holidays          []civil.Date
	HolidayCalendarID string
	HolidayICSURL     string
}

// LoadScheduleConfig ファイルから設定を読み込み検証する
func LoadScheduleConfig(path string) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイル %s を開けませんでした: %w", path, err)
	}
	defer f.Close()

	return ParseScheduleConfig(f)
}

// ParseScheduleConfig YAMLを読み込み検証する
func ParseScheduleConfig(r io.Reader) (*Schedule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var raw ScheduleConfig
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: 設定が空です", ErrMissingSetting)
		}
		return nil, fmt.Errorf("設定のYAML解析に失敗しました: %w", err)
	}

	return raw.Resolve()
}

// Resolve 設定値を検証し、計算に使う型へ変換
func (c ScheduleConfig) Resolve() (*Schedule, error) {
	if c.MinDuration == nil {
		return nil, fmt.Errorf("%w: min_duration", ErrMissingSetting)
	}
	if *c.MinDuration < 0 {
		return nil, fmt.Errorf("%w: min_duration は0以上の整数で指定してください (%d)", ErrInvalidSetting, *c.MinDuration)
	}

	workingHours, err := resolveClockRange("working_hours", c.WorkingHours)
	if err != nil {
		return nil, err
	}
	lunchBreak, err := resolveClockRange("lunch_break", c.LunchBreak)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if c.Timezone != "" {
		loc, err = time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidSetting, c.Timezone, err)
		}
	}

	holidays := make([]civil.Date, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		d, err := ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("%w: holidays %q", ErrInvalidSetting, h)
		}
		holidays = append(holidays, d)
	}

	return &Schedule{
		Availability: availability.Settings{
			MinDuration:  time.Duration(*c.MinDuration) * time.Minute,
			WorkingHours: workingHours,
			LunchBreak:   lunchBreak,
			Location:     loc,
		},
		Criteria:          c.BusyCriteria.resolve(),
		Holidays:          holidays,
		HolidayCalendarID: strings.TrimSpace(c.HolidayCalendarID),
		HolidayICSURL:     strings.TrimSpace(c.HolidayICSURL),
	}, nil
}

// resolve 未指定の項目をデフォルト値で補完
func (b BusyCriteriaConfig) resolve() domain.BusyCriteria {
	criteria := domain.BusyCriteria{
		ConsiderAttendees:   true,
		ConsiderOutOfOffice: true,
	}
	// 空文字の色は未設定として扱う
	if b.ConsiderColorID != nil && strings.TrimSpace(*b.ConsiderColorID) != "" {
		colorID := strings.TrimSpace(*b.ConsiderColorID)
		criteria.ConsiderColorID = &colorID
	}
	if b.ConsiderAttendees != nil {
		criteria.ConsiderAttendees = *b.ConsiderAttendees
	}
	if b.ConsiderOutOfOffice != nil {
		criteria.ConsiderOutOfOffice = *b.ConsiderOutOfOffice
	}
	return criteria
}

func resolveClockRange(key string, r *ClockRangeConfig) (availability.ClockRange, error) {
	if r == nil {
		return availability.ClockRange{}, fmt.Errorf("%w: %s", ErrMissingSetting, key)
	}
	if r.Start == "" {
		return availability.ClockRange{}, fmt.Errorf("%w: %s.start", ErrMissingSetting, key)
	}
	if r.End == "" {
		return availability.ClockRange{}, fmt.Errorf("%w: %s.end", ErrMissingSetting, key)
	}

	start, err := ParseClock(r.Start)
	if err != nil {
		return availability.ClockRange{}, fmt.Errorf("%w: %s.start %q", ErrInvalidSetting, key, r.Start)
	}
	end, err := ParseClock(r.End)
	if err != nil {
		return availability.ClockRange{}, fmt.Errorf("%w: %s.end %q", ErrInvalidSetting, key, r.End)
	}

	return availability.ClockRange{Start: start, End: end}, nil
}

// ParseClock "HH:MM" を時刻に変換（"9:00" のような1桁の時も許容）
func ParseClock(s string) (civil.Time, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return civil.Time{}, err
	}
	return civil.Time{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ParseDate "YYYY-MM-DD" を日付に変換
func ParseDate(s string) (civil.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}
