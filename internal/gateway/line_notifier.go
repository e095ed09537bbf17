package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/k-negishi/google-calendar-free-slots/internal/domain"
)

// lineMaxTextLength テキストメッセージの最大文字数
const lineMaxTextLength = 5000

// LINENotifier LINE Messaging APIを使用したNotifierの実装
type LINENotifier struct {
	channelAccessToken string
	userID             string
	httpClient         *http.Client
	endpoint           string
	clock              func() time.Time
	timezone           *time.Location
}

// lineMessage LINE APIに送信するメッセージ構造体
type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// linePushRequest LINE Push APIのリクエスト構造体
type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINENotifier LINE通知クライアントを作成
func NewLINENotifier(channelAccessToken, userID string, timezone *time.Location) *LINENotifier {
	if timezone == nil {
		timezone = time.Local
	}
	return &LINENotifier{
		channelAccessToken: channelAccessToken,
		userID:             userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: "https://api.line.me/v2/bot/message/push",
		clock:    time.Now,
		timezone: timezone,
	}
}

// SendFreeSlots 空き時間一覧をLINEで通知
func (n *LINENotifier) SendFreeSlots(ctx context.Context, schedule domain.Schedule) error {
	message := n.buildFreeSlotsMessage(schedule)

	return n.sendPushMessage(ctx, message)
}

// buildFreeSlotsMessage 空き時間通知用のメッセージを構築
func (n *LINENotifier) buildFreeSlotsMessage(schedule domain.Schedule) string {
	var messageBuilder strings.Builder

	messageBuilder.WriteString("Google Calendar 空き時間\n")
	messageBuilder.WriteString(fmt.Sprintf("作成: %s\n", n.clock().In(n.timezone).Format("1/2 15:04")))

	if schedule.IsEmpty() {
		messageBuilder.WriteString("\n空き時間はありません\n")
		return truncateMessage(messageBuilder.String())
	}

	for _, day := range schedule.Days {
		date := day.Date.In(time.UTC)
		messageBuilder.WriteString(fmt.Sprintf("\n%s(%s) (%d件):\n",
			date.Format("1/2"), getWeekdayJapanese(date.Weekday()), len(day.Slots)))
		for _, slot := range day.Slots {
			appendSlotToMessage(&messageBuilder, slot)
		}
	}

	return truncateMessage(messageBuilder.String())
}

// appendSlotToMessage 空き時間をメッセージに追加
func appendSlotToMessage(builder *strings.Builder, slot domain.TimeInterval) {
	builder.WriteString(fmt.Sprintf("🔸 %s〜%s (%d分)\n",
		slot.Start.Format("15:04"),
		slot.End.Format("15:04"),
		int(slot.Duration().Minutes())))
}

// truncateMessage LINEのテキストメッセージ上限に収まるよう末尾を切り詰める
func truncateMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= lineMaxTextLength {
		return message
	}
	return string(runes[:lineMaxTextLength-1]) + "…"
}

// sendPushMessage LINE Push APIでメッセージを送信
func (n *LINENotifier) sendPushMessage(ctx context.Context, message string) error {
	// リクエストボディを作成
	pushRequest := linePushRequest{
		To: n.userID,
		Messages: []lineMessage{
			{
				Type: "text",
				Text: message,
			},
		},
	}

	requestBody, err := json.Marshal(pushRequest)
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %v", err)
	}

	// HTTPリクエストを作成
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.endpoint,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %v", err)
	}

	// ヘッダーを設定
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", n.channelAccessToken))

	// APIリクエストを送信
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// レスポンスを確認
	if resp.StatusCode != http.StatusOK {
		// エラーレスポンスの詳細を取得
		var errorResponse lineErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}

		errorDetails := errorResponse.Message
		if len(errorResponse.Details) > 0 {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
		}

		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	return nil
}

// getWeekdayJapanese 曜日を日本語に変換
func getWeekdayJapanese(weekday time.Weekday) string {
	weekdays := map[time.Weekday]string{
		time.Sunday:    "日",
		time.Monday:    "月",
		time.Tuesday:   "火",
		time.Wednesday: "水",
		time.Thursday:  "木",
		time.Friday:    "金",
		time.Saturday:  "土",
	}
	return weekdays[weekday]
}
