package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification 封装赔率急跌告警上下文。
type Notification struct {
	Date          string
	VenueCode     string
	RaceNo        int
	HorseNo       int
	Pool          string
	Previous      decimal.Decimal
	Current       decimal.Decimal
	DropPct       decimal.Decimal
	ThresholdPct  decimal.Decimal
	ObservedAt    time.Time
	Channels      []string
	AdditionalMsg string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().
		Str("race", fmt.Sprintf("%s/%s/%d", note.Date, note.VenueCode, note.RaceNo)).
		Int("horse_no", note.HorseNo).
		Str("pool", note.Pool).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Odds Drop Alert]\n")
	builder.WriteString(fmt.Sprintf("Race: %s %s R%d\n", note.Date, note.VenueCode, note.RaceNo))
	builder.WriteString(fmt.Sprintf("Horse: #%d (%s)\n", note.HorseNo, note.Pool))
	builder.WriteString(fmt.Sprintf("Odds: %s -> %s\n", note.Previous.StringFixed(2), note.Current.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Drop: %s%% (threshold %s%%)\n", note.DropPct.StringFixed(1), note.ThresholdPct.StringFixed(1)))
	if !note.ObservedAt.IsZero() {
		builder.WriteString(fmt.Sprintf("Observed: %s UTC\n", note.ObservedAt.UTC().Format(time.RFC3339)))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

// DropPercent computes the relative fall from previous to current odds; zero
// when odds lengthened or previous is non-positive.
func DropPercent(previous, current decimal.Decimal) decimal.Decimal {
	if previous.LessThanOrEqual(decimal.Zero) || current.GreaterThanOrEqual(previous) {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return previous.Sub(current).Div(previous).Mul(hundred)
}

var _ Notifier = (*TelegramNotifier)(nil)
