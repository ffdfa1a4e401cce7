package discord

import (
	"fmt"
	"time"

	"github.com/assist-by/equilibria/internal/notification"
)

// WebhookMessage는 Discord 웹훅 메시지를 정의합니다
type WebhookMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed는 Discord 메시지 임베드를 정의합니다
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField는 임베드 필드를 정의합니다
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter는 임베드 푸터를 정의합니다
type EmbedFooter struct {
	Text string `json:"text"`
}

// 임베드 색상 상수
const (
	ColorError = 0xFF0000 // 빨간색
	ColorInfo  = 0x0099FF // 파란색
)

// Discord 임베드 제한
const (
	maxTitle       = 256
	maxDescription = 4096
	maxFieldName   = 256
	maxFieldValue  = 1024
	maxFields      = 25
)

const footer = "Assist by Rebalancer 🤖"

// NewEmbed는 새로운 임베드를 생성합니다
func NewEmbed() *Embed {
	return &Embed{}
}

// SetTitle은 임베드 제목을 설정합니다
func (e *Embed) SetTitle(title string) *Embed {
	e.Title = truncate(title, maxTitle)
	return e
}

// SetDescription은 임베드 설명을 설정합니다
func (e *Embed) SetDescription(desc string) *Embed {
	e.Description = truncate(desc, maxDescription)
	return e
}

// SetColor는 임베드 색상을 설정합니다
func (e *Embed) SetColor(color int) *Embed {
	e.Color = color
	return e
}

// AddField는 필드를 추가합니다. 25개를 넘는 필드는 버립니다
func (e *Embed) AddField(name, value string, inline bool) *Embed {
	if len(e.Fields) >= maxFields {
		return e
	}
	e.Fields = append(e.Fields, EmbedField{
		Name:   truncate(name, maxFieldName),
		Value:  truncate(value, maxFieldValue),
		Inline: inline,
	})
	return e
}

// SetFooter는 임베드 푸터를 설정합니다
func (e *Embed) SetFooter(text string) *Embed {
	e.Footer = &EmbedFooter{Text: text}
	return e
}

// SetTimestamp는 임베드 타임스탬프를 설정합니다
func (e *Embed) SetTimestamp(t time.Time) *Embed {
	e.Timestamp = t.Format(time.RFC3339)
	return e
}

func summaryEmbed(s notification.CycleSummary, now time.Time) *Embed {
	return NewEmbed().
		SetTitle(fmt.Sprintf("리밸런싱 사이클: %s", s.State)).
		SetDescription(fmt.Sprintf("**총 가치**: $%s\n**비중**: %s", s.TotalValue, s.Weights)).
		AddField("추세", s.Trend, true).
		AddField("AI", s.AISignal, true).
		AddField("결과", fmt.Sprintf("실행 %d / 생략 %d / 실패 %d", s.Executed, s.Skipped, s.Failed), false).
		SetColor(notification.GetColorForSummary(s)).
		SetFooter(fmt.Sprintf("%s | %s", footer, s.CycleID)).
		SetTimestamp(now)
}

func tradeEmbed(info notification.TradeInfo, now time.Time) *Embed {
	e := NewEmbed().
		SetTitle(fmt.Sprintf("스왑 실행: %s", info.Token)).
		SetDescription(fmt.Sprintf("**방향**: %s\n**수량**: %s %s → %s", info.Direction, info.AmountIn, info.TokenIn, info.TokenOut)).
		AddField("경로", info.Route, true).
		SetColor(notification.GetColorForDirection(info.Direction)).
		SetFooter(footer).
		SetTimestamp(now)
	if info.TxHash != "" {
		e.AddField("tx", fmt.Sprintf("`%s`", info.TxHash), false)
	}
	if info.Partial {
		e.AddField("⚠️", "잔고 부족으로 부분 실행", false)
	}
	return e
}

func errorEmbed(err error, now time.Time) *Embed {
	return NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(ColorError).
		SetFooter(footer).
		SetTimestamp(now)
}

func infoEmbed(message string, now time.Time) *Embed {
	return NewEmbed().
		SetDescription(message).
		SetColor(ColorInfo).
		SetFooter(footer).
		SetTimestamp(now)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
