package discord

import (
	"time"

	"github.com/assist-by/equilibria/internal/notification"
)

func single(e *Embed) WebhookMessage {
	return WebhookMessage{Embeds: []Embed{*e}}
}

// SendCycleSummary는 사이클 요약을 정보 채널로 전송합니다
func (c *Client) SendCycleSummary(s notification.CycleSummary) error {
	return c.sendToWebhook(c.infoWebhook, single(summaryEmbed(s, time.Now())))
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	return c.sendToWebhook(c.errorWebhook, single(errorEmbed(err, time.Now())))
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	return c.sendToWebhook(c.infoWebhook, single(infoEmbed(message, time.Now())))
}

// SendTradeInfo는 스왑 실행 정보를 거래 채널로 전송합니다
func (c *Client) SendTradeInfo(info notification.TradeInfo) error {
	return c.sendToWebhook(c.tradeWebhook, single(tradeEmbed(info, time.Now())))
}
