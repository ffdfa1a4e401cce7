package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance_connector "github.com/binance/binance-connector-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
)

const defaultBaseURL = "https://api.binance.com"

// spotAPI는 Client가 사용하는 바이낸스 현물 시세 API입니다
type spotAPI interface {
	TickerPrice(ctx context.Context, symbol string) (string, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]*binance_connector.KlinesResponse, error)
}

// connectorAPI는 binance-connector-go 클라이언트를 spotAPI로 감쌉니다
type connectorAPI struct {
	client *binance_connector.Client
}

func (a *connectorAPI) TickerPrice(ctx context.Context, symbol string) (string, error) {
	res, err := a.client.NewTickerPriceService().Symbol(symbol).Do(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range res {
		if r != nil && r.Symbol == symbol {
			return r.Price, nil
		}
	}
	return "", fmt.Errorf("%s 시세 응답이 없습니다", symbol)
}

func (a *connectorAPI) Klines(ctx context.Context, symbol, interval string, limit int) ([]*binance_connector.KlinesResponse, error) {
	return a.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
}

// Client는 바이낸스 현물 시세 클라이언트입니다
type Client struct {
	api spotAPI
	log zerolog.Logger
}

// NewClient는 새로운 시세 클라이언트를 생성합니다. 시세 조회에는 키가 필요 없습니다
func NewClient(apiKey, secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return newClient(&connectorAPI{client: binance_connector.NewClient(apiKey, secretKey, baseURL)})
}

func newClient(api spotAPI) *Client {
	return &Client{api: api, log: logger.For("market")}
}

// Price는 심볼의 현재가를 조회합니다
func (c *Client) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	raw, err := c.api.TickerPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s 시세 조회 실패: %w", symbol, err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s 시세 파싱 실패: %w", symbol, err)
	}
	return price, nil
}

// Candles는 캔들 데이터를 조회합니다
func (c *Client) Candles(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	raw, err := c.api.Klines(ctx, symbol, string(interval), limit)
	if err != nil {
		return nil, fmt.Errorf("%s 캔들 조회 실패: %w", symbol, err)
	}

	candles := make(domain.CandleList, 0, len(raw))
	for _, k := range raw {
		if k == nil {
			continue
		}
		candle := domain.Candle{
			OpenTime:  time.UnixMilli(int64(k.OpenTime)),
			CloseTime: time.UnixMilli(int64(k.CloseTime)),
			Symbol:    symbol,
			Interval:  interval,
		}
		// 숫자 문자열을 float64로 변환
		if candle.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
			return nil, fmt.Errorf("캔들 데이터 파싱 실패: %w", err)
		}
		if candle.High, err = strconv.ParseFloat(k.High, 64); err != nil {
			return nil, fmt.Errorf("캔들 데이터 파싱 실패: %w", err)
		}
		if candle.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
			return nil, fmt.Errorf("캔들 데이터 파싱 실패: %w", err)
		}
		if candle.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
			return nil, fmt.Errorf("캔들 데이터 파싱 실패: %w", err)
		}
		if candle.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
			return nil, fmt.Errorf("캔들 데이터 파싱 실패: %w", err)
		}
		candles = append(candles, candle)
	}

	c.log.Debug().Str("symbol", symbol).Str("interval", string(interval)).Int("count", len(candles)).Msg("캔들 조회")
	return candles, nil
}
