package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/perps/market"
)

// frame is the envelope of every message on the public stream. Control
// frames carry op/success, data frames carry topic/data.
type frame struct {
	Topic   string          `json:"topic"`
	Op      string          `json:"op"`
	Success *bool           `json:"success,omitempty"`
	Data    json.RawMessage `json:"data"`
}

type tickerData struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
}

type klineData struct {
	Start   int64  `json:"start"`
	Open    string `json:"open"`
	High    string `json:"high"`
	Low     string `json:"low"`
	Close   string `json:"close"`
	Volume  string `json:"volume"`
	Confirm bool   `json:"confirm"`
}

// topicSymbol extracts the trailing symbol from a topic such as
// "tickers.ETHUSDT" or "kline.60.ETHUSDT".
func topicSymbol(topic string) string {
	i := strings.LastIndex(topic, ".")
	if i < 0 {
		return ""
	}
	return topic[i+1:]
}

func parseTicker(data json.RawMessage) (string, float64, bool, error) {
	var t tickerData
	if err := json.Unmarshal(data, &t); err != nil {
		return "", 0, false, fmt.Errorf("ticker data: %w", err)
	}
	// Delta frames may omit lastPrice entirely.
	if t.LastPrice == "" {
		return "", 0, false, nil
	}
	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return "", 0, false, fmt.Errorf("lastPrice %q: %w", t.LastPrice, err)
	}
	return t.Symbol, price, true, nil
}

func parseKlines(data json.RawMessage) ([]market.Candle, error) {
	var entries []klineData
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("kline data: %w", err)
	}
	candles := make([]market.Candle, 0, len(entries))
	for _, k := range entries {
		c, err := k.candle()
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (k klineData) candle() (market.Candle, error) {
	var c market.Candle
	var err error
	c.OpenTime = k.Start
	c.Confirmed = k.Confirm
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&c.Open, k.Open},
		{&c.High, k.High},
		{&c.Low, k.Low},
		{&c.Close, k.Close},
		{&c.Volume, k.Volume},
	} {
		if *f.dst, err = strconv.ParseFloat(f.src, 64); err != nil {
			return market.Candle{}, fmt.Errorf("kline field %q: %w", f.src, err)
		}
	}
	return c, nil
}
