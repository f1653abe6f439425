// Package bybit is a minimal v5 REST client: public kline history for buffer
// warm-up and authenticated order endpoints for live mode.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/perps/market"
)

const (
	// MainnetURL is the production REST endpoint.
	MainnetURL = "https://api.bybit.com"
	// TestnetURL is the paper/testnet REST endpoint.
	TestnetURL = "https://api-testnet.bybit.com"

	category   = "linear"
	recvWindow = "5000"
)

// Client talks to the v5 REST API. Key and secret may be empty when only
// public endpoints are used.
type Client struct {
	baseURL    string
	key        string
	secret     string
	interval   string // kline interval in minutes
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL, key, secret, interval string) *Client {
	if baseURL == "" {
		baseURL = MainnetURL
	}
	if interval == "" {
		interval = "60"
	}
	return &Client{
		baseURL:  baseURL,
		key:      key,
		secret:   secret,
		interval: interval,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// envelope is the common v5 response wrapper.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type klineResult struct {
	List [][]string `json:"list"`
}

// FetchKlines returns up to limit candles for the symbol, oldest first. The
// newest candle is still forming and is returned unconfirmed.
func (c *Client) FetchKlines(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)
	params.Set("interval", c.interval)
	params.Set("limit", strconv.Itoa(limit))

	apiURL := fmt.Sprintf("%s/v5/market/kline?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var result klineResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("fetch klines %s: %w", symbol, err)
	}

	// The API returns newest first; flip to oldest first.
	candles := make([]market.Candle, 0, len(result.List))
	for i := len(result.List) - 1; i >= 0; i-- {
		row := result.List[i]
		if len(row) < 6 {
			return nil, fmt.Errorf("fetch klines %s: short row (%d fields)", symbol, len(row))
		}
		candle, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("fetch klines %s: %w", symbol, err)
		}
		candle.Confirmed = i != 0
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseRow(row []string) (market.Candle, error) {
	start, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("start %q: %w", row[0], err)
	}
	c := market.Candle{OpenTime: start}
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&c.Open, row[1]},
		{&c.High, row[2]},
		{&c.Low, row[3]},
		{&c.Close, row[4]},
		{&c.Volume, row[5]},
	} {
		if *f.dst, err = strconv.ParseFloat(f.src, 64); err != nil {
			return market.Candle{}, fmt.Errorf("field %q: %w", f.src, err)
		}
	}
	return c, nil
}

// do executes the request, checks both HTTP status and the retCode envelope,
// and decodes Result into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.RetCode != 0 {
		return fmt.Errorf("API error %d: %s", env.RetCode, env.RetMsg)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
