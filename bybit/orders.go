package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rustyeddy/perps/ledger"
)

// retCode returned when the requested leverage is already set.
const codeLeverageNotModified = 110043

// PlaceEntry submits a market order with attached stop-loss and take-profit
// triggers, so the venue closes the position even if we are offline when a
// level is hit.
func (c *Client) PlaceEntry(ctx context.Context, symbol string, side ledger.Side, qty, stopLoss, takeProfit float64) error {
	body := map[string]any{
		"category":   category,
		"symbol":     symbol,
		"side":       orderSide(side),
		"orderType":  "Market",
		"qty":        formatQty(qty),
		"stopLoss":   formatPrice(stopLoss),
		"takeProfit": formatPrice(takeProfit),
	}
	if err := c.post(ctx, "/v5/order/create", body, nil); err != nil {
		return fmt.Errorf("place entry %s %s: %w", symbol, side, err)
	}
	return nil
}

// PlaceExit submits a reduce-only market order closing the position.
func (c *Client) PlaceExit(ctx context.Context, symbol string, side ledger.Side, qty float64) error {
	closeSide := "Sell"
	if side == ledger.Short {
		closeSide = "Buy"
	}
	body := map[string]any{
		"category":   category,
		"symbol":     symbol,
		"side":       closeSide,
		"orderType":  "Market",
		"qty":        formatQty(qty),
		"reduceOnly": true,
	}
	if err := c.post(ctx, "/v5/order/create", body, nil); err != nil {
		return fmt.Errorf("place exit %s: %w", symbol, err)
	}
	return nil
}

// SetLeverage sets buy and sell leverage for the symbol. An already-set
// leverage is not an error.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	lev := strconv.FormatFloat(leverage, 'f', -1, 64)
	body := map[string]any{
		"category":     category,
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}
	err := c.post(ctx, "/v5/position/set-leverage", body, nil)
	if err != nil && strings.Contains(err.Error(), strconv.Itoa(codeLeverageNotModified)) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("set leverage %s: %w", symbol, err)
	}
	return nil
}

func orderSide(side ledger.Side) string {
	if side == ledger.Short {
		return "Sell"
	}
	return "Buy"
}

func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', 6, 64)
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// post sends a signed POST request. Signature input is
// timestamp + apiKey + recvWindow + body, HMAC-SHA256 with the API secret.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	if c.key == "" || c.secret == "" {
		return fmt.Errorf("%s: api credentials not configured", path)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(timestamp + c.key + recvWindow + string(payload)))
	sign := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BAPI-API-KEY", c.key)
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN", sign)

	return c.do(req, out)
}
