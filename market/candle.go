// Package market holds the basic market-data types shared by the feed,
// strategies, and backtests.
package market

import "time"

// Candle is one OHLCV bar. OpenTime is the exchange epoch in milliseconds for
// the start of the interval. A candle is mutable until Confirmed is set; after
// that the bar is final and must not change.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Confirmed bool    `json:"confirmed"`
}

// Time returns the candle open time as a time.Time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}
