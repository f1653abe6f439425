package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/perps/ledger"
)

func TestFetchKlines(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/kline", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "linear", q.Get("category"))
		assert.Equal(t, "ETHUSDT", q.Get("symbol"))
		assert.Equal(t, "60", q.Get("interval"))
		assert.Equal(t, "3", q.Get("limit"))

		// Newest first, as the venue returns them.
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"list":[
			["3000","102","103","101","102.5","30"],
			["2000","101","102","100","102.0","20"],
			["1000","100","101","99","101.0","10"]
		]}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", "60")
	candles, err := c.FetchKlines(context.Background(), "ETHUSDT", 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	// Oldest first after the flip, and only the newest is still forming.
	assert.Equal(t, int64(1000), candles[0].OpenTime)
	assert.Equal(t, int64(3000), candles[2].OpenTime)
	assert.InDelta(t, 101.0, candles[0].Close, 1e-9)
	assert.InDelta(t, 102.5, candles[2].Close, 1e-9)
	assert.True(t, candles[0].Confirmed)
	assert.True(t, candles[1].Confirmed)
	assert.False(t, candles[2].Confirmed)
}

func TestFetchKlines_RetCodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"retCode":10001,"retMsg":"params error","result":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", "60")
	_, err := c.FetchKlines(context.Background(), "ETHUSDT", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10001")
	assert.Contains(t, err.Error(), "params error")
}

func TestFetchKlines_ShortRow(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"list":[["1000","100"]]}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", "60")
	_, err := c.FetchKlines(context.Background(), "ETHUSDT", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "short row")
}

func TestPlaceEntry_SignedRequest(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/order/create", r.URL.Path)
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		// Recompute the signature over the exact payload bytes.
		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte(r.Header.Get("X-BAPI-TIMESTAMP") + "key" + "5000" + string(raw)))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-BAPI-SIGN"))

		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret", "60")
	c.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	err := c.PlaceEntry(context.Background(), "ETHUSDT", ledger.Long, 0.4, 2425.0, 2650.0)
	require.NoError(t, err)

	assert.Equal(t, "key", gotHeaders.Get("X-BAPI-API-KEY"))
	assert.Equal(t, "5000", gotHeaders.Get("X-BAPI-RECV-WINDOW"))
	assert.NotEmpty(t, gotHeaders.Get("X-BAPI-TIMESTAMP"))

	assert.Equal(t, "linear", gotBody["category"])
	assert.Equal(t, "ETHUSDT", gotBody["symbol"])
	assert.Equal(t, "Buy", gotBody["side"])
	assert.Equal(t, "Market", gotBody["orderType"])
	assert.Equal(t, "0.400000", gotBody["qty"])
	assert.Equal(t, "2425.00", gotBody["stopLoss"])
	assert.Equal(t, "2650.00", gotBody["takeProfit"])
}

func TestPlaceExit_ReduceOnlyOppositeSide(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret", "60")
	require.NoError(t, c.PlaceExit(context.Background(), "SOLUSDT", ledger.Short, 8.0))

	assert.Equal(t, "Buy", gotBody["side"]) // closing a short buys back
	assert.Equal(t, true, gotBody["reduceOnly"])
	assert.Equal(t, "8.000000", gotBody["qty"])
}

func TestSetLeverage_AlreadySetTolerated(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/position/set-leverage", r.URL.Path)
		io.WriteString(w, `{"retCode":110043,"retMsg":"leverage not modified","result":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret", "60")
	assert.NoError(t, c.SetLeverage(context.Background(), "ETHUSDT", 5))
}

func TestSetLeverage_OtherErrorsSurface(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"retCode":10002,"retMsg":"invalid leverage","result":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "secret", "60")
	err := c.SetLeverage(context.Background(), "ETHUSDT", 500)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid leverage")
}

func TestPost_RequiresCredentials(t *testing.T) {
	t.Parallel()

	c := NewClient("http://localhost:1", "", "", "60")
	err := c.PlaceEntry(context.Background(), "ETHUSDT", ledger.Long, 1, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials not configured")
}

func TestDo_HTTPStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", "60")
	_, err := c.FetchKlines(context.Background(), "ETHUSDT", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
