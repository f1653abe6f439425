package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func candleAt(openTime int64, close float64) Candle {
	return Candle{OpenTime: openTime, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestBuffer_AppendAndLen(t *testing.T) {
	t.Parallel()

	b := NewBuffer(5)
	assert.Equal(t, 0, b.Len())

	b.Update(candleAt(1000, 10))
	b.Update(candleAt(2000, 11))
	assert.Equal(t, 2, b.Len())

	last, ok := b.Last()
	assert.True(t, ok)
	assert.Equal(t, int64(2000), last.OpenTime)
}

func TestBuffer_ReplaceInPlace(t *testing.T) {
	t.Parallel()

	b := NewBuffer(5)
	b.Update(candleAt(1000, 10))
	b.Update(candleAt(2000, 11))

	// Same open time: the in-progress candle is updated, not appended.
	b.Update(candleAt(2000, 12.5))

	assert.Equal(t, 2, b.Len())
	last, _ := b.Last()
	assert.Equal(t, 12.5, last.Close)
}

func TestBuffer_EvictsOldest(t *testing.T) {
	t.Parallel()

	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Update(candleAt(int64(i)*1000, float64(i)))
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []float64{2, 3, 4}, b.Closes())
}

func TestBuffer_ClosesIsACopy(t *testing.T) {
	t.Parallel()

	b := NewBuffer(3)
	b.Update(candleAt(1000, 10))

	closes := b.Closes()
	closes[0] = 999

	assert.Equal(t, []float64{10}, b.Closes())
}

func TestBuffer_LastOnEmpty(t *testing.T) {
	t.Parallel()

	_, ok := NewBuffer(3).Last()
	assert.False(t, ok)
}
