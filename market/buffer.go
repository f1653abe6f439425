package market

// Buffer is a rolling window of candles for a single symbol.
//
// The stream delivers the in-progress candle repeatedly until its interval
// elapses, so an update whose OpenTime matches the newest entry replaces it in
// place; a new OpenTime appends and evicts the oldest entry once the buffer is
// at capacity. Capacity should be at least the longest indicator lookback plus
// some margin.
type Buffer struct {
	capacity int
	candles  []Candle
}

// NewBuffer returns an empty buffer with the given fixed capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		capacity: capacity,
		candles:  make([]Candle, 0, capacity),
	}
}

// Update applies a stream candle: replace-in-place when the open time matches
// the newest entry, append (with eviction) otherwise.
func (b *Buffer) Update(c Candle) {
	n := len(b.candles)
	if n > 0 && b.candles[n-1].OpenTime == c.OpenTime {
		b.candles[n-1] = c
		return
	}
	if n == b.capacity {
		copy(b.candles, b.candles[1:])
		b.candles[n-1] = c
		return
	}
	b.candles = append(b.candles, c)
}

// Len returns the number of candles currently buffered.
func (b *Buffer) Len() int { return len(b.candles) }

// Capacity returns the fixed capacity of the buffer.
func (b *Buffer) Capacity() int { return b.capacity }

// Last returns the newest candle, if any.
func (b *Buffer) Last() (Candle, bool) {
	if len(b.candles) == 0 {
		return Candle{}, false
	}
	return b.candles[len(b.candles)-1], true
}

// Closes returns the close prices oldest-first. The slice is freshly
// allocated; callers may keep it.
func (b *Buffer) Closes() []float64 {
	out := make([]float64, len(b.candles))
	for i, c := range b.candles {
		out[i] = c.Close
	}
	return out
}

// Candles returns a copy of the buffered candles oldest-first.
func (b *Buffer) Candles() []Candle {
	out := make([]Candle, len(b.candles))
	copy(out, b.candles)
	return out
}
