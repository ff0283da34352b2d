package models

// Series is a fixed-capacity candle window, oldest first.
type Series struct {
	capacity int
	candles  []Candle
}

// NewSeries creates an empty series; capacity <= 0 means unbounded
func NewSeries(capacity int) *Series {
	return &Series{capacity: capacity}
}

// Append adds candles in chronological order, dropping the oldest past capacity.
// Candles not newer than the last one are ignored.
func (s *Series) Append(cs ...Candle) {
	for _, c := range cs {
		if n := len(s.candles); n > 0 && !c.Timestamp.After(s.candles[n-1].Timestamp) {
			continue
		}
		s.candles = append(s.candles, c)
	}
	if s.capacity > 0 && len(s.candles) > s.capacity {
		s.candles = append([]Candle(nil), s.candles[len(s.candles)-s.capacity:]...)
	}
}

// Reset replaces the contents with cs
func (s *Series) Reset(cs []Candle) {
	s.candles = nil
	s.Append(cs...)
}

func (s *Series) Len() int { return len(s.candles) }

// Candles returns a copy of the window
func (s *Series) Candles() []Candle {
	return append([]Candle(nil), s.candles...)
}

// Last returns the newest candle
func (s *Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

func (s *Series) Closes() []float64 { return s.field(func(c Candle) float64 { return c.Close }) }
func (s *Series) Highs() []float64  { return s.field(func(c Candle) float64 { return c.High }) }
func (s *Series) Lows() []float64   { return s.field(func(c Candle) float64 { return c.Low }) }

func (s *Series) field(get func(Candle) float64) []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = get(c)
	}
	return out
}
