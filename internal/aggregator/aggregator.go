package aggregator

import (
	"errors"
	"fmt"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"sort"
	"sync"
)

var (
	ErrInvalidCandle        = errors.New("invalid candle")
	ErrUnsupportedTimeframe = errors.New("unsupported timeframe")
	ErrOutOfOrder           = errors.New("candle out of order")
	ErrDuplicateCandle      = errors.New("duplicate candle")
)

const (
	Capacity1m  = 300
	Capacity5m  = 100
	Capacity15m = 60
)

type Aggregator interface {
	Ingest(instrumentSymbol string, timeframe dto.Timeframe, candle dto.Candle) error
	Candles(instrumentSymbol string, timeframe dto.Timeframe) []dto.Candle
	Latest(instrumentSymbol string, timeframe dto.Timeframe) (dto.Candle, bool)
	Instruments() []string
}

// series holds every timeframe of one instrument behind its own lock.
type series struct {
	mu       sync.Mutex
	buffers  map[dto.Timeframe]*ringBuffer
	periods  map[dto.Timeframe]int
	total    int
	lastTime int64
}

func newSeries() *series {
	return &series{
		buffers: map[dto.Timeframe]*ringBuffer{
			dto.Timeframe1m:  newRingBuffer(Capacity1m),
			dto.Timeframe5m:  newRingBuffer(Capacity5m),
			dto.Timeframe15m: newRingBuffer(Capacity15m),
		},
		periods: map[dto.Timeframe]int{},
	}
}

type aggregator struct {
	mu     sync.RWMutex
	series map[string]*series
}

func NewAggregator() Aggregator {
	return &aggregator{series: make(map[string]*series)}
}

func (a *aggregator) get(symbol string, create bool) *series {
	a.mu.RLock()
	s, ok := a.series[symbol]
	a.mu.RUnlock()
	if ok || !create {
		return s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok = a.series[symbol]; ok {
		return s
	}
	s = newSeries()
	a.series[symbol] = s
	return s
}

// Ingest appends a 1m candle and refreshes the derived timeframes.
// Invalid candles are rejected before any state changes. A redelivery of the
// newest bar returns ErrDuplicateCandle and is otherwise ignored.
func (a *aggregator) Ingest(instrumentSymbol string, timeframe dto.Timeframe, candle dto.Candle) error {
	if timeframe == "" {
		timeframe = dto.Timeframe1m
	}
	if timeframe != dto.Timeframe1m {
		return fmt.Errorf("%w: %s", ErrUnsupportedTimeframe, timeframe)
	}
	if err := candle.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCandle, err)
	}

	s := a.get(instrument.Normalize(instrumentSymbol), true)
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := candle.Timestamp.UnixNano()
	if s.lastTime != 0 && ts == s.lastTime {
		return fmt.Errorf("%w: %s", ErrDuplicateCandle, candle.Timestamp)
	}
	if s.lastTime != 0 && ts < s.lastTime {
		return fmt.Errorf("%w: %s", ErrOutOfOrder, candle.Timestamp)
	}
	s.lastTime = ts
	s.total++

	s.buffers[dto.Timeframe1m].Push(candle)
	source := s.buffers[dto.Timeframe1m].Slice()
	s.rebuild(dto.Timeframe5m, source)
	s.rebuild(dto.Timeframe15m, source)
	return nil
}

// rebuild regroups the 1m history into complete chunks of the timeframe's
// period. Chunks stay aligned to the ingest count so a full 1m buffer still
// rolls forward. It is a no-op while no new chunk has completed.
func (s *series) rebuild(tf dto.Timeframe, source []dto.Candle) {
	period := tf.Period()
	complete := s.total / period
	if complete == 0 || complete == s.periods[tf] {
		return
	}
	s.periods[tf] = complete

	evicted := s.total - len(source)
	start := (period - evicted%period) % period

	buf := s.buffers[tf]
	buf.Reset()
	for i := start; i+period <= len(source); i += period {
		buf.Push(Merge(source[i : i+period]))
	}
}

// Merge folds consecutive candles into one bar stamped with the first
// candle's time.
func Merge(chunk []dto.Candle) dto.Candle {
	if len(chunk) == 0 {
		return dto.Candle{}
	}
	out := dto.Candle{
		Open:      chunk[0].Open,
		High:      chunk[0].High,
		Low:       chunk[0].Low,
		Close:     chunk[len(chunk)-1].Close,
		Timestamp: chunk[0].Timestamp,
	}
	for _, c := range chunk {
		if c.High > out.High {
			out.High = c.High
		}
		if c.Low < out.Low {
			out.Low = c.Low
		}
		out.Volume += c.Volume
	}
	return out
}

func (a *aggregator) Candles(instrumentSymbol string, timeframe dto.Timeframe) []dto.Candle {
	s := a.get(instrument.Normalize(instrumentSymbol), false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[timeframe]
	if !ok {
		return nil
	}
	return buf.Slice()
}

func (a *aggregator) Latest(instrumentSymbol string, timeframe dto.Timeframe) (dto.Candle, bool) {
	s := a.get(instrument.Normalize(instrumentSymbol), false)
	if s == nil {
		return dto.Candle{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[timeframe]
	if !ok {
		return dto.Candle{}, false
	}
	return buf.Last()
}

func (a *aggregator) Instruments() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.series))
	for symbol := range a.series {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}
