package base

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

// SetHistoryLimit bounds the number of closes kept per symbol. Zero keeps all
func (s *Strategy) SetHistoryLimit(limit int) {
	s.historyLimit = limit
}

// AppendCloses records the close of every bar
func (s *Strategy) AppendCloses(bars []*kline.Kline) {
	if s.closes == nil {
		s.closes = make(map[string][]float64)
	}
	for i := range bars {
		if bars[i] == nil {
			continue
		}
		c := append(s.closes[bars[i].Symbol], bars[i].Close.InexactFloat64())
		if s.historyLimit > 0 && len(c) > s.historyLimit {
			c = c[len(c)-s.historyLimit:]
		}
		s.closes[bars[i].Symbol] = c
	}
}

// Closes returns a copy of the closes recorded for symbol, oldest first
func (s *Strategy) Closes(symbol string) []float64 {
	c := s.closes[symbol]
	resp := make([]float64, len(c))
	copy(resp, c)
	return resp
}

// ResetHistory drops all recorded closes
func (s *Strategy) ResetHistory() {
	s.closes = nil
}

// FloatSetting converts a custom setting value into a float. Config decoders
// hand numbers over as ints, floats or strings
func FloatSetting(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w provided %v value could not be parsed: %v", ErrInvalidCustomSettings, key, v)
}

// PositiveIntSetting converts a custom setting into a whole number above zero
func PositiveIntSetting(key string, v any) (int, error) {
	f, err := FloatSetting(key, v)
	if err != nil {
		return 0, err
	}
	if f <= 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("%w %v must be a whole number above zero, received %v", ErrInvalidCustomSettings, key, v)
	}
	return int(f), nil
}

// StringSetting returns a custom setting that must be a string
func StringSetting(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w provided %v value is not text: %v", ErrInvalidCustomSettings, key, v)
	}
	return s, nil
}

// BoolSetting returns a custom setting that must be a bool
func BoolSetting(key string, v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		p, err := strconv.ParseBool(b)
		if err == nil {
			return p, nil
		}
	}
	return false, fmt.Errorf("%w provided %v value is not a bool: %v", ErrInvalidCustomSettings, key, v)
}
