package event

import (
	"time"
)

// Base is the underlying design that all events share: the bar time they
// belong to, the symbol and the audit reasons appended along the way
type Base struct {
	Offset  int64     `json:"-"`
	Time    time.Time `json:"timestamp"`
	Symbol  string    `json:"symbol"`
	Reasons []string  `json:"reasons,omitempty"`
}
