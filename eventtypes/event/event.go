package event

import (
	"fmt"
	"strings"
	"time"
)

// GetOffset returns the offset of the step the event belongs to
func (b *Base) GetOffset() int64 {
	return b.Offset
}

// SetOffset sets the offset
func (b *Base) SetOffset(o int64) {
	b.Offset = o
}

// GetTime returns the time
func (b *Base) GetTime() time.Time {
	return b.Time
}

// GetSymbol returns the symbol
func (b *Base) GetSymbol() string {
	return b.Symbol
}

// GetReason returns the event's reasons joined together
func (b *Base) GetReason() string {
	return strings.Join(b.Reasons, ". ")
}

// GetReasons returns each reason for the event
func (b *Base) GetReasons() []string {
	return b.Reasons
}

// AppendReason adds reasoning for a decision being made
func (b *Base) AppendReason(y string) {
	b.Reasons = append(b.Reasons, y)
}

// AppendReasonf adds a formatted reason for a decision being made
func (b *Base) AppendReasonf(format string, v ...any) {
	b.AppendReason(fmt.Sprintf(format, v...))
}

// CloneBase returns a copy of the base which does not share reasons
func (b *Base) CloneBase() Base {
	c := *b
	if b.Reasons != nil {
		c.Reasons = make([]string, len(b.Reasons))
		copy(c.Reasons, b.Reasons)
	}
	return c
}
