package common

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SideFromString converts a config or script supplied string into a Side
func SideFromString(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return Buy, nil
	case "SELL", "SHORT":
		return Sell, nil
	case "", "NONE", "HOLD", "DO NOTHING":
		return DoNothing, nil
	default:
		return "", fmt.Errorf("%w '%v'", errUnrecognisedSide, s)
	}
}

// OrderTypeFromString converts a config or script supplied string into an OrderType
func OrderTypeFromString(s string) (OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "MARKET":
		return Market, nil
	case "LIMIT":
		return Limit, nil
	case "STOP":
		return Stop, nil
	case "STOP_LIMIT", "STOP-LIMIT", "STOPLIMIT":
		return StopLimit, nil
	default:
		return "", fmt.Errorf("%w '%v'", errUnrecognisedOrderType, s)
	}
}

// IsStop returns whether the order type waits for a stop price to trade first
func (o OrderType) IsStop() bool {
	return o == Stop || o == StopLimit
}

// IsValid returns whether the order type is supported
func (o OrderType) IsValid() bool {
	switch o {
	case Market, Limit, Stop, StopLimit:
		return true
	}
	return false
}

// IsValid returns whether the side can be traded
func (s Side) IsValid() bool {
	return s == Buy || s == Sell
}

// Sign returns 1 for buys, -1 for sells and 0 otherwise
func (s Side) Sign() decimal.Decimal {
	switch s {
	case Buy:
		return decimal.NewFromInt(1)
	case Sell:
		return decimal.NewFromInt(-1)
	}
	return decimal.Zero
}

// CouldNot returns the failure side for s, used when an order cannot be placed
func (s Side) CouldNot() Side {
	switch s {
	case Buy:
		return CouldNotBuy
	case Sell:
		return CouldNotSell
	}
	return DoNothing
}

// FitStringToLimit ensures a string is of the length of the limit
// either by truncating the string with ellipses or padding with the spacer
func FitStringToLimit(str, spacer string, limit int, upper bool) string {
	if limit < 0 {
		return str
	}
	if limit == 0 {
		return ""
	}
	limResp := limit - len(str)
	if upper {
		str = strings.ToUpper(str)
	}
	if limResp < 0 {
		if limit-3 > 0 {
			return str[0:limit-3] + "..."
		}
		return str[0:limit]
	}
	spacerLen := len(spacer)
	for i := 0; i < limResp; i++ {
		str += spacer
		for j := 0; j < spacerLen; j++ {
			if j > 0 {
				// prevent clever people from going beyond
				// the limit by having a spacer longer than 1
				i++
			}
		}
	}
	return str[0:limit]
}
