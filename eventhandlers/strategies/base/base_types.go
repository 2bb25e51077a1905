package base

import "errors"

var (
	// ErrStrategyNotFound used when the configured strategy does not exist
	ErrStrategyNotFound = errors.New("not found. Please ensure the strategy type is spelled properly in your config")
	// ErrInvalidCustomSettings used when bad strategy parameters are found in the config
	ErrInvalidCustomSettings = errors.New("invalid custom settings in config")
	// ErrCustomSettingsUnsupported used when parameters are given to a strategy which takes none
	ErrCustomSettingsUnsupported = errors.New("custom settings not supported")
)

// Strategy holds the per symbol close history most strategies need. It
// keeps at most historyLimit closes per symbol when the limit is set
type Strategy struct {
	closes       map[string][]float64
	historyLimit int
}
