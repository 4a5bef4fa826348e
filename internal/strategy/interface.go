package strategy

import (
	"fmt"

	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/frame"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool
	Params  map[string]any
}

// Int reads an integer parameter, tolerating the float64 values that
// config decoding produces for YAML/JSON numbers.
func (c Config) Int(key string, def int) int {
	switch v := c.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float reads a float parameter.
func (c Config) Float(key string, def float64) float64 {
	switch v := c.Params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// String reads a string parameter.
func (c Config) String(key string, def string) string {
	if v, ok := c.Params[key].(string); ok {
		return v
	}
	return def
}

// Strategy turns raw bar histories into annotated signal frames. Build
// receives the bars of every available ticker at once so strategies
// spanning multiple legs can align them; single-asset strategies simply
// annotate each ticker independently.
type Strategy interface {
	Name() string
	Description() string
	Init(cfg Config) error
	Build(bars map[string][]core.Bar) (map[string]*frame.Frame, error)
}

// MinBars is implemented by strategies that need a minimum history
// before their signals are meaningful.
type MinBars interface {
	MinBars() int
}

// CheckHistory returns ErrInsufficientData when any ticker's history is
// shorter than the strategy's minimum.
func CheckHistory(s Strategy, bars map[string][]core.Bar) error {
	mb, ok := s.(MinBars)
	if !ok {
		return nil
	}
	for ticker, b := range bars {
		if len(b) < mb.MinBars() {
			return core.WrapError(core.ErrInsufficientData,
				fmt.Errorf("ticker %s: %d bars, need %d", ticker, len(b), mb.MinBars()))
		}
	}
	return nil
}
