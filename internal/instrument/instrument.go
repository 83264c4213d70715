package instrument

import (
	"fmt"
	"regexp"
	"signalcrawler/config"
	"sort"
	"strings"
)

// Config describes the contract economics of one futures root symbol.
type Config struct {
	Symbol        string  `json:"symbol"`
	TickSize      float64 `json:"tick_size"`
	TickValue     float64 `json:"tick_value"`
	MaxStopPoints float64 `json:"max_stop_points"`
	YahooSymbol   string  `json:"yahoo_symbol"`
}

// PointValue is the currency value of a one point move for one contract.
func (c Config) PointValue() float64 {
	if c.TickSize <= 0 {
		return 0
	}
	return c.TickValue / c.TickSize
}

// Registry is an immutable lookup of instrument configs by root symbol.
type Registry struct {
	configs map[string]Config
}

func NewRegistry(configs ...Config) *Registry {
	r := &Registry{configs: make(map[string]Config, len(configs))}
	for _, c := range configs {
		c.Symbol = Normalize(c.Symbol)
		if c.YahooSymbol == "" {
			c.YahooSymbol = c.Symbol + "=F"
		}
		r.configs[c.Symbol] = c
	}
	return r
}

func NewRegistryFromConfig(cfg map[string]config.InstrumentConfig) *Registry {
	configs := make([]Config, 0, len(cfg))
	for symbol, ic := range cfg {
		configs = append(configs, Config{
			Symbol:        symbol,
			TickSize:      ic.TickSize,
			TickValue:     ic.TickValue,
			MaxStopPoints: ic.MaxStopPoints,
			YahooSymbol:   ic.YahooSymbol,
		})
	}
	return NewRegistry(configs...)
}

// DefaultConfigs are the micro futures the desk trades.
func DefaultConfigs() []Config {
	return []Config{
		{Symbol: "MNQ", TickSize: 0.25, TickValue: 0.50, MaxStopPoints: 15, YahooSymbol: "MNQ=F"},
		{Symbol: "MES", TickSize: 0.25, TickValue: 1.25, MaxStopPoints: 5, YahooSymbol: "MES=F"},
		{Symbol: "MGC", TickSize: 0.10, TickValue: 1.00, MaxStopPoints: 4, YahooSymbol: "MGC=F"},
	}
}

// Get looks up a symbol in any accepted spelling.
func (r *Registry) Get(symbol string) (Config, bool) {
	c, ok := r.configs[Normalize(symbol)]
	return c, ok
}

func (r *Registry) MustGet(symbol string) (Config, error) {
	c, ok := r.Get(symbol)
	if !ok {
		return Config{}, fmt.Errorf("unknown instrument %q", symbol)
	}
	return c, nil
}

func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.configs))
	for s := range r.configs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

var (
	contractSuffix = regexp.MustCompile(`^([A-Z0-9]{1,4}?)[FGHJKMNQUVXZ](\d{4}|\d{2}|\d)$`)
	continuousMark = regexp.MustCompile(`\d!$`)
)

// Normalize reduces exchange-qualified, continuous and dated contract
// spellings to the canonical root symbol: "CME_MINI:MNQZ2025" -> "MNQ",
// "MNQ=F" -> "MNQ", "MNQ1!" -> "MNQ".
func Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(s, "=F")
	s = continuousMark.ReplaceAllString(s, "")
	if m := contractSuffix.FindStringSubmatch(s); m != nil && len(m[1]) >= 2 {
		s = m[1]
	}
	return s
}
