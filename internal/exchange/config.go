package exchange

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"
)

// Duration wraps time.Duration so config files can say "12s" or a number of
// seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(val * float64(time.Second)))
	default:
		return fmt.Errorf("duration must be a string or a number of seconds, got %T", v)
	}
	return nil
}

// Band is a [Min, Max] range a randomized delay is drawn from.
type Band struct {
	Min Duration `json:"min"`
	Max Duration `json:"max"`
}

// Draw picks a duration uniformly from the band.
func (b Band) Draw(rng *rand.Rand) time.Duration {
	min, max := b.Min.Std(), b.Max.Std()
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)+1))
}

func (b Band) validate(name string) error {
	if b.Min < 0 {
		return fmt.Errorf("%s: min must not be negative", name)
	}
	if b.Max < b.Min {
		return fmt.Errorf("%s: max must not be below min", name)
	}
	return nil
}

// Config carries every tunable of a session: board geometry, the delay bands
// driving call timing and generation, conversation cadence, and scoring
// constants.
type Config struct {
	// Board geometry.
	PortsX   int `json:"portsX"`
	PortsY   int `json:"portsY"`
	Consoles int `json:"consoles"`

	// Session timing.
	SessionDuration Duration `json:"sessionDuration"`
	TickInterval    Duration `json:"tickInterval"`

	// How long a caller waits for the operator to answer.
	OperatorPatience Band `json:"operatorPatience"`
	// How long a caller waits, once answered, for the destination to be rung.
	ConnectPatience Band `json:"connectPatience"`
	// How long the callee takes to pick up after being rung.
	RingDelay Band `json:"ringDelay"`

	// Call generation pacing. The normal band applies until
	// FastGenerationAfter of session time has elapsed, the fast band after.
	GenerationNormal    Band     `json:"generationNormal"`
	GenerationFast      Band     `json:"generationFast"`
	FastGenerationAfter Duration `json:"fastGenerationAfter"`

	// Conversation playback cadence.
	WordReveal     Duration `json:"wordReveal"`
	UtterancePause Duration `json:"utterancePause"`

	// Scoring.
	MaxAllowedWait    Duration `json:"maxAllowedWait"`
	SuccessCap        float64  `json:"successCap"`
	FailPenalty       float64  `json:"failPenalty"`
	ApprovalThreshold int      `json:"approvalThreshold"`

	// Seed for the session RNG; 0 means derive from the wall clock.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the stock shift parameters.
func DefaultConfig() Config {
	return Config{
		PortsX:              6,
		PortsY:              4,
		Consoles:            3,
		SessionDuration:     Duration(120 * time.Second),
		TickInterval:        Duration(time.Second),
		OperatorPatience:    Band{Min: Duration(8 * time.Second), Max: Duration(14 * time.Second)},
		ConnectPatience:     Band{Min: Duration(10 * time.Second), Max: Duration(16 * time.Second)},
		RingDelay:           Band{Min: Duration(time.Second), Max: Duration(3 * time.Second)},
		GenerationNormal:    Band{Min: Duration(8 * time.Second), Max: Duration(15 * time.Second)},
		GenerationFast:      Band{Min: Duration(3 * time.Second), Max: Duration(7 * time.Second)},
		FastGenerationAfter: Duration(60 * time.Second),
		WordReveal:          Duration(300 * time.Millisecond),
		UtterancePause:      Duration(time.Second),
		MaxAllowedWait:      Duration(30 * time.Second),
		SuccessCap:          10,
		FailPenalty:         2,
		ApprovalThreshold:   20,
	}
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.PortsX < 1 || c.PortsY < 1 {
		return fmt.Errorf("board must have at least one port, got %dx%d", c.PortsX, c.PortsY)
	}
	if c.PortsX > 26 {
		return fmt.Errorf("portsX must not exceed 26 (columns are lettered), got %d", c.PortsX)
	}
	if c.Consoles < 1 {
		return fmt.Errorf("at least one console is required, got %d", c.Consoles)
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("sessionDuration must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tickInterval must be positive")
	}
	for _, band := range []struct {
		name string
		b    Band
	}{
		{"operatorPatience", c.OperatorPatience},
		{"connectPatience", c.ConnectPatience},
		{"ringDelay", c.RingDelay},
		{"generationNormal", c.GenerationNormal},
		{"generationFast", c.GenerationFast},
	} {
		if err := band.b.validate(band.name); err != nil {
			return err
		}
	}
	if c.WordReveal <= 0 || c.UtterancePause < 0 {
		return fmt.Errorf("conversation cadence must be positive")
	}
	if c.MaxAllowedWait <= 0 {
		return fmt.Errorf("maxAllowedWait must be positive")
	}
	if c.SuccessCap <= 0 {
		return fmt.Errorf("successCap must be positive")
	}
	if c.FailPenalty < 0 {
		return fmt.Errorf("failPenalty must not be negative")
	}
	return nil
}

// LoadConfig reads a JSON config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}
