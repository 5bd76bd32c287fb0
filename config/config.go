// Package config loads and validates gateway configuration from a YAML
// file or command-line flags. Malformed configuration is startup-fatal:
// it is the only condition the gateway refuses to start on.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"gopkg.in/yaml.v3"
)

// Window is a daily time window in which trading is paused,
// expressed as "HH:MM" boundaries. Start after End wraps midnight.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Contains reports whether the clock time of now falls inside the window.
func (w Window) Contains(now time.Time) bool {
	start, err := minutesOfDay(w.Start)
	if err != nil {
		return false
	}
	end, err := minutesOfDay(w.End)
	if err != nil {
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// overnight window
	return minute >= start || minute < end
}

func minutesOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM): %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	return h*60 + m, nil
}

// RiskConfig holds static risk caps consumed by the risk gate.
type RiskConfig struct {
	MaxPositions             int
	MaxExposurePercent       decimal.Decimal
	MaxSinglePositionPercent decimal.Decimal
	MaxLeverage              int
	RequireStopLoss          bool
	QuietWindows             []Window
	FundingPauses            []Window
}

// SessionConfig holds rolling session limits consumed by the session limiter.
type SessionConfig struct {
	MaxTradesPerDay     int
	MaxLossPercentDaily decimal.Decimal
	MaxLossStreak       int
	// StreakResetsDaily controls whether the consecutive-loss streak and
	// its review latch clear at the session boundary, or persist until an
	// explicit review acknowledgment.
	StreakResetsDaily bool
	// Timezone fixes the daily session boundary (midnight in this zone).
	Timezone string
}

// Config is the gateway configuration consumed by the host process.
type Config struct {
	Pairs            []domain.Pair
	Autonomy         domain.AutonomyLevel
	MinimumToSuggest float64
	MinimumToExecute float64
	HighConfidence   float64
	Risk             RiskConfig
	Session          SessionConfig
	ApprovalTimeout  time.Duration
	DecisionLogDir   string
	SimSlippagePct   decimal.Decimal
}

type configTmp struct {
	Pairs    []string `yaml:"pairs"`
	Autonomy string   `yaml:"autonomy_level"`

	Confidence struct {
		MinimumToSuggest float64 `yaml:"minimum_to_suggest"`
		MinimumToExecute float64 `yaml:"minimum_to_execute"`
		HighConfidence   float64 `yaml:"high_confidence"`
	} `yaml:"confidence_thresholds"`

	Risk struct {
		MaxPositions             int      `yaml:"max_positions"`
		MaxExposurePercent       string   `yaml:"max_exposure_percent"`
		MaxSinglePositionPercent string   `yaml:"max_single_position_percent"`
		MaxLeverage              int      `yaml:"max_leverage"`
		RequireStopLoss          *bool    `yaml:"require_stop_loss"`
		QuietWindows             []Window `yaml:"quiet_windows"`
		FundingPauses            []Window `yaml:"funding_pauses"`
	} `yaml:"execution_rules"`

	Session struct {
		MaxTradesPerDay     int    `yaml:"max_trades_per_day"`
		MaxLossPercentDaily string `yaml:"max_loss_percent_daily"`
		MaxLossStreak       int    `yaml:"max_loss_streak"`
		StreakResetsDaily   bool   `yaml:"streak_resets_daily"`
		Timezone            string `yaml:"timezone"`
	} `yaml:"session_limits"`

	ApprovalTimeout time.Duration `yaml:"approval_timeout"`
	DecisionLogDir  string        `yaml:"decision_log_dir"`
	SimSlippagePct  string        `yaml:"sim_slippage_percent"`
}

// Get loads configuration from the path given by -config, falling back
// to CLI flags with defaults for everything else.
func Get() (Config, error) {
	path := flag.String("config", "", "path to yaml config")
	pairFlag := flag.String("pair", "BTC_USDT", "trade pair, example: BTC_USDT")
	levelFlag := flag.String("autonomy", "copilot", "autonomy level: none|assistant|copilot|autonomous|agent")
	flag.Parse()

	if *path != "" {
		return FromYamlFile(*path)
	}

	conf := Default()

	pair, err := pairFromString(*pairFlag)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --pair provided, --pair=%s", *pairFlag)
	}
	conf.Pairs = []domain.Pair{pair}

	level, ok := domain.ParseAutonomyLevel(*levelFlag)
	if !ok {
		return Config{}, fmt.Errorf("invalid --autonomy provided, --autonomy=%s", *levelFlag)
	}
	conf.Autonomy = level

	return conf, conf.Validate()
}

// Default returns the built-in configuration used by the CLI fallback.
func Default() Config {
	return Config{
		Autonomy:         domain.AutonomyCopilot,
		MinimumToSuggest: 0.6,
		MinimumToExecute: 0.75,
		HighConfidence:   0.85,
		Risk: RiskConfig{
			MaxPositions:             3,
			MaxExposurePercent:       decimal.NewFromInt(30),
			MaxSinglePositionPercent: decimal.NewFromInt(10),
			MaxLeverage:              10,
			RequireStopLoss:          true,
		},
		Session: SessionConfig{
			MaxTradesPerDay:     10,
			MaxLossPercentDaily: decimal.NewFromInt(5),
			MaxLossStreak:       3,
			Timezone:            "UTC",
		},
		ApprovalTimeout: 5 * time.Minute,
		DecisionLogDir:  "./wal/decisions",
		SimSlippagePct:  decimal.NewFromFloat(0.05),
	}
}

// FromYamlFile reads and validates a YAML configuration file.
func FromYamlFile(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return FromYaml(f)
}

// FromYaml parses and validates YAML configuration bytes.
func FromYaml(data []byte) (Config, error) {
	var tmp configTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, err
	}

	conf := Default()

	for _, p := range tmp.Pairs {
		pair, err := pairFromString(p)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'pairs' entry in yaml config: %s, error: %w", p, err)
		}
		conf.Pairs = append(conf.Pairs, pair)
	}

	if tmp.Autonomy != "" {
		level, ok := domain.ParseAutonomyLevel(tmp.Autonomy)
		if !ok {
			return Config{}, fmt.Errorf("incorrect 'autonomy_level' param in yaml config: %s", tmp.Autonomy)
		}
		conf.Autonomy = level
	}

	if tmp.Confidence.MinimumToSuggest != 0 {
		conf.MinimumToSuggest = tmp.Confidence.MinimumToSuggest
	}
	if tmp.Confidence.MinimumToExecute != 0 {
		conf.MinimumToExecute = tmp.Confidence.MinimumToExecute
	}
	if tmp.Confidence.HighConfidence != 0 {
		conf.HighConfidence = tmp.Confidence.HighConfidence
	}

	if tmp.Risk.MaxPositions != 0 {
		conf.Risk.MaxPositions = tmp.Risk.MaxPositions
	}
	if tmp.Risk.MaxLeverage != 0 {
		conf.Risk.MaxLeverage = tmp.Risk.MaxLeverage
	}
	if tmp.Risk.RequireStopLoss != nil {
		conf.Risk.RequireStopLoss = *tmp.Risk.RequireStopLoss
	}
	if err := setDecimal(&conf.Risk.MaxExposurePercent, tmp.Risk.MaxExposurePercent, "max_exposure_percent"); err != nil {
		return Config{}, err
	}
	if err := setDecimal(&conf.Risk.MaxSinglePositionPercent, tmp.Risk.MaxSinglePositionPercent, "max_single_position_percent"); err != nil {
		return Config{}, err
	}
	conf.Risk.QuietWindows = tmp.Risk.QuietWindows
	conf.Risk.FundingPauses = tmp.Risk.FundingPauses

	if tmp.Session.MaxTradesPerDay != 0 {
		conf.Session.MaxTradesPerDay = tmp.Session.MaxTradesPerDay
	}
	if tmp.Session.MaxLossStreak != 0 {
		conf.Session.MaxLossStreak = tmp.Session.MaxLossStreak
	}
	if err := setDecimal(&conf.Session.MaxLossPercentDaily, tmp.Session.MaxLossPercentDaily, "max_loss_percent_daily"); err != nil {
		return Config{}, err
	}
	conf.Session.StreakResetsDaily = tmp.Session.StreakResetsDaily
	if tmp.Session.Timezone != "" {
		conf.Session.Timezone = tmp.Session.Timezone
	}

	if tmp.ApprovalTimeout != 0 {
		conf.ApprovalTimeout = tmp.ApprovalTimeout
	}
	if tmp.DecisionLogDir != "" {
		conf.DecisionLogDir = tmp.DecisionLogDir
	}
	if err := setDecimal(&conf.SimSlippagePct, tmp.SimSlippagePct, "sim_slippage_percent"); err != nil {
		return Config{}, err
	}

	return conf, conf.Validate()
}

func setDecimal(dst *decimal.Decimal, raw, name string) error {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("incorrect '%s' param in yaml config (must be a decimal), error: %w", name, err)
	}
	*dst = d
	return nil
}

// Validate rejects configuration no decision may be processed under.
func (c Config) Validate() error {
	if c.MinimumToSuggest < 0 || c.MinimumToSuggest > 1 {
		return fmt.Errorf("minimum_to_suggest out of range: %f", c.MinimumToSuggest)
	}
	if c.MinimumToExecute < 0 || c.MinimumToExecute > 1 {
		return fmt.Errorf("minimum_to_execute out of range: %f", c.MinimumToExecute)
	}
	if c.MinimumToSuggest > c.MinimumToExecute {
		return fmt.Errorf("minimum_to_suggest (%f) must not exceed minimum_to_execute (%f)", c.MinimumToSuggest, c.MinimumToExecute)
	}
	if c.Risk.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be positive, got %d", c.Risk.MaxPositions)
	}
	if c.Risk.MaxLeverage <= 0 {
		return fmt.Errorf("max_leverage must be positive, got %d", c.Risk.MaxLeverage)
	}
	if !c.Risk.MaxExposurePercent.IsPositive() {
		return fmt.Errorf("max_exposure_percent must be positive, got %s", c.Risk.MaxExposurePercent)
	}
	if !c.Risk.MaxSinglePositionPercent.IsPositive() {
		return fmt.Errorf("max_single_position_percent must be positive, got %s", c.Risk.MaxSinglePositionPercent)
	}
	for _, w := range append(append([]Window{}, c.Risk.QuietWindows...), c.Risk.FundingPauses...) {
		if _, err := minutesOfDay(w.Start); err != nil {
			return err
		}
		if _, err := minutesOfDay(w.End); err != nil {
			return err
		}
	}
	if c.Session.MaxTradesPerDay <= 0 {
		return fmt.Errorf("max_trades_per_day must be positive, got %d", c.Session.MaxTradesPerDay)
	}
	if c.Session.MaxLossStreak <= 0 {
		return fmt.Errorf("max_loss_streak must be positive, got %d", c.Session.MaxLossStreak)
	}
	if !c.Session.MaxLossPercentDaily.IsPositive() {
		return fmt.Errorf("max_loss_percent_daily must be positive, got %s", c.Session.MaxLossPercentDaily)
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("invalid session timezone %q: %w", c.Session.Timezone, err)
	}
	if c.ApprovalTimeout <= 0 {
		return fmt.Errorf("approval_timeout must be positive, got %s", c.ApprovalTimeout)
	}
	if c.SimSlippagePct.IsNegative() {
		return fmt.Errorf("sim_slippage_percent must not be negative, got %s", c.SimSlippagePct)
	}
	return nil
}

func pairFromString(pairStr string) (domain.Pair, error) {
	pairElements := strings.Split(pairStr, "_")
	if len(pairElements) != 2 {
		return domain.Pair{}, fmt.Errorf("invalid pair param")
	}
	return domain.Pair{From: pairElements[0], To: pairElements[1]}, nil
}
