package contextpg

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/youssefsiam38/contextpg/estimate"
)

// Mode selects the pruning policy.
type Mode string

const (
	// ModeOff disables transcript pruning. Snapshot expiry and the flush
	// trigger still run.
	ModeOff Mode = "off"

	// ModeCacheTTL enables tiered pruning tuned for prompt-cache reuse:
	// soft trims first, hard clears only when there is enough stale bulk
	// to justify invalidating the cache prefix.
	ModeCacheTTL Mode = "cache-ttl"
)

// Default configuration values.
const (
	DefaultMode                    = ModeCacheTTL
	DefaultCacheTTL                = 5 * time.Minute
	DefaultSoftTrimRatio           = 0.7  // start trimming at 70% window usage
	DefaultHardClearRatio          = 0.85 // start clearing at 85% window usage
	DefaultSoftTrimMaxChars        = 4000
	DefaultSoftTrimHeadChars       = 1500
	DefaultSoftTrimTailChars       = 1500
	DefaultMinPrunableToolChars    = 20000
	DefaultProtectedAssistantTurns = 2
	DefaultSnapshotMaxChecks       = 3
	DefaultReserveFloorTokens      = 20000
	DefaultSoftThresholdTokens     = 10000
)

// Settings holds the engine configuration. Zero values are filled in by
// ApplyDefaults; hosts that load configuration from YAML can unmarshal
// directly into this struct or use ParseSettings.
type Settings struct {
	// Enabled turns the whole engine on. Defaults to true; when false
	// every engine call is a no-op on the transcript.
	Enabled *bool `yaml:"enabled"`

	// Mode is the pruning policy. Default: ModeCacheTTL.
	Mode Mode `yaml:"mode"`

	// CacheTTL is the provider prompt-cache lifetime the pruning policy
	// is tuned against. Default: 5m.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// SoftTrimRatio is the window usage ratio (0-1] that starts soft
	// trimming. Default: 0.7.
	SoftTrimRatio float64 `yaml:"soft_trim_ratio"`

	// HardClearRatio is the window usage ratio (0-1] that starts hard
	// clearing. Must be >= SoftTrimRatio. Default: 0.85.
	HardClearRatio float64 `yaml:"hard_clear_ratio"`

	// HardClearEnabled turns the hard-clear tier on. Default: true.
	HardClearEnabled *bool `yaml:"hard_clear_enabled"`

	// SoftTrimMaxChars is the tool result size above which soft trimming
	// applies. Default: 4000.
	SoftTrimMaxChars int `yaml:"soft_trim_max_chars"`

	// SoftTrimHeadChars/SoftTrimTailChars are the excerpt sizes kept by
	// a soft trim. Defaults: 1500/1500.
	SoftTrimHeadChars int `yaml:"soft_trim_head_chars"`
	SoftTrimTailChars int `yaml:"soft_trim_tail_chars"`

	// MinPrunableToolChars is the minimum cumulative prunable size before
	// hard clearing activates. Default: 20000.
	MinPrunableToolChars int `yaml:"min_prunable_tool_chars"`

	// ProtectedAssistantTurns is the number of trailing assistant turns
	// that are never pruned. Default: 2.
	ProtectedAssistantTurns int `yaml:"protected_assistant_turns"`

	// AllowTools/DenyTools are glob pattern lists controlling which tool
	// results are prunable. Empty allow list admits everything not
	// denied; deny wins over allow.
	AllowTools []string `yaml:"allow_tools"`
	DenyTools  []string `yaml:"deny_tools"`

	// SnapshotExpiryEnabled turns snapshot expiry on. Default: true.
	SnapshotExpiryEnabled *bool `yaml:"snapshot_expiry_enabled"`

	// SnapshotMaxChecks is the number of subsequent tool results and
	// user messages a snapshot survives. Default: 3.
	SnapshotMaxChecks int `yaml:"snapshot_max_checks"`

	// SnapshotHeuristic enables the textual snapshot detector for tool
	// results whose originating call cannot be resolved. Default: false.
	SnapshotHeuristic bool `yaml:"snapshot_heuristic"`

	// CharsPerToken converts token budgets into the character domain.
	// Default: 4.
	CharsPerToken int `yaml:"chars_per_token"`

	// ReserveFloorTokens and SoftThresholdTokens position the memory
	// flush trigger: a flush is signaled once total usage reaches
	// window - reserve - soft. Defaults: 20000/10000.
	ReserveFloorTokens  int `yaml:"reserve_floor_tokens"`
	SoftThresholdTokens int `yaml:"soft_threshold_tokens"`
}

// DefaultSettings returns a Settings with all defaults applied.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills in zero values with defaults.
func (s *Settings) ApplyDefaults() {
	if s.Enabled == nil {
		s.Enabled = boolPtr(true)
	}
	if s.Mode == "" {
		s.Mode = DefaultMode
	}
	if s.CacheTTL == 0 {
		s.CacheTTL = DefaultCacheTTL
	}
	if s.SoftTrimRatio == 0 {
		s.SoftTrimRatio = DefaultSoftTrimRatio
	}
	if s.HardClearRatio == 0 {
		s.HardClearRatio = DefaultHardClearRatio
	}
	if s.HardClearEnabled == nil {
		s.HardClearEnabled = boolPtr(true)
	}
	if s.SoftTrimMaxChars == 0 {
		s.SoftTrimMaxChars = DefaultSoftTrimMaxChars
	}
	if s.SoftTrimHeadChars == 0 {
		s.SoftTrimHeadChars = DefaultSoftTrimHeadChars
	}
	if s.SoftTrimTailChars == 0 {
		s.SoftTrimTailChars = DefaultSoftTrimTailChars
	}
	if s.MinPrunableToolChars == 0 {
		s.MinPrunableToolChars = DefaultMinPrunableToolChars
	}
	if s.ProtectedAssistantTurns == 0 {
		s.ProtectedAssistantTurns = DefaultProtectedAssistantTurns
	}
	if s.SnapshotExpiryEnabled == nil {
		s.SnapshotExpiryEnabled = boolPtr(true)
	}
	if s.SnapshotMaxChecks == 0 {
		s.SnapshotMaxChecks = DefaultSnapshotMaxChecks
	}
	if s.CharsPerToken == 0 {
		s.CharsPerToken = estimate.DefaultCharsPerToken
	}
	if s.ReserveFloorTokens == 0 {
		s.ReserveFloorTokens = DefaultReserveFloorTokens
	}
	if s.SoftThresholdTokens == 0 {
		s.SoftThresholdTokens = DefaultSoftThresholdTokens
	}
}

// Validate validates the configuration and returns an error if invalid.
func (s *Settings) Validate() error {
	if s.Mode != ModeOff && s.Mode != ModeCacheTTL {
		return fmt.Errorf("%w: unknown mode %q, must be %q or %q",
			ErrInvalidConfig, s.Mode, ModeOff, ModeCacheTTL)
	}
	if s.SoftTrimRatio <= 0 || s.SoftTrimRatio > 1 {
		return fmt.Errorf("%w: soft_trim_ratio must be between 0 and 1, got %f", ErrInvalidConfig, s.SoftTrimRatio)
	}
	if s.HardClearRatio <= 0 || s.HardClearRatio > 1 {
		return fmt.Errorf("%w: hard_clear_ratio must be between 0 and 1, got %f", ErrInvalidConfig, s.HardClearRatio)
	}
	if s.HardClearRatio < s.SoftTrimRatio {
		return fmt.Errorf("%w: hard_clear_ratio (%f) must be at least soft_trim_ratio (%f)",
			ErrInvalidConfig, s.HardClearRatio, s.SoftTrimRatio)
	}
	if s.SoftTrimMaxChars <= 0 {
		return fmt.Errorf("%w: soft_trim_max_chars must be positive, got %d", ErrInvalidConfig, s.SoftTrimMaxChars)
	}
	if s.SoftTrimHeadChars < 0 || s.SoftTrimTailChars < 0 {
		return fmt.Errorf("%w: soft trim excerpt sizes must be non-negative", ErrInvalidConfig)
	}
	if s.SoftTrimHeadChars+s.SoftTrimTailChars > s.SoftTrimMaxChars {
		return fmt.Errorf("%w: soft trim excerpts (%d+%d) exceed soft_trim_max_chars (%d)",
			ErrInvalidConfig, s.SoftTrimHeadChars, s.SoftTrimTailChars, s.SoftTrimMaxChars)
	}
	if s.MinPrunableToolChars < 0 {
		return fmt.Errorf("%w: min_prunable_tool_chars must be non-negative, got %d", ErrInvalidConfig, s.MinPrunableToolChars)
	}
	if s.ProtectedAssistantTurns < 0 {
		return fmt.Errorf("%w: protected_assistant_turns must be non-negative, got %d", ErrInvalidConfig, s.ProtectedAssistantTurns)
	}
	if s.SnapshotMaxChecks < 1 {
		return fmt.Errorf("%w: snapshot_max_checks must be at least 1, got %d", ErrInvalidConfig, s.SnapshotMaxChecks)
	}
	if s.CharsPerToken < 1 {
		return fmt.Errorf("%w: chars_per_token must be at least 1, got %d", ErrInvalidConfig, s.CharsPerToken)
	}
	if s.ReserveFloorTokens < 0 || s.SoftThresholdTokens < 0 {
		return fmt.Errorf("%w: flush thresholds must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// ParseSettings unmarshals YAML settings, applies defaults, and validates.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) enabled() bool {
	return s.Enabled == nil || *s.Enabled
}

func (s *Settings) hardClearEnabled() bool {
	return s.HardClearEnabled == nil || *s.HardClearEnabled
}

func (s *Settings) snapshotExpiryEnabled() bool {
	return s.SnapshotExpiryEnabled == nil || *s.SnapshotExpiryEnabled
}

func boolPtr(b bool) *bool { return &b }

// ModelInfo contains model-specific parameters.
type ModelInfo struct {
	ContextWindowTokens int
}

// KnownModels maps model IDs to their capabilities.
var KnownModels = map[string]ModelInfo{
	// Claude 4 models
	"claude-sonnet-4-5-20250929": {ContextWindowTokens: 200000},
	"claude-opus-4-5-20251101":   {ContextWindowTokens: 200000},
	// Claude 3.5 models
	"claude-3-5-sonnet-20241022": {ContextWindowTokens: 200000},
	"claude-3-5-haiku-20241022":  {ContextWindowTokens: 200000},
	// Claude 3 models
	"claude-3-opus-20240229":  {ContextWindowTokens: 200000},
	"claude-3-haiku-20240307": {ContextWindowTokens: 200000},
}

// GetModelInfo returns model info, using sensible defaults for unknown models.
func GetModelInfo(model string) ModelInfo {
	if info, ok := KnownModels[model]; ok {
		return info
	}
	return ModelInfo{ContextWindowTokens: 200000}
}
