package request

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://enter.pollinations.ai/api/generate/image"

// Preset is one of the two named generation presets shown in the widget.
type Preset int

const (
	PresetPlus Preset = iota
	PresetPro
)

const (
	ProviderSeedance = "seedance"
	ProviderVeo      = "veo"
)

// Provider resolves the preset to the model identifier the API expects.
// Anything outside the known presets resolves to seedance.
func (p Preset) Provider() string {
	switch p {
	case PresetPro:
		return ProviderVeo
	default:
		return ProviderSeedance
	}
}

func (p Preset) String() string {
	switch p {
	case PresetPro:
		return "tv-pro"
	default:
		return "tv-plus"
	}
}

// ParsePreset maps a wire name to a preset. Unknown names map to PresetPlus.
func ParsePreset(s string) Preset {
	if strings.TrimSpace(s) == "tv-pro" {
		return PresetPro
	}
	return PresetPlus
}

func (p Preset) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Preset) UnmarshalText(b []byte) error {
	*p = ParsePreset(string(b))
	return nil
}

type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// ParseQuality accepts the three known levels; an empty value means high.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.TrimSpace(s)); q {
	case "":
		return QualityHigh, nil
	case QualityHigh, QualityMedium, QualityLow:
		return q, nil
	default:
		return "", fmt.Errorf("unknown quality %q", s)
	}
}

// Params is the form state that feeds a generation URL.
type Params struct {
	Prompt  string  `json:"prompt"`
	Preset  Preset  `json:"preset"`
	Private bool    `json:"private"`
	Enhance bool    `json:"enhance"`
	NoLogo  bool    `json:"nologo"`
	Quality Quality `json:"quality"`
	Key     string  `json:"key"`
}

// DefaultParams returns the widget's initial flag settings.
func DefaultParams() Params {
	return Params{
		Preset:  PresetPlus,
		Private: true,
		Enhance: false,
		NoLogo:  true,
		Quality: QualityHigh,
	}
}

// Build returns the generation URL for p against base. The result is a pure
// function of its inputs. Blank prompts are not rejected here.
func Build(base string, p Params) string {
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/")

	params := make([]string, 0, 6)
	params = append(params, "enhance="+formatBool(p.Enhance))
	params = append(params, "private="+formatBool(p.Private))
	params = append(params, "nologo="+formatBool(p.NoLogo))
	params = append(params, "model="+p.Preset.Provider())
	params = append(params, "quality="+EncodeComponent(string(p.Quality)))
	if p.Key != "" {
		params = append(params, "key="+EncodeComponent(p.Key))
	}

	return base + "/" + EncodeComponent(strings.TrimSpace(p.Prompt)) + "?" + strings.Join(params, "&")
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// encodeURIComponent leaves these marks unescaped; url.QueryEscape does not.
var componentMarks = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s with encodeURIComponent semantics so the
// value is safe as a single path segment or query value.
func EncodeComponent(s string) string {
	return componentMarks.Replace(url.QueryEscape(s))
}

// Filename suggests the download name for a generated video.
func Filename(now time.Time) string {
	return fmt.Sprintf("timemachine-%d.mp4", now.UnixMilli())
}
