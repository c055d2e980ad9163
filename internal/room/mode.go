package room

// Mode selects a room's discussion pace and default voting threshold.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeDeep  Mode = "deep"
)

// modeConfig is the per-mode defaults table: only DefaultThreshold affects
// core behavior; TargetResponseStyle is carried for completeness and never
// interpreted by the core.
type modeConfig struct {
	DefaultThreshold    float64
	TargetResponseStyle string
}

var modeTable = map[Mode]modeConfig{
	ModeQuick: {DefaultThreshold: 0.4, TargetResponseStyle: "short"},
	ModeDeep:  {DefaultThreshold: 0.6, TargetResponseStyle: "discursive"},
}

// DefaultThreshold returns the mode's default proposal approval threshold.
// Unrecognized modes fall back to ModeDeep's threshold.
func DefaultThreshold(m Mode) float64 {
	if cfg, ok := modeTable[m]; ok {
		return cfg.DefaultThreshold
	}
	return modeTable[ModeDeep].DefaultThreshold
}

// ResponseStyle returns the mode's target response style, for display only.
func ResponseStyle(m Mode) string {
	if cfg, ok := modeTable[m]; ok {
		return cfg.TargetResponseStyle
	}
	return modeTable[ModeDeep].TargetResponseStyle
}

// Valid reports whether m is one of the known modes.
func Valid(m Mode) bool {
	_, ok := modeTable[m]
	return ok
}
