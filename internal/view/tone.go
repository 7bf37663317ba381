package view

import "github.com/sales-dashboard/web/internal/analytics"

// Tone is the color category a card or banner is drawn with.
type Tone string

const (
	ToneGood  Tone = "good"
	ToneWarn  Tone = "warn"
	ToneBad   Tone = "bad"
	ToneError Tone = "error"
)

// NegativeThreshold is the share of negative comments above which the
// negative-percentage card turns bad. The comparison is strict.
const NegativeThreshold = 35.0

// RiskTone maps a backend risk level to a tone. Unknown levels read as good.
func RiskTone(level analytics.RiskLevel) Tone {
	switch level {
	case analytics.RiskHigh:
		return ToneBad
	case analytics.RiskMedium:
		return ToneWarn
	default:
		return ToneGood
	}
}

// NegativeTone never yields good: the negative-share card is either a
// warning or bad, independently of the risk level.
func NegativeTone(percentage float64) Tone {
	if percentage > NegativeThreshold {
		return ToneBad
	}
	return ToneWarn
}
