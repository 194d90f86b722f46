// Package market rates how viable an area is as a market from its population.
package market

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/evyataryagoni/geoflipper/internal/models"
)

// Tier identifiers.
const (
	TierLikelyBad = "likely_bad"
	TierMaybeOkay = "maybe_okay"
	TierOkay      = "okay"
	TierGood      = "good"
)

// Population thresholds. The okay tier includes both of its bounds.
const (
	maybeOkayThreshold = 5000
	okayThreshold      = 10000
	goodThreshold      = 30000 // strictly above this is good
)

var (
	likelyBad = models.MarketStatus{Tier: TierLikelyBad, Label: "Likely Bad Market", Color: "#D32F2F", BackgroundColor: "#FFEBEE"}
	maybeOkay = models.MarketStatus{Tier: TierMaybeOkay, Label: "Maybe Okay Market", Color: "#F57C00", BackgroundColor: "#FFF3E0"}
	okay      = models.MarketStatus{Tier: TierOkay, Label: "Okay Market", Color: "#FBC02D", BackgroundColor: "#FFFDE7"}
	good      = models.MarketStatus{Tier: TierGood, Label: "Good Market", Color: "#388E3C", BackgroundColor: "#E8F5E9"}
)

// Classify returns the market tier for population.
//   - [0, 5000): likely bad
//   - [5000, 10000): maybe okay
//   - [10000, 30000]: okay
//   - above 30000: good
//
// Negative populations are treated as zero.
func Classify(population int64) models.MarketStatus {
	switch {
	case population < maybeOkayThreshold:
		return likelyBad
	case population < okayThreshold:
		return maybeOkay
	case population <= goodThreshold:
		return okay
	default:
		return good
	}
}

// FormatPopulation renders n with English thousands separators, e.g. "2,138,551".
func FormatPopulation(n int64) string {
	// Printers keep per-call state, so each call gets its own
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
