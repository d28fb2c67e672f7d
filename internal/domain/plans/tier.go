package plans

import "strings"

// Line is the product line an order belongs to.
type Line string

const (
	LineMusic Line = "music"
	LineVoice Line = "voice"
)

// Valid reports whether l is a known product line.
func (l Line) Valid() bool {
	return l == LineMusic || l == LineVoice
}

// Tier constants (single source of truth)
const (
	TierEssential    = "essential"
	TierProfessional = "professional"
	TierAdvanced     = "advanced"

	TierAIVoice   = "ai_voice"
	TierHybrid    = "hybrid"
	TierFullyLive = "fully_live"
)

var maxRounds = map[Line]map[string]int{
	LineMusic: {
		TierEssential:    2,
		TierProfessional: 3,
		TierAdvanced:     5,
	},
	LineVoice: {
		TierAIVoice:   1,
		TierHybrid:    2,
		TierFullyLive: 3,
	},
}

// Feedback categories a client may tag annotations with.
const (
	CategoryMix         = "mix"
	CategoryIntensity   = "intensity"
	CategoryMood        = "mood"
	CategoryInstrument  = "instrument"
	CategoryArrangement = "arrangement"
	CategoryTempo       = "tempo"
	CategoryMelody      = "melody"
	CategoryStructure   = "structure"
	CategoryOther       = "other"
)

var essentialCategories = []string{CategoryMix, CategoryIntensity, CategoryMood, CategoryOther}

var unlockedCategories = map[string][]string{
	TierEssential:    essentialCategories,
	TierProfessional: append(append([]string{}, essentialCategories...), CategoryInstrument, CategoryTempo),
	TierAdvanced: append(append([]string{}, essentialCategories...),
		CategoryInstrument, CategoryTempo, CategoryArrangement, CategoryMelody, CategoryStructure),
}

// NormalizeTier returns the effective tier for an order.
// Priority:
// 1. Explicit tier, if it belongs to the line
// 2. Fallback inference by price
func NormalizeTier(line Line, raw string, priceEUR float64) string {
	tier := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := maxRounds[line][tier]; ok {
		return tier
	}
	return inferTierFromPrice(line, priceEUR)
}

// inferTierFromPrice only covers orders created without a recognised tier,
// e.g. manual admin imports.
func inferTierFromPrice(line Line, priceEUR float64) string {
	if line == LineVoice {
		switch {
		case priceEUR >= 900:
			return TierFullyLive
		case priceEUR >= 300:
			return TierHybrid
		default:
			return TierAIVoice
		}
	}
	switch {
	case priceEUR >= 1500:
		return TierAdvanced
	case priceEUR >= 600:
		return TierProfessional
	default:
		return TierEssential
	}
}

// MaxRounds is the number of client change rounds included with a tier.
func MaxRounds(line Line, tier string) int {
	return maxRounds[line][tier]
}

// IsTopTier reports whether completing an order of this tier issues a license certificate.
func IsTopTier(line Line, tier string) bool {
	return line == LineVoice && tier == TierFullyLive
}

// UnlockedCategories lists the feedback categories available to a music tier.
func UnlockedCategories(tier string) []string {
	if cats, ok := unlockedCategories[tier]; ok {
		return cats
	}
	return essentialCategories
}

// CategoryUnlocked reports whether category may be used on a music order of tier.
func CategoryUnlocked(tier, category string) bool {
	for _, c := range UnlockedCategories(tier) {
		if c == category {
			return true
		}
	}
	return false
}

// KnownCategory reports whether category exists at any tier.
func KnownCategory(category string) bool {
	return CategoryUnlocked(TierAdvanced, category)
}

// Remaining is the number of change rounds still available.
func Remaining(used, max int) int {
	if used >= max {
		return 0
	}
	return max - used
}

// Exhausted reports whether every included change round is used.
func Exhausted(used, max int) bool {
	return Remaining(used, max) <= 0
}
