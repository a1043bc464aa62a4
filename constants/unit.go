package constants

import (
	"strings"
)

// UnitCode is the unit-of-measure vocabulary the extraction template allows
// on invoice lines (UN/ECE Recommendation 20 codes).
type UnitCode string

const (
	UnitHour  UnitCode = "HUR"
	UnitDay   UnitCode = "DAY"
	UnitPiece UnitCode = "PCE"
)

var allUnitCodes = []UnitCode{
	UnitHour,
	UnitDay,
	UnitPiece,
}

func UnitCodesAsStringSlice() []string {
	result := make([]string, len(allUnitCodes))
	for i, u := range allUnitCodes {
		result[i] = string(u)
	}
	return result
}

// CanonicalizeUnit maps common spellings of a unit onto the allowed codes.
// The second return is false when nothing matched.
func CanonicalizeUnit(input string) (UnitCode, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]UnitCode{
		"h":       UnitHour,
		"hr":      UnitHour,
		"hrs":     UnitHour,
		"hour":    UnitHour,
		"hours":   UnitHour,
		"std":     UnitHour,
		"std.":    UnitHour,
		"stunde":  UnitHour,
		"stunden": UnitHour,
		"d":       UnitDay,
		"day":     UnitDay,
		"days":    UnitDay,
		"tag":     UnitDay,
		"tage":    UnitDay,
		"pc":      UnitPiece,
		"pcs":     UnitPiece,
		"piece":   UnitPiece,
		"pieces":  UnitPiece,
		"stk":     UnitPiece,
		"stk.":    UnitPiece,
		"stück":   UnitPiece,
		"ea":      UnitPiece,
		"each":    UnitPiece,
		"c62":     UnitPiece,
		"h87":     UnitPiece,
	}

	if u, ok := synonyms[normalized]; ok {
		return u, true
	}

	for _, u := range allUnitCodes {
		if normalized == strings.ToLower(string(u)) {
			return u, true
		}
	}

	return "", false
}
