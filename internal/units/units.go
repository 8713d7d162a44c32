// Package units converts quantities between the canonical persisted unit
// (grams, milliliters, units) and the display system chosen by a workspace.
package units

import "strings"

// Unit is a canonical small unit in which quantities are persisted.
type Unit string

const (
	Grams       Unit = "g"
	Milliliters Unit = "ml"
	Units       Unit = "un"
)

// System is the display system selected by a workspace.
type System string

const (
	// SystemSmall shows canonical units unchanged.
	SystemSmall System = "small"
	// SystemLarge shows kilograms and liters for mass and volume.
	SystemLarge System = "large"
)

// Direction selects which way Convert scales a value.
type Direction string

const (
	ToDisplayDirection   Direction = "to_display"
	ToCanonicalDirection Direction = "to_canonical"
)

const scale = 1000.0

var unitAliases = map[string]Unit{
	"g":           Grams,
	"gr":          Grams,
	"gram":        Grams,
	"grams":       Grams,
	"ml":          Milliliters,
	"milliliter":  Milliliters,
	"milliliters": Milliliters,
	"millilitre":  Milliliters,
	"un":          Units,
	"unit":        Units,
	"units":       Units,
	"pcs":         Units,
	"pc":          Units,
}

// ParseUnit resolves a canonical unit from user input. The boolean reports
// whether the value named a known unit.
func ParseUnit(value string) (Unit, bool) {
	unit, ok := unitAliases[strings.ToLower(strings.TrimSpace(value))]
	return unit, ok
}

// Valid reports whether u is one of the canonical units.
func (u Unit) Valid() bool {
	switch u {
	case Grams, Milliliters, Units:
		return true
	}
	return false
}

// ParseSystem resolves a display system, falling back to SystemSmall.
func ParseSystem(value string) System {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "large", "kg", "metric_large":
		return SystemLarge
	default:
		return SystemSmall
	}
}

// ValidSystem reports whether value names a supported display system exactly.
func ValidSystem(value string) bool {
	switch System(value) {
	case SystemSmall, SystemLarge:
		return true
	}
	return false
}

// ParseDirection resolves a conversion direction.
func ParseDirection(value string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case ToDisplayDirection:
		return ToDisplayDirection, true
	case ToCanonicalDirection:
		return ToCanonicalDirection, true
	}
	return "", false
}

// scaled reports whether values in unit are rescaled under system. Counts
// are never scaled and unknown units pass through.
func scaled(unit Unit, system System) bool {
	return system == SystemLarge && (unit == Grams || unit == Milliliters)
}

// ToDisplay converts a canonical value into the display system.
func ToDisplay(value float64, unit Unit, system System) float64 {
	if scaled(unit, system) {
		return value / scale
	}
	return value
}

// ToCanonical converts a display value back into the canonical unit.
func ToCanonical(value float64, unit Unit, system System) float64 {
	if scaled(unit, system) {
		return value * scale
	}
	return value
}

// DisplayUnitLabel returns the label shown for unit under system.
func DisplayUnitLabel(unit Unit, system System) string {
	if scaled(unit, system) {
		if unit == Grams {
			return "kg"
		}
		return "L"
	}
	return string(unit)
}

// Convert applies ToDisplay or ToCanonical depending on direction. An
// unknown direction leaves the value unchanged.
func Convert(value float64, unit Unit, system System, direction Direction) float64 {
	switch direction {
	case ToDisplayDirection:
		return ToDisplay(value, unit, system)
	case ToCanonicalDirection:
		return ToCanonical(value, unit, system)
	default:
		return value
	}
}
