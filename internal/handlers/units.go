package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"costbook/internal/units"
)

type conversionResponse struct {
	Value       float64         `json:"value"`
	Unit        units.Unit      `json:"unit"`
	System      units.System    `json:"system"`
	Direction   units.Direction `json:"direction"`
	Result      float64         `json:"result"`
	DisplayUnit string          `json:"display_unit"`
}

// ConvertUnits converts a quantity between its canonical unit and the display
// system. The system defaults to the workspace preference.
func ConvertUnits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	value, err := strconv.ParseFloat(strings.TrimSpace(query.Get("value")), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		writeJSONError(w, http.StatusBadRequest, "value must be a finite number")
		return
	}
	rawUnit := strings.TrimSpace(query.Get("unit"))
	if rawUnit == "" {
		writeJSONError(w, http.StatusBadRequest, "unit is required")
		return
	}
	// Units outside the canonical set pass through unscaled.
	unit, ok := units.ParseUnit(rawUnit)
	if !ok {
		unit = units.Unit(rawUnit)
	}
	direction, ok := units.ParseDirection(query.Get("direction"))
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "direction must be to_display or to_canonical")
		return
	}

	var system units.System
	if raw := strings.TrimSpace(query.Get("system")); raw != "" {
		if !units.ValidSystem(raw) {
			writeJSONError(w, http.StatusBadRequest, "unknown unit system")
			return
		}
		system = units.System(raw)
	} else if workspaceID, ok := currentWorkspaceID(r); ok {
		system = workspaceUnitSystem(r, workspaceID)
	} else {
		system = units.SystemSmall
	}

	writeJSON(w, http.StatusOK, conversionResponse{
		Value:       value,
		Unit:        unit,
		System:      system,
		Direction:   direction,
		Result:      units.Convert(value, unit, system, direction),
		DisplayUnit: units.DisplayUnitLabel(unit, system),
	})
}
