package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTheme(t *testing.T) {
	tests := []struct {
		name string
		snap *Snapshot
		want Theme
	}{
		{"no snapshot", nil, ThemeDefault},
		{"clear and cold is night", &Snapshot{Condition: ConditionClear, Temperature: 10, Unit: UnitMetric}, ThemeNight},
		{"clear and warm", &Snapshot{Condition: ConditionClear, Temperature: 20, Unit: UnitMetric}, ThemeClear},
		{"clear at threshold", &Snapshot{Condition: ConditionClear, Temperature: 15}, ThemeClear},
		{"clear imperial uses nominal scale", &Snapshot{Condition: ConditionClear, Temperature: 14, Unit: UnitImperial}, ThemeNight},
		{"snow ignores temperature", &Snapshot{Condition: ConditionSnow, Temperature: 30}, ThemeSnowy},
		{"snow cold", &Snapshot{Condition: ConditionSnow, Temperature: -5}, ThemeSnowy},
		{"clouds", &Snapshot{Condition: ConditionClouds}, ThemeCloudy},
		{"rain", &Snapshot{Condition: ConditionRain}, ThemeRainy},
		{"thunderstorm", &Snapshot{Condition: ConditionThunderstorm}, ThemeStormy},
		{"other", &Snapshot{Condition: ConditionOther}, ThemeDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTheme(tt.snap))
		})
	}
}

func TestParseCondition(t *testing.T) {
	assert.Equal(t, ConditionClear, ParseCondition("Clear"))
	assert.Equal(t, ConditionClouds, ParseCondition("clouds"))
	assert.Equal(t, ConditionRain, ParseCondition("Drizzle"))
	assert.Equal(t, ConditionSnow, ParseCondition("Snow"))
	assert.Equal(t, ConditionThunderstorm, ParseCondition("Thunderstorm"))
	assert.Equal(t, ConditionOther, ParseCondition("Mist"))
	assert.Equal(t, ConditionOther, ParseCondition(""))
}
