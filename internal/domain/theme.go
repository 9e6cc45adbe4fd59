package domain

// Theme is the background class the presentation layer applies
type Theme string

const (
	ThemeDefault Theme = "default-background"
	ThemeCloudy  Theme = "cloudy-background"
	ThemeClear   Theme = "clear-background"
	ThemeNight   Theme = "night-background"
	ThemeRainy   Theme = "rainy-background"
	ThemeSnowy   Theme = "snowy-background"
	ThemeStormy  Theme = "stormy-background"
)

// NightThreshold splits Clear into night and day themes. It is compared
// against the snapshot temperature in whatever unit it was fetched in.
const NightThreshold = 15.0

// DeriveTheme picks the background for the current snapshot
func DeriveTheme(s *Snapshot) Theme {
	if s == nil {
		return ThemeDefault
	}

	switch s.Condition {
	case ConditionClouds:
		return ThemeCloudy
	case ConditionRain:
		return ThemeRainy
	case ConditionSnow:
		return ThemeSnowy
	case ConditionThunderstorm:
		return ThemeStormy
	case ConditionClear:
		if s.Temperature < NightThreshold {
			return ThemeNight
		}
		return ThemeClear
	default:
		return ThemeDefault
	}
}
