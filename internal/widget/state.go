package widget

import (
	"github.com/weatherapp/backend/internal/domain"
)

type loadState int

const (
	loadNone loadState = iota
	loadFetching
	loadLocating
)

// queryState is the mutable session state guarded by Controller.mu
type queryState struct {
	unit        domain.Unit
	city        string
	input       string
	load        loadState
	err         string
	weather     *domain.Snapshot
	suggestions []string
}

// View is an immutable copy of the session state plus derived display values
type View struct {
	Unit              domain.Unit      `json:"unit"`
	City              string           `json:"city"`
	Input             string           `json:"input"`
	Loading           bool             `json:"loading"`
	Locating          bool             `json:"locating"`
	Error             string           `json:"error,omitempty"`
	Weather           *domain.Snapshot `json:"weather,omitempty"`
	Suggestions       []string         `json:"suggestions"`
	RecentSearches    []string         `json:"recent_searches"`
	Theme             domain.Theme     `json:"theme"`
	TemperatureSymbol string           `json:"temperature_symbol"`
	SpeedLabel        string           `json:"speed_label"`
	ToggleLabel       string           `json:"toggle_label"`
	CanLocate         bool             `json:"can_locate"`
}

func (s *queryState) view(recent []string) View {
	v := View{
		Unit:              s.unit,
		City:              s.city,
		Input:             s.input,
		Loading:           s.load == loadFetching,
		Locating:          s.load == loadLocating,
		Error:             s.err,
		Suggestions:       make([]string, len(s.suggestions)),
		RecentSearches:    recent,
		Theme:             domain.DeriveTheme(s.weather),
		TemperatureSymbol: s.unit.TemperatureSymbol(),
		SpeedLabel:        s.unit.SpeedLabel(),
		ToggleLabel:       s.unit.ToggleLabel(),
		CanLocate:         s.load != loadLocating,
	}
	copy(v.Suggestions, s.suggestions)
	if s.weather != nil {
		w := *s.weather
		v.Weather = &w
	}
	if v.RecentSearches == nil {
		v.RecentSearches = []string{}
	}
	return v
}
