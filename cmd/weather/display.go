package main

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/weatherapp/backend/internal/domain"
)

func displaySnapshot(w io.Writer, s domain.Snapshot) {
	location := s.Location
	if s.Country != "" {
		location += ", " + s.Country
	}
	symbol := s.Unit.TemperatureSymbol()

	header := fmt.Sprintf("Weather Summary for %s:", location)
	fmt.Fprintf(w, "%s\n", header)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(header)))
	fmt.Fprintf(w, "Conditions:  %s\n", cases.Title(language.English).String(s.Description))
	fmt.Fprintf(w, "Temperature: %.1f%s\n", s.Temperature, symbol)
	fmt.Fprintf(w, "Humidity:    %d%%\n", s.Humidity)
	fmt.Fprintf(w, "Wind Speed:  %.1f %s\n", s.WindSpeed, s.Unit.SpeedLabel())
	fmt.Fprintf(w, "Pressure:    %.0f hPa\n", s.Pressure)
	fmt.Fprintf(w, "Visibility:  %.1f km\n", s.VisibilityKm())
	if s.Sunrise > 0 && s.Sunset > 0 {
		fmt.Fprintf(w, "Sunrise:     %s\n", s.SunriseTime().Format("15:04"))
		fmt.Fprintf(w, "Sunset:      %s\n", s.SunsetTime().Format("15:04"))
	}
}

func displayRecent(w io.Writer, list []string) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No recent searches.")
		return
	}
	header := "Recent Searches:"
	fmt.Fprintf(w, "%s\n", header)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(header)))
	for i, city := range list {
		fmt.Fprintf(w, "%d. %s\n", i+1, city)
	}
}

func displaySuggestions(w io.Writer, labels []string) {
	if len(labels) == 0 {
		fmt.Fprintln(w, "No matching cities.")
		return
	}
	for _, label := range labels {
		fmt.Fprintln(w, label)
	}
}
