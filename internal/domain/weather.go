package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/weatherapp/backend/pkg/utils"
)

// Unit selects the measurement system the weather API converts into
type Unit string

const (
	UnitMetric   Unit = "metric"
	UnitImperial Unit = "imperial"
)

// ParseUnit parses a unit name, defaulting to metric for an empty string
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnitMetric:
		return UnitMetric, nil
	case UnitImperial:
		return UnitImperial, nil
	default:
		return "", fmt.Errorf("domain: unknown unit %q", s)
	}
}

// Toggle returns the other unit
func (u Unit) Toggle() Unit {
	if u == UnitImperial {
		return UnitMetric
	}
	return UnitImperial
}

// TemperatureSymbol returns the label used next to temperatures
func (u Unit) TemperatureSymbol() string {
	if u == UnitImperial {
		return "°F"
	}
	return "°C"
}

// SpeedLabel returns the wind speed label for the unit
func (u Unit) SpeedLabel() string {
	if u == UnitImperial {
		return "mph"
	}
	return "m/s"
}

// ToggleLabel returns the caption of the unit-toggle control
func (u Unit) ToggleLabel() string {
	if u == UnitImperial {
		return "Switch to Celsius"
	}
	return "Switch to Fahrenheit"
}

// Coordinates is a geographic position in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are within range
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Query selects a weather lookup by city name or by coordinates.
// Coordinates take precedence when both are set.
type Query struct {
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// CityQuery builds a query by city name
func CityQuery(city string) Query {
	return Query{City: city}
}

// CoordinatesQuery builds a query by position
func CoordinatesQuery(c Coordinates) Query {
	return Query{Coordinates: &c}
}

// ByCoordinates reports whether the query will be sent as lat/lon
func (q Query) ByCoordinates() bool {
	return q.Coordinates != nil
}

func (q Query) String() string {
	if q.Coordinates != nil {
		return fmt.Sprintf("%.4f,%.4f", q.Coordinates.Lat, q.Coordinates.Lon)
	}
	return q.City
}

// Condition is the coarse weather category
type Condition string

const (
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
	ConditionRain         Condition = "Rain"
	ConditionSnow         Condition = "Snow"
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionOther        Condition = "Other"
)

// ParseCondition maps an OpenWeatherMap "main" group to a Condition
func ParseCondition(main string) Condition {
	switch strings.ToLower(strings.TrimSpace(main)) {
	case "clear":
		return ConditionClear
	case "clouds":
		return ConditionClouds
	case "rain", "drizzle":
		return ConditionRain
	case "snow":
		return ConditionSnow
	case "thunderstorm":
		return ConditionThunderstorm
	default:
		return ConditionOther
	}
}

// Snapshot is one parsed weather result for a location. It is a value:
// a new fetch replaces it wholesale.
type Snapshot struct {
	Location    string    `json:"location"`
	Country     string    `json:"country,omitempty"`
	Temperature float64   `json:"temperature"`
	Unit        Unit      `json:"unit"`
	Humidity    int       `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	Visibility  int       `json:"visibility"`
	WindSpeed   float64   `json:"wind_speed"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Sunrise     int64     `json:"sunrise"`
	Sunset      int64     `json:"sunset"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// SunriseTime returns sunrise in local time
func (s Snapshot) SunriseTime() time.Time {
	return time.Unix(s.Sunrise, 0).Local()
}

// SunsetTime returns sunset in local time
func (s Snapshot) SunsetTime() time.Time {
	return time.Unix(s.Sunset, 0).Local()
}

// VisibilityKm returns visibility in kilometers rounded to two places
func (s Snapshot) VisibilityKm() float64 {
	return utils.RoundTo(float64(s.Visibility)/1000, 2)
}

// WeatherResponse wraps weather data with metadata
type WeatherResponse struct {
	Data    Snapshot `json:"data"`
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
}
