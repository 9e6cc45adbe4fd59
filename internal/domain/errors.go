package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCityNotFound is returned when the weather API answers 404
	ErrCityNotFound = errors.New("weather: city not found")

	// ErrEmptyQuery is returned for a blank city name
	ErrEmptyQuery = errors.New("weather: empty city name")

	ErrGeolocationDenied      = errors.New("geolocation: permission denied")
	ErrGeolocationUnsupported = errors.New("geolocation: not supported")

	// ErrLocationInFlight is returned while a location lookup is running
	ErrLocationInFlight = errors.New("geolocation: location lookup already in progress")

	// ErrNotFound is returned by a KeyValueStore for a missing key
	ErrNotFound = errors.New("storage: key not found")
)

// User-facing messages
const (
	MsgCityNotFound           = "City not found! Please enter a valid city name."
	MsgEmptyQuery             = "Please enter a city name."
	MsgGeolocationDenied      = "Error getting location. Please allow location access."
	MsgGeolocationUnsupported = "Geolocation is not supported by this client."
	MsgLocationInFlight       = "Already getting your location."
	MsgTransport              = "Unable to reach the weather service. Please check your connection."
	MsgUnknown                = "Something went wrong. Please try again."
)

// UpstreamError is a non-2xx answer other than 404
type UpstreamError struct {
	Status     int
	StatusText string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.Status, e.StatusText)
}

// TransportError covers network and payload decoding failures
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigurationError names a required setting that is absent
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s is not set", e.Key)
}

// UserMessage maps an error to the single string shown to the user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		upstream  *UpstreamError
		transport *TransportError
		config    *ConfigurationError
	)

	switch {
	case errors.Is(err, ErrCityNotFound):
		return MsgCityNotFound
	case errors.Is(err, ErrEmptyQuery):
		return MsgEmptyQuery
	case errors.Is(err, ErrGeolocationDenied):
		return MsgGeolocationDenied
	case errors.Is(err, ErrGeolocationUnsupported):
		return MsgGeolocationUnsupported
	case errors.Is(err, ErrLocationInFlight):
		return MsgLocationInFlight
	case errors.As(err, &upstream):
		return fmt.Sprintf("Error: %d - %s", upstream.Status, upstream.StatusText)
	case errors.As(err, &config):
		return fmt.Sprintf("Configuration error: %s is not set.", config.Key)
	case errors.As(err, &transport):
		return MsgTransport
	default:
		return MsgUnknown
	}
}
