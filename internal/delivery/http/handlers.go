package http

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/weatherapp/backend/internal/domain"
	"github.com/weatherapp/backend/internal/widget"
)

// DefaultSettleTimeout bounds how long a command waits for its fetch
const DefaultSettleTimeout = 15 * time.Second

// Handler contains all HTTP handlers
type Handler struct {
	ctrl          *widget.Controller
	weather       widget.WeatherFetcher
	store         domain.KeyValueStore
	validate      *validator.Validate
	settleTimeout time.Duration
}

// NewHandler creates a new handler
func NewHandler(ctrl *widget.Controller, weather widget.WeatherFetcher, store domain.KeyValueStore, settleTimeout time.Duration) *Handler {
	if settleTimeout <= 0 {
		settleTimeout = DefaultSettleTimeout
	}
	return &Handler{
		ctrl:          ctrl,
		weather:       weather,
		store:         store,
		validate:      validator.New(),
		settleTimeout: settleTimeout,
	}
}

type inputRequest struct {
	Text string `json:"text" validate:"max=100"`
}

type submitRequest struct {
	Text *string `json:"text" validate:"omitempty,max=100"`
}

type selectSuggestionRequest struct {
	Label string `json:"label" validate:"required,max=200"`
}

type selectRecentRequest struct {
	City string `json:"city" validate:"required,max=200"`
}

type locationRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type locationErrorRequest struct {
	Reason string `json:"reason" validate:"required,oneof=denied unsupported"`
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	storage := "ok"
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.store.Health(ctx); err != nil {
			log.Warnw("storage health check failed", "error", err)
			status = "degraded"
			storage = "unavailable"
		}
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"storage": storage,
		"service": "weather-widget",
		"version": "1.0.0",
	})
}

// GetState returns the current widget view
func (h *Handler) GetState(c *fiber.Ctx) error {
	return h.respondView(c)
}

// Input records a keystroke in the city field
func (h *Handler) Input(c *fiber.Ctx) error {
	var req inputRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	h.ctrl.Input(req.Text)
	return h.respondView(c)
}

// Submit fetches the weather for the current input, or for text when given
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	var done <-chan struct{}
	if req.Text != nil {
		done = h.ctrl.Search(*req.Text)
	} else {
		done = h.ctrl.Submit()
	}
	return h.settleAndRespond(c, done)
}

// SelectSuggestion commits a suggestion
func (h *Handler) SelectSuggestion(c *fiber.Ctx) error {
	var req selectSuggestionRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	return h.settleAndRespond(c, h.ctrl.SelectSuggestion(req.Label))
}

// SelectRecent commits a recent-search entry
func (h *Handler) SelectRecent(c *fiber.Ctx) error {
	var req selectRecentRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	return h.settleAndRespond(c, h.ctrl.SelectRecent(req.City))
}

// Location fetches the weather at a client-reported position
func (h *Handler) Location(c *fiber.Ctx) error {
	var req locationRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	done, err := h.ctrl.LocationGranted(domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon})
	if errors.Is(err, domain.ErrLocationInFlight) {
		return fiber.NewError(fiber.StatusConflict, domain.MsgLocationInFlight)
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return h.settleAndRespond(c, done)
}

// LocationError records a failed location lookup on the client
func (h *Handler) LocationError(c *fiber.Ctx) error {
	var req locationErrorRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	switch req.Reason {
	case "denied":
		h.ctrl.LocationDenied()
	case "unsupported":
		h.ctrl.LocationUnsupported()
	}
	return h.respondView(c)
}

// ToggleUnit switches between metric and imperial
func (h *Handler) ToggleUnit(c *fiber.Ctx) error {
	return h.settleAndRespond(c, h.ctrl.ToggleUnit())
}

// GetWeather is a stateless lookup by ?q= or ?lat=&lon=
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	unit, err := domain.ParseUnit(c.Query("units"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid units, expected metric or imperial")
	}

	q, err := weatherQuery(c)
	if err != nil {
		return err
	}

	snap, err := h.weather.FetchWeather(c.UserContext(), q, unit)
	if err != nil {
		log.Warnw("weather lookup failed", "query", q.String(), "error", err)
		return fiber.NewError(statusFor(err), domain.UserMessage(err))
	}

	return c.JSON(domain.WeatherResponse{
		Data:    snap,
		Success: true,
	})
}

func weatherQuery(c *fiber.Ctx) (domain.Query, error) {
	latRaw, lonRaw := c.Query("lat"), c.Query("lon")
	if latRaw == "" && lonRaw == "" {
		city := strings.TrimSpace(c.Query("q"))
		if city == "" {
			return domain.Query{}, fiber.NewError(fiber.StatusBadRequest, domain.MsgEmptyQuery)
		}
		return domain.CityQuery(city), nil
	}

	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lon, lonErr := strconv.ParseFloat(lonRaw, 64)
	coords := domain.Coordinates{Lat: lat, Lon: lon}
	if latErr != nil || lonErr != nil || !coords.Valid() {
		return domain.Query{}, fiber.NewError(fiber.StatusBadRequest, "Invalid coordinates")
	}
	return domain.CoordinatesQuery(coords), nil
}

func statusFor(err error) int {
	var config *domain.ConfigurationError
	switch {
	case errors.Is(err, domain.ErrCityNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrEmptyQuery):
		return fiber.StatusBadRequest
	case errors.As(err, &config):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadGateway
	}
}

func (h *Handler) parse(c *fiber.Ctx, req any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request body"
	}
	fe := fieldErrs[0]
	return "Invalid field " + strings.ToLower(fe.Field()) + ": " + fe.Tag()
}

// settleAndRespond waits for the fetch to settle, within settleTimeout, so
// the returned view reflects its outcome
func (h *Handler) settleAndRespond(c *fiber.Ctx, done <-chan struct{}) error {
	timer := time.NewTimer(h.settleTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		log.Warnw("request still in flight, returning current view", "timeout", h.settleTimeout)
	}
	return h.respondView(c)
}

func (h *Handler) respondView(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.ctrl.View(),
	})
}

// ErrorHandler renders errors as {error, message} JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
