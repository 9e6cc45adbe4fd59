package widget

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"

	"github.com/weatherapp/backend/internal/domain"
)

// InputMode selects what typing in the city field triggers
type InputMode string

const (
	// ModeSuggest queries city suggestions on every keystroke
	ModeSuggest InputMode = "suggest"
	// ModeAutoFetch fetches the weather once typing pauses
	ModeAutoFetch InputMode = "autofetch"
)

const (
	// MinInputLength is the shortest input that triggers suggestions or auto-fetch
	MinInputLength = 3

	DefaultDebounceDelay  = 500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
	DefaultCity           = "New York"
)

// WeatherFetcher fetches one weather snapshot
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error)
}

// SuggestionFetcher looks up city labels by prefix
type SuggestionFetcher interface {
	Suggest(ctx context.Context, prefix string) ([]string, error)
}

// RecentStore holds the persisted recent-search list. Push updates memory
// only; Persist writes the current list to the backend.
type RecentStore interface {
	Load(ctx context.Context) ([]string, error)
	Push(name string) []string
	Persist(ctx context.Context) error
	List() []string
}

// Options configures a Controller
type Options struct {
	Mode           InputMode
	DebounceDelay  time.Duration
	RequestTimeout time.Duration
	DefaultCity    string
	Unit           domain.Unit

	// Suggester and Locator are optional
	Suggester SuggestionFetcher
	Locator   Locator
}

// Controller owns one widget session. Commands mutate the state under a
// mutex and start network work in goroutines; every weather request carries a
// sequence number and only the latest one may touch the state when it settles.
type Controller struct {
	weather   WeatherFetcher
	suggester SuggestionFetcher
	locator   Locator
	recent    RecentStore
	opts      Options
	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	state         queryState
	lastQuery     *domain.Query // query behind state.weather
	fetchSeq      uint64
	cancelFetch   context.CancelFunc
	suggestSeq    uint64
	cancelSuggest context.CancelFunc
	inputGen      uint64 // bumped by every keystroke and commit
	closed        bool
}

// New creates a controller
func New(weather WeatherFetcher, recent RecentStore, opts Options) *Controller {
	if opts.Mode == "" {
		opts.Mode = ModeSuggest
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Unit == "" {
		opts.Unit = domain.UnitMetric
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		weather:   weather,
		suggester: opts.Suggester,
		locator:   opts.Locator,
		recent:    recent,
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceDelay),
		ctx:       ctx,
		cancel:    cancel,
		state:     queryState{unit: opts.Unit},
	}
}

// LoadRecent reads the persisted recent-search list. A load failure leaves
// the list empty and is returned for logging.
func (c *Controller) LoadRecent(ctx context.Context) ([]string, error) {
	return c.recent.Load(ctx)
}

// Start loads recent searches and fetches the most recent city, or the
// default city when there is none. The channel closes when that fetch settles.
func (c *Controller) Start(ctx context.Context) <-chan struct{} {
	recents, err := c.LoadRecent(ctx)
	if err != nil {
		log.Warnw("failed to load recent searches", "error", err)
	}

	city := c.opts.DefaultCity
	if len(recents) > 0 {
		city = recents[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if city == "" {
		return closedChan()
	}
	c.state.input = city
	c.state.city = city
	return c.fetchLocked(loadFetching, cityResolver(city))
}

// View returns a copy of the current state
func (c *Controller) View() View {
	recent := c.recent.List()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.view(recent)
}

// Input records a keystroke. Short input clears suggestions and any pending
// auto-fetch; longer input triggers a suggestion query or reschedules the
// debounced fetch, depending on the mode.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.state.input = text
	c.inputGen++
	gen := c.inputGen

	if utf8.RuneCountInString(text) < MinInputLength {
		c.clearSuggestionsLocked()
		c.debouncer.Cancel()
		return
	}

	switch c.opts.Mode {
	case ModeAutoFetch:
		c.debouncer.Schedule(func() { c.fireDebounced(text, gen) })
	default:
		c.suggestLocked(text)
	}
}

// Submit fetches the weather for the current input
func (c *Controller) Submit() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(c.state.input)
}

// Search sets the input to city and fetches it immediately
func (c *Controller) Search(city string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(city)
}

// SelectSuggestion commits a suggestion label and fetches it
func (c *Controller) SelectSuggestion(label string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(label)
}

// SelectRecent commits a recent-search entry and fetches it
func (c *Controller) SelectRecent(city string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(city)
}

// UseCurrentLocation asks the Locator for a position and fetches the weather
// there. Without a Locator the unsupported error is recorded.
func (c *Controller) UseCurrentLocation() (<-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.load == loadLocating {
		return nil, domain.ErrLocationInFlight
	}
	if c.locator == nil {
		c.state.err = domain.UserMessage(domain.ErrGeolocationUnsupported)
		return closedChan(), nil
	}

	locator := c.locator
	return c.fetchLocked(loadLocating, func(ctx context.Context) (domain.Query, error) {
		coords, err := locator.Locate(ctx)
		if err != nil {
			return domain.Query{}, err
		}
		if !coords.Valid() {
			return domain.Query{}, fmt.Errorf("widget: locator returned invalid coordinates %v", coords)
		}
		return domain.CoordinatesQuery(coords), nil
	}), nil
}

// LocationGranted fetches the weather at a position reported by the client
func (c *Controller) LocationGranted(coords domain.Coordinates) (<-chan struct{}, error) {
	if !coords.Valid() {
		return nil, fmt.Errorf("widget: invalid coordinates %v", coords)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.load == loadLocating {
		return nil, domain.ErrLocationInFlight
	}
	return c.fetchLocked(loadLocating, staticResolver(domain.CoordinatesQuery(coords))), nil
}

// LocationDenied records that the user refused location access
func (c *Controller) LocationDenied() {
	c.locationFailed(domain.ErrGeolocationDenied)
}

// LocationUnsupported records that the client cannot provide a location
func (c *Controller) LocationUnsupported() {
	c.locationFailed(domain.ErrGeolocationUnsupported)
}

// ToggleUnit flips the unit and refetches the displayed location. A snapshot
// that came from coordinates is refetched by the same coordinates; otherwise
// the committed city is used. With neither, only the unit changes.
func (c *Controller) ToggleUnit() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.unit = c.state.unit.Toggle()

	q, ok := c.refetchQueryLocked()
	if !ok {
		return closedChan()
	}
	return c.fetchLocked(loadFetching, staticResolver(q))
}

// Close stops timers, cancels in-flight requests and waits for them to return
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.debouncer.Cancel()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

type resolver func(ctx context.Context) (domain.Query, error)

func staticResolver(q domain.Query) resolver {
	return func(context.Context) (domain.Query, error) {
		return q, nil
	}
}

func cityResolver(city string) resolver {
	return func(context.Context) (domain.Query, error) {
		if strings.TrimSpace(city) == "" {
			return domain.Query{}, domain.ErrEmptyQuery
		}
		return domain.CityQuery(city), nil
	}
}

func (c *Controller) selectLocked(text string) <-chan struct{} {
	c.debouncer.Cancel()
	c.inputGen++
	c.clearSuggestionsLocked()
	c.state.input = text
	c.state.city = text
	return c.fetchLocked(loadFetching, cityResolver(text))
}

// fireDebounced runs a debounced fetch unless a keystroke or commit happened
// after it was scheduled. A timer already past Debouncer's own check may
// still be waiting for mu here.
func (c *Controller) fireDebounced(text string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.inputGen {
		return
	}
	c.state.city = text
	c.fetchLocked(loadFetching, cityResolver(text))
}

func (c *Controller) refetchQueryLocked() (domain.Query, bool) {
	if c.state.weather != nil && c.lastQuery != nil && c.lastQuery.ByCoordinates() {
		return *c.lastQuery, true
	}
	if strings.TrimSpace(c.state.city) != "" {
		return domain.CityQuery(c.state.city), true
	}
	return domain.Query{}, false
}

// fetchLocked supersedes any in-flight weather request and starts a new one
func (c *Controller) fetchLocked(load loadState, resolve resolver) <-chan struct{} {
	done := make(chan struct{})
	if c.closed {
		close(done)
		return done
	}

	c.fetchSeq++
	seq := c.fetchSeq
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
	c.cancelFetch = cancel

	c.state.err = ""
	c.state.load = load
	unit := c.state.unit

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		defer cancel()

		q, err := resolve(ctx)
		var snap domain.Snapshot
		if err == nil {
			snap, err = c.weather.FetchWeather(ctx, q, unit)
		}
		if c.settle(seq, q, snap, err) {
			c.persistRecent()
		}
	}()
	return done
}

// settle applies a finished request if it is still the latest one and
// reports whether the recent-search list changed
func (c *Controller) settle(seq uint64, q domain.Query, snap domain.Snapshot, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.fetchSeq {
		log.Debugw("discarding stale weather response", "seq", seq, "latest", c.fetchSeq, "query", q.String())
		return false
	}
	c.cancelFetch = nil
	c.state.load = loadNone

	if err != nil {
		// The previous snapshot stays on screen.
		c.state.err = domain.UserMessage(err)
		log.Warnw("weather fetch failed", "query", q.String(), "error", err)
		return false
	}

	c.state.weather = &snap
	c.lastQuery = &q
	c.recent.Push(snap.Location)
	return true
}

// persistRecent writes the recent-search list without holding mu
func (c *Controller) persistRecent() {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
	defer cancel()
	if err := c.recent.Persist(ctx); err != nil {
		log.Warnw("failed to persist recent searches", "error", err)
	}
}

func (c *Controller) locationFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.load == loadLocating {
		c.fetchSeq++
		if c.cancelFetch != nil {
			c.cancelFetch()
			c.cancelFetch = nil
		}
		c.state.load = loadNone
	}
	c.state.err = domain.UserMessage(err)
}

func (c *Controller) suggestLocked(prefix string) {
	if c.suggester == nil {
		return
	}

	c.suggestSeq++
	seq := c.suggestSeq
	if c.cancelSuggest != nil {
		c.cancelSuggest()
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
	c.cancelSuggest = cancel
	suggester := c.suggester

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		labels, err := suggester.Suggest(ctx, prefix)

		c.mu.Lock()
		defer c.mu.Unlock()
		if seq != c.suggestSeq {
			return
		}
		c.cancelSuggest = nil
		if err != nil {
			log.Warnw("city suggestion lookup failed", "prefix", prefix, "error", err)
			return
		}
		c.state.suggestions = labels
	}()
}

func (c *Controller) clearSuggestionsLocked() {
	c.suggestSeq++
	if c.cancelSuggest != nil {
		c.cancelSuggest()
		c.cancelSuggest = nil
	}
	c.state.suggestions = nil
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
