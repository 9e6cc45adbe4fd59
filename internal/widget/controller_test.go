package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherapp/backend/internal/domain"
	"github.com/weatherapp/backend/internal/repository/memory"
	"github.com/weatherapp/backend/internal/service"
)

type fakeCall struct {
	Query domain.Query
	Unit  domain.Unit
}

type fakeWeather struct {
	mu      sync.Mutex
	calls   []fakeCall
	respond func(ctx context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error)
}

func (f *fakeWeather) FetchWeather(ctx context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Query: q, Unit: unit})
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		return respond(ctx, q, unit)
	}
	return snapshotFor(q, unit), nil
}

func (f *fakeWeather) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func snapshotFor(q domain.Query, unit domain.Unit) domain.Snapshot {
	name := q.City
	if q.ByCoordinates() {
		name = "Here"
	}
	return domain.Snapshot{
		Location:    name,
		Temperature: 20,
		Unit:        unit,
		Condition:   domain.ConditionClear,
	}
}

type fakeSuggester struct {
	mu       sync.Mutex
	prefixes []string
	err      error
}

func (f *fakeSuggester) Suggest(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	if f.err != nil {
		return nil, f.err
	}
	return []string{prefix + "ton, GB", prefix + "ville, US"}, nil
}

func (f *fakeSuggester) Prefixes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prefixes...)
}

type deniedLocator struct{}

func (deniedLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	return domain.Coordinates{}, domain.ErrGeolocationDenied
}

func newController(t *testing.T, weather WeatherFetcher, opts Options) (*Controller, *service.RecentSearchStore) {
	t.Helper()
	recent := service.NewRecentSearchStore(memory.NewRepository(), "")
	c := New(weather, recent, opts)
	t.Cleanup(c.Close)
	return c, recent
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request did not settle")
	}
}

func TestController_RecentUsesResolvedName(t *testing.T) {
	weather := &fakeWeather{respond: func(_ context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error) {
		s := snapshotFor(q, unit)
		if strings.EqualFold(q.City, "new york") {
			s.Location = "New York"
		}
		return s, nil
	}}
	c, _ := newController(t, weather, Options{})

	wait(t, c.Search("new york"))

	v := c.View()
	require.NotNil(t, v.Weather)
	assert.Equal(t, "New York", v.Weather.Location)
	assert.Equal(t, []string{"New York"}, v.RecentSearches)
	assert.Equal(t, "new york", v.City)
	assert.False(t, v.Loading)
	assert.Empty(t, v.Error)
}

func TestController_RecentBoundedAndDeduped(t *testing.T) {
	c, recent := newController(t, &fakeWeather{}, Options{})

	for _, city := range []string{"A", "B", "C", "D", "E", "F", "C"} {
		wait(t, c.Search(city))
	}
	assert.Equal(t, []string{"C", "F", "E", "D", "B"}, c.View().RecentSearches)
	assert.Equal(t, c.View().RecentSearches, recent.List())
}

func TestController_ErrorRetainsSnapshot(t *testing.T) {
	weather := &fakeWeather{respond: func(_ context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error) {
		if q.City == "Atlantis" {
			return domain.Snapshot{}, domain.ErrCityNotFound
		}
		return snapshotFor(q, unit), nil
	}}
	c, _ := newController(t, weather, Options{})

	wait(t, c.Search("London"))
	wait(t, c.Search("Atlantis"))

	v := c.View()
	assert.Equal(t, "City not found! Please enter a valid city name.", v.Error)
	require.NotNil(t, v.Weather)
	assert.Equal(t, "London", v.Weather.Location)
	assert.Equal(t, []string{"London"}, v.RecentSearches)
	assert.False(t, v.Loading)

	// A new attempt clears the error
	wait(t, c.Search("Paris"))
	v = c.View()
	assert.Empty(t, v.Error)
	assert.Equal(t, "Paris", v.Weather.Location)
}

func TestController_UpstreamErrorMessage(t *testing.T) {
	weather := &fakeWeather{respond: func(context.Context, domain.Query, domain.Unit) (domain.Snapshot, error) {
		return domain.Snapshot{}, &domain.UpstreamError{Status: 502, StatusText: "Bad Gateway"}
	}}
	c, _ := newController(t, weather, Options{})

	wait(t, c.Search("Oslo"))
	assert.Equal(t, "Error: 502 - Bad Gateway", c.View().Error)
}

func TestController_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	weather := &fakeWeather{respond: func(_ context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error) {
		if q.City == "Paris" {
			// Ignores cancellation to simulate a reply that arrives late anyway.
			<-release
		}
		return snapshotFor(q, unit), nil
	}}
	c, _ := newController(t, weather, Options{})

	slow := c.Search("Paris")
	fast := c.Search("Rome")
	wait(t, fast)

	v := c.View()
	require.NotNil(t, v.Weather)
	assert.Equal(t, "Rome", v.Weather.Location)
	assert.False(t, v.Loading)

	close(release)
	wait(t, slow)

	v = c.View()
	assert.Equal(t, "Rome", v.Weather.Location)
	assert.Equal(t, []string{"Rome"}, v.RecentSearches)
}

func TestController_LoadingUntilLatestSettles(t *testing.T) {
	release := make(chan struct{})
	weather := &fakeWeather{respond: func(_ context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error) {
		<-release
		return snapshotFor(q, unit), nil
	}}
	c, _ := newController(t, weather, Options{})

	done := c.Search("Lima")
	assert.True(t, c.View().Loading)
	close(release)
	wait(t, done)
	assert.False(t, c.View().Loading)
}

func TestController_DebouncedFetchTargetsLastInput(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{Mode: ModeAutoFetch, DebounceDelay: 50 * time.Millisecond})

	for _, text := range []string{"l", "lo", "lon", "lond", "londo", "london"} {
		c.Input(text)
		assert.Equal(t, text, c.View().Input)
	}

	assert.Eventually(t, func() bool { return len(weather.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return c.View().Weather != nil }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	calls := weather.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "london", calls[0].Query.City)
	assert.Equal(t, "london", c.View().City)
}

func TestController_ShortInputCancelsDebounce(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{Mode: ModeAutoFetch, DebounceDelay: 40 * time.Millisecond})

	c.Input("lon")
	c.Input("lo")

	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, weather.Calls())
}

func TestController_SubmitBypassesDebounce(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{Mode: ModeAutoFetch, DebounceDelay: 40 * time.Millisecond})

	c.Input("Berlin")
	wait(t, c.Submit())

	time.Sleep(120 * time.Millisecond)
	calls := weather.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Berlin", calls[0].Query.City)
}

func TestController_SubmitEmptyInput(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{})

	wait(t, c.Submit())
	assert.Empty(t, weather.Calls())
	assert.Equal(t, domain.MsgEmptyQuery, c.View().Error)
}

func TestController_SuggestionThreshold(t *testing.T) {
	suggester := &fakeSuggester{}
	c, _ := newController(t, &fakeWeather{}, Options{Suggester: suggester})

	c.Input("l")
	c.Input("lo")
	assert.Empty(t, suggester.Prefixes())

	c.Input("lon")
	assert.Eventually(t, func() bool { return len(c.View().Suggestions) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"lonton, GB", "lonville, US"}, c.View().Suggestions)

	c.Input("lo")
	assert.Empty(t, c.View().Suggestions)
	assert.Equal(t, []string{"lon"}, suggester.Prefixes())
}

func TestController_SuggestionFailureIsSilent(t *testing.T) {
	suggester := &fakeSuggester{err: errors.New("rate limited")}
	c, _ := newController(t, &fakeWeather{}, Options{Suggester: suggester})

	c.Input("Madrid")
	assert.Eventually(t, func() bool { return len(suggester.Prefixes()) == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	v := c.View()
	assert.Empty(t, v.Error)
	assert.Empty(t, v.Suggestions)
}

func TestController_SelectSuggestion(t *testing.T) {
	weather := &fakeWeather{}
	suggester := &fakeSuggester{}
	c, _ := newController(t, weather, Options{Suggester: suggester})

	c.Input("Lon")
	assert.Eventually(t, func() bool { return len(c.View().Suggestions) > 0 }, 2*time.Second, 5*time.Millisecond)

	wait(t, c.SelectSuggestion("London, GB"))

	v := c.View()
	assert.Empty(t, v.Suggestions)
	assert.Equal(t, "London, GB", v.City)
	assert.Equal(t, "London, GB", v.Input)
	calls := weather.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "London, GB", calls[0].Query.City)
}

func TestController_SelectRecent(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{})

	wait(t, c.Search("Oslo"))
	wait(t, c.Search("Bergen"))
	wait(t, c.SelectRecent("Oslo"))

	v := c.View()
	assert.Equal(t, "Oslo", v.Weather.Location)
	assert.Equal(t, []string{"Oslo", "Bergen"}, v.RecentSearches)
}

func TestController_ToggleUnitWithoutWeather(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{})

	wait(t, c.ToggleUnit())

	v := c.View()
	assert.Equal(t, domain.UnitImperial, v.Unit)
	assert.Equal(t, "°F", v.TemperatureSymbol)
	assert.Equal(t, "Switch to Celsius", v.ToggleLabel)
	assert.Empty(t, weather.Calls())
	assert.Nil(t, v.Weather)
}

func TestController_ToggleUnitRefetchesCommittedCity(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{})

	wait(t, c.Search("London"))
	c.Input("Par") // pending input is not the refetch target
	wait(t, c.ToggleUnit())

	calls := weather.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "London", calls[1].Query.City)
	assert.Equal(t, domain.UnitImperial, calls[1].Unit)
	assert.Equal(t, domain.UnitImperial, c.View().Weather.Unit)
}

func TestController_ToggleUnitKeepsCoordinates(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{})

	wait(t, c.Search("London"))
	done, err := c.LocationGranted(domain.Coordinates{Lat: 48.85, Lon: 2.35})
	require.NoError(t, err)
	wait(t, done)

	wait(t, c.ToggleUnit())

	calls := weather.Calls()
	require.Len(t, calls, 3)
	require.True(t, calls[2].Query.ByCoordinates())
	assert.Equal(t, 48.85, calls[2].Query.Coordinates.Lat)
	assert.Equal(t, domain.UnitImperial, calls[2].Unit)
}

func TestController_LocationGrantedIgnoresInput(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{})

	c.Input("Tokyo")
	done, err := c.LocationGranted(domain.Coordinates{Lat: 1, Lon: 2})
	require.NoError(t, err)
	wait(t, done)

	calls := weather.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Query.ByCoordinates())
	assert.Empty(t, calls[0].Query.City)
	assert.Equal(t, "Here", c.View().Weather.Location)
}

func TestController_LocationInFlight(t *testing.T) {
	release := make(chan struct{})
	weather := &fakeWeather{respond: func(_ context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error) {
		<-release
		return snapshotFor(q, unit), nil
	}}
	c, _ := newController(t, weather, Options{})

	done, err := c.LocationGranted(domain.Coordinates{Lat: 1, Lon: 2})
	require.NoError(t, err)

	v := c.View()
	assert.True(t, v.Locating)
	assert.False(t, v.CanLocate)

	_, err = c.LocationGranted(domain.Coordinates{Lat: 3, Lon: 4})
	assert.ErrorIs(t, err, domain.ErrLocationInFlight)

	close(release)
	wait(t, done)
	assert.True(t, c.View().CanLocate)
}

func TestController_LocationDenied(t *testing.T) {
	c, _ := newController(t, &fakeWeather{}, Options{})

	c.LocationDenied()
	v := c.View()
	assert.Equal(t, "Error getting location. Please allow location access.", v.Error)
	assert.False(t, v.Loading)
	assert.False(t, v.Locating)

	c.LocationUnsupported()
	assert.Equal(t, domain.MsgGeolocationUnsupported, c.View().Error)
}

func TestController_UseCurrentLocation(t *testing.T) {
	weather := &fakeWeather{}

	c, _ := newController(t, weather, Options{})
	done, err := c.UseCurrentLocation()
	require.NoError(t, err)
	wait(t, done)
	assert.Equal(t, domain.MsgGeolocationUnsupported, c.View().Error)
	assert.Empty(t, weather.Calls())

	c, _ = newController(t, weather, Options{Locator: deniedLocator{}})
	done, err = c.UseCurrentLocation()
	require.NoError(t, err)
	wait(t, done)
	assert.Equal(t, domain.MsgGeolocationDenied, c.View().Error)
	assert.Empty(t, weather.Calls())

	c, _ = newController(t, weather, Options{Locator: FixedLocator{Coordinates: domain.Coordinates{Lat: 35.68, Lon: 139.69}}})
	done, err = c.UseCurrentLocation()
	require.NoError(t, err)
	wait(t, done)
	calls := weather.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 35.68, calls[0].Query.Coordinates.Lat)
	assert.Equal(t, "Here", c.View().Weather.Location)
}

func TestController_StartFetchesMostRecent(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewRepository()
	require.NoError(t, kv.Set(ctx, service.RecentSearchesKey, []byte(`["Lisbon","Porto"]`)))

	weather := &fakeWeather{}
	c := New(weather, service.NewRecentSearchStore(kv, ""), Options{DefaultCity: DefaultCity})
	defer c.Close()

	wait(t, c.Start(ctx))

	v := c.View()
	assert.Equal(t, "Lisbon", v.City)
	assert.Equal(t, []string{"Lisbon", "Porto"}, v.RecentSearches)
	require.Len(t, weather.Calls(), 1)
	assert.Equal(t, "Lisbon", weather.Calls()[0].Query.City)
}

func TestController_StartSeedsDefaultCity(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{DefaultCity: DefaultCity})

	wait(t, c.Start(context.Background()))

	v := c.View()
	assert.Equal(t, []string{"New York"}, v.RecentSearches)
	assert.Equal(t, domain.ThemeClear, v.Theme)
}

func TestController_CloseStopsWork(t *testing.T) {
	var calls atomic.Int32
	weather := &fakeWeather{respond: func(ctx context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error) {
		calls.Add(1)
		<-ctx.Done()
		return domain.Snapshot{}, ctx.Err()
	}}
	recent := service.NewRecentSearchStore(memory.NewRepository(), "")
	c := New(weather, recent, Options{Mode: ModeAutoFetch, DebounceDelay: 30 * time.Millisecond})

	done := c.Search("Cairo")
	c.Input("Alexandria")
	c.Close()
	wait(t, done)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	wait(t, c.Search("Giza"))
	assert.Equal(t, int32(1), calls.Load())
}

// slowStore holds every Set until release is closed
type slowStore struct {
	*memory.Repository
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) Set(ctx context.Context, key string, value []byte) error {
	s.entered <- struct{}{}
	<-s.release
	return s.Repository.Set(ctx, key, value)
}

func TestController_ResponsiveWhilePersisting(t *testing.T) {
	store := &slowStore{
		Repository: memory.NewRepository(),
		entered:    make(chan struct{}, 16),
		release:    make(chan struct{}),
	}
	c := New(&fakeWeather{}, service.NewRecentSearchStore(store, ""), Options{})
	defer c.Close()

	done := c.Search("Oslo")
	<-store.entered

	viewed := make(chan View, 1)
	go func() {
		c.Input("Ber")
		viewed <- c.View()
	}()

	select {
	case v := <-viewed:
		require.NotNil(t, v.Weather)
		assert.Equal(t, "Oslo", v.Weather.Location)
		assert.Equal(t, []string{"Oslo"}, v.RecentSearches)
		assert.Equal(t, "Ber", v.Input)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("View and Input blocked while recent searches were being written")
	}

	close(store.release)
	wait(t, done)

	raw, err := store.Repository.Get(context.Background(), service.RecentSearchesKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["Oslo"]`, string(raw))
}

// gatedSuggester holds replies for gated prefixes until their channel closes,
// ignoring cancellation so the reply arrives late
type gatedSuggester struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func (g *gatedSuggester) gate(prefix string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.gates[prefix] = ch
	return ch
}

func (g *gatedSuggester) Suggest(ctx context.Context, prefix string) ([]string, error) {
	g.mu.Lock()
	ch := g.gates[prefix]
	g.mu.Unlock()
	if ch != nil {
		<-ch
	}
	return []string{prefix + " City, XX"}, nil
}

func TestController_StaleSuggestionDiscarded(t *testing.T) {
	suggester := &gatedSuggester{gates: map[string]chan struct{}{}}
	release := suggester.gate("lon")
	c, _ := newController(t, &fakeWeather{}, Options{Suggester: suggester})

	c.Input("lon")
	c.Input("lond")
	assert.Eventually(t, func() bool {
		s := c.View().Suggestions
		return len(s) == 1 && s[0] == "lond City, XX"
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	c.Close() // waits for the late reply to be handled

	assert.Equal(t, []string{"lond City, XX"}, c.View().Suggestions)
}

func TestController_LateSuggestionAfterSelect(t *testing.T) {
	suggester := &gatedSuggester{gates: map[string]chan struct{}{}}
	release := suggester.gate("Lon")
	c, _ := newController(t, &fakeWeather{}, Options{Suggester: suggester})

	c.Input("Lon")
	wait(t, c.SelectSuggestion("London, GB"))

	close(release)
	c.Close()

	v := c.View()
	assert.Empty(t, v.Suggestions)
	assert.Equal(t, "London, GB", v.City)
}

func TestController_DebounceAfterCommitIgnored(t *testing.T) {
	weather := &fakeWeather{}
	c, _ := newController(t, weather, Options{Mode: ModeAutoFetch, DebounceDelay: time.Hour})

	c.Input("Berlin")
	c.mu.Lock()
	gen := c.inputGen
	c.mu.Unlock()

	done := c.Submit()
	// A timer that slipped past the debouncer before Submit cancelled it.
	c.fireDebounced("Berlin", gen)
	wait(t, done)

	calls := weather.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Berlin", calls[0].Query.City)
	assert.Equal(t, "Berlin", c.View().Weather.Location)
}
