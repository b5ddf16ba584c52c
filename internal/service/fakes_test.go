package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/sakif/city-weather/internal/apperror"
	"github.com/sakif/city-weather/internal/model"
	"github.com/sakif/city-weather/internal/repository"
	"github.com/sakif/city-weather/internal/weather"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory repository.Store. WithTx serialises callbacks
// with txMu; the individual methods guard the maps with mu.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users      map[int64]*model.User
	cities     map[int64]*model.City
	links      [][2]int64 // (user, city) in insertion order
	nextUserID int64
	nextCityID int64

	// beforeCreateCity runs (without locks held) at the start of CreateCity.
	beforeCreateCity func()
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[int64]*model.User),
		cities: make(map[int64]*model.City),
	}
}

func (f *fakeStore) WithTx(_ context.Context, fn func(repository.Store) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(f)
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.DuplicateUsername(user.Username)
		}
	}
	f.nextUserID++
	user.ID = f.nextUserID
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.UserNotFound(id)
	}
	result := *u
	return &result, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.UsernameNotFound(username)
}

func (f *fakeStore) CreateCity(_ context.Context, city *model.City) error {
	if f.beforeCreateCity != nil {
		f.beforeCreateCity()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cities {
		if c.Name == city.Name {
			return apperror.DuplicateCityName(city.Name)
		}
	}
	f.nextCityID++
	city.ID = f.nextCityID
	stored := *city
	f.cities[city.ID] = &stored
	return nil
}

func (f *fakeStore) GetCityByID(_ context.Context, id int64) (*model.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cities[id]
	if !ok {
		return nil, apperror.NotFound("city", fmt.Sprint(id))
	}
	result := *c
	return &result, nil
}

func (f *fakeStore) GetCityByName(_ context.Context, name string) (*model.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cities {
		if c.Name == name {
			result := *c
			return &result, nil
		}
	}
	return nil, apperror.CityUnknown(name)
}

func (f *fakeStore) UpdateForecast(_ context.Context, cityID int64, forecast *model.HourlyForecast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cities[cityID]
	if !ok {
		return apperror.NotFound("city", fmt.Sprint(cityID))
	}
	c.Forecast = forecast
	return nil
}

func (f *fakeStore) CityNames(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.cities))
	for id := int64(1); id <= f.nextCityID; id++ {
		if c, ok := f.cities[id]; ok {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

func (f *fakeStore) Link(_ context.Context, userID, cityID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l == [2]int64{userID, cityID} {
			return apperror.AlreadyTracked(fmt.Sprint(cityID))
		}
	}
	f.links = append(f.links, [2]int64{userID, cityID})
	return nil
}

func (f *fakeStore) IsLinked(_ context.Context, userID, cityID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l == [2]int64{userID, cityID} {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CitiesOf(_ context.Context, userID int64) ([]model.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.City{}
	for _, l := range f.links {
		if l[0] == userID {
			c := *f.cities[l[1]]
			c.Forecast = nil
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UsersOf(_ context.Context, cityID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []int64{}
	for _, l := range f.links {
		if l[1] == cityID {
			out = append(out, l[0])
		}
	}
	return out, nil
}

func (f *fakeStore) cityCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cities)
}

func (f *fakeStore) linkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links)
}

// =========================================================================
// FAKE FETCHER AND REFRESH
// =========================================================================

type fakeFetcher struct {
	mu          sync.Mutex
	hourlyCalls int
	currentCall int
	err         error
	current     weather.Conditions
}

func (f *fakeFetcher) FetchCurrent(_ context.Context, lat, lon float64, params []string) (weather.Conditions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentCall++
	if f.err != nil {
		return nil, f.err
	}
	return f.current, nil
}

// FetchHourly returns a 24-hour series where the value at hour h is h
// (temperature), h+0.5 (wind), 50+h (humidity) and h/10 (precipitation).
func (f *fakeFetcher) FetchHourly(_ context.Context, lat, lon float64, params []string) (*model.HourlyForecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hourlyCalls++
	if f.err != nil {
		return nil, f.err
	}
	return dayForecast(), nil
}

func (f *fakeFetcher) hourly() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hourlyCalls
}

func dayForecast() *model.HourlyForecast {
	fc := &model.HourlyForecast{}
	for h := 0; h < 24; h++ {
		fc.Time = append(fc.Time, fmt.Sprintf("2026-10-18T%02d:00", h))
		fc.Temperature = append(fc.Temperature, ptr(float64(h)))
		fc.WindSpeed = append(fc.WindSpeed, ptr(float64(h)+0.5))
		fc.Pressure = append(fc.Pressure, ptr(1000))
		fc.Humidity = append(fc.Humidity, ptr(float64(50+h)))
		fc.Precipitation = append(fc.Precipitation, ptr(float64(h)/10))
	}
	return fc
}

type fakeRefresh struct {
	mu     sync.Mutex
	starts []string
}

func (f *fakeRefresh) Start(city string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.starts {
		if c == city {
			return false, nil
		}
	}
	f.starts = append(f.starts, city)
	return true, nil
}

func (f *fakeRefresh) started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.starts...)
}

// =========================================================================
// HELPERS
// =========================================================================

func ptr(v float64) *float64 { return &v }

type testDeps struct {
	store   *fakeStore
	fetcher *fakeFetcher
	refresh *fakeRefresh
}

func newTestService(t *testing.T) (*SubscriptionService, *testDeps) {
	t.Helper()
	deps := &testDeps{
		store:   newFakeStore(),
		fetcher: &fakeFetcher{},
		refresh: &fakeRefresh{},
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewSubscriptionService(deps.store, deps.fetcher, deps.refresh, logger)
	return svc, deps
}

func registerTestUser(t *testing.T, svc *SubscriptionService, username string) *model.User {
	t.Helper()
	u, err := svc.RegisterUser(context.Background(), username)
	if err != nil {
		t.Fatalf("RegisterUser(%q) error = %v", username, err)
	}
	return u
}
