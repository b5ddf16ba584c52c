// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// SubscriptionService takes a repository.Store, a weather fetcher and a
// refresh starter as interfaces, so tests swap in in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/city-weather/internal/apperror"
	"github.com/sakif/city-weather/internal/model"
	"github.com/sakif/city-weather/internal/repository"
	"github.com/sakif/city-weather/internal/weather"
)

// MaxNameLength bounds usernames and city names, in characters.
const MaxNameLength = 100

// Fetcher is the upstream weather source.
type Fetcher interface {
	FetchCurrent(ctx context.Context, lat, lon float64, params []string) (weather.Conditions, error)
	FetchHourly(ctx context.Context, lat, lon float64, params []string) (*model.HourlyForecast, error)
}

// RefreshStarter registers the background refresh of a city.
type RefreshStarter interface {
	Start(city string) (bool, error)
}

// TrackResult is returned by Track. Created is true only for the call that
// actually created the city.
type TrackResult struct {
	City    *model.City
	Created bool
}

// Message is the confirmation shown to the user. New and existing cities
// read the same.
func (r *TrackResult) Message() string {
	return fmt.Sprintf("City %s added and weather tracking started.", r.City.Name)
}

// SubscriptionService handles users, tracked cities and forecast lookups.
type SubscriptionService struct {
	store   repository.Store
	fetcher Fetcher
	refresh RefreshStarter
	logger  *slog.Logger

	// creating collapses concurrent first subscriptions to the same city
	// name into one fetch and one insert.
	creating singleflight.Group
}

// NewSubscriptionService creates a SubscriptionService.
func NewSubscriptionService(store repository.Store, fetcher Fetcher, refresh RefreshStarter, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		store:   store,
		fetcher: fetcher,
		refresh: refresh,
		logger:  logger,
	}
}

// RegisterUser creates a user. Fails with apperror.ErrDuplicateUsername if
// the name is taken.
func (s *SubscriptionService) RegisterUser(ctx context.Context, username string) (*model.User, error) {
	if err := validateName("username", username); err != nil {
		return nil, err
	}

	user := &model.User{Username: username}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateUsername) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Track subscribes a user to a city.
//
// If no city with that name exists yet, its hourly forecast is fetched
// (the caller waits for the upstream round trip), the city is stored, its
// refresh job is started and the user is linked. If the city exists, the
// user is only linked and the given coordinates are ignored. Tracking the
// same city twice fails with apperror.ErrAlreadyTracked.
func (s *SubscriptionService) Track(ctx context.Context, userID int64, cityName string, lat, lon float64) (*TrackResult, error) {
	if err := validateName("city_name", cityName); err != nil {
		return nil, err
	}

	city, err := s.linkExisting(ctx, userID, cityName)
	switch {
	case err == nil:
		s.logger.Info("city linked",
			slog.Int64("user", userID),
			slog.String("city", city.Name),
		)
		return &TrackResult{City: city}, nil
	case errors.Is(err, apperror.ErrCityUnknown):
		return s.trackNewCity(ctx, userID, cityName, lat, lon)
	default:
		return nil, err
	}
}

// linkExisting checks the user, loads the city and links them in one
// transaction.
func (s *SubscriptionService) linkExisting(ctx context.Context, userID int64, cityName string) (*model.City, error) {
	var city *model.City
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return err
		}
		c, err := tx.GetCityByName(ctx, cityName)
		if err != nil {
			return err
		}
		if err := linkOnce(ctx, tx, userID, c); err != nil {
			return err
		}
		city = c
		return nil
	})
	return city, err
}

func (s *SubscriptionService) trackNewCity(ctx context.Context, userID int64, cityName string, lat, lon float64) (*TrackResult, error) {
	created := false
	v, err, _ := s.creating.Do(cityName, func() (any, error) {
		created = true
		// Detached from this caller's cancellation: other callers may be
		// waiting on the same result.
		return s.createCity(context.WithoutCancel(ctx), cityName, lat, lon)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrDuplicateCityName) {
			// Someone created it between our lookup and our insert.
			s.logger.Info("city created concurrently, linking instead",
				slog.String("city", cityName),
			)
			city, err := s.linkExisting(ctx, userID, cityName)
			if err != nil {
				return nil, err
			}
			return &TrackResult{City: city}, nil
		}
		return nil, err
	}

	city := v.(*model.City)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		return linkOnce(ctx, tx, userID, city)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("city linked",
		slog.Int64("user", userID),
		slog.String("city", city.Name),
		slog.Bool("created", created),
	)
	return &TrackResult{City: city, Created: created}, nil
}

// createCity fetches the first forecast, stores the city and starts its
// refresh job. An upstream failure leaves nothing behind.
func (s *SubscriptionService) createCity(ctx context.Context, name string, lat, lon float64) (*model.City, error) {
	forecast, err := s.fetcher.FetchHourly(ctx, lat, lon, weather.HourlyParams)
	if err != nil {
		s.logger.Warn("forecast fetch failed for new city",
			slog.String("city", name),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	city := &model.City{
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		Forecast:  forecast,
	}
	if err := s.store.CreateCity(ctx, city); err != nil {
		if errors.Is(err, apperror.ErrDuplicateCityName) {
			return nil, err
		}
		return nil, fmt.Errorf("creating city: %w", err)
	}

	s.logger.Info("city created",
		slog.Int64("id", city.ID),
		slog.String("city", city.Name),
		slog.Float64("latitude", lat),
		slog.Float64("longitude", lon),
	)

	if _, err := s.refresh.Start(city.Name); err != nil {
		s.logger.Error("failed to start refresh job",
			slog.String("city", city.Name),
			slog.String("error", err.Error()),
		)
	}

	return city, nil
}

// ResumeTracking starts a refresh job for every stored city. It is called
// once at startup so cities created by a previous run keep refreshing.
// Returns the number of jobs started.
func (s *SubscriptionService) ResumeTracking(ctx context.Context) (int, error) {
	names, err := s.store.CityNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing cities: %w", err)
	}

	started := 0
	for _, name := range names {
		ok, err := s.refresh.Start(name)
		if err != nil {
			return started, fmt.Errorf("starting refresh for %q: %w", name, err)
		}
		if ok {
			started++
		}
	}

	if started > 0 {
		s.logger.Info("refresh jobs resumed", slog.Int("cities", started))
	}
	return started, nil
}

// linkOnce links userID to city unless the pair already exists.
func linkOnce(ctx context.Context, tx repository.Store, userID int64, city *model.City) error {
	linked, err := tx.IsLinked(ctx, userID, city.ID)
	if err != nil {
		return err
	}
	if linked {
		return apperror.AlreadyTracked(city.Name)
	}
	if err := tx.Link(ctx, userID, city.ID); err != nil {
		if errors.Is(err, apperror.ErrAlreadyTracked) {
			return apperror.AlreadyTracked(city.Name)
		}
		return err
	}
	return nil
}

// ListCities returns the names of the cities a user tracks, oldest first.
func (s *SubscriptionService) ListCities(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return err
		}
		cities, err := tx.CitiesOf(ctx, userID)
		if err != nil {
			return err
		}
		names = make([]string, 0, len(cities))
		for _, c := range cities {
			names = append(names, c.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// WeatherAt returns the cached forecast sample of a tracked city at a
// time of day ("HH:MM"), searched within the first 24 hourly samples.
//
// The failures are checked in order: unknown user, city never created by
// anyone, city not tracked by this user, no sample at that time.
func (s *SubscriptionService) WeatherAt(ctx context.Context, userID int64, cityName, timeOfDay string) (*model.Sample, error) {
	var city *model.City
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return err
		}
		c, err := tx.GetCityByName(ctx, cityName)
		if err != nil {
			return err
		}
		linked, err := tx.IsLinked(ctx, userID, c.ID)
		if err != nil {
			return err
		}
		if !linked {
			return apperror.NotTracked(cityName, userID)
		}
		city = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	sample, ok := city.Forecast.At(timeOfDay)
	if !ok {
		return nil, apperror.TimeNotAvailable(timeOfDay)
	}
	return &sample, nil
}

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, MaxNameLength))
	}
	return nil
}
