// Package refresh keeps the cached hourly forecast of every tracked city
// fresh.
//
// There is one job per city name, registered the moment the city is first
// created. Each job waits one interval, re-reads the city, fetches a new
// hourly series at the stored coordinates and overwrites the cached one.
// Jobs run until Stop or Shutdown; a failed cycle is logged and the job
// carries on with the next one.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/xid"

	"github.com/sakif/city-weather/internal/apperror"
	"github.com/sakif/city-weather/internal/model"
	"github.com/sakif/city-weather/internal/weather"
)

// DefaultInterval is the time between two refreshes of the same city.
const DefaultInterval = 900 * time.Second

// ErrStopped is returned by Start after Shutdown.
var ErrStopped = errors.New("refresh scheduler stopped")

// CityStore is the part of the city repository a refresh cycle needs.
type CityStore interface {
	GetCityByName(ctx context.Context, name string) (*model.City, error)
	UpdateForecast(ctx context.Context, cityID int64, forecast *model.HourlyForecast) error
}

// Fetcher loads an hourly forecast.
type Fetcher interface {
	FetchHourly(ctx context.Context, lat, lon float64, params []string) (*model.HourlyForecast, error)
}

// Config holds scheduler settings.
type Config struct {
	// Interval between refreshes of one city. Zero means DefaultInterval.
	Interval time.Duration
	// Timeout bounds one whole cycle (lookup, fetch, write). Zero means 30s.
	Timeout time.Duration
}

// Task describes one registered job.
type Task struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	StartedAt time.Time `json:"startedAt"`
}

// Scheduler is the registry of refresh jobs, keyed by city name.
type Scheduler struct {
	cron    *gocron.Scheduler
	cities  CityStore
	fetcher Fetcher
	config  Config
	logger  *slog.Logger

	mu      sync.Mutex
	tasks   map[string]Task
	stopped bool
}

// New creates a running scheduler with no jobs.
func New(cities CityStore, fetcher Fetcher, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.TagsUnique()
	cron.StartAsync()

	return &Scheduler{
		cron:    cron,
		cities:  cities,
		fetcher: fetcher,
		config:  cfg,
		logger:  logger,
		tasks:   make(map[string]Task),
	}
}

// Start registers the refresh job for city. It reports false, without
// error, when a job for that name already exists.
func (s *Scheduler) Start(city string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false, ErrStopped
	}
	if _, ok := s.tasks[city]; ok {
		return false, nil
	}

	task := Task{
		ID:        xid.New().String(),
		City:      city,
		StartedAt: time.Now().UTC(),
	}

	// SingletonMode skips a tick while the previous cycle is still running.
	_, err := s.cron.Every(s.config.Interval).
		WaitForSchedule().
		SingletonMode().
		Tag(city).
		Do(s.run, task)
	if err != nil {
		return false, fmt.Errorf("scheduling refresh for %q: %w", city, err)
	}

	s.tasks[city] = task
	s.logger.Info("refresh job started",
		slog.String("city", city),
		slog.String("task", task.ID),
		slog.Duration("interval", s.config.Interval),
	)
	return true, nil
}

// Stop removes the job for city. It reports whether a job existed.
func (s *Scheduler) Stop(city string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[city]
	if !ok {
		return false
	}
	if err := s.cron.RemoveByTag(city); err != nil {
		s.logger.Warn("removing refresh job",
			slog.String("city", city),
			slog.String("error", err.Error()),
		)
	}
	delete(s.tasks, city)

	s.logger.Info("refresh job stopped", slog.String("city", city), slog.String("task", task.ID))
	return true
}

// Running reports whether city has a job.
func (s *Scheduler) Running(city string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[city]
	return ok
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Tasks returns the registered jobs sorted by city name.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedTasks()
}

// sortedTasks requires s.mu.
func (s *Scheduler) sortedTasks() []Task {
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out
}

// Shutdown stops every job. Start fails afterwards.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.cron.Stop()
	for _, t := range s.sortedTasks() {
		s.logger.Info("refresh job stopped",
			slog.String("city", t.City),
			slog.String("task", t.ID),
			slog.Duration("ran_for", time.Since(t.StartedAt)),
		)
	}
	s.logger.Info("refresh scheduler stopped", slog.Int("jobs", len(s.tasks)))
	s.tasks = make(map[string]Task)
}

// run is the gocron job body. Nothing escapes it: errors and panics are
// logged so the job stays scheduled.
func (s *Scheduler) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("refresh cycle panicked",
				slog.String("city", task.City),
				slog.String("task", task.ID),
				slog.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	if err := s.Refresh(ctx, task.City); err != nil {
		s.logger.Error("refresh cycle failed",
			slog.String("city", task.City),
			slog.String("task", task.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Refresh performs one cycle for city. A city that no longer exists is
// not an error; the cycle is simply skipped.
func (s *Scheduler) Refresh(ctx context.Context, city string) error {
	c, err := s.cities.GetCityByName(ctx, city)
	if err != nil {
		if errors.Is(err, apperror.ErrCityUnknown) {
			s.logger.Debug("refresh skipped, city gone", slog.String("city", city))
			return nil
		}
		return fmt.Errorf("loading city: %w", err)
	}

	forecast, err := s.fetcher.FetchHourly(ctx, c.Latitude, c.Longitude, weather.HourlyParams)
	if err != nil {
		return fmt.Errorf("fetching forecast: %w", err)
	}

	if err := s.cities.UpdateForecast(ctx, c.ID, forecast); err != nil {
		return fmt.Errorf("storing forecast: %w", err)
	}

	s.logger.Debug("forecast refreshed",
		slog.String("city", city),
		slog.Int("samples", len(forecast.Time)),
	)
	return nil
}
