package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/city-weather/internal/apperror"
	"github.com/sakif/city-weather/internal/model"
	"github.com/sakif/city-weather/internal/service"
)

// WeatherService is what WeatherHandler needs from the service layer.
// *service.SubscriptionService implements it; tests use a fake.
type WeatherService interface {
	RegisterUser(ctx context.Context, username string) (*model.User, error)
	Track(ctx context.Context, userID int64, cityName string, lat, lon float64) (*service.TrackResult, error)
	ListCities(ctx context.Context, userID int64) ([]string, error)
	WeatherAt(ctx context.Context, userID int64, cityName, timeOfDay string) (*model.Sample, error)
	CurrentWeather(ctx context.Context, lat, lon float64) (*model.Sample, error)
}

// WeatherHandler exposes users, tracked cities and forecasts over HTTP.
//
// All inputs arrive as query parameters (plus {userId} in the path); each
// handler parses them, validates them, calls the service once and maps the
// result through writeJSON / writeText / writeError.
type WeatherHandler struct {
	svc    WeatherService
	logger *slog.Logger
}

// NewWeatherHandler creates a WeatherHandler.
func NewWeatherHandler(svc WeatherService, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{svc: svc, logger: logger}
}

// Routes registers the handler's endpoints on r.
func (h *WeatherHandler) Routes(r chi.Router) {
	r.Post("/weather/by-coordinates", h.HandleCurrentWeather)
	r.Post("/city/{userId}", h.HandleTrack)
	r.Get("/cities/{userId}", h.HandleListCities)
	r.Post("/weather/by-city-and-time/{userId}", h.HandleWeatherAt)
	r.Post("/user", h.HandleRegisterUser)
}

// HandleCurrentWeather returns the current conditions at a point.
//
// HTTP: POST /weather/by-coordinates?latitude=..&longitude=..
// RESPONSE: {"temperature": 7.4, "wind_speed": 11.2, "pressure": 1016.3}
func (h *WeatherHandler) HandleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	q, err := parseCoordinates(r)
	if err == nil {
		err = check(q)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sample, err := h.svc.CurrentWeather(r.Context(), *q.Latitude, *q.Longitude)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// HandleTrack subscribes a user to a city.
//
// HTTP: POST /city/{userId}?city_name=..&latitude=..&longitude=..
// RESPONSE: text/plain "City Paris added and weather tracking started."
func (h *WeatherHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	coords, err := parseCoordinates(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := trackQuery{
		CityName:  r.URL.Query().Get("city_name"),
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	}
	if err := check(q); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.Track(r.Context(), userID, q.CityName, *q.Latitude, *q.Longitude)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeText(w, http.StatusOK, res.Message())
}

// HandleListCities returns the names of the cities a user tracks.
//
// HTTP: GET /cities/{userId}
// RESPONSE: ["Saint-Petersburg", "Moscow"]
func (h *WeatherHandler) HandleListCities(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	names, err := h.svc.ListCities(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// HandleWeatherAt returns the cached forecast of a tracked city at a time
// of day.
//
// HTTP: POST /weather/by-city-and-time/{userId}?city_name=..&time=HH:MM
// RESPONSE: {"temperature": 16, "wind_speed": 16.5, "humidity": 66, "precipitation": 1.6}
func (h *WeatherHandler) HandleWeatherAt(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := weatherAtQuery{
		CityName: r.URL.Query().Get("city_name"),
		Time:     r.URL.Query().Get("time"),
	}
	if err := check(q); err != nil {
		h.fail(w, r, err)
		return
	}

	sample, err := h.svc.WeatherAt(r.Context(), userID, q.CityName, q.Time)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// HandleRegisterUser creates a user and returns the new id as a bare JSON
// number.
//
// HTTP: POST /user?username=..
// RESPONSE: 1
func (h *WeatherHandler) HandleRegisterUser(w http.ResponseWriter, r *http.Request) {
	q := userQuery{Username: r.URL.Query().Get("username")}
	if err := check(q); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), q.Username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.ID)
}

// fail logs unexpected errors and writes the error response. Expected
// domain errors are logged at debug only.
func (h *WeatherHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	switch {
	case errors.Is(err, apperror.ErrUpstream):
		h.logger.Warn("upstream failure",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	case errors.As(err, &appErr):
		h.logger.Debug("request rejected",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	default:
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err)
}
