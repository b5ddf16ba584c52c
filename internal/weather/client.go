// Package weather talks to the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sakif/city-weather/internal/apperror"
	"github.com/sakif/city-weather/internal/model"
)

// DefaultBaseURL is the public Open-Meteo forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Parameter sets requested by the service and the refresh jobs.
var (
	CurrentParams = []string{
		model.ParamTemperature,
		model.ParamWindSpeed,
		model.ParamPressure,
	}
	HourlyParams = []string{
		model.ParamTemperature,
		model.ParamWindSpeed,
		model.ParamPressure,
		model.ParamHumidity,
		model.ParamPrecipitation,
	}
)

var (
	errUnexpectedStatus = errors.New("unexpected status code")
	// errCallerGone marks a request abandoned by its own caller. It does not
	// count against the breaker: the provider was not at fault.
	errCallerGone = errors.New("request abandoned by caller")
)

// Conditions is the flat "current" object: parameter name to value.
// Non-numeric entries such as "time" are kept as returned.
type Conditions map[string]any

// Float returns the numeric value of param, or nil if it is missing or not a number.
func (c Conditions) Float(param string) *float64 {
	v, ok := c[param].(float64)
	if !ok {
		return nil
	}
	return &v
}

// Config controls the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client fetches current conditions and hourly forecasts.
//
// Every call goes through a circuit breaker: after a run of consecutive
// failures the breaker opens and calls fail immediately until it half-opens
// again. There are no retries; a failed call is reported to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewClient builds a Client. A zero Timeout means 10 seconds.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "open-meteo",
		Interval:     1 * time.Minute,
		Timeout:      30 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		circuit: cb,
	}
}

// FetchCurrent returns the current conditions at the coordinates.
func (c *Client) FetchCurrent(ctx context.Context, lat, lon float64, params []string) (Conditions, error) {
	var payload struct {
		Current Conditions `json:"current"`
	}
	if err := c.get(ctx, "current", lat, lon, params, &payload); err != nil {
		return nil, err
	}
	if payload.Current == nil {
		return nil, apperror.Upstream(errors.New(`response has no "current" object`))
	}
	return payload.Current, nil
}

// FetchHourly returns the hourly forecast series at the coordinates.
func (c *Client) FetchHourly(ctx context.Context, lat, lon float64, params []string) (*model.HourlyForecast, error) {
	var payload struct {
		Hourly *model.HourlyForecast `json:"hourly"`
	}
	if err := c.get(ctx, "hourly", lat, lon, params, &payload); err != nil {
		return nil, err
	}
	if payload.Hourly == nil {
		return nil, apperror.Upstream(errors.New(`response has no "hourly" object`))
	}
	return payload.Hourly, nil
}

// get issues one request in the given mode ("current" or "hourly") and
// decodes the body into out. All failures come back as apperror.ErrUpstream.
func (c *Client) get(ctx context.Context, mode string, lat, lon float64, params []string, out any) error {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set(mode, strings.Join(params, ","))
	u := c.baseURL + "?" + values.Encode()

	_, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", errCallerGone, ctxErr)
			}
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decoding %s response: %w", mode, err)
		}
		return nil, nil
	})
	if err != nil {
		return apperror.Upstream(fmt.Errorf("open-meteo %s: %w", mode, err))
	}
	return nil
}
