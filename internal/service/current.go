package service

import (
	"context"

	"github.com/sakif/city-weather/internal/model"
	"github.com/sakif/city-weather/internal/weather"
)

// CurrentWeather returns temperature, wind speed and pressure at the
// coordinates straight from the provider. No user, no storage.
func (s *SubscriptionService) CurrentWeather(ctx context.Context, lat, lon float64) (*model.Sample, error) {
	cond, err := s.fetcher.FetchCurrent(ctx, lat, lon, weather.CurrentParams)
	if err != nil {
		return nil, err
	}

	return &model.Sample{
		Temperature: cond.Float(model.ParamTemperature),
		WindSpeed:   cond.Float(model.ParamWindSpeed),
		Pressure:    cond.Float(model.ParamPressure),
	}, nil
}
