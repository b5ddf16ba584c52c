package model

// Open-Meteo parameter names.
const (
	ParamTemperature   = "temperature_2m"
	ParamWindSpeed     = "wind_speed_10m"
	ParamPressure      = "pressure_msl"
	ParamHumidity      = "relative_humidity_2m"
	ParamPrecipitation = "precipitation"
)

// ForecastWindow is how many leading hourly samples are searched by At.
const ForecastWindow = 24

// HourlyForecast mirrors the "hourly" object returned by Open-Meteo: one
// time stamp array and one value array per requested parameter. Values may
// be null upstream, hence the pointers.
type HourlyForecast struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m,omitempty"`
	WindSpeed     []*float64 `json:"wind_speed_10m,omitempty"`
	Pressure      []*float64 `json:"pressure_msl,omitempty"`
	Humidity      []*float64 `json:"relative_humidity_2m,omitempty"`
	Precipitation []*float64 `json:"precipitation,omitempty"`
}

// Sample is a single set of readings. Absent readings are omitted when
// serialized.
type Sample struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	WindSpeed     *float64 `json:"wind_speed,omitempty"`
	Pressure      *float64 `json:"pressure,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	Precipitation *float64 `json:"precipitation,omitempty"`
}

// At returns the sample whose time stamp ends in timeOfDay ("HH:MM"),
// looking only at the first ForecastWindow entries. Pressure is not part of
// the result. The second return value is false when nothing matches.
func (f *HourlyForecast) At(timeOfDay string) (Sample, bool) {
	if f == nil || timeOfDay == "" {
		return Sample{}, false
	}

	n := min(len(f.Time), ForecastWindow)
	for i := 0; i < n; i++ {
		if clockSuffix(f.Time[i]) != timeOfDay {
			continue
		}
		return Sample{
			Temperature:   valueAt(f.Temperature, i),
			WindSpeed:     valueAt(f.WindSpeed, i),
			Humidity:      valueAt(f.Humidity, i),
			Precipitation: valueAt(f.Precipitation, i),
		}, true
	}
	return Sample{}, false
}

// clockSuffix returns the trailing "HH:MM" of an ISO-like time stamp.
func clockSuffix(ts string) string {
	if len(ts) < 5 {
		return ts
	}
	return ts[len(ts)-5:]
}

func valueAt(series []*float64, i int) *float64 {
	if i >= len(series) {
		return nil
	}
	return series[i]
}
