package model

import (
	"fmt"
	"testing"
)

func ptr(v float64) *float64 { return &v }

// dayForecast builds a 48-hour series starting at midnight; value i is
// derived from the hour index so tests can tell samples apart.
func dayForecast() *HourlyForecast {
	f := &HourlyForecast{}
	for i := 0; i < 48; i++ {
		day := 1 + i/24
		f.Time = append(f.Time, fmt.Sprintf("2026-10-%02dT%02d:00", day, i%24))
		f.Temperature = append(f.Temperature, ptr(float64(i)))
		f.WindSpeed = append(f.WindSpeed, ptr(float64(i)+0.5))
		f.Pressure = append(f.Pressure, ptr(1000+float64(i)))
		f.Humidity = append(f.Humidity, ptr(float64(50+i)))
		f.Precipitation = append(f.Precipitation, ptr(0))
	}
	return f
}

func TestAt_Found(t *testing.T) {
	f := dayForecast()

	s, ok := f.At("16:00")
	if !ok {
		t.Fatal("At(16:00) found nothing")
	}
	if s.Temperature == nil || *s.Temperature != 16 {
		t.Errorf("Temperature = %v, want 16", s.Temperature)
	}
	if s.WindSpeed == nil || *s.WindSpeed != 16.5 {
		t.Errorf("WindSpeed = %v, want 16.5", s.WindSpeed)
	}
	if s.Humidity == nil || *s.Humidity != 66 {
		t.Errorf("Humidity = %v, want 66", s.Humidity)
	}
	if s.Precipitation == nil || *s.Precipitation != 0 {
		t.Errorf("Precipitation = %v, want 0", s.Precipitation)
	}
	if s.Pressure != nil {
		t.Errorf("Pressure = %v, want nil (not part of hourly lookup)", *s.Pressure)
	}
}

func TestAt_NotFound(t *testing.T) {
	tests := []struct {
		name string
		time string
	}{
		{"out of range hour", "30:00"},
		{"half hour", "16:30"},
		{"empty", ""},
		{"partial suffix", "6:00"},
	}

	f := dayForecast()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := f.At(tt.time); ok {
				t.Errorf("At(%q) found a sample, want none", tt.time)
			}
		})
	}
}

func TestAt_OnlyFirstWindow(t *testing.T) {
	f := dayForecast()
	// Move the first day's 05:00 out of the way; the second day's 05:00
	// sits beyond the 24-entry window and must not be used.
	f.Time[5] = "2026-10-01T05:30"

	if _, ok := f.At("05:00"); ok {
		t.Error("At(05:00) matched an entry outside the first 24 samples")
	}
}

func TestAt_ShortSeries(t *testing.T) {
	f := &HourlyForecast{
		Time:        []string{"2026-10-01T00:00", "2026-10-01T01:00"},
		Temperature: []*float64{ptr(3)},
	}

	s, ok := f.At("01:00")
	if !ok {
		t.Fatal("At(01:00) found nothing")
	}
	if s.Temperature != nil {
		t.Errorf("Temperature = %v, want nil for missing value", *s.Temperature)
	}
}

func TestAt_NilForecast(t *testing.T) {
	var f *HourlyForecast
	if _, ok := f.At("00:00"); ok {
		t.Error("nil forecast returned a sample")
	}
}
