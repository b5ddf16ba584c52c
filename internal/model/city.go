package model

import "time"

// City is a tracked location. Name is the natural key and is compared
// case-sensitively. Forecast holds the most recent hourly series and is
// replaced as a whole on every refresh.
type City struct {
	ID        int64           `json:"id"        db:"id"`
	Name      string          `json:"name"      db:"name"`
	Latitude  float64         `json:"latitude"  db:"latitude"`
	Longitude float64         `json:"longitude" db:"longitude"`
	Forecast  *HourlyForecast `json:"forecast"  db:"forecast"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}
