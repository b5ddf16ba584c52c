package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/city-weather/internal/apperror"
	"github.com/sakif/city-weather/internal/model"
)

// CreateCity inserts a city together with its first forecast.
// Returns apperror.ErrDuplicateCityName if the name is taken.
func (db *DB) CreateCity(ctx context.Context, city *model.City) error {
	forecast, err := encodeForecast(city.Forecast)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	city.CreatedAt = now
	city.UpdatedAt = now

	res, err := db.q.ExecContext(ctx,
		`INSERT INTO cities (name, latitude, longitude, forecast, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		city.Name,
		city.Latitude,
		city.Longitude,
		forecast,
		city.CreatedAt,
		city.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateCityName(city.Name)
		}
		return fmt.Errorf("sqlite: inserting city %q: %w", city.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new city id: %w", err)
	}
	city.ID = id

	return nil
}

// GetCityByID retrieves a city, forecast included.
func (db *DB) GetCityByID(ctx context.Context, id int64) (*model.City, error) {
	row := db.q.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude, forecast, created_at, updated_at
		 FROM cities WHERE id = ?`,
		id,
	)
	city, err := scanCity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("city", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting city %d: %w", id, err)
	}
	return city, nil
}

// GetCityByName retrieves a city by its exact (case-sensitive) name.
// Returns apperror.ErrCityUnknown if nobody ever created it.
func (db *DB) GetCityByName(ctx context.Context, name string) (*model.City, error) {
	row := db.q.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude, forecast, created_at, updated_at
		 FROM cities WHERE name = ?`,
		name,
	)
	city, err := scanCity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.CityUnknown(name)
		}
		return nil, fmt.Errorf("sqlite: getting city %q: %w", name, err)
	}
	return city, nil
}

// UpdateForecast replaces the cached forecast. The whole blob is written by
// one UPDATE, so a concurrent reader sees either the old series or the new
// one, never a mix.
func (db *DB) UpdateForecast(ctx context.Context, cityID int64, forecast *model.HourlyForecast) error {
	encoded, err := encodeForecast(forecast)
	if err != nil {
		return err
	}

	result, err := db.q.ExecContext(ctx,
		`UPDATE cities SET forecast = ?, updated_at = ? WHERE id = ?`,
		encoded,
		time.Now().UTC(),
		cityID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating forecast for city %d: %w", cityID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("city", strconv.FormatInt(cityID, 10))
	}

	return nil
}

// CityNames lists the names of all stored cities in creation order.
func (db *DB) CityNames(ctx context.Context) ([]string, error) {
	rows, err := db.q.QueryContext(ctx, `SELECT name FROM cities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cities: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning city name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cities: %w", err)
	}
	return names, nil
}

func scanCity(row *sql.Row) (*model.City, error) {
	var (
		c        model.City
		forecast sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.Latitude, &c.Longitude,
		&forecast, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if forecast.Valid && forecast.String != "" {
		var f model.HourlyForecast
		if err := json.Unmarshal([]byte(forecast.String), &f); err != nil {
			return nil, fmt.Errorf("decoding forecast of city %q: %w", c.Name, err)
		}
		c.Forecast = &f
	}

	return &c, nil
}

// encodeForecast turns a forecast into the TEXT column value; nil maps to NULL.
func encodeForecast(f *model.HourlyForecast) (sql.NullString, error) {
	if f == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("sqlite: encoding forecast: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
