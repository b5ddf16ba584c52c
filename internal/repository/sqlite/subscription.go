package sqlite

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sakif/city-weather/internal/apperror"
	"github.com/sakif/city-weather/internal/model"
)

// Link records that userID tracks cityID. Linking an existing pair is a
// caller error and returns apperror.ErrAlreadyTracked; the store does not
// know the city's name, so callers that want it in the message should check
// IsLinked first.
func (db *DB) Link(ctx context.Context, userID, cityID int64) error {
	_, err := db.q.ExecContext(ctx,
		`INSERT INTO user_cities (user_id, city_id) VALUES (?, ?)`,
		userID, cityID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyTracked(strconv.FormatInt(cityID, 10))
		}
		return fmt.Errorf("sqlite: linking user %d to city %d: %w", userID, cityID, err)
	}
	return nil
}

// IsLinked reports whether userID tracks cityID.
func (db *DB) IsLinked(ctx context.Context, userID, cityID int64) (bool, error) {
	var n int
	err := db.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_cities WHERE user_id = ? AND city_id = ?`,
		userID, cityID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking link user %d city %d: %w", userID, cityID, err)
	}
	return n > 0, nil
}

// CitiesOf returns the cities a user tracks, in the order they were added.
// Forecasts are not loaded.
func (db *DB) CitiesOf(ctx context.Context, userID int64) ([]model.City, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT c.id, c.name, c.latitude, c.longitude, c.created_at, c.updated_at
		 FROM user_cities uc
		 JOIN cities c ON c.id = uc.city_id
		 WHERE uc.user_id = ?
		 ORDER BY uc.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cities of user %d: %w", userID, err)
	}
	defer rows.Close()

	cities := []model.City{}
	for rows.Next() {
		var c model.City
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Latitude, &c.Longitude,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning city row: %w", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cities: %w", err)
	}

	return cities, nil
}

// UsersOf returns the IDs of every user tracking cityID.
func (db *DB) UsersOf(ctx context.Context, cityID int64) ([]int64, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT user_id FROM user_cities WHERE city_id = ? ORDER BY id`,
		cityID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users of city %d: %w", cityID, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user ids: %w", err)
	}

	return ids, nil
}
