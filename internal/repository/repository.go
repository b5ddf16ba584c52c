package repository

import (
	"context"

	"github.com/sakif/city-weather/internal/model"
)

// UserRepository stores registered users.
// Lookups of a missing user return an apperror wrapping ErrUserNotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// CityRepository stores tracked cities and their cached forecasts.
// Lookups of a missing city return an apperror wrapping ErrCityUnknown.
type CityRepository interface {
	CreateCity(ctx context.Context, city *model.City) error
	GetCityByID(ctx context.Context, id int64) (*model.City, error)
	GetCityByName(ctx context.Context, name string) (*model.City, error)
	UpdateForecast(ctx context.Context, cityID int64, forecast *model.HourlyForecast) error
	// CityNames lists every stored city, oldest first.
	CityNames(ctx context.Context) ([]string, error)
}

// SubscriptionRepository is the user/city relation.
type SubscriptionRepository interface {
	Link(ctx context.Context, userID, cityID int64) error
	IsLinked(ctx context.Context, userID, cityID int64) (bool, error)
	CitiesOf(ctx context.Context, userID int64) ([]model.City, error)
	UsersOf(ctx context.Context, cityID int64) ([]int64, error)
}

// Store groups the three repositories behind one handle. WithTx runs fn
// against a Store bound to a single transaction; the transaction commits
// when fn returns nil and rolls back otherwise.
type Store interface {
	UserRepository
	CityRepository
	SubscriptionRepository
	WithTx(ctx context.Context, fn func(Store) error) error
}
