package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sakif/city-weather/internal/apperror"
)

// validate is shared by all handlers; *validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report query parameter names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// coordinatesQuery is shared by the endpoints taking latitude/longitude.
type coordinatesQuery struct {
	Latitude  *float64 `query:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `query:"longitude" validate:"required,gte=-180,lte=180"`
}

type trackQuery struct {
	CityName  string   `query:"city_name" validate:"required,max=100"`
	Latitude  *float64 `query:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `query:"longitude" validate:"required,gte=-180,lte=180"`
}

type weatherAtQuery struct {
	CityName string `query:"city_name" validate:"required,max=100"`
	Time     string `query:"time" validate:"required"`
}

type userQuery struct {
	Username string `query:"username" validate:"required,max=100"`
}

// parseCoordinates reads latitude and longitude from the query string.
// Missing values stay nil so that validation reports them as required.
func parseCoordinates(r *http.Request) (coordinatesQuery, error) {
	var q coordinatesQuery
	var err error
	if q.Latitude, err = floatParam(r, "latitude"); err != nil {
		return q, err
	}
	if q.Longitude, err = floatParam(r, "longitude"); err != nil {
		return q, err
	}
	return q, nil
}

func floatParam(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperror.ValidationFailed(name, fmt.Sprintf("%s must be a number", name))
	}
	return &v, nil
}

// userIDParam reads the {userId} path segment.
func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "userId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("userId", "userId must be an integer")
	}
	return id, nil
}

// check runs the validator and converts its first failure to an
// apperror.ErrValidation.
func check(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}

	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "gte", "lte":
		msg = fmt.Sprintf("%s is out of range", fe.Field())
	case "max":
		msg = fmt.Sprintf("%s must be %s characters or less", fe.Field(), fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return apperror.ValidationFailed(fe.Field(), msg)
}
