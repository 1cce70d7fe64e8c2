package domain

import "errors"

var (
	// ErrEmptyInput is returned when a city load is requested with a blank name.
	ErrEmptyInput = errors.New("empty city name")

	// ErrCityNotFound is returned when the place search yields no results.
	ErrCityNotFound = errors.New("city not found")

	// ErrTransport wraps any network, status, or decoding failure from an
	// upstream API. Malformed responses and outages are not distinguished.
	ErrTransport = errors.New("upstream request failed")
)
