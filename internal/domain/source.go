package domain

import "context"

// Geocoder resolves a free-text city name to coordinates.
type Geocoder interface {
	// ResolveCity returns the first match for name, ErrCityNotFound when
	// there is none, or an error wrapping ErrTransport.
	ResolveCity(ctx context.Context, name string) (CityLocation, error)
}

// ObservationSource retrieves observations around a point.
type ObservationSource interface {
	// FetchObservations returns the first page of observations within
	// radiusKm of (lat, lon). Errors wrap ErrTransport.
	FetchObservations(ctx context.Context, lat, lon float64, radiusKm int) (ObservationPage, error)
}
