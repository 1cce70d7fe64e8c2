package domain

import (
	"strings"
	"time"
)

// Category is a coarse taxonomic bucket assigned by keyword heuristic.
type Category string

const (
	CategoryBird      Category = "Bird"
	CategoryMammal    Category = "Mammal"
	CategoryPlant     Category = "Plant"
	CategoryFungi     Category = "Fungi"
	CategoryInsect    Category = "Insect"
	CategoryAmphibian Category = "Amphibian"
	CategoryReptile   Category = "Reptile"
	CategoryOther     Category = "Other"
)

// Categories lists every category in classification order, Other last.
var Categories = []Category{
	CategoryBird,
	CategoryMammal,
	CategoryPlant,
	CategoryFungi,
	CategoryInsect,
	CategoryAmphibian,
	CategoryReptile,
	CategoryOther,
}

// ParseCategory maps a case-insensitive category name to a Category.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Coordinates is a WGS-84 point. iNaturalist geojson order is [lon, lat].
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Observation is one sighting record after mapping from the upstream API.
// Category and Biotope are derived and set by Annotate.
type Observation struct {
	ID           int64        `json:"id,omitempty"`
	SpeciesLabel string       `json:"species"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	PhotoURL     string       `json:"photo_url,omitempty"`
	WikipediaURL string       `json:"wikipedia_url,omitempty"`
	IsThreatened bool         `json:"threatened"`
	IsInvasive   bool         `json:"invasive"`

	Category Category `json:"category,omitempty"`
	Biotope  string   `json:"biotope,omitempty"`
}

// HasCoordinates reports whether the observation can be placed on the map.
func (o Observation) HasCoordinates() bool {
	return o.Coordinates != nil
}

// ObservationPage is the first (and only) page fetched for a city.
type ObservationPage struct {
	Observations []Observation
	TotalResults int // total reported by the API, may exceed len(Observations)
	PerPage      int
}

// Truncated reports whether the API holds more observations than were fetched.
func (p ObservationPage) Truncated() bool {
	return p.TotalResults > len(p.Observations)
}

// CityLocation is the resolved result of a city lookup.
type CityLocation struct {
	Query       string  `json:"query"`
	DisplayName string  `json:"display_name,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// CitySnapshot is the record published after a successful city load.
type CitySnapshot struct {
	ID           string           `json:"id"`
	City         CityLocation     `json:"city"`
	RadiusKm     int              `json:"radius_km"`
	Fetched      int              `json:"fetched"`
	TotalResults int              `json:"total_results"`
	Categories   map[Category]int `json:"categories"`
	Biotopes     []string         `json:"biotopes"`
	Observations []Observation    `json:"observations"`
	LoadedAt     time.Time        `json:"loaded_at"`
}
