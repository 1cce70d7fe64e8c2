// Package render turns annotated observations into a JSON view model. The
// browser draw step consumes it as-is: it clears the marker layer and the
// sidebar, then draws every entry. No diffing happens on either side.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
)

// ChallengeText is the static "main issues" line of the city summary.
const ChallengeText = "Urbanization, habitat fragmentation, invasive species, climate change impacts."

// NoObservationsText is shown in the summary when the fetch returned nothing.
const NoObservationsText = "No biodiversity observations found in this city."

// DefaultZoom is the map zoom used when centering on a loaded city.
const DefaultZoom = 12

// MarkerStyle describes the circle marker drawn for each observation.
type MarkerStyle struct {
	Radius      int     `json:"radius"`
	FillColor   string  `json:"fill_color"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	FillOpacity float64 `json:"fill_opacity"`
}

// DefaultMarkerStyle is used for every observation marker.
var DefaultMarkerStyle = MarkerStyle{
	Radius:      5,
	FillColor:   "green",
	Color:       "#000",
	Weight:      1,
	FillOpacity: 0.7,
}

// MapView is the center and zoom the map moves to.
type MapView struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

// DefaultMapView is the initial view before any city is loaded (Lucerne).
func DefaultMapView() MapView {
	return MapView{Lat: 47.0502, Lon: 8.3093, Zoom: DefaultZoom}
}

// Marker is one map marker with its popup markup.
type Marker struct {
	Lat      float64         `json:"lat"`
	Lon      float64         `json:"lon"`
	Category domain.Category `json:"category"`
	Popup    template.HTML   `json:"popup_html"`
}

// SidebarEntry is one list item in the sidebar.
type SidebarEntry struct {
	Species      string          `json:"species"`
	Biotope      string          `json:"biotope"`
	Category     domain.Category `json:"category"`
	WikipediaURL string          `json:"wikipedia_url,omitempty"`
	HTML         template.HTML   `json:"html"`
}

// ListView is the filter-dependent part of the page.
type ListView struct {
	Style   MarkerStyle    `json:"marker_style"`
	Markers []Marker       `json:"markers"`
	Sidebar []SidebarEntry `json:"sidebar"`
	Count   int            `json:"count"`
}

// Summary is the city-level panel, independent of filters.
type Summary struct {
	City           string        `json:"city"`
	Challenges     string        `json:"challenges"`
	Biotopes       []string      `json:"biotopes"`
	NoObservations bool          `json:"no_observations"`
	Truncated      bool          `json:"truncated"`
	Fetched        int           `json:"fetched"`
	TotalResults   int           `json:"total_results"`
	HTML           template.HTML `json:"html"`
}

// CityView is returned after a successful city load.
type CityView struct {
	Map     MapView  `json:"map"`
	Summary Summary  `json:"summary"`
	List    ListView `json:"list"`
}

var (
	popupTmpl = template.Must(template.New("popup").Parse(
		`<b>{{.SpeciesLabel}}</b>` +
			`{{if .PhotoURL}}<br><img src="{{.PhotoURL}}" width="100">{{end}}` +
			`{{template "wiki" .}}` +
			`{{define "wiki"}}{{if .WikipediaURL}}<br><a href="{{.WikipediaURL}}" target="_blank" rel="noopener">Learn more</a>{{end}}{{end}}`,
	))

	sidebarTmpl = template.Must(template.Must(popupTmpl.Clone()).New("sidebar").Parse(
		`<b>{{.SpeciesLabel}}</b> ({{.Biotope}}){{template "wiki" .}}`,
	))

	summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
		"join": func(items []string) string { return strings.Join(items, ", ") },
	}).Parse(
		`<b>Main Issues/Challenges:</b><br>{{.Challenges}}<br><br>` +
			`<b>Important Biotopes / Habitats:</b><br>{{join .Biotopes}}.<br><br>` +
			`<b>Species Observed:</b>` +
			`{{if .NoObservations}}<br>` + NoObservationsText + `{{end}}` +
			`{{if .Truncated}}<br>Showing the first {{.Fetched}} of {{.TotalResults}} observations.{{end}}`,
	))
)

// BuildList renders markers and sidebar entries for the observations that
// passed the filter. Callers pass only annotated observations with coordinates.
func BuildList(included []domain.Observation) ListView {
	view := ListView{
		Style:   DefaultMarkerStyle,
		Markers: make([]Marker, 0, len(included)),
		Sidebar: make([]SidebarEntry, 0, len(included)),
	}

	for _, o := range included {
		if !o.HasCoordinates() {
			continue
		}
		view.Markers = append(view.Markers, Marker{
			Lat:      o.Coordinates.Lat,
			Lon:      o.Coordinates.Lon,
			Category: o.Category,
			Popup:    execute(popupTmpl, o),
		})
		view.Sidebar = append(view.Sidebar, SidebarEntry{
			Species:      o.SpeciesLabel,
			Biotope:      o.Biotope,
			Category:     o.Category,
			WikipediaURL: o.WikipediaURL,
			HTML:         execute(sidebarTmpl, o),
		})
	}
	view.Count = len(view.Markers)
	return view
}

// BuildSummary renders the city panel from the unfiltered, annotated
// observation list: curated city biotopes followed by every distinct
// observed biotope, in first-seen order.
func BuildSummary(city string, page domain.ObservationPage) Summary {
	s := Summary{
		City:           city,
		Challenges:     ChallengeText,
		Biotopes:       MergeBiotopes(domain.CityBiotopes(city), page.Observations),
		NoObservations: len(page.Observations) == 0,
		Truncated:      page.Truncated(),
		Fetched:        len(page.Observations),
		TotalResults:   page.TotalResults,
	}
	s.HTML = execute(summaryTmpl, s)
	return s
}

// MergeBiotopes returns the union of curated and observed biotopes without
// duplicates, preserving insertion order.
func MergeBiotopes(curated []string, observations []domain.Observation) []string {
	seen := make(map[string]struct{}, len(curated)+len(observations))
	out := make([]string, 0, len(curated)+len(observations))
	add := func(b string) {
		if _, ok := seen[b]; ok || b == "" {
			return
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	for _, b := range curated {
		add(b)
	}
	for _, o := range observations {
		add(o.Biotope)
	}
	return out
}

// BuildCityView assembles the full view after a city load.
func BuildCityView(loc domain.CityLocation, zoom int, summary Summary, included []domain.Observation) CityView {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	return CityView{
		Map:     MapView{Lat: loc.Lat, Lon: loc.Lon, Zoom: zoom},
		Summary: summary,
		List:    BuildList(included),
	}
}

// execute runs one of the package templates. The templates are fixed and
// the data types are ours, so a failure is a programming error.
func execute(t *template.Template, data any) template.HTML {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		panic(fmt.Sprintf("render: execute template %q: %v", t.Name(), err))
	}
	return template.HTML(b.String()) //nolint:gosec // produced by html/template, already escaped
}
