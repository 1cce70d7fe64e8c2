package render

import (
	"encoding/json"
	"html/template"
	"testing"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWiki  = "https://en.wikipedia.org/wiki/Great_crested_grebe"
	testPhoto = "https://static.inaturalist.org/photos/1/medium.jpg"
)

func annotated(obs ...domain.Observation) []domain.Observation {
	domain.AnnotateAll(obs)
	return obs
}

func grebe() domain.Observation {
	return domain.Observation{
		SpeciesLabel: "Grebe",
		Coordinates:  &domain.Coordinates{Lon: 8.31, Lat: 47.01},
		PhotoURL:     testPhoto,
		WikipediaURL: testWiki,
		IsThreatened: true,
	}
}

func TestBuildList_MarkersAndSidebar(t *testing.T) {
	view := BuildList(annotated(grebe()))

	require.Len(t, view.Markers, 1)
	require.Len(t, view.Sidebar, 1)
	assert.Equal(t, 1, view.Count)
	assert.Equal(t, DefaultMarkerStyle, view.Style)

	m := view.Markers[0]
	assert.Equal(t, 47.01, m.Lat)
	assert.Equal(t, 8.31, m.Lon)
	assert.Equal(t, domain.CategoryBird, m.Category)
	assert.Equal(t,
		`<b>Grebe</b><br><img src="`+testPhoto+`" width="100"><br><a href="`+testWiki+`" target="_blank" rel="noopener">Learn more</a>`,
		string(m.Popup))

	s := view.Sidebar[0]
	assert.Equal(t, "Grebe", s.Species)
	assert.Equal(t, "Freshwater lakes and wetlands with reeds", s.Biotope)
	assert.Equal(t,
		`<b>Grebe</b> (Freshwater lakes and wetlands with reeds)<br><a href="`+testWiki+`" target="_blank" rel="noopener">Learn more</a>`,
		string(s.HTML))
}

func TestBuildList_OptionalPhotoAndLink(t *testing.T) {
	view := BuildList(annotated(domain.Observation{
		SpeciesLabel: "Red Fox",
		Coordinates:  &domain.Coordinates{Lon: 8.3, Lat: 47.0},
	}))

	require.Len(t, view.Markers, 1)
	assert.Equal(t, "<b>Red Fox</b>", string(view.Markers[0].Popup))
	assert.Equal(t, "<b>Red Fox</b> (Urban areas and mixed habitats)", string(view.Sidebar[0].HTML))
}

func TestBuildList_EscapesUpstreamText(t *testing.T) {
	view := BuildList(annotated(domain.Observation{
		SpeciesLabel: `<script>alert("x")</script>`,
		Coordinates:  &domain.Coordinates{Lon: 1, Lat: 2},
		WikipediaURL: "javascript:alert(1)",
	}))

	popup := string(view.Markers[0].Popup)
	assert.NotContains(t, popup, "<script>")
	assert.Contains(t, popup, "&lt;script&gt;")
	assert.NotContains(t, popup, "javascript:")
}

func TestBuildList_SkipsObservationsWithoutCoordinates(t *testing.T) {
	view := BuildList(annotated(domain.Observation{SpeciesLabel: "Common Frog"}, grebe()))

	assert.Equal(t, 1, view.Count)
	assert.Len(t, view.Sidebar, 1)
}

func TestBuildList_EmptyEncodesAsArrays(t *testing.T) {
	data, err := json.Marshal(BuildList(nil))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"markers":[]`)
	assert.Contains(t, string(data), `"sidebar":[]`)
}

func TestBuildSummary_MergesCuratedAndObservedBiotopes(t *testing.T) {
	obs := annotated(
		grebe(),
		domain.Observation{SpeciesLabel: "Great Crested Grebe"},
		domain.Observation{SpeciesLabel: "Red Fox"},
	)

	s := BuildSummary("Lucerne", domain.ObservationPage{Observations: obs, TotalResults: 3, PerPage: 200})

	want := []string{
		"Alpine forests",
		"Reuss River wetlands",
		"Lake Luzern shoreline habitats",
		"Floodplain meadows",
		"Urban parks and gardens",
		"Freshwater lakes and wetlands with reeds",
		"Urban areas and mixed habitats",
	}
	if diff := cmp.Diff(want, s.Biotopes); diff != "" {
		t.Errorf("biotopes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ChallengeText, s.Challenges)
	assert.False(t, s.NoObservations)
	assert.False(t, s.Truncated)
	assert.Equal(t, 3, s.Fetched)
	assert.Contains(t, string(s.HTML), "<b>Main Issues/Challenges:</b>")
	assert.Contains(t, string(s.HTML), "Alpine forests, Reuss River wetlands")
	assert.NotContains(t, string(s.HTML), NoObservationsText)
}

func TestBuildSummary_NoObservations(t *testing.T) {
	s := BuildSummary("Zurich", domain.ObservationPage{PerPage: 200})

	assert.True(t, s.NoObservations)
	assert.Equal(t, []string{"Forests", "Wetlands", "Rivers", "Meadows", "Urban green spaces"}, s.Biotopes)
	assert.Contains(t, string(s.HTML), NoObservationsText)
	assert.Contains(t, string(s.HTML), "Forests, Wetlands, Rivers, Meadows, Urban green spaces.")
}

func TestBuildSummary_Truncated(t *testing.T) {
	obs := make([]domain.Observation, 200)
	for i := range obs {
		obs[i] = domain.Observation{SpeciesLabel: "House Sparrow"}
	}
	s := BuildSummary("Bern", domain.ObservationPage{Observations: annotated(obs...), TotalResults: 812, PerPage: 200})

	assert.True(t, s.Truncated)
	assert.Equal(t, 812, s.TotalResults)
	assert.Contains(t, string(s.HTML), "Showing the first 200 of 812 observations.")
}

func TestMergeBiotopes_DeduplicatesCuratedOverlap(t *testing.T) {
	got := MergeBiotopes([]string{"Forests", "Forests"}, []domain.Observation{{Biotope: "Forests"}, {Biotope: ""}})
	assert.Equal(t, []string{"Forests"}, got)
}

func TestBuildCityView(t *testing.T) {
	loc := domain.CityLocation{Query: "Lucerne", Lat: 47.05, Lon: 8.30}
	summary := BuildSummary("Lucerne", domain.ObservationPage{})

	view := BuildCityView(loc, 0, summary, annotated(grebe()))

	assert.Equal(t, MapView{Lat: 47.05, Lon: 8.30, Zoom: DefaultZoom}, view.Map)
	assert.Equal(t, summary, view.Summary)
	assert.Equal(t, 1, view.List.Count)

	assert.Equal(t, 9, BuildCityView(loc, 9, summary, nil).Map.Zoom)
}

func TestDefaultMapView(t *testing.T) {
	assert.Equal(t, MapView{Lat: 47.0502, Lon: 8.3093, Zoom: 12}, DefaultMapView())
}

func TestExecute_PanicsOnTemplateError(t *testing.T) {
	broken := template.Must(template.New("broken").Parse(`{{.Missing}}`))

	defer func() {
		r := recover()
		require.NotNil(t, r, "execute must not swallow template errors")
		msg, ok := r.(string)
		require.True(t, ok)
		assert.Contains(t, msg, `render: execute template "broken"`)
		assert.Contains(t, msg, "Missing")
	}()
	execute(broken, grebe())
}

func TestExecute_PackageTemplatesRenderAllShapes(t *testing.T) {
	minimal := domain.Observation{SpeciesLabel: "Unknown", Coordinates: &domain.Coordinates{}}

	assert.NotPanics(t, func() {
		BuildList(annotated(grebe(), minimal))
		BuildSummary("Bern", domain.ObservationPage{})
		BuildSummary("Lucerne", domain.ObservationPage{Observations: annotated(grebe()), TotalResults: 500})
	})
}
