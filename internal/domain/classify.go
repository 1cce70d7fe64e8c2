package domain

import (
	"regexp"
	"strings"
)

// categoryRule pairs a keyword pattern with the category it assigns.
type categoryRule struct {
	category Category
	pattern  *regexp.Regexp
}

// biotopeRule pairs a keyword pattern with a habitat description.
type biotopeRule struct {
	biotope string
	pattern *regexp.Regexp
}

// categoryRules are evaluated in order; the first match wins. Keyword
// groups overlap ("owl butterfly"), so the order must not change.
var categoryRules = []categoryRule{
	{CategoryBird, regexp.MustCompile(`bird|sparrow|grebe|eagle|owl|pigeon|crow`)},
	{CategoryMammal, regexp.MustCompile(`fox|deer|rabbit|wolf|cat|dog|squirrel`)},
	{CategoryPlant, regexp.MustCompile(`tree|plant|flower|grass|shrub|oak|maple`)},
	{CategoryFungi, regexp.MustCompile(`mushroom|fungi|toadstool`)},
	{CategoryInsect, regexp.MustCompile(`bee|butterfly|ant|fly|insect|dragonfly`)},
	{CategoryAmphibian, regexp.MustCompile(`frog|toad|salamander`)},
	{CategoryReptile, regexp.MustCompile(`snake|lizard|turtle`)},
}

// DefaultBiotope is returned by InferBiotope when no habitat rule matches.
const DefaultBiotope = "Urban areas and mixed habitats"

// biotopeRules: aquatic birds, urban birds, trees, amphibians, pollinators, fungi.
var biotopeRules = []biotopeRule{
	{"Freshwater lakes and wetlands with reeds", regexp.MustCompile(`grebe|duck|heron|swan`)},
	{"Woodlands, urban parks and gardens", regexp.MustCompile(`robin|sparrow|crow|owl|pigeon`)},
	{"Deciduous or coniferous forests, urban green spaces", regexp.MustCompile(`oak|maple|pine|fir`)},
	{"Ponds, wetlands, and marshy areas", regexp.MustCompile(`frog|toad|salamander`)},
	{"Flower-rich meadows and open habitats", regexp.MustCompile(`bee|butterfly|dragonfly`)},
	{"Forests with decaying wood and leaf litter", regexp.MustCompile(`mushroom|fungi|toadstool`)},
}

// cityBiotopeEntry is a curated habitat list for one recognized city.
type cityBiotopeEntry struct {
	names    []string // lower-case name variants, matched as substrings
	biotopes []string
}

var curatedCityBiotopes = []cityBiotopeEntry{
	{
		names: []string{"lucerne", "luzern"},
		biotopes: []string{
			"Alpine forests",
			"Reuss River wetlands",
			"Lake Luzern shoreline habitats",
			"Floodplain meadows",
			"Urban parks and gardens",
		},
	},
}

var genericCityBiotopes = []string{"Forests", "Wetlands", "Rivers", "Meadows", "Urban green spaces"}

// ClassifyCategory assigns a coarse taxonomic category from a species label.
// An empty or unmatched label yields CategoryOther.
func ClassifyCategory(speciesLabel string) Category {
	if speciesLabel == "" {
		return CategoryOther
	}
	name := strings.ToLower(speciesLabel)
	for _, r := range categoryRules {
		if r.pattern.MatchString(name) {
			return r.category
		}
	}
	return CategoryOther
}

// InferBiotope guesses a habitat description from a species label.
func InferBiotope(speciesLabel string) string {
	name := strings.ToLower(speciesLabel)
	for _, r := range biotopeRules {
		if r.pattern.MatchString(name) {
			return r.biotope
		}
	}
	return DefaultBiotope
}

// CityBiotopes returns the curated habitat list for a recognized city, or a
// generic five-item list otherwise. The returned slice is owned by the caller.
func CityBiotopes(cityName string) []string {
	city := strings.ToLower(cityName)
	for _, entry := range curatedCityBiotopes {
		for _, n := range entry.names {
			if strings.Contains(city, n) {
				return append([]string(nil), entry.biotopes...)
			}
		}
	}
	return append([]string(nil), genericCityBiotopes...)
}

// Annotate sets the derived Category and Biotope fields of o.
func Annotate(o *Observation) {
	o.Category = ClassifyCategory(o.SpeciesLabel)
	o.Biotope = InferBiotope(o.SpeciesLabel)
}

// AnnotateAll annotates every observation in place.
func AnnotateAll(observations []Observation) {
	for i := range observations {
		Annotate(&observations[i])
	}
}
