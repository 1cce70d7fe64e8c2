// Package domain models iNaturalist biodiversity observations and the
// keyword heuristics used to group them on the map.
//
// # Data Source
//
// Observations come from the iNaturalist v1 observations endpoint
// (https://api.inaturalist.org/v1/observations), queried by a point and a
// radius in kilometres. City coordinates come from the OpenStreetMap
// Nominatim search endpoint. Both adapters live under internal/adapter and
// map the upstream JSON into the types defined here.
//
// # Field Conventions
//
// Species label:
//
//	species_guess, then taxon.name, then the literal "Unknown".
//	Empty strings count as missing.
//
// Coordinates:
//
//	geojson.coordinates is [longitude, latitude]. Records without it are
//	kept in the fetched list (they still feed the city summary) but are
//	never placed on the map or in the sidebar.
//
// Photos:
//
//	Only the first photo is used. iNaturalist returns the "square" size
//	variant; the first occurrence of "square" in the URL is rewritten to
//	"medium" for the popup thumbnail.
//
// Invasive:
//
//	taxon.establishment_means == "introduced".
//
// # Classification
//
// Category and biotope are keyword heuristics over the lower-cased species
// label. Rules are ordered tables and the first match wins, so the order in
// [categoryRules] and [biotopeRules] is part of the behavior:
//
//	Category: Bird, Mammal, Plant, Fungi, Insect, Amphibian, Reptile, else Other
//	Biotope:  aquatic birds, urban birds, trees, amphibians, pollinators,
//	          fungi, else "Urban areas and mixed habitats"
//
// Matching is plain substring matching, so "caterpillar" is a Mammal (cat)
// and "Grass Snake" is a Plant (grass). That mirrors the heuristic the map
// has always used and is covered by tests.
package domain
