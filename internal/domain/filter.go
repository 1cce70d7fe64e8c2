package domain

// FilterState is the user's current inclusion criteria. It is rebuilt from
// the request on every render pass and never stored.
type FilterState struct {
	categories     map[Category]struct{}
	ThreatenedOnly bool
	InvasiveOnly   bool
}

// NewFilterState builds a FilterState. An empty category list means no
// category restriction.
func NewFilterState(categories []Category, threatenedOnly, invasiveOnly bool) FilterState {
	fs := FilterState{ThreatenedOnly: threatenedOnly, InvasiveOnly: invasiveOnly}
	if len(categories) > 0 {
		fs.categories = make(map[Category]struct{}, len(categories))
		for _, c := range categories {
			fs.categories[c] = struct{}{}
		}
	}
	return fs
}

// SelectedCategories returns the selected categories in classification order.
func (f FilterState) SelectedCategories() []Category {
	out := make([]Category, 0, len(f.categories))
	for _, c := range Categories {
		if _, ok := f.categories[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Includes reports whether an annotated observation passes the filter.
// Coordinates are checked first since nothing without them can be drawn.
func (f FilterState) Includes(o Observation) bool {
	if !o.HasCoordinates() {
		return false
	}
	if len(f.categories) > 0 {
		if _, ok := f.categories[o.Category]; !ok {
			return false
		}
	}
	if f.ThreatenedOnly && !o.IsThreatened {
		return false
	}
	if f.InvasiveOnly && !o.IsInvasive {
		return false
	}
	return true
}

// ApplyFilters annotates every observation in place and returns the ones
// that pass fs, in input order. Calling it again with the same inputs
// yields the same result.
func ApplyFilters(observations []Observation, fs FilterState) []Observation {
	out := make([]Observation, 0, len(observations))
	for i := range observations {
		Annotate(&observations[i])
		if fs.Includes(observations[i]) {
			out = append(out, observations[i])
		}
	}
	return out
}
