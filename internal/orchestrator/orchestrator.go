package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/observability"
	"github.com/couchcryptid/biodiversity-map/internal/render"
	"github.com/google/uuid"
)

// ErrSuperseded is returned by a city load whose results arrived after a
// newer load on the same state had started. The stale results are dropped.
var ErrSuperseded = errors.New("city load superseded by a newer load")

// publishTimeout bounds the best-effort snapshot publish after a load.
const publishTimeout = 5 * time.Second

// SnapshotPublisher receives a record of every committed city load.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap domain.CitySnapshot) error
}

// Options carries the tunables of a city load.
type Options struct {
	RadiusKm int
	Zoom     int
}

// Orchestrator sequences geocoding, fetching, classification, filtering,
// and rendering against an explicit session State.
type Orchestrator struct {
	geocoder  domain.Geocoder
	source    domain.ObservationSource
	publisher SnapshotPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	radiusKm  int
	zoom      int
}

// New creates an Orchestrator. publisher may be nil to disable snapshots.
func New(geocoder domain.Geocoder, source domain.ObservationSource, publisher SnapshotPublisher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	if opts.Zoom <= 0 {
		opts.Zoom = render.DefaultZoom
	}
	return &Orchestrator{
		geocoder:  geocoder,
		source:    source,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		radiusKm:  opts.RadiusKm,
		zoom:      opts.Zoom,
	}
}

// SetReady flips the readiness flag reported by CheckReadiness.
func (o *Orchestrator) SetReady(ready bool) {
	o.ready.Store(ready)
}

// CheckReadiness returns nil once the service has been wired and is accepting
// requests, or an error while starting up or draining.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("orchestrator is not accepting requests")
	}
	return nil
}

// LoadCity resolves name, fetches its observations, replaces the state's list
// wholesale, and returns the rendered view filtered by fs. On any error the
// state and the previously rendered view are left untouched.
func (o *Orchestrator) LoadCity(ctx context.Context, st *State, name string, fs domain.FilterState) (render.CityView, error) {
	start := time.Now()

	view, err := o.loadCity(ctx, st, name, fs)
	o.metrics.CityLoads.WithLabelValues(loadOutcome(err)).Inc()
	if err != nil {
		return render.CityView{}, err
	}

	o.metrics.CityLoadDuration.Observe(time.Since(start).Seconds())
	return view, nil
}

func (o *Orchestrator) loadCity(ctx context.Context, st *State, name string, fs domain.FilterState) (render.CityView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return render.CityView{}, domain.ErrEmptyInput
	}

	gen := st.begin()

	loc, err := o.geocoder.ResolveCity(ctx, name)
	if err != nil {
		return render.CityView{}, fmt.Errorf("resolve city %q: %w", name, err)
	}

	page, err := o.source.FetchObservations(ctx, loc.Lat, loc.Lon, o.radiusKm)
	if err != nil {
		return render.CityView{}, fmt.Errorf("fetch observations for %q: %w", name, err)
	}

	domain.AnnotateAll(page.Observations)
	summary := render.BuildSummary(name, page)

	included, ok := st.commit(gen, loc, page.Observations, summary, fs)
	if !ok {
		o.logger.Info("discarding stale city load", "city", name, "generation", gen)
		return render.CityView{}, ErrSuperseded
	}

	o.metrics.ObservationsFetched.Observe(float64(len(page.Observations)))
	if page.Truncated() {
		o.metrics.TruncatedLoads.Inc()
		o.logger.Info("observation list truncated",
			"city", name,
			"fetched", len(page.Observations),
			"total_results", page.TotalResults,
		)
	}
	o.recordFilterPass(included)

	o.publish(ctx, loc, page, summary)

	o.logger.Info("city loaded",
		"city", name,
		"lat", loc.Lat,
		"lon", loc.Lon,
		"fetched", len(page.Observations),
		"visible", len(included),
	)
	return render.BuildCityView(loc, o.zoom, summary, included), nil
}

// Refilter re-runs the filter engine over the state's in-memory list and
// renders the result. No network calls are made; an unloaded state yields
// an empty list.
func (o *Orchestrator) Refilter(st *State, fs domain.FilterState) render.ListView {
	included := st.filter(fs)
	o.recordFilterPass(included)
	return render.BuildList(included)
}

func (o *Orchestrator) recordFilterPass(included []domain.Observation) {
	o.metrics.FilterPasses.Inc()
	o.metrics.ObservationsVisible.Observe(float64(len(included)))
}

// publish sends a snapshot of the committed load. Failures are logged and
// never fail the load.
func (o *Orchestrator) publish(ctx context.Context, loc domain.CityLocation, page domain.ObservationPage, summary render.Summary) {
	if o.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	snap := NewSnapshot(loc, o.radiusKm, page, summary.Biotopes)
	if err := o.publisher.PublishSnapshot(ctx, snap); err != nil {
		o.metrics.SnapshotErrors.Inc()
		o.logger.Warn("publish snapshot failed", "error", err, "city", loc.Query, "snapshot_id", snap.ID)
		return
	}
	o.metrics.SnapshotsPublished.Inc()
}

// NewSnapshot builds the record of a committed city load with a fresh id and
// per-category counts of the annotated observations.
func NewSnapshot(loc domain.CityLocation, radiusKm int, page domain.ObservationPage, biotopes []string) domain.CitySnapshot {
	counts := make(map[domain.Category]int, len(domain.Categories))
	for _, obs := range page.Observations {
		counts[obs.Category]++
	}
	return domain.CitySnapshot{
		ID:           uuid.NewString(),
		City:         loc,
		RadiusKm:     radiusKm,
		Fetched:      len(page.Observations),
		TotalResults: page.TotalResults,
		Categories:   counts,
		Biotopes:     biotopes,
		Observations: append([]domain.Observation(nil), page.Observations...),
		LoadedAt:     domain.Now(),
	}
}

func loadOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, domain.ErrCityNotFound):
		return "not_found"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	default:
		return "transport_error"
	}
}
