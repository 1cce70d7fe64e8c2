package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/orchestrator"
	"github.com/go-chi/chi/v5/middleware"
	chirender "github.com/go-chi/render"
)

// SessionCookie carries the opaque session id.
const SessionCookie = "biomap_session"

// loadCityRequest is the body of POST /api/city.
type loadCityRequest struct {
	City           string   `json:"city"`
	Categories     []string `json:"categories"`
	ThreatenedOnly bool     `json:"threatened_only"`
	InvasiveOnly   bool     `json:"invasive_only"`

	filter domain.FilterState
}

// Bind validates the category selection after decoding.
func (req *loadCityRequest) Bind(_ *http.Request) error {
	fs, err := parseFilter(req.Categories, req.ThreatenedOnly, req.InvasiveOnly)
	if err != nil {
		return err
	}
	req.filter = fs
	return nil
}

// errResponse is the JSON error body shown to the user as an alert.
type errResponse struct {
	HTTPStatusCode int    `json:"-"`
	Code           string `json:"error"`
	Message        string `json:"message"`
}

// Render sets the response status before the body is written.
func (e *errResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	chirender.Status(r, e.HTTPStatusCode)
	return nil
}

func errInvalidRequest(err error) *errResponse {
	return &errResponse{HTTPStatusCode: http.StatusBadRequest, Code: "invalid_request", Message: err.Error()}
}

// errLoadFailed maps a city load error to its status and user-facing text.
func errLoadFailed(err error) *errResponse {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return &errResponse{HTTPStatusCode: http.StatusBadRequest, Code: "empty_input", Message: "Enter a city name"}
	case errors.Is(err, domain.ErrCityNotFound):
		return &errResponse{HTTPStatusCode: http.StatusNotFound, Code: "city_not_found", Message: "City not found"}
	case errors.Is(err, orchestrator.ErrSuperseded):
		return &errResponse{HTTPStatusCode: http.StatusConflict, Code: "superseded", Message: "A newer city load replaced this one"}
	default:
		return &errResponse{HTTPStatusCode: http.StatusBadGateway, Code: "upstream_error", Message: "Could not load observations. Please try again."}
	}
}

func (s *Server) handleLoadCity(w http.ResponseWriter, r *http.Request) {
	req := &loadCityRequest{}
	if err := chirender.Bind(r, req); err != nil {
		_ = chirender.Render(w, r, errInvalidRequest(err))
		return
	}

	st := s.session(w, r)
	view, err := s.cities.LoadCity(r.Context(), st, req.City, req.filter)
	if err != nil {
		resp := errLoadFailed(err)
		level := slogLevelFor(resp.HTTPStatusCode)
		s.logger.Log(r.Context(), level, "city load failed",
			"city", req.City,
			"status", resp.HTTPStatusCode,
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		_ = chirender.Render(w, r, resp)
		return
	}

	chirender.JSON(w, r, view)
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	threatened, err := parseBoolParam(q.Get("threatened"))
	if err != nil {
		_ = chirender.Render(w, r, errInvalidRequest(fmt.Errorf("threatened: %w", err)))
		return
	}
	invasive, err := parseBoolParam(q.Get("invasive"))
	if err != nil {
		_ = chirender.Render(w, r, errInvalidRequest(fmt.Errorf("invasive: %w", err)))
		return
	}
	fs, err := parseFilter(q["category"], threatened, invasive)
	if err != nil {
		_ = chirender.Render(w, r, errInvalidRequest(err))
		return
	}

	st := s.session(w, r)
	chirender.JSON(w, r, s.cities.Refilter(st, fs))
}

// session returns the caller's state, issuing a new cookie when the request
// carries none or an unknown id.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *orchestrator.State {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	newID, st := s.sessions.Get(id)
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return st
}

func parseFilter(categories []string, threatenedOnly, invasiveOnly bool) (domain.FilterState, error) {
	selected := make([]domain.Category, 0, len(categories))
	for _, name := range categories {
		c, ok := domain.ParseCategory(name)
		if !ok {
			return domain.FilterState{}, fmt.Errorf("unknown category %q", name)
		}
		selected = append(selected, c)
	}
	return domain.NewFilterState(selected, threatenedOnly, invasiveOnly), nil
}

func parseBoolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
