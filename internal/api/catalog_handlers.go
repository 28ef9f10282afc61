package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/filter"
	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/schema"
)

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type catalogResponse struct {
	Version     int64        `json:"version"`
	Source      string       `json:"source"`
	LoadedAt    time.Time    `json:"loaded_at"`
	Stats       filter.Stats `json:"stats"`
	Categories  []option     `json:"categories"`
	SkillLevels []string     `json:"skill_levels"`
}

type listResponse struct {
	Records []*models.Certification `json:"records"`
	Shown   int                     `json:"shown"`
	Total   int                     `json:"total"`
	Summary string                  `json:"summary"`
}

func newCatalogResponse(snap *catalog.Snapshot) catalogResponse {
	categories := []option{{Value: string(filter.CategoryAll), Label: "All"}}
	for _, t := range models.CertTypes() {
		categories = append(categories, option{Value: string(t), Label: t.Label()})
	}
	levels := make([]string, 0, len(models.SkillLevels()))
	for _, l := range models.SkillLevels() {
		levels = append(levels, string(l))
	}

	return catalogResponse{
		Version:     snap.Version,
		Source:      snap.Source,
		LoadedAt:    snap.LoadedAt,
		Stats:       filter.Summarize(snap.Records),
		Categories:  categories,
		SkillLevels: levels,
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Current()
	if err != nil {
		respondServiceError(w, err, "get catalog")
		return
	}
	respondJSON(w, http.StatusOK, newCatalogResponse(snap))
}

// criteriaFromQuery reads ?category=&level=&q=. Levels may repeat or be comma separated.
func criteriaFromQuery(r *http.Request) (filter.Criteria, error) {
	q := r.URL.Query()

	category, err := filter.ParseCategory(q.Get("category"))
	if err != nil {
		return filter.Criteria{}, err
	}

	var levels []models.SkillLevel
	for _, raw := range q["level"] {
		for _, part := range strings.Split(raw, ",") {
			if part == "" {
				continue
			}
			l, err := filter.ParseSkillLevel(part)
			if err != nil {
				return filter.Criteria{}, err
			}
			levels = append(levels, l)
		}
	}

	return filter.Criteria{Category: category, SkillLevels: levels, Search: q.Get("q")}, nil
}

func (s *Server) filterCatalog(w http.ResponseWriter, r *http.Request) ([]*models.Certification, int, bool) {
	snap, err := s.store.Current()
	if err != nil {
		respondServiceError(w, err, "list certifications")
		return nil, 0, false
	}
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		respondServiceError(w, err, "list certifications")
		return nil, 0, false
	}
	return filter.Apply(snap.Records, criteria), snap.Len(), true
}

func (s *Server) handleListCertifications(w http.ResponseWriter, r *http.Request) {
	records, total, ok := s.filterCatalog(w, r)
	if !ok {
		return
	}
	v := filter.View{Records: records, Shown: len(records), Total: total}
	respondJSON(w, http.StatusOK, listResponse{
		Records: records,
		Shown:   v.Shown,
		Total:   v.Total,
		Summary: v.Summary(),
	})
}

func (s *Server) handleCertificationPoints(w http.ResponseWriter, r *http.Request) {
	records, _, ok := s.filterCatalog(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, filter.Points(records))
}

func (s *Server) handleGetCertification(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Current()
	if err != nil {
		respondServiceError(w, err, "get certification")
		return
	}

	cert, err := snap.Get(chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, err, "get certification")
		return
	}
	respondJSON(w, http.StatusOK, cert)
}

type validateResponse struct {
	Valid    bool                    `json:"valid"`
	Record   *models.Certification   `json:"record,omitempty"`
	Warnings []fieldErrorResponse    `json:"warnings,omitempty"`
	Records  []*models.Certification `json:"records,omitempty"`
	Count    int                     `json:"count,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	res := schema.SafeValidate(body)
	if !res.OK() {
		respondErrorDetails(w, http.StatusUnprocessableEntity, "validation_error",
			res.Err.Error(), fieldErrors(res.Err.Fields))
		return
	}

	respondJSON(w, http.StatusOK, validateResponse{
		Valid:    true,
		Record:   res.Record,
		Warnings: fieldErrors(schema.QualityIssues(res.Record)),
	})
}

type batchErrorDetails struct {
	Index      *int                 `json:"index,omitempty"`
	Fields     []fieldErrorResponse `json:"fields,omitempty"`
	Duplicates []duplicateResponse  `json:"duplicates,omitempty"`
}

type duplicateResponse struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Indexes []int  `json:"indexes"`
}

func (s *Server) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	candidates, err := schema.DecodeCollection(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON array")
		return
	}

	records, err := schema.ValidateCollection(candidates)
	if err != nil {
		var cerr *schema.CollectionError
		if errors.As(err, &cerr) {
			idx := cerr.Index
			respondErrorDetails(w, http.StatusUnprocessableEntity, "validation_error", err.Error(),
				batchErrorDetails{Index: &idx, Fields: fieldErrors(cerr.Err.Fields)})
			return
		}
		respondServiceError(w, err, "validate catalog")
		return
	}

	if err := schema.CheckUnique(records); err != nil {
		respondErrorDetails(w, http.StatusUnprocessableEntity, "duplicate", err.Error(),
			batchErrorDetails{Duplicates: duplicates(err)})
		return
	}

	var warnings []fieldErrorResponse
	for _, rec := range records {
		for _, issue := range fieldErrors(schema.QualityIssues(rec)) {
			issue.Path = rec.Slug + "." + issue.Path
			warnings = append(warnings, issue)
		}
	}

	respondJSON(w, http.StatusOK, validateResponse{
		Valid:    true,
		Records:  records,
		Count:    len(records),
		Warnings: warnings,
	})
}

// duplicates flattens a CheckUnique error, joined or single
func duplicates(err error) []duplicateResponse {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	out := make([]duplicateResponse, 0, len(errs))
	for _, e := range errs {
		var dup *schema.DuplicateError
		if errors.As(e, &dup) {
			out = append(out, duplicateResponse{Field: dup.Field, Value: dup.Value, Indexes: dup.Indexes})
		}
	}
	return out
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.loader.Reload(r.Context())
	if err != nil {
		var cerr *schema.CollectionError
		if errors.As(err, &cerr) || errors.Is(err, schema.ErrDuplicate) {
			respondError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		slog.Error("catalog reload failed", "error", err)
		respondError(w, http.StatusBadGateway, "source_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, newCatalogResponse(snap))
}
