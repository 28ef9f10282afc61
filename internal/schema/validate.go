package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/terra-clan/certmap/internal/models"
)

// Result is the outcome of SafeValidate. Exactly one of Record and Err is set.
type Result struct {
	Record *models.Certification
	Err    *ValidationError
}

// OK reports whether the candidate passed validation.
func (r Result) OK() bool { return r.Err == nil }

// Validate checks a candidate against the certification schema and returns
// the typed record. On failure the error is a *ValidationError listing every
// violated field.
//
// A candidate may be a decoded map, raw JSON ([]byte, json.RawMessage) or any
// value that marshals to a JSON object.
func Validate(candidate any) (*models.Certification, error) {
	res := SafeValidate(candidate)
	if !res.OK() {
		return nil, res.Err
	}
	return res.Record, nil
}

// SafeValidate runs the same checks as Validate but reports the outcome as a
// Result instead of an error.
func SafeValidate(candidate any) Result {
	m, verr := normalize(candidate)
	if verr != nil {
		return Result{Err: verr}
	}

	var c checker
	c.object("", m, certificationRules)
	if len(c.errs) > 0 {
		return Result{Err: &ValidationError{Fields: c.errs}}
	}
	return Result{Record: build(m)}
}

// ValidateCollection validates every candidate in order and stops at the
// first invalid one, returning a *CollectionError with its index. Cross-record
// uniqueness is not checked here; see CheckUnique.
func ValidateCollection(candidates []any) ([]*models.Certification, error) {
	out := make([]*models.Certification, 0, len(candidates))
	for i, candidate := range candidates {
		res := SafeValidate(candidate)
		if !res.OK() {
			return nil, &CollectionError{Index: i, Err: res.Err}
		}
		out = append(out, res.Record)
	}
	return out, nil
}

// DecodeCollection parses a JSON array of candidates, keeping numbers exact
// so fractional integers are still detectable by the validator.
func DecodeCollection(data []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	return items, nil
}

// CheckUnique verifies that ids and slugs are unique across a collection.
// All duplicates are reported, joined into one error.
func CheckUnique(records []*models.Certification) error {
	ids := make(map[int][]int)
	slugs := make(map[string][]int)
	var idOrder []int
	var slugOrder []string

	for i, r := range records {
		if _, seen := ids[r.ID]; !seen {
			idOrder = append(idOrder, r.ID)
		}
		ids[r.ID] = append(ids[r.ID], i)
		if _, seen := slugs[r.Slug]; !seen {
			slugOrder = append(slugOrder, r.Slug)
		}
		slugs[r.Slug] = append(slugs[r.Slug], i)
	}

	var errs []error
	for _, id := range idOrder {
		if idx := ids[id]; len(idx) > 1 {
			errs = append(errs, &DuplicateError{Field: "id", Value: strconv.Itoa(id), Indexes: idx})
		}
	}
	for _, slug := range slugOrder {
		if idx := slugs[slug]; len(idx) > 1 {
			errs = append(errs, &DuplicateError{Field: "slug", Value: slug, Indexes: idx})
		}
	}

	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// QualityIssues reports data-quality problems that the schema tolerates but
// a well-formed catalog entry should not have.
func QualityIssues(r *models.Certification) []FieldError {
	var issues []FieldError
	if len(r.JobRolesTitles) == 0 {
		issues = append(issues, FieldError{Path: "job_roles_titles", Constraint: "at least one job role", Err: ErrEmpty})
	}
	reqs := []struct{ path, value string }{
		{"requirements_data.knowledge", r.Requirements.Knowledge},
		{"requirements_data.work_experience", r.Requirements.WorkExperience},
		{"requirements_data.prior_courses_and_certifications", r.Requirements.PriorCoursesAndCertifications},
	}
	for _, req := range reqs {
		if strings.TrimSpace(req.value) == "" {
			issues = append(issues, FieldError{Path: req.path, Constraint: "non-empty string", Err: ErrEmpty})
		}
	}
	return issues
}

func normalize(candidate any) (map[string]any, *ValidationError) {
	var raw []byte
	switch v := candidate.(type) {
	case nil:
		return nil, rootError(nil)
	case map[string]any:
		return v, nil
	case map[any]any:
		if m, ok := toMap(v); ok {
			return m, nil
		}
		return nil, rootError(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, rootError(v)
		}
		raw = data
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Path: "$", Constraint: "JSON object", Err: ErrType}}}
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, rootError(decoded)
	}
	return m, nil
}

func rootError(v any) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Path: "$", Constraint: "object", Value: v, Err: ErrType}}}
}

// build converts an already validated map into the typed record.
func build(m map[string]any) *models.Certification {
	c := &models.Certification{
		ID:                   asInt(m["id"]),
		Slug:                 m["slug"].(string),
		Title:                m["title"].(string),
		Abbreviation:         m["abbreviation"].(string),
		Description:          m["description"].(string),
		Image:                m["image"].(string),
		URL:                  m["url"].(string),
		Cost:                 m["cost"].(string),
		TrainingIncluded:     m["training_included"].(bool),
		NumberOfAttempts:     asInt(m["number_of_attempts"]),
		JobRolesTitles:       asStrings(m["job_roles_titles"]),
		CertType:             models.CertType(m["cert_type"].(string)),
		TotalVotes:           asInt(m["total_votes"]),
		MarketPresence:       asFloat(m["market_presence"]),
		CostEffectiveness:    asFloat(m["cost_effectiveness"]),
		SkillLevel:           models.SkillLevel(m["skill_level"].(string)),
		Quality:              asFloat(m["quality"]),
		Satisfaction:         asFloat(m["satisfaction"]),
		DomainsCoveredTitles: asStrings(m["domains_covered_titles"]),
		ValidFor:             asOptionalString(m["valid_for"]),
	}

	if p, ok := toMap(m["provider"]); ok {
		c.Provider = &models.Provider{
			Name:  p["name"].(string),
			URL:   p["url"].(string),
			Image: p["image"].(string),
		}
	}

	reqs, _ := toMap(m["requirements_data"])
	c.Requirements = models.Requirements{
		Knowledge:                     reqs["knowledge"].(string),
		WorkExperience:                reqs["work_experience"].(string),
		PriorCoursesAndCertifications: reqs["prior_courses_and_certifications"].(string),
	}

	exam, _ := toMap(m["exam_details_data"])
	c.ExamDetails = models.ExamDetails{
		Format:         exam["format"].(string),
		Duration:       asOptionalString(exam["duration"]),
		ReportRequired: exam["report_required"].(bool),
	}

	return c
}

func asFloat(v any) float64 {
	f, _ := toFloat(v)
	return f
}

func asInt(v any) int {
	return int(asFloat(v))
}

func asStrings(v any) []string {
	items, _ := toList(v)
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.(string)
	}
	return out
}

func asOptionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
