package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/terra-clan/certmap/internal/models"
)

func validCandidate() map[string]any {
	return map[string]any{
		"id":                 1,
		"slug":               "security-plus",
		"title":              "CompTIA Security+",
		"abbreviation":       "Security+",
		"description":        "An entry-level cybersecurity certification.",
		"image":              "/certs/security-plus.png",
		"url":                "https://www.comptia.org/certifications/security",
		"cost":               "$392 USD",
		"training_included":  false,
		"number_of_attempts": 1,
		"job_roles_titles":   []any{"Security Administrator", "Systems Administrator"},
		"cert_type":          "blue",
		"total_votes":        3120,
		"market_presence":    0.88,
		"cost_effectiveness": 4.8,
		"skill_level":        "Beginner",
		"quality":            4.5,
		"satisfaction":       4.7,
		"provider": map[string]any{
			"name":  "CompTIA",
			"url":   "https://www.comptia.org",
			"image": "/providers/comptia.png",
		},
		"domains_covered_titles": []any{"Threats, Attacks and Vulnerabilities", "Implementation"},
		"requirements_data": map[string]any{
			"knowledge":                        "Basic networking and security concepts",
			"work_experience":                  "2 years of IT administration experience recommended",
			"prior_courses_and_certifications": "Network+ recommended but not required",
		},
		"exam_details_data": map[string]any{
			"format":          "Multiple choice and performance-based",
			"duration":        "90 minutes",
			"report_required": false,
		},
		"valid_for": "3 years",
	}
}

func asValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return verr
}

func TestValidate_Valid(t *testing.T) {
	cert, err := Validate(validCandidate())
	if err != nil {
		t.Fatalf("expected valid candidate, got %v", err)
	}

	if cert.ID != 1 || cert.Slug != "security-plus" {
		t.Errorf("unexpected identity: id=%d slug=%q", cert.ID, cert.Slug)
	}
	if cert.CertType != models.CertTypeBlue {
		t.Errorf("expected cert type blue, got %q", cert.CertType)
	}
	if cert.SkillLevel != models.SkillBeginner {
		t.Errorf("expected skill level Beginner, got %q", cert.SkillLevel)
	}
	if cert.MarketPresence != 0.88 || cert.Satisfaction != 4.7 {
		t.Errorf("unexpected chart values: %v / %v", cert.MarketPresence, cert.Satisfaction)
	}
	if cert.Provider == nil || cert.Provider.Name != "CompTIA" {
		t.Errorf("provider not decoded: %+v", cert.Provider)
	}
	if len(cert.JobRolesTitles) != 2 || cert.JobRolesTitles[1] != "Systems Administrator" {
		t.Errorf("job roles not decoded in order: %v", cert.JobRolesTitles)
	}
	if cert.ExamDetails.Duration == nil || *cert.ExamDetails.Duration != "90 minutes" {
		t.Errorf("exam duration not decoded: %v", cert.ExamDetails.Duration)
	}
	if cert.ValidFor == nil || *cert.ValidFor != "3 years" {
		t.Errorf("valid_for not decoded: %v", cert.ValidFor)
	}
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	c := validCandidate()
	c["market_presence"] = 1.5
	c["satisfaction"] = 0.5
	c["cert_type"] = "purple"
	delete(c, "title")

	_, err := Validate(c)
	verr := asValidationError(t, err)

	if len(verr.Fields) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(verr.Fields), verr)
	}
	for _, path := range []string{"market_presence", "satisfaction", "cert_type", "title"} {
		if !verr.Has(path) {
			t.Errorf("expected violation on %s", path)
		}
	}
	if !errors.Is(err, ErrRange) {
		t.Error("expected errors.Is(err, ErrRange)")
	}
	if !errors.Is(err, ErrEnum) {
		t.Error("expected errors.Is(err, ErrEnum)")
	}
	if !errors.Is(err, ErrRequired) {
		t.Error("expected errors.Is(err, ErrRequired)")
	}
}

func TestValidate_RangeBoundsAreInclusive(t *testing.T) {
	c := validCandidate()
	c["market_presence"] = 0
	c["cost_effectiveness"] = 1
	c["quality"] = 5
	c["satisfaction"] = 1.0
	if _, err := Validate(c); err != nil {
		t.Fatalf("boundary values should be accepted: %v", err)
	}

	c["market_presence"] = 1.0
	c["satisfaction"] = 5
	if _, err := Validate(c); err != nil {
		t.Fatalf("upper boundary values should be accepted: %v", err)
	}
}

func TestSafeValidate_RangeViolations(t *testing.T) {
	cases := []struct {
		field string
		value any
	}{
		{"market_presence", -0.01},
		{"market_presence", 1.01},
		{"cost_effectiveness", 0.99},
		{"cost_effectiveness", 5.01},
		{"quality", 0},
		{"quality", 6},
		{"satisfaction", 0.9},
		{"satisfaction", 5.5},
	}
	for _, tc := range cases {
		c := validCandidate()
		c[tc.field] = tc.value

		res := SafeValidate(c)
		if res.OK() {
			t.Errorf("%s=%v should be rejected", tc.field, tc.value)
			continue
		}
		if res.Record != nil {
			t.Errorf("%s=%v: failed result must not carry a record", tc.field, tc.value)
		}
		if !res.Err.Has(tc.field) || !errors.Is(res.Err, ErrRange) {
			t.Errorf("%s=%v: expected range violation, got %v", tc.field, tc.value, res.Err)
		}
		if _, err := Validate(c); err == nil {
			t.Errorf("%s=%v: Validate should fail as well", tc.field, tc.value)
		}
	}
}

func TestSafeValidate_EnumerationClosure(t *testing.T) {
	for _, bad := range []string{"Blue Team", "BLUE", "purple", ""} {
		c := validCandidate()
		c["cert_type"] = bad
		if res := SafeValidate(c); res.OK() || !errors.Is(res.Err, ErrEnum) {
			t.Errorf("cert_type %q should be rejected with ErrEnum, got %v", bad, res.Err)
		}
	}
	for _, bad := range []string{"advanced", "Master", "Junior"} {
		c := validCandidate()
		c["skill_level"] = bad
		if res := SafeValidate(c); res.OK() || !res.Err.Has("skill_level") {
			t.Errorf("skill_level %q should be rejected", bad)
		}
	}
	for _, ct := range models.CertTypes() {
		c := validCandidate()
		c["cert_type"] = string(ct)
		if res := SafeValidate(c); !res.OK() {
			t.Errorf("cert_type %q should be accepted: %v", ct, res.Err)
		}
	}
	for _, lvl := range models.SkillLevels() {
		c := validCandidate()
		c["skill_level"] = string(lvl)
		if res := SafeValidate(c); !res.OK() {
			t.Errorf("skill_level %q should be accepted: %v", lvl, res.Err)
		}
	}
}

func TestValidate_Integers(t *testing.T) {
	c := validCandidate()
	c["total_votes"] = 10.5
	_, err := Validate(c)
	if !errors.Is(err, ErrFraction) {
		t.Errorf("fractional total_votes: expected ErrFraction, got %v", err)
	}

	c = validCandidate()
	c["number_of_attempts"] = 2.25
	if _, err := Validate(c); !errors.Is(err, ErrFraction) {
		t.Errorf("fractional number_of_attempts: expected ErrFraction, got %v", err)
	}

	c = validCandidate()
	c["number_of_attempts"] = -1
	if _, err := Validate(c); !errors.Is(err, ErrRange) {
		t.Errorf("negative number_of_attempts: expected ErrRange, got %v", err)
	}

	c = validCandidate()
	c["id"] = 0
	if _, err := Validate(c); !errors.Is(err, ErrRange) {
		t.Errorf("zero id: expected ErrRange, got %v", err)
	}

	c = validCandidate()
	c["number_of_attempts"] = 0
	c["total_votes"] = 0
	if _, err := Validate(c); err != nil {
		t.Errorf("zero counts should be accepted: %v", err)
	}

	c = validCandidate()
	c["total_votes"] = "3120"
	if _, err := Validate(c); !errors.Is(err, ErrType) {
		t.Errorf("string total_votes: expected ErrType, got %v", err)
	}
}

func TestValidate_Strings(t *testing.T) {
	c := validCandidate()
	c["description"] = "   "
	c["image"] = ""
	_, err := Validate(c)
	verr := asValidationError(t, err)
	if len(verr.Fields) != 1 || !verr.Has("description") || !errors.Is(err, ErrEmpty) {
		t.Errorf("expected only description to fail with ErrEmpty, got %v", verr)
	}

	c = validCandidate()
	c["slug"] = "security plus"
	if _, err := Validate(c); !errors.Is(err, ErrPattern) {
		t.Errorf("slug with space: expected ErrPattern, got %v", err)
	}

	c = validCandidate()
	c["url"] = "www.comptia.org/certifications"
	if _, err := Validate(c); !errors.Is(err, ErrURL) {
		t.Errorf("relative url: expected ErrURL, got %v", err)
	}

	c = validCandidate()
	c["training_included"] = "yes"
	if _, err := Validate(c); !errors.Is(err, ErrType) {
		t.Errorf("string boolean: expected ErrType, got %v", err)
	}
}

func TestValidate_Lists(t *testing.T) {
	c := validCandidate()
	c["job_roles_titles"] = []any{"Analyst", 42}
	_, err := Validate(c)
	verr := asValidationError(t, err)
	if !verr.Has("job_roles_titles[1]") {
		t.Errorf("expected element path job_roles_titles[1], got %v", verr)
	}

	c = validCandidate()
	c["domains_covered_titles"] = "Implementation"
	if _, err := Validate(c); !errors.Is(err, ErrType) {
		t.Errorf("scalar list: expected ErrType, got %v", err)
	}

	c = validCandidate()
	c["job_roles_titles"] = []string{}
	if _, err := Validate(c); err != nil {
		t.Errorf("empty job roles are a data-quality issue, not a schema error: %v", err)
	}
}

func TestValidate_OptionalProvider(t *testing.T) {
	c := validCandidate()
	delete(c, "provider")
	cert, err := Validate(c)
	if err != nil {
		t.Fatalf("absent provider should be accepted: %v", err)
	}
	if cert.Provider != nil {
		t.Error("absent provider should decode to nil")
	}

	c = validCandidate()
	c["provider"] = nil
	if _, err := Validate(c); err != nil {
		t.Fatalf("null provider should be accepted: %v", err)
	}

	c = validCandidate()
	c["provider"] = map[string]any{"name": "", "url": "not a url", "image": ""}
	_, err = Validate(c)
	verr := asValidationError(t, err)
	if !verr.Has("provider.name") || !verr.Has("provider.url") {
		t.Errorf("expected nested provider violations, got %v", verr)
	}

	c = validCandidate()
	c["provider"] = "CompTIA"
	if _, err := Validate(c); !errors.Is(err, ErrType) {
		t.Errorf("string provider: expected ErrType, got %v", err)
	}
}

func TestValidate_NullableFields(t *testing.T) {
	c := validCandidate()
	c["valid_for"] = nil
	c["exam_details_data"].(map[string]any)["duration"] = nil
	cert, err := Validate(c)
	if err != nil {
		t.Fatalf("null valid_for and duration should be accepted: %v", err)
	}
	if cert.ValidFor != nil || cert.ExamDetails.Duration != nil {
		t.Error("null optional strings should decode to nil")
	}

	c = validCandidate()
	delete(c, "valid_for")
	if _, err := Validate(c); !errors.Is(err, ErrRequired) {
		t.Errorf("missing valid_for: expected ErrRequired, got %v", err)
	}

	c = validCandidate()
	c["exam_details_data"].(map[string]any)["format"] = nil
	_, err = Validate(c)
	verr := asValidationError(t, err)
	if !verr.Has("exam_details_data.format") {
		t.Errorf("null format should be rejected, got %v", verr)
	}
}

func TestValidate_RawJSON(t *testing.T) {
	data, err := json.Marshal(validCandidate())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := Validate(data); err != nil {
		t.Fatalf("raw JSON candidate should validate: %v", err)
	}
	if _, err := Validate(json.RawMessage(`{"id": 1.0}`)); err == nil {
		t.Fatal("incomplete JSON candidate should fail")
	}

	cert, err := Validate([]byte(`[1, 2, 3]`))
	if cert != nil || !errors.Is(err, ErrType) {
		t.Errorf("JSON array root: expected ErrType, got %v", err)
	}
	if _, err := Validate(nil); !errors.Is(err, ErrType) {
		t.Errorf("nil candidate: expected ErrType, got %v", err)
	}
}

func TestValidate_TypedRoundTrip(t *testing.T) {
	cert, err := Validate(validCandidate())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	again, err := Validate(cert)
	if err != nil {
		t.Fatalf("typed record should re-validate: %v", err)
	}
	if again.Slug != cert.Slug || again.TotalVotes != cert.TotalVotes {
		t.Errorf("round trip changed the record: %+v", again)
	}
}

func TestValidateCollection_FailFast(t *testing.T) {
	bad1 := validCandidate()
	bad1["id"] = 2
	bad1["slug"] = "bad-one"
	bad1["quality"] = 9
	bad2 := validCandidate()
	bad2["cert_type"] = "green"

	records, err := ValidateCollection([]any{validCandidate(), bad1, bad2})
	if records != nil {
		t.Error("failed collection must not return records")
	}

	var cerr *CollectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CollectionError, got %T: %v", err, err)
	}
	if cerr.Index != 1 {
		t.Errorf("expected first invalid index 1, got %d", cerr.Index)
	}
	if !cerr.Err.Has("quality") || cerr.Err.Has("cert_type") {
		t.Errorf("expected the violation of element 1 only, got %v", cerr.Err)
	}
	if !errors.Is(err, ErrRange) {
		t.Error("collection error should unwrap to the field sentinel")
	}
}

func TestValidateCollection_KeepsOrder(t *testing.T) {
	second := validCandidate()
	second["id"] = 2
	second["slug"] = "cissp"

	records, err := ValidateCollection([]any{validCandidate(), second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].ID != 1 || records[1].ID != 2 {
		t.Errorf("unexpected order: %+v", records)
	}

	empty, err := ValidateCollection(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty collection should validate to empty slice, got %v / %v", empty, err)
	}
}

func TestDecodeCollection(t *testing.T) {
	items, err := DecodeCollection([]byte(`[{"id": 1}, {"id": 2.5}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if _, ok := items[1].(map[string]any)["id"].(json.Number); !ok {
		t.Error("numbers should be decoded as json.Number")
	}
	if _, err := DecodeCollection([]byte(`{"id": 1}`)); err == nil {
		t.Error("object root should not decode as a collection")
	}
}

func TestCheckUnique(t *testing.T) {
	records := []*models.Certification{
		{ID: 1, Slug: "cissp"},
		{ID: 2, Slug: "security-plus"},
		{ID: 3, Slug: "oscp"},
	}
	if err := CheckUnique(records); err != nil {
		t.Fatalf("unique records reported as duplicate: %v", err)
	}

	records = append(records, &models.Certification{ID: 2, Slug: "ceh"})
	err := CheckUnique(records)
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected *DuplicateError, got %v", err)
	}
	if dup.Field != "id" || dup.Value != "2" || len(dup.Indexes) != 2 || dup.Indexes[1] != 3 {
		t.Errorf("unexpected duplicate report: %+v", dup)
	}

	records = append(records, &models.Certification{ID: 5, Slug: "oscp"})
	err = CheckUnique(records)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	var slugDup *DuplicateError
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		if d, ok := e.(*DuplicateError); ok && d.Field == "slug" {
			slugDup = d
		}
	}
	if slugDup == nil || slugDup.Value != "oscp" {
		t.Errorf("expected slug duplicate for oscp, got %v", err)
	}
}

func TestQualityIssues(t *testing.T) {
	cert, err := Validate(validCandidate())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if issues := QualityIssues(cert); len(issues) != 0 {
		t.Errorf("expected no quality issues, got %v", issues)
	}

	cert.JobRolesTitles = nil
	cert.Requirements.WorkExperience = ""
	issues := QualityIssues(cert)
	if len(issues) != 2 {
		t.Fatalf("expected 2 quality issues, got %v", issues)
	}
	if issues[0].Path != "job_roles_titles" || issues[1].Path != "requirements_data.work_experience" {
		t.Errorf("unexpected issue paths: %v", issues)
	}
}

func TestFieldErrorMessage(t *testing.T) {
	fe := FieldError{Path: "quality", Constraint: "number in [1, 5]", Err: ErrRange}
	if got := fe.Error(); got != "quality is out of range (expected number in [1, 5])" {
		t.Errorf("unexpected message: %q", got)
	}
}
