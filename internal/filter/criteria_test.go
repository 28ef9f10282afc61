package filter

import (
	"errors"
	"testing"

	"github.com/terra-clan/certmap/internal/models"
)

func fixture() []*models.Certification {
	return []*models.Certification{
		{
			ID: 1, Slug: "cissp", Title: "Certified Information Systems Security Professional",
			Abbreviation: "CISSP", Description: "Advanced certification for security leaders and managers.",
			CertType: models.CertTypeInfoSec, SkillLevel: models.SkillAdvanced,
			MarketPresence: 0.95, Satisfaction: 4.5, TotalVotes: 850,
		},
		{
			ID: 2, Slug: "security-plus", Title: "Security+",
			Abbreviation: "Sec+", Description: "Entry-level certification covering core security functions.",
			CertType: models.CertTypeBlue, SkillLevel: models.SkillBeginner,
			MarketPresence: 0.9, Satisfaction: 4.2, TotalVotes: 1200,
		},
		{
			ID: 3, Slug: "oscp", Title: "Offensive Security Certified Professional",
			Abbreviation: "OSCP", Description: "Hands-on penetration testing certification.",
			CertType: models.CertTypeRed, SkillLevel: models.SkillAdvanced,
			MarketPresence: 0.8, Satisfaction: 4.8, TotalVotes: 650,
		},
	}
}

func slugs(records []*models.Certification) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Slug
	}
	return out
}

func sameSlugs(t *testing.T, got []*models.Certification, want ...string) {
	t.Helper()
	g := slugs(got)
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g)
		}
	}
}

func TestApply_EmptyCriteriaKeepsEverything(t *testing.T) {
	records := fixture()
	got := Apply(records, Criteria{Category: CategoryAll})
	sameSlugs(t, got, "cissp", "security-plus", "oscp")

	got[0] = nil
	if records[0] == nil {
		t.Fatal("Apply must not share its result with the input slice")
	}
}

func TestApply_Category(t *testing.T) {
	records := fixture()

	sameSlugs(t, Apply(records, Criteria{Category: CategoryOf(models.CertTypeRed)}), "oscp")
	sameSlugs(t, Apply(records, Criteria{Category: CategoryOf(models.CertTypeBlue)}), "security-plus")
	sameSlugs(t, Apply(records, Criteria{Category: CategoryAll}), "cissp", "security-plus", "oscp")
}

func TestApply_SkillLevels(t *testing.T) {
	records := fixture()

	got := Apply(records, Criteria{Category: CategoryAll, SkillLevels: []models.SkillLevel{models.SkillAdvanced}})
	sameSlugs(t, got, "cissp", "oscp")

	got = Apply(records, Criteria{Category: CategoryAll, SkillLevels: []models.SkillLevel{models.SkillBeginner, models.SkillAdvanced}})
	sameSlugs(t, got, "cissp", "security-plus", "oscp")

	got = Apply(records, Criteria{Category: CategoryAll, SkillLevels: []models.SkillLevel{models.SkillExpert}})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", got)
	}
}

func TestApply_SearchIsCaseInsensitive(t *testing.T) {
	records := fixture()

	sameSlugs(t, Apply(records, Criteria{Category: CategoryAll, Search: "security+"}), "security-plus")
	sameSlugs(t, Apply(records, Criteria{Category: CategoryAll, Search: "PENETRATION"}), "oscp")
	sameSlugs(t, Apply(records, Criteria{Category: CategoryAll, Search: "oscp"}), "oscp")

	// whitespace is part of the needle
	got := Apply(records, Criteria{Category: CategoryAll, Search: " cissp "})
	if len(got) != 0 {
		t.Errorf("expected untrimmed search to match nothing, got %v", slugs(got))
	}
}

func TestApply_CombinedClausesIntersect(t *testing.T) {
	records := fixture()
	c := Criteria{
		Category:    CategoryOf(models.CertTypeRed),
		SkillLevels: []models.SkillLevel{models.SkillAdvanced},
		Search:      "hands-on",
	}
	sameSlugs(t, Apply(records, c), "oscp")

	if !c.Matches(records[2]) {
		t.Error("expected OSCP to match")
	}
	if c.Matches(records[0]) {
		t.Error("expected CISSP not to match the red category")
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("")
	if err != nil || c != CategoryAll {
		t.Fatalf("expected empty value to mean all, got %q, %v", c, err)
	}
	c, err = ParseCategory("infoSec")
	if err != nil {
		t.Fatalf("ParseCategory failed: %v", err)
	}
	if ct, ok := c.CertType(); !ok || ct != models.CertTypeInfoSec {
		t.Errorf("expected infoSec, got %q (%v)", ct, ok)
	}
	if _, err := ParseCategory("purple"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
	if _, err := ParseSkillLevel("advanced"); !errors.Is(err, ErrUnknownSkillLevel) {
		t.Errorf("expected ErrUnknownSkillLevel for wrong case, got %v", err)
	}
}

func TestPointsAndSummarize(t *testing.T) {
	records := fixture()

	points := Points(records)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[2].X != 0.8 || points[2].Y != 4.8 || points[2].Abbreviation != "OSCP" {
		t.Errorf("unexpected point: %+v", points[2])
	}

	s := Summarize(records)
	if s.Total != 3 {
		t.Errorf("expected total 3, got %d", s.Total)
	}
	if s.ByCertType[models.CertTypeRed] != 1 || s.BySkillLevel[models.SkillAdvanced] != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if n, ok := s.BySkillLevel[models.SkillExpert]; !ok || n != 0 {
		t.Errorf("expected zero entry for Expert, got %d (%v)", n, ok)
	}
}
