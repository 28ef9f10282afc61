package filter

import (
	"fmt"

	"github.com/terra-clan/certmap/internal/models"
)

// View is a snapshot of an engine: the selection as typed, the search that
// was actually applied and the resulting records.
type View struct {
	Revision      uint64                  `json:"revision"`
	Selection     Selection               `json:"selection"`
	AppliedSearch string                  `json:"applied_search"`
	SearchPending bool                    `json:"search_pending"`
	Records       []*models.Certification `json:"records"`
	Shown         int                     `json:"shown"`
	Total         int                     `json:"total"`
}

// Summary renders the record counter shown above the chart.
func (v View) Summary() string {
	return fmt.Sprintf("Showing %d of %d certifications", v.Shown, v.Total)
}

// Point is one certification placed on the market presence / satisfaction chart.
type Point struct {
	Slug         string            `json:"slug"`
	Title        string            `json:"title"`
	Abbreviation string            `json:"abbreviation"`
	CertType     models.CertType   `json:"cert_type"`
	SkillLevel   models.SkillLevel `json:"skill_level"`
	TotalVotes   int               `json:"total_votes"`
	X            float64           `json:"x"`
	Y            float64           `json:"y"`
}

// Chart axis domains.
const (
	XMin, XMax = 0.0, 1.0
	YMin, YMax = 1.0, 5.0
)

// Points projects records onto the chart: x is market presence, y is satisfaction.
func Points(records []*models.Certification) []Point {
	out := make([]Point, 0, len(records))
	for _, r := range records {
		out = append(out, Point{
			Slug:         r.Slug,
			Title:        r.Title,
			Abbreviation: r.Abbreviation,
			CertType:     r.CertType,
			SkillLevel:   r.SkillLevel,
			TotalVotes:   r.TotalVotes,
			X:            r.MarketPresence,
			Y:            r.Satisfaction,
		})
	}
	return out
}

// Stats counts records per certification type and per skill level.
type Stats struct {
	Total        int                       `json:"total"`
	ByCertType   map[models.CertType]int   `json:"by_cert_type"`
	BySkillLevel map[models.SkillLevel]int `json:"by_skill_level"`
}

// Summarize builds Stats for records. Every known type and level is present,
// zero counts included.
func Summarize(records []*models.Certification) Stats {
	s := Stats{
		Total:        len(records),
		ByCertType:   make(map[models.CertType]int),
		BySkillLevel: make(map[models.SkillLevel]int),
	}
	for _, t := range models.CertTypes() {
		s.ByCertType[t] = 0
	}
	for _, l := range models.SkillLevels() {
		s.BySkillLevel[l] = 0
	}
	for _, r := range records {
		s.ByCertType[r.CertType]++
		s.BySkillLevel[r.SkillLevel]++
	}
	return s
}
