// Package filter derives the filtered certification view from three
// independent dimensions: category, a multi-select of skill levels and a
// debounced free-text search.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terra-clan/certmap/internal/models"
)

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUnknownSkillLevel = errors.New("unknown skill level")
)

// Category is either CategoryAll or one certification type
type Category string

// CategoryAll disables the category clause
const CategoryAll Category = "all"

// CategoryOf returns the category selecting a single certification type
func CategoryOf(t models.CertType) Category {
	return Category(t)
}

// CertType returns the selected type, or false for CategoryAll
func (c Category) CertType() (models.CertType, bool) {
	if c == CategoryAll {
		return "", false
	}
	return models.CertType(c), true
}

// Valid reports whether c is "all" or a known certification type
func (c Category) Valid() bool {
	if c == CategoryAll {
		return true
	}
	return models.CertType(c).Valid()
}

// ParseCategory converts a wire value into a Category. An empty value means "all".
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryAll, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// ParseSkillLevel converts a wire value into a SkillLevel.
func ParseSkillLevel(s string) (models.SkillLevel, error) {
	l := models.SkillLevel(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSkillLevel, s)
	}
	return l, nil
}

// Criteria is the committed input of one derivation.
type Criteria struct {
	Category    Category
	SkillLevels []models.SkillLevel
	Search      string
}

// Matches evaluates the three ANDed clauses for a single record.
func (c Criteria) Matches(r *models.Certification) bool {
	return c.compile().matches(r)
}

// Apply returns the records matching c, in input order. The input slice is
// never modified. The result is never nil.
func Apply(records []*models.Certification, c Criteria) []*models.Certification {
	m := c.compile()
	out := make([]*models.Certification, 0, len(records))
	for _, r := range records {
		if m.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

type matcher struct {
	certType  models.CertType
	anyType   bool
	levels    map[models.SkillLevel]struct{}
	needle    string
	anySearch bool
}

func (c Criteria) compile() matcher {
	m := matcher{anySearch: c.Search == ""}
	t, selected := c.Category.CertType()
	m.certType, m.anyType = t, !selected
	if len(c.SkillLevels) > 0 {
		m.levels = make(map[models.SkillLevel]struct{}, len(c.SkillLevels))
		for _, l := range c.SkillLevels {
			m.levels[l] = struct{}{}
		}
	}
	if !m.anySearch {
		m.needle = strings.ToLower(c.Search)
	}
	return m
}

func (m matcher) matches(r *models.Certification) bool {
	if !m.anyType && r.CertType != m.certType {
		return false
	}
	if m.levels != nil {
		if _, ok := m.levels[r.SkillLevel]; !ok {
			return false
		}
	}
	if m.anySearch {
		return true
	}
	return strings.Contains(strings.ToLower(r.Title), m.needle) ||
		strings.Contains(strings.ToLower(r.Abbreviation), m.needle) ||
		strings.Contains(strings.ToLower(r.Description), m.needle)
}
