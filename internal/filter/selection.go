package filter

import (
	"slices"

	"github.com/terra-clan/certmap/internal/models"
)

// Selection is the user-facing filter state. SearchText is the literal
// input, which may not have been applied to the view yet.
type Selection struct {
	Category    Category            `json:"category"`
	SkillLevels []models.SkillLevel `json:"skill_levels"`
	SearchText  string              `json:"search_text"`
}

// DefaultSelection returns the selection an engine starts with.
func DefaultSelection() Selection {
	return Selection{Category: CategoryAll, SkillLevels: []models.SkillLevel{}}
}

// HasLevel reports whether l is currently selected.
func (s Selection) HasLevel(l models.SkillLevel) bool {
	return slices.Contains(s.SkillLevels, l)
}

// IsDefault reports whether no dimension narrows the view.
func (s Selection) IsDefault() bool {
	return s.Category == CategoryAll && len(s.SkillLevels) == 0 && s.SearchText == ""
}

func (s Selection) clone() Selection {
	s.SkillLevels = slices.Clone(s.SkillLevels)
	if s.SkillLevels == nil {
		s.SkillLevels = []models.SkillLevel{}
	}
	return s
}

// toggle removes l if present, otherwise appends it. Levels stay unique.
func (s *Selection) toggle(l models.SkillLevel) {
	if i := slices.Index(s.SkillLevels, l); i >= 0 {
		s.SkillLevels = slices.Delete(s.SkillLevels, i, i+1)
		return
	}
	s.SkillLevels = append(s.SkillLevels, l)
}
