package models

// CertType is the focus category of a certification
type CertType string

const (
	CertTypeBlue    CertType = "blue"    // defensive operations
	CertTypeRed     CertType = "red"     // offensive / penetration testing
	CertTypeInfoSec CertType = "infoSec" // governance and management
)

// CertTypes returns every certification category in display order
func CertTypes() []CertType {
	return []CertType{CertTypeBlue, CertTypeRed, CertTypeInfoSec}
}

// Valid reports whether t is one of the known categories
func (t CertType) Valid() bool {
	switch t {
	case CertTypeBlue, CertTypeRed, CertTypeInfoSec:
		return true
	}
	return false
}

// Label returns the human readable tab label
func (t CertType) Label() string {
	switch t {
	case CertTypeBlue:
		return "Blue Team"
	case CertTypeRed:
		return "Red Team"
	case CertTypeInfoSec:
		return "InfoSec"
	}
	return string(t)
}

// SkillLevel is the proficiency tier a certification targets
type SkillLevel string

const (
	SkillNovice       SkillLevel = "Novice"
	SkillBeginner     SkillLevel = "Beginner"
	SkillIntermediate SkillLevel = "Intermediate"
	SkillAdvanced     SkillLevel = "Advanced"
	SkillExpert       SkillLevel = "Expert"
)

// SkillLevels returns the five levels from lowest to highest
func SkillLevels() []SkillLevel {
	return []SkillLevel{SkillNovice, SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert}
}

// Rank returns the ordinal position of the level (0 = Novice), or -1 if unknown
func (l SkillLevel) Rank() int {
	switch l {
	case SkillNovice:
		return 0
	case SkillBeginner:
		return 1
	case SkillIntermediate:
		return 2
	case SkillAdvanced:
		return 3
	case SkillExpert:
		return 4
	}
	return -1
}

// Valid reports whether l is one of the five known levels
func (l SkillLevel) Valid() bool {
	return l.Rank() >= 0
}

// Less orders levels by proficiency
func (l SkillLevel) Less(other SkillLevel) bool {
	return l.Rank() < other.Rank()
}

// Certification is a single catalog entry. Values are immutable once validated.
type Certification struct {
	ID                   int          `json:"id" yaml:"id"`
	Slug                 string       `json:"slug" yaml:"slug"`
	Title                string       `json:"title" yaml:"title"`
	Abbreviation         string       `json:"abbreviation" yaml:"abbreviation"`
	Description          string       `json:"description" yaml:"description"`
	Image                string       `json:"image" yaml:"image"`
	URL                  string       `json:"url" yaml:"url"`
	Cost                 string       `json:"cost" yaml:"cost"`
	TrainingIncluded     bool         `json:"training_included" yaml:"training_included"`
	NumberOfAttempts     int          `json:"number_of_attempts" yaml:"number_of_attempts"`
	JobRolesTitles       []string     `json:"job_roles_titles" yaml:"job_roles_titles"`
	CertType             CertType     `json:"cert_type" yaml:"cert_type"`
	TotalVotes           int          `json:"total_votes" yaml:"total_votes"`
	MarketPresence       float64      `json:"market_presence" yaml:"market_presence"`       // chart X: 0.0 - 1.0
	CostEffectiveness    float64      `json:"cost_effectiveness" yaml:"cost_effectiveness"` // 1.0 - 5.0
	SkillLevel           SkillLevel   `json:"skill_level" yaml:"skill_level"`
	Quality              float64      `json:"quality" yaml:"quality"`           // 1.0 - 5.0
	Satisfaction         float64      `json:"satisfaction" yaml:"satisfaction"` // chart Y: 1.0 - 5.0
	Provider             *Provider    `json:"provider" yaml:"provider"`
	DomainsCoveredTitles []string     `json:"domains_covered_titles" yaml:"domains_covered_titles"`
	Requirements         Requirements `json:"requirements_data" yaml:"requirements_data"`
	ExamDetails          ExamDetails  `json:"exam_details_data" yaml:"exam_details_data"`
	ValidFor             *string      `json:"valid_for" yaml:"valid_for"` // "3 years", "Lifetime" or null
}

// Provider is the issuing organisation
type Provider struct {
	Name  string `json:"name" yaml:"name"`
	URL   string `json:"url" yaml:"url"`
	Image string `json:"image" yaml:"image"`
}

// Requirements describes the prerequisites of a certification
type Requirements struct {
	Knowledge                     string `json:"knowledge" yaml:"knowledge"`
	WorkExperience                string `json:"work_experience" yaml:"work_experience"`
	PriorCoursesAndCertifications string `json:"prior_courses_and_certifications" yaml:"prior_courses_and_certifications"`
}

// ExamDetails describes the exam
type ExamDetails struct {
	Format         string  `json:"format" yaml:"format"`
	Duration       *string `json:"duration" yaml:"duration"`
	ReportRequired bool    `json:"report_required" yaml:"report_required"`
}

// ProviderName returns the provider name or an empty string when absent
func (c *Certification) ProviderName() string {
	if c.Provider == nil {
		return ""
	}
	return c.Provider.Name
}
