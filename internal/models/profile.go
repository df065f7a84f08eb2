package models

import "time"

// ProfileSchemaVersion is the version every stored profile is migrated to
const ProfileSchemaVersion = 2

// CandidateProfile is the structured career profile kept per user
type CandidateProfile struct {
	SchemaVersion  int              `json:"schemaVersion"`
	FullName       string           `json:"fullName"`
	Headline       string           `json:"headline"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone"`
	Location       string           `json:"location"`
	LinkedIn       string           `json:"linkedIn"`
	Summary        string           `json:"summary"`
	Skills         []string         `json:"skills"`
	Experience     []ExperienceItem `json:"experience"`
	Education      []EducationItem  `json:"education"`
	Certifications []string         `json:"certifications"`
	Projects       []ProjectItem    `json:"projects"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ExperienceItem is one position held
type ExperienceItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Current      bool     `json:"current"`
	Achievements []string `json:"achievements"`
}

// EducationItem is one degree or course of study
type EducationItem struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// ProjectItem is a side or portfolio project
type ProjectItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// IsEmpty reports whether the profile holds nothing worth sending to the model
func (p CandidateProfile) IsEmpty() bool {
	return p.FullName == "" && p.Summary == "" && len(p.Skills) == 0 &&
		len(p.Experience) == 0 && len(p.Education) == 0
}
