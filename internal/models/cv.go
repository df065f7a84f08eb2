package models

import "time"

// Suggestion is one proposed change to the candidate's CV
type Suggestion struct {
	Section   string `json:"section"`
	Original  string `json:"original"`
	Suggested string `json:"suggested"`
	Rationale string `json:"rationale"`
}

// CVAnalysis holds alignment suggestions for a CV against a job description
type CVAnalysis struct {
	ID              string       `json:"id"`
	UserEmail       string       `json:"userEmail"`
	JobDescription  string       `json:"jobDescription"`
	MatchScore      int          `json:"matchScore"` // 0-100
	Summary         string       `json:"summary"`
	Strengths       []string     `json:"strengths"`
	Gaps            []string     `json:"gaps"`
	MissingKeywords []string     `json:"missingKeywords"`
	Suggestions     []Suggestion `json:"suggestions"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// GeneratedRole is one rewritten experience entry
type GeneratedRole struct {
	Title   string   `json:"title"`
	Company string   `json:"company"`
	Period  string   `json:"period"`
	Bullets []string `json:"bullets"`
}

// GeneratedEducation is one rewritten education entry
type GeneratedEducation struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Period      string `json:"period"`
}

// GeneratedCV is a CV rewritten for a specific job description
type GeneratedCV struct {
	ID             string               `json:"id"`
	UserEmail      string               `json:"userEmail"`
	JobDescription string               `json:"jobDescription"`
	FullName       string               `json:"fullName"`
	Headline       string               `json:"headline"`
	Contact        string               `json:"contact"`
	Summary        string               `json:"summary"`
	Skills         []string             `json:"skills"`
	Experience     []GeneratedRole      `json:"experience"`
	Education      []GeneratedEducation `json:"education"`
	Certifications []string             `json:"certifications"`
	CreatedAt      time.Time            `json:"createdAt"`
}
