package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

// ErrUnsupportedVersion is returned for profiles written by a newer release
var ErrUnsupportedVersion = errors.New("unsupported profile schema version")

type document = map[string]any

// migrations[i] upgrades a document from version i to i+1
var migrations = []func(document){
	renameLegacyFields,
	coerceListsAndIDs,
}

// Migrate decodes a stored profile of any known version and returns it in
// the current shape. It is the only place legacy shapes are handled.
func Migrate(raw []byte) (models.CandidateProfile, error) {
	doc := document{}
	if len(strings.TrimSpace(string(raw))) > 0 && strings.TrimSpace(string(raw)) != "null" {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return models.CandidateProfile{}, fmt.Errorf("failed to parse profile: %w", err)
		}
	}

	version, err := schemaVersion(doc)
	if err != nil {
		return models.CandidateProfile{}, err
	}
	if version > models.ProfileSchemaVersion {
		return models.CandidateProfile{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	for v := version; v < models.ProfileSchemaVersion; v++ {
		migrations[v](doc)
	}
	doc["schemaVersion"] = models.ProfileSchemaVersion

	data, err := json.Marshal(doc)
	if err != nil {
		return models.CandidateProfile{}, fmt.Errorf("failed to re-encode profile: %w", err)
	}

	var p models.CandidateProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return models.CandidateProfile{}, fmt.Errorf("failed to decode migrated profile: %w", err)
	}

	return Normalize(p), nil
}

func schemaVersion(doc document) (int, error) {
	v, ok := doc["schemaVersion"]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(int(n)) {
			return 0, fmt.Errorf("invalid schemaVersion %v", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid schemaVersion %q", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("invalid schemaVersion of type %T", v)
}

// renameLegacyFields moves fields from their first-release names
func renameLegacyFields(doc document) {
	rename(doc, "fullName", "name", "full_name")
	rename(doc, "headline", "title", "jobTitle")
	rename(doc, "linkedIn", "linkedin", "linkedinUrl")
	rename(doc, "summary", "about", "bio")
	rename(doc, "certifications", "certificates")

	forEachItem(doc, "experience", func(item document) {
		rename(item, "title", "role", "jobTitle", "position")
		rename(item, "company", "employer", "organization")
		rename(item, "achievements", "description", "responsibilities", "bullets")
		rename(item, "startDate", "from", "start")
		rename(item, "endDate", "to", "end")
	})
	forEachItem(doc, "education", func(item document) {
		rename(item, "institution", "school", "university")
		rename(item, "field", "fieldOfStudy", "major")
		rename(item, "startDate", "from", "start")
		rename(item, "endDate", "to", "end", "graduationDate")
	})
	forEachItem(doc, "projects", func(item document) {
		rename(item, "name", "title")
		rename(item, "link", "url")
	})
}

// coerceListsAndIDs turns string-or-array fields into arrays and gives every
// list item an id
func coerceListsAndIDs(doc document) {
	doc["skills"] = toStringList(doc["skills"], true)
	doc["certifications"] = toStringList(doc["certifications"], true)

	forEachItem(doc, "experience", func(item document) {
		item["achievements"] = toStringList(item["achievements"], false)
		if s, ok := item["current"].(string); ok {
			item["current"] = strings.EqualFold(strings.TrimSpace(s), "true")
		}
		ensureID(item)
	})
	forEachItem(doc, "education", ensureID)
	forEachItem(doc, "projects", ensureID)
}

func rename(doc document, to string, from ...string) {
	for _, old := range from {
		v, ok := doc[old]
		if !ok {
			continue
		}
		delete(doc, old)
		if _, exists := doc[to]; !exists {
			doc[to] = v
		}
	}
}

func forEachItem(doc document, key string, fn func(document)) {
	items, ok := doc[key].([]any)
	if !ok {
		if doc[key] != nil {
			delete(doc, key)
		}
		return
	}
	kept := items[:0]
	for _, it := range items {
		if item, ok := it.(map[string]any); ok {
			fn(item)
			kept = append(kept, item)
		}
	}
	doc[key] = kept
}

func ensureID(item document) {
	switch id := item["id"].(type) {
	case string:
		if strings.TrimSpace(id) != "" {
			return
		}
	case float64:
		item["id"] = strconv.FormatFloat(id, 'f', -1, 64)
		return
	}
	item["id"] = uuid.NewString()
}

// toStringList accepts a list, a delimited string, or nothing
func toStringList(v any, splitCommas bool) []string {
	switch val := v.(type) {
	case []any:
		var out []string
		for _, e := range val {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		return splitList(val, splitCommas)
	}
	return nil
}

func splitList(s string, splitCommas bool) []string {
	seps := func(r rune) bool {
		return r == '\n' || r == '\r' || r == '•' || r == ';' || (splitCommas && r == ',')
	}
	var out []string
	for _, part := range strings.FieldsFunc(s, seps) {
		part = strings.TrimSpace(part)
		part = strings.TrimLeft(part, "-*· ")
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Normalize trims text, drops empty entries and duplicate skills, and stamps
// the current schema version
func Normalize(p models.CandidateProfile) models.CandidateProfile {
	p.SchemaVersion = models.ProfileSchemaVersion
	p.FullName = strings.TrimSpace(p.FullName)
	p.Headline = strings.TrimSpace(p.Headline)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Location = strings.TrimSpace(p.Location)
	p.LinkedIn = strings.TrimSpace(p.LinkedIn)
	p.Summary = strings.TrimSpace(p.Summary)
	p.Skills = dedupe(p.Skills)
	p.Certifications = dedupe(p.Certifications)

	experience := make([]models.ExperienceItem, 0, len(p.Experience))
	for _, e := range p.Experience {
		e.Title = strings.TrimSpace(e.Title)
		e.Company = strings.TrimSpace(e.Company)
		e.Achievements = compact(e.Achievements)
		if e.Title == "" && e.Company == "" && len(e.Achievements) == 0 {
			continue
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		experience = append(experience, e)
	}
	p.Experience = experience

	education := make([]models.EducationItem, 0, len(p.Education))
	for _, e := range p.Education {
		e.Institution = strings.TrimSpace(e.Institution)
		e.Degree = strings.TrimSpace(e.Degree)
		if e.Institution == "" && e.Degree == "" {
			continue
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		education = append(education, e)
	}
	p.Education = education

	projects := make([]models.ProjectItem, 0, len(p.Projects))
	for _, pr := range p.Projects {
		pr.Name = strings.TrimSpace(pr.Name)
		if pr.Name == "" && strings.TrimSpace(pr.Description) == "" {
			continue
		}
		if pr.ID == "" {
			pr.ID = uuid.NewString()
		}
		projects = append(projects, pr)
	}
	p.Projects = projects

	return p
}

// Touch normalizes a profile for saving and stamps its update time
func Touch(p models.CandidateProfile, now time.Time) models.CandidateProfile {
	p = Normalize(p)
	p.UpdatedAt = now.UTC()
	return p
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range compact(items) {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
