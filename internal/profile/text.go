package profile

import (
	"fmt"
	"strings"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

// Text renders a profile as plain text for a model prompt
func Text(p models.CandidateProfile) string {
	var sb strings.Builder

	writeLine := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			sb.WriteString(fmt.Sprintf("%s: %s\n", label, value))
		}
	}

	writeLine("Name", p.FullName)
	writeLine("Headline", p.Headline)
	writeLine("Location", p.Location)
	if p.Summary != "" {
		sb.WriteString("\n## SUMMARY\n")
		sb.WriteString(p.Summary)
		sb.WriteString("\n")
	}

	if len(p.Skills) > 0 {
		sb.WriteString("\n## SKILLS\n")
		sb.WriteString(strings.Join(p.Skills, ", "))
		sb.WriteString("\n")
	}

	if len(p.Experience) > 0 {
		sb.WriteString("\n## EXPERIENCE\n")
		for _, e := range p.Experience {
			sb.WriteString(fmt.Sprintf("- %s at %s (%s)\n", e.Title, e.Company, period(e.StartDate, e.EndDate, e.Current)))
			for _, a := range e.Achievements {
				sb.WriteString(fmt.Sprintf("  * %s\n", a))
			}
		}
	}

	if len(p.Education) > 0 {
		sb.WriteString("\n## EDUCATION\n")
		for _, e := range p.Education {
			degree := strings.TrimSpace(strings.Join([]string{e.Degree, e.Field}, " "))
			sb.WriteString(fmt.Sprintf("- %s, %s (%s)\n", degree, e.Institution, period(e.StartDate, e.EndDate, false)))
		}
	}

	if len(p.Certifications) > 0 {
		sb.WriteString("\n## CERTIFICATIONS\n")
		for _, c := range p.Certifications {
			sb.WriteString(fmt.Sprintf("- %s\n", c))
		}
	}

	if len(p.Projects) > 0 {
		sb.WriteString("\n## PROJECTS\n")
		for _, pr := range p.Projects {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", pr.Name, pr.Description))
		}
	}

	return sb.String()
}

func period(start, end string, current bool) string {
	if current || strings.TrimSpace(end) == "" {
		end = "present"
	}
	if strings.TrimSpace(start) == "" {
		return end
	}
	return start + " - " + end
}
