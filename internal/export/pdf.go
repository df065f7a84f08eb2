package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

const (
	pageMargin  = 18.0
	bodySize    = 10.5
	bodyLine    = 5.2
	headingSize = 13.0
	headingLine = 7.0
	fontFamily  = "Helvetica"
)

// pageWriter flows text down A4 pages. Automatic page breaks are off:
// every line is measured and a page is added before it would cross the
// bottom margin.
type pageWriter struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	left   float64
	width  float64
	bottom float64
	// overflow is set when a line ended below the bottom margin
	overflow bool
}

func newPageWriter(title, author string) *pageWriter {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(author, true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	return &pageWriter{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		left:   left,
		width:  pageW - left - right,
		bottom: pageH - bottom,
	}
}

// fits adds a page unless h more millimetres fit on the current one
func (w *pageWriter) fits(h float64) {
	if w.pdf.GetY()+h > w.bottom {
		w.pdf.AddPage()
	}
}

func (w *pageWriter) line(text string, indent, height float64) {
	w.fits(height)
	w.pdf.SetX(w.left + indent)
	w.pdf.CellFormat(w.width-indent, height, text, "", 1, "L", false, 0, "")
	if w.pdf.GetY() > w.bottom {
		w.overflow = true
	}
}

func (w *pageWriter) split(text string, indent float64) []string {
	var out []string
	for _, para := range strings.Split(w.tr(text), "\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		for _, l := range w.pdf.SplitLines([]byte(para), w.width-indent) {
			out = append(out, string(l))
		}
	}
	return out
}

func (w *pageWriter) title(text string, size float64) {
	w.pdf.SetFont(fontFamily, "B", size)
	for _, l := range w.split(text, 0) {
		w.line(l, 0, size*0.5)
	}
	w.gap(2)
}

// heading is kept on the same page as the first body line after it
func (w *pageWriter) heading(text string) {
	w.gap(3)
	w.pdf.SetFont(fontFamily, "B", headingSize)
	lines := w.split(text, 0)
	w.fits(float64(len(lines))*headingLine + bodyLine)
	for _, l := range lines {
		w.line(l, 0, headingLine)
	}
	w.pdf.SetFont(fontFamily, "", bodySize)
}

func (w *pageWriter) paragraph(text string) {
	w.styled(text, "", 0)
}

func (w *pageWriter) styled(text, style string, indent float64) {
	w.pdf.SetFont(fontFamily, style, bodySize)
	for _, l := range w.split(text, indent) {
		w.line(l, indent, bodyLine)
	}
	w.pdf.SetFont(fontFamily, "", bodySize)
}

func (w *pageWriter) bullet(text string) {
	w.pdf.SetFont(fontFamily, "", bodySize)
	lines := w.split(text, 5)
	for i, l := range lines {
		if i == 0 {
			w.fits(bodyLine)
			w.pdf.SetX(w.left)
			w.pdf.CellFormat(5, bodyLine, "-", "", 0, "L", false, 0, "")
		}
		w.line(l, 5, bodyLine)
	}
}

func (w *pageWriter) gap(h float64) {
	if w.pdf.GetY()+h > w.bottom {
		w.pdf.AddPage()
		return
	}
	w.pdf.Ln(h)
}

func (w *pageWriter) output(out io.Writer) error {
	if err := w.pdf.Error(); err != nil {
		return fmt.Errorf("layout pdf: %w", err)
	}
	if w.overflow {
		return fmt.Errorf("layout pdf: text ran past the bottom margin")
	}
	if err := w.pdf.Output(out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func layoutReport(r models.InterviewReport) *pageWriter {
	w := newPageWriter("Mock Interview Report", "Interview Coach")
	s := r.Summary

	title := "Mock Interview Report"
	if s.RoleDetected != "" {
		title += ": " + s.RoleDetected
	}
	w.title(title, 18)
	if s.CompanyDetected != "" {
		w.paragraph("Company: " + s.CompanyDetected)
	}
	if !r.CreatedAt.IsZero() {
		w.paragraph("Date: " + r.CreatedAt.Format("02 Jan 2006 15:04"))
	}
	w.styled(fmt.Sprintf("Overall score: %d/100", s.OverallScore), "B", 0)

	if len(s.TopStrengths) > 0 {
		w.heading("Top strengths")
		for _, st := range s.TopStrengths {
			w.bullet(st)
		}
	}
	if len(s.TopImprovements) > 0 {
		w.heading("Areas to improve")
		for _, imp := range s.TopImprovements {
			w.bullet(imp.Point + ": " + imp.Suggestion)
		}
	}

	for _, t := range r.Transcript {
		w.heading(fmt.Sprintf("Question %d (%s)", t.QuestionNumber, t.SourceOfQuestion))
		w.styled(t.Question, "I", 0)
		w.gap(1.5)
		w.paragraph("Answer: " + orDash(t.CandidateAnswer))
		w.paragraph("Feedback: " + t.Feedback)
		w.paragraph("Scores: " + scoreLine(t.Scores))
	}
	return w
}

// ReportPDF renders an interview report as a paginated PDF
func ReportPDF(out io.Writer, r models.InterviewReport) error {
	return layoutReport(r).output(out)
}

func layoutCV(cv models.GeneratedCV) *pageWriter {
	name := strings.TrimSpace(cv.FullName)
	if name == "" {
		name = "Curriculum Vitae"
	}
	w := newPageWriter(name, name)

	w.title(name, 20)
	if cv.Headline != "" {
		w.styled(cv.Headline, "B", 0)
	}
	if cv.Contact != "" {
		w.paragraph(cv.Contact)
	}

	if cv.Summary != "" {
		w.heading("Profile")
		w.paragraph(cv.Summary)
	}
	if len(cv.Skills) > 0 {
		w.heading("Skills")
		w.paragraph(strings.Join(cv.Skills, ", "))
	}
	if len(cv.Experience) > 0 {
		w.heading("Experience")
		for _, role := range cv.Experience {
			head := role.Title
			if role.Company != "" {
				head += ", " + role.Company
			}
			w.gap(1.5)
			w.fits(2 * bodyLine)
			w.styled(head, "B", 0)
			if role.Period != "" {
				w.styled(role.Period, "I", 0)
			}
			for _, b := range role.Bullets {
				w.bullet(b)
			}
		}
	}
	if len(cv.Education) > 0 {
		w.heading("Education")
		for _, ed := range cv.Education {
			line := ed.Degree
			if ed.Institution != "" {
				line += ", " + ed.Institution
			}
			if ed.Period != "" {
				line += " (" + ed.Period + ")"
			}
			w.bullet(line)
		}
	}
	if len(cv.Certifications) > 0 {
		w.heading("Certifications")
		for _, c := range cv.Certifications {
			w.bullet(c)
		}
	}
	return w
}

// CVPDF renders a generated CV as a paginated PDF
func CVPDF(out io.Writer, cv models.GeneratedCV) error {
	return layoutCV(cv).output(out)
}
