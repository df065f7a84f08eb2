package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

const (
	summarySheet    = "Summary"
	transcriptSheet = "Transcript"
	feedbackSheet   = "Feedback"

	headerColor = "4472C4"
)

// band fills, best to worst
var bandFills = []string{"C6EFCE", "FFEB9C", "FFC7CE", "FF9999"}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// ReportToExcel writes an interview report as an xlsx workbook
func ReportToExcel(w io.Writer, r models.InterviewReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(transcriptSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(feedbackSheet); err != nil {
		return err
	}

	styles, err := newSheetStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	if err := writeSummarySheet(f, styles, r); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeTranscriptSheet(f, styles, r.Transcript); err != nil {
		return fmt.Errorf("failed to create transcript sheet: %w", err)
	}
	if err := writeFeedbackSheet(f, styles, r.Transcript); err != nil {
		return fmt.Errorf("failed to create feedback sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type sheetStyles struct {
	title  int
	header int
	label  int
	wrap   int
	bands  []int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	var s sheetStyles
	var err error

	s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return s, err
	}

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return s, err
	}

	s.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return s, err
	}

	s.wrap, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorder,
	})
	if err != nil {
		return s, err
	}

	for _, fill := range bandFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			Border:    thinBorder,
		})
		if err != nil {
			return s, err
		}
		s.bands = append(s.bands, id)
	}
	return s, nil
}

// overallBand maps a 0..100 score to a fill band
func overallBand(score int) int {
	switch {
	case score >= 90:
		return 0
	case score >= 70:
		return 1
	case score >= 50:
		return 2
	default:
		return 3
	}
}

// turnBand maps a 1..5 average to a fill band
func turnBand(avg float64) int {
	switch {
	case avg >= 4.5:
		return 0
	case avg >= 3.5:
		return 1
	case avg >= 2.5:
		return 2
	default:
		return 3
	}
}

func writeSummarySheet(f *excelize.File, st sheetStyles, r models.InterviewReport) error {
	sheet := summarySheet
	f.SetColWidth(sheet, "A", "A", 25)
	f.SetColWidth(sheet, "B", "B", 70)

	row := 1
	cell := func(col string) string { return fmt.Sprintf("%s%d", col, row) }

	heading := func(text string) {
		f.SetCellValue(sheet, cell("A"), text)
		f.SetCellStyle(sheet, cell("A"), cell("B"), st.title)
		f.MergeCell(sheet, cell("A"), cell("B"))
		row++
	}
	field := func(label string, value any) {
		f.SetCellValue(sheet, cell("A"), label)
		f.SetCellStyle(sheet, cell("A"), cell("A"), st.label)
		f.SetCellValue(sheet, cell("B"), value)
		row++
	}

	s := r.Summary
	heading("Mock Interview Report")
	row++
	field("Role:", orDash(s.RoleDetected))
	field("Company:", orDash(s.CompanyDetected))
	if !r.CreatedAt.IsZero() {
		field("Date:", r.CreatedAt.Format("2006-01-02 15:04"))
	}
	field("Questions answered:", len(r.Transcript))

	f.SetCellValue(sheet, cell("A"), "Overall score:")
	f.SetCellStyle(sheet, cell("A"), cell("A"), st.label)
	f.SetCellValue(sheet, cell("B"), s.OverallScore)
	f.SetCellStyle(sheet, cell("B"), cell("B"), st.bands[overallBand(s.OverallScore)])
	row += 2

	if len(s.TopStrengths) > 0 {
		heading("Top strengths")
		for _, strength := range s.TopStrengths {
			f.SetCellValue(sheet, cell("B"), strength)
			row++
		}
		row++
	}

	if len(s.TopImprovements) > 0 {
		heading("Areas to improve")
		for _, imp := range s.TopImprovements {
			f.SetCellValue(sheet, cell("A"), imp.Point)
			f.SetCellStyle(sheet, cell("A"), cell("A"), st.label)
			f.SetCellValue(sheet, cell("B"), imp.Suggestion)
			row++
		}
	}
	return nil
}

func writeTranscriptSheet(f *excelize.File, st sheetStyles, transcript []models.Turn) error {
	sheet := transcriptSheet
	widths := map[string]float64{"A": 6, "B": 18, "C": 50, "D": 60, "E": 11, "F": 11, "G": 11, "H": 11, "I": 14, "J": 10}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	headers := []string{"#", "Source", "Question", "Answer", "Relevance", "Structure", "Metrics", "Alignment", "Communication", "Average"}
	for col, header := range headers {
		c := fmt.Sprintf("%s1", string(rune('A'+col)))
		f.SetCellValue(sheet, c, header)
		f.SetCellStyle(sheet, c, c, st.header)
	}

	for i, t := range transcript {
		row := i + 2
		values := []any{
			t.QuestionNumber, string(t.SourceOfQuestion), t.Question, t.CandidateAnswer,
			t.Scores.Relevance, t.Scores.Structure, t.Scores.Metrics, t.Scores.Alignment, t.Scores.Communication,
			fmt.Sprintf("%.1f", t.Scores.Average()),
		}
		for col, v := range values {
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", string(rune('A'+col)), row), v)
		}
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("J%d", row), st.bands[turnBand(t.Scores.Average())])
	}

	if len(transcript) > 0 {
		f.AutoFilter(sheet, fmt.Sprintf("A1:J%d", len(transcript)+1), []excelize.AutoFilterOptions{})
	}
	return freezeTopRow(f, sheet)
}

func writeFeedbackSheet(f *excelize.File, st sheetStyles, transcript []models.Turn) error {
	sheet := feedbackSheet
	f.SetColWidth(sheet, "A", "A", 6)
	f.SetColWidth(sheet, "B", "B", 50)
	f.SetColWidth(sheet, "C", "C", 80)

	headers := []string{"#", "Question", "Feedback"}
	for col, header := range headers {
		c := fmt.Sprintf("%s1", string(rune('A'+col)))
		f.SetCellValue(sheet, c, header)
		f.SetCellStyle(sheet, c, c, st.header)
	}

	for i, t := range transcript {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), t.QuestionNumber)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), t.Question)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), t.Feedback)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), st.wrap)
		f.SetRowHeight(sheet, row, 60)
	}
	return freezeTopRow(f, sheet)
}

func freezeTopRow(f *excelize.File, sheet string) error {
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
