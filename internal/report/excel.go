// Package report renders a ranked batch as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spigell/hr-matcher/internal/recruit"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet    = "Summary"
	CandidatesSheet = "Ranked Candidates"
	EmailsSheet     = "Emails"

	timeLayout = "2006-01-02 15:04:05"
)

var candidateHeaders = []string{"Rank", "Filename", "Score", "Selected", "Missing Skills", "Remarks"}

var emailHeaders = []string{"Filename", "Track", "Subject", "Body"}

// Build creates the workbook for a result. The caller must close the returned file.
func Build(result *recruit.Result, generated time.Time) (*excelize.File, error) {
	if result == nil {
		return nil, fmt.Errorf("result is required")
	}

	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}

	if err := writeSummary(f, result, generated); err != nil {
		f.Close()
		return nil, fmt.Errorf("summary sheet: %w", err)
	}

	if err := writeCandidates(f, result); err != nil {
		f.Close()
		return nil, fmt.Errorf("candidates sheet: %w", err)
	}

	if hasEmails(result) {
		if err := writeEmails(f, result); err != nil {
			f.Close()
			return nil, fmt.Errorf("emails sheet: %w", err)
		}
	}

	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, result *recruit.Result, generated time.Time) error {
	f, err := Build(result, generated)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save writes the workbook to path, adding the .xlsx extension when missing.
func Save(path string, result *recruit.Result, generated time.Time) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	f, err := Build(result, generated)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook %s: %w", path, err)
	}
	return path, nil
}

func writeSummary(f *excelize.File, result *recruit.Result, generated time.Time) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetColWidth(SummarySheet, "A", "A", 25); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 60); err != nil {
		return err
	}

	if err := f.SetCellValue(SummarySheet, "A1", "Candidate Matching Report"); err != nil {
		return err
	}
	if err := f.MergeCell(SummarySheet, "A1", "B1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return err
	}

	best := "-"
	if candidate, ok := result.Best(); ok {
		best = fmt.Sprintf("%s (%.2f)", candidate.Filename, candidate.Score)
	}

	rows := [][2]any{
		{"Job Title:", result.JobTitle},
		{"Company:", result.CompanyName},
		{"Generated:", generated.Format(timeLayout)},
		{"Strategy:", result.Strategy},
		{"Required Skills:", strings.Join(result.RequiredSkills, ", ")},
		{"Candidates:", len(result.Candidates)},
		{"Selected:", selectedCount(result)},
		{"Best Candidate:", best},
	}

	for i, row := range rows {
		r := i + 3
		label := fmt.Sprintf("A%d", r)
		if err := f.SetCellValue(SummarySheet, label, row[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(SummarySheet, label, label, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", r), row[1]); err != nil {
			return err
		}
	}

	return nil
}

func writeCandidates(f *excelize.File, result *recruit.Result) error {
	if _, err := f.NewSheet(CandidatesSheet); err != nil {
		return err
	}

	if err := writeHeader(f, CandidatesSheet, candidateHeaders); err != nil {
		return err
	}

	for col, width := range map[string]float64{"A": 8, "B": 30, "C": 10, "D": 10, "E": 35, "F": 80} {
		if err := f.SetColWidth(CandidatesSheet, col, col, width); err != nil {
			return err
		}
	}

	for i, idx := range rankOrder(result.Candidates) {
		candidate := result.Candidates[idx]
		selected := "No"
		if candidate.IsSelected {
			selected = "Yes"
		}

		row := []any{
			i + 1,
			candidate.Filename,
			candidate.Score,
			selected,
			strings.Join(candidate.MissingSkills, ", "),
			candidate.Remarks,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(CandidatesSheet, cell, &row); err != nil {
			return err
		}
	}

	return finishTable(f, CandidatesSheet, len(candidateHeaders), len(result.Candidates))
}

func writeEmails(f *excelize.File, result *recruit.Result) error {
	if _, err := f.NewSheet(EmailsSheet); err != nil {
		return err
	}

	if err := writeHeader(f, EmailsSheet, emailHeaders); err != nil {
		return err
	}

	for col, width := range map[string]float64{"A": 30, "B": 12, "C": 50, "D": 100} {
		if err := f.SetColWidth(EmailsSheet, col, col, width); err != nil {
			return err
		}
	}

	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}

	r := 2
	for _, candidate := range result.Candidates {
		if candidate.Email == nil {
			continue
		}
		track := "Rejection"
		if candidate.IsSelected {
			track = "Interview"
		}

		row := []any{candidate.Filename, track, candidate.Email.Subject, candidate.Email.Body}
		if err := f.SetSheetRow(EmailsSheet, fmt.Sprintf("A%d", r), &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(EmailsSheet, fmt.Sprintf("D%d", r), fmt.Sprintf("D%d", r), wrap); err != nil {
			return err
		}
		r++
	}

	return finishTable(f, EmailsSheet, len(emailHeaders), r-2)
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	row := make([]any, 0, len(headers))
	for _, h := range headers {
		row = append(row, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// finishTable freezes the header row and adds a filter over the data range.
func finishTable(f *excelize.File, sheet string, columns, rows int) error {
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if rows == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(columns, rows+1)
	if err != nil {
		return err
	}
	return f.AutoFilter(sheet, "A1:"+last, nil)
}

// rankOrder returns candidate indexes by descending score, keeping input order on ties.
func rankOrder(candidates []recruit.CandidateResult) []int {
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].Score > candidates[order[b]].Score
	})
	return order
}

func selectedCount(result *recruit.Result) int {
	count := 0
	for _, c := range result.Candidates {
		if c.IsSelected {
			count++
		}
	}
	return count
}

func hasEmails(result *recruit.Result) bool {
	for _, c := range result.Candidates {
		if c.Email != nil {
			return true
		}
	}
	return false
}
