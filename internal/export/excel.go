package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/job-ranker/internal/filtering"
	"github.com/spigell/job-ranker/internal/jobs"
)

const (
	summarySheet = "Summary"
	jobsSheet    = "Ranked Jobs"
)

var jobHeaders = []string{"Rank", "Title", "Company", "Location", "Type", "Score", "Reasons", "Flags", "URL"}

// ToExcel writes the ranking result into an xlsx workbook and returns the final path.
// The .xlsx extension is appended when missing.
func ToExcel(result filtering.Result, filters jobs.Filters, outputPath string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(jobsSheet); err != nil {
		return "", err
	}

	if err := writeSummary(f, result, filters); err != nil {
		return "", fmt.Errorf("creating summary sheet: %w", err)
	}
	if err := writeJobs(f, result.Jobs); err != nil {
		return "", fmt.Errorf("creating ranked jobs sheet: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("saving excel file: %w", err)
	}
	return outputPath, nil
}

func writeSummary(f *excelize.File, result filtering.Result, filters jobs.Filters) error {
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	workplaces := make([]string, 0, len(filters.Workplace))
	for _, w := range filters.Workplace {
		workplaces = append(workplaces, string(w))
	}

	rows := [][2]string{
		{"Jobs", fmt.Sprintf("%d", len(result.Jobs))},
		{"Message", result.Message},
		{"Expanded search", fmt.Sprintf("%t", result.ExpandedSearch)},
		{"Workplace", strings.Join(workplaces, ", ")},
		{"Country", filters.Country},
		{"Job type", string(filters.JobType)},
		{"City", filters.City},
		{"Career level", filters.CareerLevel},
		{"Job category", filters.JobCategory},
		{"Date posted", filters.DatePosted},
		{"Search query", filters.SearchQuery},
	}

	for i, row := range rows {
		label := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(summarySheet, label, row[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, label, label, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row[1]); err != nil {
			return err
		}
	}

	return f.SetColWidth(summarySheet, "A", "A", 18)
}

func writeJobs(f *excelize.File, scored []jobs.ScoredJob) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	tierStyles := make([]int, 0, 4)
	for _, color := range []string{"C6EFCE", "E2EFDA", "FFEB9C", "FFC7CE"} {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		tierStyles = append(tierStyles, style)
	}

	for col, header := range jobHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(jobsSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(jobsSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, job := range scored {
		row := i + 2
		values := []any{
			i + 1,
			job.Title,
			job.Company,
			job.Location,
			job.EmploymentType,
			job.Score,
			strings.Join(job.Reasons, "; "),
			strings.Join(job.Flags, "; "),
			job.URL,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(jobsSheet, cell, value); err != nil {
				return err
			}
		}

		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(values)-1, row)
		if err := f.SetCellStyle(jobsSheet, first, last, tierStyles[styleIndex(job.Score)]); err != nil {
			return err
		}

		if job.URL != "" {
			urlCell, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellHyperLink(jobsSheet, urlCell, job.URL, "External"); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(jobsSheet, "B", "C", 30); err != nil {
		return err
	}
	return f.SetColWidth(jobsSheet, "G", "H", 50)
}

func styleIndex(score int) int {
	switch {
	case score >= 90:
		return 0
	case score >= 75:
		return 1
	case score >= 60:
		return 2
	default:
		return 3
	}
}
