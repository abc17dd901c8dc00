package services

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	reportSheet   = "Resume_Insights"
	zipFolder     = "ranked_resumes"
	skillsJoinSep = ", "
)

var reportHeader = []string{"Rank", "Resume Filename", "Relevance Score (%)", "Matched Skills", "Missing Skills"}

// ReportRow is one ranked line of an exported report.
type ReportRow struct {
	Rank          int
	Filename      string
	Score         float64
	MatchedSkills []string
	MissingSkills []string
}

func (r ReportRow) record() []string {
	return []string{
		strconv.Itoa(r.Rank),
		r.Filename,
		FormatPercent(r.Score),
		strings.Join(r.MatchedSkills, skillsJoinSep),
		strings.Join(r.MissingSkills, skillsJoinSep),
	}
}

// FormatPercent renders a [0,100] score for display, e.g. "85.50%".
func FormatPercent(score float64) string {
	return fmt.Sprintf("%.2f%%", score)
}

// ArchiveFile is a stored file to include in a download bundle.
type ArchiveFile struct {
	Name string
	Path string
}

type ReportService interface {
	WriteExcel(w io.Writer, rows []ReportRow) error
	WriteCSV(w io.Writer, rows []ReportRow) error
	WriteResumesZip(w io.Writer, files []ArchiveFile) (int, error)
}

type reportService struct {
	log *zap.Logger
}

func NewReportService(log *zap.Logger) ReportService {
	return &reportService{log: log}
}

// WriteExcel renders the ranking as a single-sheet workbook with a styled,
// frozen header row and wrapped skill columns.
func (s *reportService) WriteExcel(w io.Writer, rows []ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D7E4BC"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("failed to create cell style: %w", err)
	}

	widths := []struct {
		col   string
		width float64
	}{{"A", 5}, {"B", 35}, {"C", 20}, {"D", 60}, {"E", 60}}
	for _, c := range widths {
		if err := f.SetColWidth(reportSheet, c.col, c.col, c.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetColStyle(reportSheet, "D:E", wrapStyle); err != nil {
		return fmt.Errorf("failed to set column style: %w", err)
	}

	for i, h := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := f.SetCellStyle(reportSheet, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range rows {
		values := []any{
			r.Rank,
			r.Filename,
			FormatPercent(r.Score),
			strings.Join(r.MatchedSkills, skillsJoinSep),
			strings.Join(r.MissingSkills, skillsJoinSep),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (s *reportService) WriteCSV(w io.Writer, rows []ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Rank, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResumesZip bundles the original uploads under ranked_resumes/.
// Files that are gone from disk are logged and skipped. Returns the number
// of files written.
func (s *reportService) WriteResumesZip(w io.Writer, files []ArchiveFile) (int, error) {
	zw := zip.NewWriter(w)

	written := 0
	for _, file := range files {
		if err := addToZip(zw, file); err != nil {
			if os.IsNotExist(err) {
				s.log.Warn("⚠️  Original file not found", zap.String("filename", file.Name), zap.String("path", file.Path))
				continue
			}
			zw.Close()
			return written, fmt.Errorf("failed to add %s: %w", file.Name, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish zip: %w", err)
	}
	return written, nil
}

func addToZip(zw *zip.Writer, file ArchiveFile) error {
	src, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:   path.Join(zipFolder, filepath.Base(file.Name)),
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
