// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX report.
const (
	SheetSummary  = "Summary"
	SheetDrugs    = "Drugs"
	SheetResearch = "Research"
)

var (
	drugsHeader    = []any{"ID", "Name", "INN (EN)", "INN (RU)", "Dosage", "Route", "Frequency", "Duration", "Indication", "Target condition"}
	researchHeader = []any{"Drug", "Source", "Identifier", "Title", "Details", "Year / Phase", "Study type", "URL"}
)

// XLSXRenderer writes an analysis as a workbook with Summary, Drugs and
// Research sheets.
type XLSXRenderer struct{}

// Render writes the workbook to w.
func (r *XLSXRenderer) Render(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}
	for _, name := range []string{SheetDrugs, SheetResearch} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9D9D9"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	steps := []func(*excelize.File, int, Document) error{writeSummary, writeDrugs, writeResearch}
	for _, step := range steps {
		if err := step(f, bold, doc); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, headerStyle int, doc Document) error {
	a := doc.Analysis
	rows := [][]any{
		{"Field", "Value"},
		{"Protocol summary", a.ProtocolSummary},
		{"Main condition", a.MainCondition},
		{"Drug count", len(a.Drugs)},
		{"Analysis timestamp", a.Timestamp},
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("styling summary header: %w", err)
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 22); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "B", "B", 90)
}

func writeDrugs(f *excelize.File, headerStyle int, doc Document) error {
	rows := [][]any{drugsHeader}
	for _, d := range doc.Analysis.Drugs {
		rows = append(rows, []any{
			d.ID, d.Name, d.InnEnglish, d.InnRussian, d.Dosage,
			d.Route, d.Frequency, d.Duration, d.Indication, d.TargetCondition,
		})
	}
	if err := writeRows(f, SheetDrugs, rows); err != nil {
		return err
	}
	return styleHeader(f, SheetDrugs, len(drugsHeader), headerStyle)
}

func writeResearch(f *excelize.File, headerStyle int, doc Document) error {
	rows := [][]any{researchHeader}
	for _, dr := range orderedResearch(doc) {
		label := drugLabel(dr.Drug)
		for _, h := range dr.Envelope.Literature {
			rows = append(rows, []any{label, "PubMed", h.ID, h.Title, h.Authors + "; " + h.Venue, h.Year, h.StudyType, h.URL})
		}
		for _, h := range dr.Envelope.Trials {
			rows = append(rows, []any{label, "ClinicalTrials.gov", h.TrialID, h.Title, h.Status, h.Phase, "", h.URL})
		}
		for _, h := range dr.Envelope.Regulatory {
			rows = append(rows, []any{label, "openFDA", h.ApplicationNumber, "", h.SponsorName, "", "", h.URL})
		}
	}
	if err := writeRows(f, SheetResearch, rows); err != nil {
		return err
	}
	return styleHeader(f, SheetResearch, len(researchHeader), headerStyle)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 20)
}
