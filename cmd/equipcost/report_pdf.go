package main

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// writeFleetReportPDF renders the fleet report as a single-page A4 PDF.
func writeFleetReportPDF(rep fleetReport, path string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Fleet Cost Report", false)
	pdf.AddPage()

	title := "Fleet Cost Report"
	if rep.Facility != "" {
		title += " - " + rep.Facility
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated "+rep.Date.Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	summary := [][2]string{
		{"Total assets", fmt.Sprintf("%d", rep.TotalAssets)},
		{"Average age", fmt.Sprintf("%.1f years", rep.AvgAgeYears)},
		{"Past useful life", fmt.Sprintf("%d", rep.PastUsefulLife)},
		{"Total acquisition value", fmt.Sprintf("$%.0f", rep.TotalAcquisition)},
		{"Annual maintenance cost", fmt.Sprintf("$%.0f", rep.AnnualMaintenance)},
	}
	if rep.TotalAcquisition > 0 {
		summary = append(summary, [2]string{
			"Maintenance/acquisition ratio",
			fmt.Sprintf("%.1f%%", rep.AnnualMaintenance/rep.TotalAcquisition*100),
		})
	}
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range summary {
		pdf.CellFormat(70, 7, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Cost by Equipment Class", "", 1, "L", false, 0, "")

	widths := []float64{52, 20, 24, 42, 42}
	headers := []string{"Class", "Count", "Avg Age", "Annual Cost", "Avg Cost/Asset"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range rep.Classes {
		pdf.CellFormat(widths[0], 7, line.Class, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", line.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%.1f", line.AvgAgeYears), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("$%.0f", line.AnnualCost), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, fmt.Sprintf("$%.0f", line.AnnualCost/float64(line.Count)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	return pdf.OutputFileAndClose(path)
}
