package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Line is one labelled amount on a payslip.
type Line struct {
	Label  string
	Amount decimal.Decimal
}

type Payslip struct {
	Company      string
	EmployeeName string
	EmployeeCode string
	Month        string
	Status       string
	WorkingDays  int
	LOPDays      decimal.Decimal
	PayableDays  decimal.Decimal
	Earnings     []Line
	Deductions   []Line
	Gross        decimal.Decimal
	TotalDeduct  decimal.Decimal
	Net          decimal.Decimal
	PaidAt       string
	Payment      string
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders money with thousands separators and two decimals.
func FormatAmount(d decimal.Decimal) string {
	return amountPrinter.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// WritePayslip renders p as a single page A4 PDF.
func WritePayslip(w io.Writer, p Payslip) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %s", p.EmployeeCode, p.Month), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Payslip")
	pdf.Ln(12)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	header := []string{
		"Company: " + p.Company,
		fmt.Sprintf("Employee: %s (%s)", p.EmployeeName, p.EmployeeCode),
		"Period: " + p.Month,
		"Status: " + p.Status,
		fmt.Sprintf("Working days: %d   LOP days: %s   Payable days: %s",
			p.WorkingDays, p.LOPDays.StringFixed(2), p.PayableDays.StringFixed(2)),
	}
	for _, line := range header {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	section := func(title string, lines []Line, totalLabel string, total decimal.Decimal) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, l := range lines {
			pdf.CellFormat(120, 7, tr(l.Label), "", 0, "L", false, 0, "")
			pdf.CellFormat(50, 7, FormatAmount(l.Amount), "", 1, "R", false, 0, "")
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(120, 7, totalLabel, "T", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, FormatAmount(total), "T", 1, "R", false, 0, "")
		pdf.Ln(4)
	}
	section("Earnings", p.Earnings, "Gross earnings", p.Gross)
	section("Deductions", p.Deductions, "Total deductions", p.TotalDeduct)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(120, 9, "Net salary", "TB", 0, "L", false, 0, "")
	pdf.CellFormat(50, 9, FormatAmount(p.Net), "TB", 1, "R", false, 0, "")

	if p.PaidAt != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Paid on %s via %s", p.PaidAt, p.Payment))
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render payslip: %w", err)
	}
	return nil
}
