package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCSVField(t *testing.T) {
	cases := map[string]string{
		"=SUM(1,1)":           "'=SUM(1,1)",
		"+danger@example.com": "'+danger@example.com",
		"-2+3":                "'-2+3",
		"@cmd":                "'@cmd",
		"Ana Lopez":           "Ana Lopez",
		"1250.00":             "1250.00",
		"":                    "",
		"a=b":                 "a=b",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeCSVField(in), "input %q", in)
	}
}

func TestWriteCSV_EscapesInjection(t *testing.T) {
	var buf bytes.Buffer

	err := WriteCSV(&buf, []string{"name", "reference", "net"}, [][]string{
		{"=SUM(1,1)", "+danger@example.com", "1000.00"},
		{"Budi", "TRX-1", "2500.50"},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"'=SUM(1,1)", "'+danger@example.com", "1000.00"}, records[1])
	assert.Equal(t, []string{"Budi", "TRX-1", "2500.50"}, records[2])
}

func TestWritePayslip(t *testing.T) {
	var buf bytes.Buffer

	err := WritePayslip(&buf, Payslip{
		Company:      "Acme",
		EmployeeName: "Ana Lopez",
		EmployeeCode: "E-001",
		Month:        "2024-01",
		Status:       "Paid & Locked",
		WorkingDays:  31,
		LOPDays:      decimal.RequireFromString("2.5"),
		PayableDays:  decimal.RequireFromString("28.5"),
		Earnings:     []Line{{Label: "Basic", Amount: decimal.RequireFromString("28500")}},
		Deductions:   []Line{{Label: "Tax", Amount: decimal.RequireFromString("1000")}},
		Gross:        decimal.RequireFromString("28500"),
		TotalDeduct:  decimal.RequireFromString("1000"),
		Net:          decimal.RequireFromString("27500"),
		PaidAt:       "2024-02-01",
		Payment:      "bank_transfer",
	})

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1,234,567.50", FormatAmount(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}
