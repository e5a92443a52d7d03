// Package printing renders committed invoices as thermal-style PDF receipts.
package printing

import (
	"fmt"
	"io"
	"strconv"

	"pos-backend/models"
	"pos-backend/utils"

	"github.com/go-pdf/fpdf"
)

// Header is the shop block printed at the top of every receipt.
type Header struct {
	Name  string
	Lines []string
}

const (
	paperWidth = 80.0
	margin     = 4.0
	rowHeight  = 5.0
)

// WriteReceipt renders inv as a single-page receipt and writes the PDF to w.
func WriteReceipt(w io.Writer, header Header, inv *models.Invoice) error {
	// Page grows with the number of lines so the receipt never breaks.
	height := 110 + float64(len(header.Lines))*4 + float64(len(inv.Items))*rowHeight
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: paperWidth, Ht: height},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AddPage()

	// Core fonts are cp1252; translate so accented text prints.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	contentW := paperWidth - 2*margin
	separator := func() {
		pdf.Ln(1)
		pdf.Line(margin, pdf.GetY(), paperWidth-margin, pdf.GetY())
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(header.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	for _, line := range header.Lines {
		pdf.CellFormat(contentW, 4, tr(line), "", 1, "C", false, 0, "")
	}
	separator()

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW/2, 5, "Invoice "+inv.InvoiceNumber, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW/2, 5, inv.Date.Local().Format("02/01/2006 03:04:05 PM"), "", 1, "R", false, 0, "")
	if inv.CustomerName != "" {
		pdf.CellFormat(contentW, 5, "Customer: "+tr(inv.CustomerName), "", 1, "L", false, 0, "")
	}
	separator()

	cols := []float64{contentW * 0.36, contentW * 0.18, contentW * 0.14, contentW * 0.10, contentW * 0.22}
	pdf.SetFont("Helvetica", "B", 7)
	for i, title := range []string{"ITEM", "PRICE", "DIS", "QTY", "AMOUNT"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(cols[i], rowHeight, title, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 7)
	for i, item := range inv.Items {
		name := item.ProductID
		if item.Product != nil {
			name = item.Product.Description
		}
		pdf.CellFormat(cols[0], rowHeight, fmt.Sprintf("%d %s", i+1, tr(shorten(name, 18))), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], rowHeight, utils.Money(item.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], rowHeight, utils.Money(item.Discount), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], rowHeight, strconv.Itoa(item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[4], rowHeight, utils.Money(item.Amount), "", 1, "R", false, 0, "")
	}
	separator()

	labelW := contentW * 0.6
	total := func(label, value string) {
		pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW-labelW, 6, value, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	total("TOTAL :", utils.Money(inv.TotalAmount))
	separator()
	pdf.SetFont("Helvetica", "", 9)
	total("CASH :", utils.Money(inv.CashAmount))
	total("BALANCE :", utils.Money(inv.BalanceAmount))
	separator()

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, fmt.Sprintf("Number of Items: %d", len(inv.Items)), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 5, "THANK YOU COME AGAIN", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write receipt: %w", err)
	}
	return nil
}

// shorten cuts s to at most max runes, marking a cut with a trailing dot.
func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "."
}
