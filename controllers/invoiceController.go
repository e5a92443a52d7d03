package controllers

import (
	"bytes"
	"fmt"
	"strconv"

	"pos-backend/middlewares"
	"pos-backend/printing"
	"pos-backend/services"
	"pos-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type invoiceLineRequest struct {
	// ItemID carries over an item of the invoice being edited.
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id" validate:"required_without=ItemID"`
	Quantity  int             `json:"quantity" validate:"gte=0,lte=1000000"`
	Discount  decimal.Decimal `json:"discount"`
}

type invoiceRequest struct {
	InvoiceNumber string               `json:"invoice_number" validate:"max=32"`
	CustomerName  string               `json:"customer_name" validate:"max=255"`
	Items         []invoiceLineRequest `json:"items" validate:"dive"`
	CashAmount    *decimal.Decimal     `json:"cash_amount"`
}

func (r *invoiceRequest) input() services.InvoiceInput {
	in := services.InvoiceInput{
		InvoiceNumber: r.InvoiceNumber,
		CustomerName:  r.CustomerName,
		Lines:         make([]services.LineInput, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		in.Lines = append(in.Lines, services.LineInput{
			ItemID:    item.ItemID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Discount:  utils.Round2(item.Discount),
		})
	}
	if r.CashAmount != nil {
		cash := utils.Round2(*r.CashAmount)
		in.Cash = &cash
	}
	return in
}

func (ctl *Controller) GetInvoices(c *fiber.Ctx) error {
	return c.JSON(ctl.mirror.Invoices())
}

func (ctl *Controller) GetInvoice(c *fiber.Ctx) error {
	inv, err := ctl.invoices.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

func (ctl *Controller) NextInvoiceNumber(c *fiber.Ctx) error {
	number, err := ctl.invoices.NextInvoiceNumber(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"invoice_number": number})
}

// PreviewInvoice computes a draft without saving it. ?invoice_id= previews
// an edit of that invoice.
func (ctl *Controller) PreviewInvoice(c *fiber.Ctx) error {
	var req invoiceRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	preview, err := ctl.invoices.Preview(c.UserContext(), c.Query("invoice_id"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(preview)
}

func (ctl *Controller) CreateInvoice(c *fiber.Ctx) error {
	var req invoiceRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	inv, err := ctl.invoices.Create(c.UserContext(), req.input())
	if err != nil {
		return err
	}
	ctl.mirror.InvoiceCreated(*inv)
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (ctl *Controller) UpdateInvoice(c *fiber.Ctx) error {
	var req invoiceRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	inv, err := ctl.invoices.Update(c.UserContext(), c.Params("id"), req.input())
	if err != nil {
		return err
	}
	if err := ctl.mirror.InvoiceUpdated(c.UserContext(), *inv); err != nil {
		log.Warn().Err(err).Str("invoice", inv.Id).Msg("mirror refresh after update failed")
	}
	return c.JSON(inv)
}

func (ctl *Controller) DeleteInvoice(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := ctl.invoices.Delete(c.UserContext(), id); err != nil {
		return err
	}
	if err := ctl.mirror.InvoiceDeleted(c.UserContext(), id); err != nil {
		log.Warn().Err(err).Str("invoice", id).Msg("mirror refresh after delete failed")
	}
	return c.JSON(fiber.Map{"message": "success"})
}

// PrintInvoice renders the receipt PDF. X-Print-Delay-Ms tells the client how
// long to wait before opening the print dialog.
func (ctl *Controller) PrintInvoice(c *fiber.Ctx) error {
	inv, err := ctl.invoices.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := printing.WriteReceipt(&buf, ctl.receipt, inv); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="invoice-%s.pdf"`, inv.InvoiceNumber))
	c.Set("X-Print-Delay-Ms", strconv.FormatInt(ctl.printDelay.Milliseconds(), 10))
	return c.Send(buf.Bytes())
}
