package invoicedoc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-pos/internal/clients"
	"github.com/odyssey-erp/odyssey-pos/internal/fxrates"
	"github.com/odyssey-erp/odyssey-pos/internal/invoices"
)

type InvoiceSource interface {
	Get(ctx context.Context, id int64) (*invoices.Invoice, error)
}

type ClientSource interface {
	Get(ctx context.Context, id int64) (*clients.Client, error)
}

type RateSource interface {
	Current(ctx context.Context) (fxrates.Rate, error)
}

// Builder gathers everything an invoice document needs.
type Builder struct {
	invoices InvoiceSource
	clients  ClientSource
	rates    RateSource
	company  Company
	format   *Formatter
}

func NewBuilder(inv InvoiceSource, cli ClientSource, rates RateSource, company Company) *Builder {
	return &Builder{invoices: inv, clients: cli, rates: rates, company: company, format: NewFormatter()}
}

// Build loads the invoice with its client while the exchange rate is
// resolved concurrently, then assembles the document.
func (b *Builder) Build(ctx context.Context, invoiceID int64) (*Document, error) {
	var (
		inv    *invoices.Invoice
		client *clients.Client
		rate   fxrates.Rate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if inv, err = b.invoices.Get(gctx, invoiceID); err != nil {
			return err
		}
		if client, err = b.clients.Get(gctx, inv.ClientID); err != nil {
			return fmt.Errorf("load client %d: %w", inv.ClientID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rate, err = b.rates.Current(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return b.assemble(inv, client, rate)
}

func (b *Builder) assemble(inv *invoices.Invoice, client *clients.Client, rate fxrates.Rate) (*Document, error) {
	usd, err := fxrates.USDEquivalent(inv.Total, rate.Value)
	if err != nil {
		return nil, err
	}
	qr, err := QRCode(QRPayload(inv.InvoiceNumber, inv.ControlNumber, inv.Date.In(caracas), client.Name))
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Company:       b.company,
		InvoiceNumber: inv.InvoiceNumber,
		ControlNumber: inv.ControlNumber,
		Date:          inv.Date,
		IssuedOn:      inv.Date.In(caracas).Format("02/01/2006"),
		Voided:        inv.Status == invoices.StatusVoid,
		Client: ClientBlock{
			Name:  client.Name,
			RIF:   client.RIF(),
			Phone: client.FullPhone(),
		},
		Subtotal:       b.format.Amount(inv.Subtotal),
		Tax:            b.format.Amount(inv.Tax),
		TaxRateLabel:   b.format.Percent(inv.TaxRate),
		Total:          b.format.Amount(inv.Total),
		USDTotal:       b.format.Amount(usd),
		RateDisclosure: b.format.Disclosure(rate),
		QRCode:         qr,
	}
	if client.Address != nil {
		doc.Client.Address = *client.Address
	}
	if client.Email != nil {
		doc.Client.Email = *client.Email
	}
	for _, l := range inv.Lines {
		doc.Lines = append(doc.Lines, LineRow{
			Code:        l.ProductCode,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   b.format.Amount(l.Price),
			Total:       b.format.Amount(l.Total()),
		})
	}
	return doc, nil
}
