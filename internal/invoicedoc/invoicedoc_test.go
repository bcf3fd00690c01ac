package invoicedoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/clients"
	"github.com/odyssey-erp/odyssey-pos/internal/fxrates"
	"github.com/odyssey-erp/odyssey-pos/internal/invoices"
	"github.com/odyssey-erp/odyssey-pos/report"
)

type stubInvoices map[int64]*invoices.Invoice

func (s stubInvoices) Get(ctx context.Context, id int64) (*invoices.Invoice, error) {
	inv, ok := s[id]
	if !ok {
		return nil, invoices.ErrNotFound
	}
	return inv, nil
}

type stubClients map[int64]*clients.Client

func (s stubClients) Get(ctx context.Context, id int64) (*clients.Client, error) {
	c, ok := s[id]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return c, nil
}

type stubRates struct{ rate fxrates.Rate }

func (s stubRates) Current(ctx context.Context) (fxrates.Rate, error) { return s.rate, nil }

type stubConverter struct {
	html string
	opts report.PageOptions
}

func (s *stubConverter) RenderHTML(ctx context.Context, html string, opts report.PageOptions) ([]byte, error) {
	s.html, s.opts = html, opts
	return []byte("%PDF-test"), nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func fixture() (stubInvoices, stubClients, stubRates) {
	issued := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	invs := stubInvoices{
		1: {
			ID: 1, InvoiceNumber: "0000042", ControlNumber: "00-000042", ClientID: 9,
			Date: issued, Subtotal: d("25.00"), Tax: d("4.00"), Total: d("29.00"), TaxRate: d("0.16"),
			Status: invoices.StatusPending,
			Lines: []invoices.Line{
				{ProductID: 1, ProductCode: "HAR-01", Description: "Harina", Quantity: 2, Price: d("10.00")},
				{ProductID: 2, ProductCode: "CAF-01", Description: "Cafe", Quantity: 1, Price: d("5.00")},
			},
		},
	}
	cls := stubClients{
		9: {ID: 9, RIFType: "V", RIFNumber: "12345678", Name: "Maria Perez",
			PhoneCarrier: strPtr("0414"), Phone: strPtr("1234567"), Address: strPtr("Av. Bolivar")},
	}
	rates := stubRates{rate: fxrates.Rate{
		Value: d("36.50"), Source: fxrates.SourceBCV,
		UpdatedAt: time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
	}}
	return invs, cls, rates
}

func newBuilder() *Builder {
	invs, cls, rates := fixture()
	return NewBuilder(invs, cls, rates, Company{Name: "Odyssey, C.A.", RIF: "J-12345678-9", Address: "Caracas"})
}

func TestQRPayload(t *testing.T) {
	got := QRPayload("0000001", "00-000001", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), "Ana")
	assert.Equal(t, "Factura: 0000001\nControl: 00-000001\nFecha: 2024-01-15\nCliente: Ana", got)
}

func TestQRCodeIsPNGDataURI(t *testing.T) {
	uri, err := QRCode("Factura: 0000001")
	require.NoError(t, err)

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(string(uri), prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(uri), prefix))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
}

func TestFormatterAmount(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "1.234,50", f.Amount(d("1234.5")))
	assert.Equal(t, "1.234.567,89", f.Amount(d("1234567.89")))
	assert.Equal(t, "0,79", f.Amount(d("0.789")))
	assert.Equal(t, "16%", f.Percent(d("0.16")))
}

func TestBuildAssemblesDocument(t *testing.T) {
	doc, err := newBuilder().Build(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "0000042", doc.InvoiceNumber)
	assert.Equal(t, "00-000042", doc.ControlNumber)
	assert.Equal(t, "01/03/2024", doc.IssuedOn)
	assert.Equal(t, "V-12345678", doc.Client.RIF)
	assert.Equal(t, "0414-1234567", doc.Client.Phone)
	assert.Equal(t, "Av. Bolivar", doc.Client.Address)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "20,00", doc.Lines[0].Total)
	assert.Equal(t, "25,00", doc.Subtotal)
	assert.Equal(t, "4,00", doc.Tax)
	assert.Equal(t, "29,00", doc.Total)
	assert.Equal(t, "0,79", doc.USDTotal)
	assert.Equal(t, "16%", doc.TaxRateLabel)
	assert.Equal(t, "Tasa BCV: Bs. 36,50 por USD (BCV, 2024-03-01)", doc.RateDisclosure)
	assert.NotEmpty(t, doc.QRCode)
	assert.False(t, doc.Voided)
}

func TestBuildMissingInvoice(t *testing.T) {
	_, err := newBuilder().Build(context.Background(), 99)
	assert.ErrorIs(t, err, invoices.ErrNotFound)
}

func TestBuildMissingClient(t *testing.T) {
	invs, _, rates := fixture()
	b := NewBuilder(invs, stubClients{}, rates, Company{})
	_, err := b.Build(context.Background(), 1)
	assert.ErrorIs(t, err, clients.ErrNotFound)
}

func TestRendererHTMLIncludesWatermarkAndVoidStamp(t *testing.T) {
	r, err := NewRenderer(&stubConverter{})
	require.NoError(t, err)

	doc, err := newBuilder().Build(context.Background(), 1)
	require.NoError(t, err)

	html, err := r.HTML(doc)
	require.NoError(t, err)
	assert.Contains(t, html, "0000042")
	assert.Contains(t, html, "00-000042")
	assert.Contains(t, html, "Maria Perez")
	assert.Contains(t, html, "HAR-01")
	assert.Contains(t, html, "data:image/svg+xml;base64,")
	assert.Contains(t, html, "data:image/png;base64,")
	assert.NotContains(t, html, "ANULADA")

	doc.Voided = true
	html, err = r.HTML(doc)
	require.NoError(t, err)
	assert.Contains(t, html, "ANULADA")
}

func TestServiceRenderInvoice(t *testing.T) {
	conv := &stubConverter{}
	r, err := NewRenderer(conv)
	require.NoError(t, err)
	svc := NewService(newBuilder(), r, slog.New(slog.NewTextHandler(io.Discard, nil)))

	pdf, err := svc.RenderInvoice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-test", string(pdf))
	assert.Equal(t, report.Letter, conv.opts)
	assert.Contains(t, conv.html, "Tasa BCV")
}
