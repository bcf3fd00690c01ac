package invoicedoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/odyssey-erp/odyssey-pos/report"
	"github.com/odyssey-erp/odyssey-pos/web"
)

const (
	templatePath  = "templates/pdf/factura.html"
	watermarkPath = "static/img/marca_agua.svg"
)

// PDFConverter turns HTML into PDF bytes.
type PDFConverter interface {
	RenderHTML(ctx context.Context, html string, opts report.PageOptions) ([]byte, error)
}

// Renderer executes the invoice template and converts it to PDF.
type Renderer struct {
	tpl       *template.Template
	watermark template.URL
	pdf       PDFConverter
}

func NewRenderer(pdf PDFConverter) (*Renderer, error) {
	tpl, err := template.ParseFS(web.Templates, templatePath)
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	svg, err := web.Static.ReadFile(watermarkPath)
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}
	return &Renderer{
		tpl:       tpl,
		watermark: template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg)),
		pdf:       pdf,
	}, nil
}

// HTML renders doc with the watermark applied.
func (r *Renderer) HTML(doc *Document) (string, error) {
	data := *doc
	data.Watermark = r.watermark
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, data); err != nil {
		return "", fmt.Errorf("execute invoice template: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}
	return r.pdf.RenderHTML(ctx, html, report.Letter)
}

// Service builds and renders invoice PDFs.
type Service struct {
	builder  *Builder
	renderer *Renderer
	logger   *slog.Logger
}

func NewService(builder *Builder, renderer *Renderer, logger *slog.Logger) *Service {
	return &Service{builder: builder, renderer: renderer, logger: logger}
}

// RenderInvoice produces the PDF for one invoice.
func (s *Service) RenderInvoice(ctx context.Context, id int64) ([]byte, error) {
	doc, err := s.builder.Build(ctx, id)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", doc.InvoiceNumber, err)
	}
	s.logger.Debug("invoice pdf rendered", slog.String("numero_factura", doc.InvoiceNumber), slog.Int("bytes", len(pdf)))
	return pdf, nil
}
