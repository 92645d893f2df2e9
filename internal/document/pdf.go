package document

import (
	"context"
	"fmt"
	"io"
	"time"

	apperrors "careerkit/internal/errors"
	"careerkit/internal/render"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFContentType is the media type of a PDF document.
const PDFContentType = "application/pdf"

// Printer turns an HTML page into PDF bytes.
type Printer interface {
	PrintPDF(ctx context.Context, html []byte, layout render.PageLayout) ([]byte, error)
}

// PDFWriter writes documents as PDF by laying them out as HTML and
// handing the page to a Printer.
type PDFWriter struct {
	printer Printer
}

// NewPDFWriter creates a PDF writer. A nil printer selects a headless
// Chrome printer with default settings.
func NewPDFWriter(printer Printer) *PDFWriter {
	if printer == nil {
		printer = NewChromePrinter("", 0)
	}
	return &PDFWriter{printer: printer}
}

func (w *PDFWriter) Extension() string   { return ".pdf" }
func (w *PDFWriter) ContentType() string { return PDFContentType }

// Write renders doc to PDF and copies the result to out.
func (w *PDFWriter) Write(ctx context.Context, out io.Writer, doc render.Document) error {
	html, err := RenderHTML(doc)
	if err != nil {
		return apperrors.NewRenderError("failed to lay out pdf page", err)
	}

	data, err := w.printer.PrintPDF(ctx, html, doc.Page)
	if err != nil {
		return apperrors.NewRenderError("failed to print pdf", err)
	}

	if _, err := out.Write(data); err != nil {
		return apperrors.NewRenderError("failed to write pdf", err)
	}
	return nil
}

// ChromePrinter prints pages with a headless Chrome or Chromium instance
// started for each call.
type ChromePrinter struct {
	execPath string
	timeout  time.Duration
}

const defaultPrintTimeout = 60 * time.Second

// NewChromePrinter creates a printer. An empty execPath lets chromedp find
// the browser; a zero timeout selects 60 seconds.
func NewChromePrinter(execPath string, timeout time.Duration) *ChromePrinter {
	if timeout <= 0 {
		timeout = defaultPrintTimeout
	}
	return &ChromePrinter{execPath: execPath, timeout: timeout}
}

// PrintPDF loads html into a blank tab and prints it at the page size of
// layout. Margins come from the page's @page rule.
func (p *ChromePrinter) PrintPDF(ctx context.Context, html []byte, layout render.PageLayout) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p.execPath != "" {
		opts = append(opts, chromedp.ExecPath(p.execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, p.timeout)
	defer cancel()

	width, height := layout.Width/72, layout.Height/72
	if width <= 0 || height <= 0 {
		width, height = 8.5, 11
	}

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(width).
				WithPaperHeight(height).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome print failed: %w", err)
	}

	return pdf, nil
}
