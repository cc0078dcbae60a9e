// Package preview renders thumbnails of the files a user picked before they
// are uploaded: scaled images, or the first pages of a PDF.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

// PDFFailedMessage is shown in place of pages when a PDF cannot be drawn.
const PDFFailedMessage = "Failed to load PDF preview."

// Preview is the preview area for the current selection.
type Preview struct {
	Mode   constants.Mode
	Images []Image
	PDF    *PDFPreview
}

// IsEmpty reports whether nothing is shown.
func (p Preview) IsEmpty() bool { return len(p.Images) == 0 && p.PDF == nil }

// PDFPreview is the caption and rendered pages of a PDF.
type PDFPreview struct {
	Name    string
	Caption string
	Pages   []Image
	Error   string
}

// Service builds previews.
type Service struct {
	counter    PageCounter
	rasterizer Rasterizer
	maxPages   int
	logger     *slog.Logger
}

type Config struct {
	Pdftoppm string
	MaxPages int
}

func NewService(cfg Config, runner Runner, counter PageCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if counter == nil {
		counter = PdfcpuCounter{}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = constants.MaxPreviewPages
	}
	return &Service{
		counter:    counter,
		rasterizer: Rasterizer{Runner: runner, Pdftoppm: cfg.Pdftoppm, DPI: 72 * constants.PreviewScale},
		maxPages:   cfg.MaxPages,
		logger:     logger,
	}
}

// Build previews the files for mode. Files are keyed by slot; a file of the
// wrong kind for its slot is skipped without error.
func (s *Service) Build(ctx context.Context, mode constants.Mode, files map[string]entity.File) Preview {
	out := Preview{Mode: mode}
	for _, slot := range mode.Slots() {
		f, ok := files[slot]
		if !ok || len(f.Data) == 0 {
			continue
		}
		if mode.AcceptsPDF() {
			if f.ContentType == "application/pdf" {
				out.PDF = s.pdfPreview(ctx, f)
			}
			continue
		}
		if strings.HasPrefix(f.ContentType, "image/") {
			out.Images = append(out.Images, imagePreview(slot, f.Name, f.ContentType, f.Data, mode.PreviewMaxHeight()))
		}
	}
	return out
}

func (s *Service) pdfPreview(ctx context.Context, f entity.File) *PDFPreview {
	out := &PDFPreview{Name: f.Name}
	fail := func(err error) *PDFPreview {
		s.logger.Warn("preview.pdf.failed", "file", f.Name, "error", err)
		return &PDFPreview{Name: f.Name, Error: PDFFailedMessage}
	}

	total, err := s.counter.PageCount(f.Data)
	if err != nil {
		return fail(err)
	}
	show := min(total, s.maxPages)
	out.Caption = fmt.Sprintf("Showing %d of %d pages", show, total)

	tmp, err := os.CreateTemp("", "ocrdash-*.pdf")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}

	for page := 1; page <= show; page++ {
		png, err := s.rasterizer.RenderPage(ctx, tmp.Name(), page)
		if err != nil {
			return fail(err)
		}
		out.Pages = append(out.Pages, Image{
			Slot:    constants.SlotFile,
			Name:    fmt.Sprintf("%s page %d", f.Name, page),
			DataURL: dataURL("image/png", png),
		})
	}
	s.logger.Info("preview.pdf.ok", "file", f.Name, "pages", total, "rendered", len(out.Pages))
	return out
}
