package preview

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCounter reports how many pages a PDF has.
type PageCounter interface {
	PageCount(data []byte) (int, error)
}

// PdfcpuCounter counts pages with pdfcpu in relaxed validation mode.
type PdfcpuCounter struct{}

func (PdfcpuCounter) PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// Rasterizer renders single PDF pages to PNG through pdftoppm.
type Rasterizer struct {
	Runner   Runner
	Pdftoppm string
	// DPI is 72 times the page scale.
	DPI float64
}

// RenderPage rasterizes page (1-based) of the PDF stored at path.
func (r Rasterizer) RenderPage(ctx context.Context, path string, page int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "ocrdash-pp-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -r 86.4 -f n -l n -singlefile -png <in.pdf> <tmp/page>
	_, errb, err := r.Runner.Run(ctx, r.Pdftoppm,
		"-r", strconv.FormatFloat(r.DPI, 'f', -1, 64),
		"-f", n, "-l", n, "-singlefile", "-png",
		path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, stderrTail(errb, 512))
	}
	png, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d produced no image: %w", page, err)
	}
	return png, nil
}
