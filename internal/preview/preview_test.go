package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeCounter struct {
	pages int
	err   error
}

func (f fakeCounter) PageCount([]byte) (int, error) { return f.pages, f.err }

// fakeRunner writes a small PNG where pdftoppm would and records page args.
type fakeRunner struct {
	t     *testing.T
	pages []string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	if f.err != nil {
		return nil, []byte("Syntax Error"), f.err
	}
	for i, a := range args {
		if a == "-f" {
			f.pages = append(f.pages, args[i+1])
		}
	}
	prefix := args[len(args)-1]
	require.NoError(f.t, os.WriteFile(prefix+".png", pngBytes(f.t, 4, 4), 0o600))
	return nil, nil, nil
}

func TestBuild_CINScalesToPairHeight(t *testing.T) {
	svc := NewService(Config{}, &fakeRunner{t: t}, fakeCounter{}, nil)
	p := svc.Build(context.Background(), constants.ModeCIN, map[string]entity.File{
		constants.SlotFront: {Slot: constants.SlotFront, Name: "front.png", ContentType: "image/png", Data: pngBytes(t, 100, 1000)},
		constants.SlotBack:  {Slot: constants.SlotBack, Name: "back.txt", ContentType: "text/plain", Data: []byte("nope")},
	})

	require.Len(t, p.Images, 1)
	img := p.Images[0]
	assert.Equal(t, constants.SlotFront, img.Slot)
	assert.Equal(t, 250, img.Height)
	assert.Equal(t, 25, img.Width)
	assert.Contains(t, img.DataURL, "data:image/png;base64,")
	assert.Nil(t, p.PDF)
}

func TestBuild_PassportKeepsSmallImages(t *testing.T) {
	svc := NewService(Config{}, &fakeRunner{t: t}, fakeCounter{}, nil)
	p := svc.Build(context.Background(), constants.ModePassport, map[string]entity.File{
		constants.SlotFile: {Slot: constants.SlotFile, Name: "p.png", ContentType: "image/png", Data: pngBytes(t, 30, 300)},
	})
	require.Len(t, p.Images, 1)
	assert.Equal(t, 300, p.Images[0].Height)
}

func TestBuild_ContractRendersFirstPages(t *testing.T) {
	runner := &fakeRunner{t: t}
	svc := NewService(Config{}, runner, fakeCounter{pages: 8}, nil)
	p := svc.Build(context.Background(), constants.ModeContract, map[string]entity.File{
		constants.SlotFile: {Slot: constants.SlotFile, Name: "c.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
	})

	require.NotNil(t, p.PDF)
	assert.Equal(t, "Showing 5 of 8 pages", p.PDF.Caption)
	assert.Len(t, p.PDF.Pages, 5)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, runner.pages)
	assert.Empty(t, p.PDF.Error)
}

func TestBuild_ContractFailures(t *testing.T) {
	file := map[string]entity.File{
		constants.SlotFile: {Slot: constants.SlotFile, Name: "c.pdf", ContentType: "application/pdf", Data: []byte("garbage")},
	}

	t.Run("parse error", func(t *testing.T) {
		svc := NewService(Config{}, &fakeRunner{t: t}, fakeCounter{err: errors.New("not a pdf")}, nil)
		p := svc.Build(context.Background(), constants.ModeContract, file)
		require.NotNil(t, p.PDF)
		assert.Equal(t, PDFFailedMessage, p.PDF.Error)
		assert.Empty(t, p.PDF.Pages)
	})

	t.Run("rasterizer error", func(t *testing.T) {
		svc := NewService(Config{}, &fakeRunner{t: t, err: errors.New("exit 1")}, fakeCounter{pages: 2}, nil)
		p := svc.Build(context.Background(), constants.ModeContract, file)
		require.NotNil(t, p.PDF)
		assert.Equal(t, PDFFailedMessage, p.PDF.Error)
		assert.Empty(t, p.PDF.Pages)
	})

	t.Run("image in contract mode is ignored", func(t *testing.T) {
		svc := NewService(Config{}, &fakeRunner{t: t}, fakeCounter{pages: 1}, nil)
		p := svc.Build(context.Background(), constants.ModeContract, map[string]entity.File{
			constants.SlotFile: {Slot: constants.SlotFile, Name: "x.png", ContentType: "image/png", Data: pngBytes(t, 2, 2)},
		})
		assert.True(t, p.IsEmpty())
	})
}

func TestImagePreview_UndecodablePassesThrough(t *testing.T) {
	img := imagePreview(constants.SlotFile, "x.heic", "image/heic", []byte("raw"), 400)
	assert.Equal(t, "data:image/heic;base64,cmF3", img.DataURL)
	assert.Zero(t, img.Height)
}

func TestRasterizer_ErrorCarriesStderr(t *testing.T) {
	r := Rasterizer{Runner: &fakeRunner{t: t, err: errors.New("exit status 1")}, Pdftoppm: "pdftoppm", DPI: 86.4}
	_, err := r.RenderPage(context.Background(), "in.pdf", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftoppm page 3")
	assert.Contains(t, err.Error(), "Syntax Error")
}

func TestExecRunner_LogsFailedPage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, _, err := ExecRunner{Logger: logger}.Run(context.Background(), "/nonexistent/pdftoppm",
		"-r", "86.4", "-f", "2", "-l", "2", "-singlefile", "-png", "in.pdf", "out")
	require.Error(t, err)

	line := buf.String()
	assert.Contains(t, line, "preview.page.failed")
	assert.Contains(t, line, "page=2")
	assert.Contains(t, line, "dpi=86.4")
}

func TestArgAfter(t *testing.T) {
	args := []string{"-r", "72", "-f", "4", "-l", "4"}
	assert.Equal(t, "4", argAfter(args, "-f"))
	assert.Equal(t, "72", argAfter(args, "-r"))
	assert.Equal(t, "", argAfter(args, "-x"))
	assert.Equal(t, "", argAfter([]string{"-f"}, "-f"))
}

func TestStderrTail(t *testing.T) {
	assert.Equal(t, "Syntax Error", stderrTail([]byte("Syntax Error\n"), 64))

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("Syntax Warning: object skipped\n")
	}
	b.WriteString("Syntax Error: Couldn't read xref table\n")
	tail := stderrTail([]byte(b.String()), 80)
	assert.True(t, strings.HasPrefix(tail, "..."))
	assert.True(t, strings.HasSuffix(tail, "Couldn't read xref table"))
	assert.LessOrEqual(t, len(tail), 83)
}
