package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/dashboard"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

func newSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(os.Stderr),
	)
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(os.Stderr),
	)
}

func printExtraction(v dashboard.View) {
	color.Cyan("\nExtracted Data (%s)", v.Mode.Label())
	ev := v.Extraction
	if ev == nil || ev.Empty {
		fmt.Println("No data extracted.")
		return
	}
	if doc := ev.Document; doc != nil {
		if doc.Text != "" {
			fmt.Println(doc.Text)
		}
		for _, p := range doc.Pages {
			color.Blue("%s", p.Title)
			for _, t := range p.Texts {
				fmt.Println(t)
			}
		}
		return
	}
	label := color.New(color.Bold).SprintFunc()
	for _, row := range ev.Rows {
		if row.Nested || row.Pre {
			fmt.Printf("%s:\n%s\n", label(row.Label), row.Value)
			continue
		}
		fmt.Printf("%s: %s\n", label(row.Label), row.Value)
	}
}

func printVerification(v dashboard.View) {
	color.Cyan("\nVerification")
	vv := v.Verification
	if vv == nil {
		return
	}
	switch {
	case vv.Banner != "":
		color.Red("%s", vv.Banner)
	case vv.Notice != "":
		fmt.Println(vv.Notice)
	case vv.Card != nil:
		status := color.GreenString
		if !vv.Card.Authentic {
			status = color.RedString
		}
		fmt.Println(status("%s %s", vv.Card.Icon, vv.Card.Status))
		fmt.Printf("%s  %s\n", vv.Card.Score, vv.Card.Confidence)
		for _, c := range vv.Checks {
			mark := color.GreenString
			if !c.Passed {
				mark = color.RedString
			}
			fmt.Printf("  %s %s  %s\n    %s\n", c.Icon, c.Label, mark(c.Badge), c.Details)
		}
		if vv.ReportError != "" {
			color.Red("⚠️ Error: %s", vv.ReportError)
		}
	default:
		color.Yellow("⚠️ Verification Error:")
		for _, e := range vv.Errors {
			color.Yellow("  %s", e)
		}
	}
}

func printNotices(notices []dashboard.Notice) {
	for _, n := range notices {
		switch n.Level {
		case "success":
			color.Green("✓ %s", n.Text)
		case "danger":
			color.Red("✗ %s", n.Text)
		default:
			color.Yellow("%s", n.Text)
		}
	}
}

func printHistory(entries []entity.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Println("No uploads yet.")
		return
	}
	head := color.New(color.Bold).SprintfFunc()
	fmt.Println(head("%-24s %-10s %-30s %s", "ID", "TYPE", "FILE", "UPLOADED"))
	for _, e := range entries {
		fmt.Printf("%-24s %-10s %-30s %s\n", e.ID, e.DocType, e.Filename, e.Timestamp)
	}
}

// exportAll writes every format into dir concurrently and returns the paths
// written before the first failure.
func exportAll(ctx context.Context, ctl *dashboard.Controller, formats []constants.ExportFormat, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	bar := newProgressBar(len(formats), "Exporting")

	var (
		mu      sync.Mutex
		written []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, format := range formats {
		g.Go(func() error {
			f, err := ctl.Export(gctx, format)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, f.Name)
			if err := os.WriteFile(path, f.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			mu.Lock()
			written = append(written, path)
			mu.Unlock()
			_ = bar.Add(1)
			return nil
		})
	}
	err := g.Wait()
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	return written, err
}
