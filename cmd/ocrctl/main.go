package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/backend"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/dashboard"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
	"github.com/joseph-ayodele/ocr-dashboard/internal/export"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type setFlags map[string]string

func (s setFlags) String() string { return fmt.Sprint(map[string]string(s)) }

func (s setFlags) Set(v string) error {
	path, value, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(path) == "" {
		return fmt.Errorf("want path=value, got %q", v)
	}
	s[strings.TrimSpace(path)] = value
	return nil
}

func main() {
	sets := setFlags{}
	var (
		configPath = flag.String("config", "", "YAML config file (defaults to $OCRDASH_CONFIG)")
		modeStr    = flag.String("mode", "cin", "document type: cin, passport or contract")
		front      = flag.String("front", "", "ID card front image (cin)")
		back       = flag.String("back", "", "ID card back image (cin)")
		file       = flag.String("file", "", "passport image or contract PDF")
		record     = flag.String("record", "", "reopen a stored record instead of uploading")
		history    = flag.Bool("history", false, "list past uploads and exit")
		token      = flag.String("token", "", "access token (defaults to $OCR_ACCESS_TOKEN)")
		email      = flag.String("email", "", "log in with this email")
		password   = flag.String("password", "", "password for --email")
		local      = flag.Bool("local", false, "build PDF, Excel and CSV exports locally")
		exports    = flag.String("export", "", "comma-separated export formats: json,pdf,excel,csv")
		outDir     = flag.String("out", ".", "directory for exported files")
		verbose    = flag.Bool("v", false, "log backend calls to stderr")
	)
	flag.Var(sets, "set", "edit a field before export, as path=value (repeatable)")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	formats, err := parseFormats(*exports)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []backend.Option{backend.WithLogger(logger), backend.WithTimeout(cfg.Backend.Timeout)}
	if t := firstNonEmpty(*token, cfg.Backend.Token); t != "" {
		opts = append(opts, backend.WithToken(t))
	}
	client := backend.NewClient(cfg.Backend.URL, opts...)

	if *email != "" {
		if err := client.Login(ctx, *email, *password); err != nil {
			printError("Error: %s\n", common.UserMessage(err))
			os.Exit(1)
		}
		color.Green("✓ Logged in as %s", *email)
	}

	ctl := dashboard.New(uuid.New().String(), dashboard.Deps{
		Backend:  client,
		Exporter: export.NewService(client, *local || cfg.Export.Local, logger),
		Logger:   logger,
	})

	if *history {
		entries, err := ctl.History(ctx)
		if err != nil {
			printError("Error: %s\n", common.UserMessage(err))
			os.Exit(1)
		}
		printHistory(entries)
		return
	}

	if *record != "" {
		spinner := newSpinner("Loading record " + *record)
		_, err = ctl.LoadRecord(ctx, *record)
		_ = spinner.Finish()
	} else {
		_, err = upload(ctx, ctl, *modeStr, map[string]string{
			constants.SlotFront: *front,
			constants.SlotBack:  *back,
			constants.SlotFile:  *file,
		})
	}
	if err != nil {
		printError("\n%s\n", color.RedString(common.UserMessage(err)))
		os.Exit(1)
	}

	view := ctl.View()
	printExtraction(view)
	printVerification(view)

	if len(sets) > 0 {
		saved, err := ctl.SaveEdits(ctx, sets)
		if err != nil {
			printError("%s\n", color.RedString(common.UserMessage(err)))
			os.Exit(1)
		}
		printNotices(saved.Notices)
	}

	if len(formats) > 0 {
		written, err := exportAll(ctx, ctl, formats, *outDir)
		for _, path := range written {
			color.Green("✓ Wrote %s", path)
		}
		if err != nil {
			printError("%s\n", color.RedString(common.UserMessage(err)))
			os.Exit(1)
		}
	}
}

// upload stages the mode's files and submits them behind a spinner.
func upload(ctx context.Context, ctl *dashboard.Controller, modeStr string, paths map[string]string) (entity.UploadResult, error) {
	if err := ctl.SelectMode(ctx, modeStr); err != nil {
		return entity.UploadResult{}, err
	}
	mode := ctl.View().Mode
	for _, slot := range mode.Slots() {
		if paths[slot] == "" {
			continue
		}
		f, err := readFile(paths[slot])
		if err != nil {
			return entity.UploadResult{}, err
		}
		if err := ctl.SelectFile(slot, f); err != nil {
			return entity.UploadResult{}, err
		}
	}

	spinner := newSpinner("Processing " + mode.Label())
	defer func() { _ = spinner.Finish() }()
	return ctl.Submit(ctx)
}

func readFile(path string) (entity.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.File{}, common.NewAppError("READ_FAILED", fmt.Sprintf("cannot read %s", path), err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if i := strings.Index(ct, ";"); i > 0 {
		ct = ct[:i]
	}
	return entity.File{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}

func parseFormats(s string) ([]constants.ExportFormat, error) {
	var out []constants.ExportFormat
	seen := map[constants.ExportFormat]bool{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := constants.ParseExportFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
