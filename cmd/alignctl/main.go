// Command alignctl runs one-shot maintenance tasks against the configured
// record and progress stores.
//
// Usage:
//
//	alignctl [-config file] stats
//	alignctl [-config file] init-progress
//	alignctl [-config file] need -lang ru -id 42
//	alignctl [-config file] export-progress
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"aligncore/internal/app"
	"aligncore/internal/config"
	"aligncore/internal/core"
	"aligncore/pkg/domain"
)

var exitFunc = os.Exit

var errUsage = errors.New("usage: alignctl [-config file] stats|init-progress|need|export-progress")

func main() {
	exitFunc(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("alignctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, errUsage)
		return 2
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "alignctl:", err)
		return 1
	}
	// Request metrics are meaningless for a single command.
	cfg.Metrics = config.MetricsConfig{}
	logger := cfg.Log.NewLogger(stderr)

	cmd, cmdArgs := rest[0], rest[1:]
	var fn func(context.Context, *app.App, []string, io.Writer) error
	switch cmd {
	case "stats":
		fn = runStats
	case "init-progress":
		fn = runInitProgress
	case "need":
		fn = runNeed
	case "export-progress":
		fn = runExport
	default:
		fmt.Fprintf(stderr, "alignctl: unknown command %q\n%v\n", cmd, errUsage)
		return 2
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, "alignctl:", err)
		return 1
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("close stores", "error", cerr)
		}
	}()
	if err := fn(ctx, a, cmdArgs, stdout); err != nil {
		logger.Debug("command failed", "command", cmd, "code", string(core.Classify(err)))
		fmt.Fprintln(stderr, "alignctl:", err)
		if core.IsInvalidInput(err) {
			return 2
		}
		return 1
	}
	return 0
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	doneStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("10"))
)

func runStats(ctx context.Context, a *app.App, _ []string, w io.Writer) error {
	report, err := a.Service.EvaluateProgress(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(report.Relations)+1)
	for _, rp := range append([]core.RelationProgress{report.Total}, report.Relations...) {
		rows = append(rows, []string{
			rp.Relation,
			strconv.Itoa(rp.RU),
			strconv.Itoa(rp.KO),
			strconv.Itoa(rp.Required),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("relation", "ru", "ko", "required").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col > 0 && row >= 0 && row < len(rows) {
				done, _ := strconv.Atoi(rows[row][col])
				required, _ := strconv.Atoi(rows[row][3])
				if col < 3 && done >= required {
					return doneStyle
				}
			}
			return cellStyle
		})
	status := "in progress"
	if report.Complete {
		status = "complete"
	}
	_, err = fmt.Fprintf(w, "%s\nstatus: %s\n", t.Render(), status)
	return err
}

func runInitProgress(ctx context.Context, a *app.App, _ []string, w io.Writer) error {
	p, err := domain.LoadProgress(ctx, a.Progress)
	if err != nil {
		return err
	}
	if err := domain.SaveProgress(ctx, a.Progress, p); err != nil {
		return err
	}
	n := len(p.Discarded)
	for _, b := range domain.Buckets {
		n += len(p.Processed[b])
	}
	_, err = fmt.Fprintf(w, "progress initialised (%d ids kept)\n", n)
	return err
}

func runNeed(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("need", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	lang := fs.String("lang", "", "target language (ru or ko)")
	id := fs.String("id", "", "record id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	l, err := domain.ParseLanguage(*lang)
	if err != nil {
		return err
	}
	needed, err := a.Service.Need(ctx, *id, l)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, needed)
	return err
}

type exportDocument struct {
	Processed domain.Processed `json:"processed"`
	Discarded domain.IDSet     `json:"discarded"`
}

func runExport(ctx context.Context, a *app.App, _ []string, w io.Writer) error {
	p, err := domain.LoadProgress(ctx, a.Progress)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportDocument{Processed: p.Processed, Discarded: p.Discarded})
}
