package activity

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/briangreenhill/ridgeline/internal/effort"
)

type CLI struct {
	writer          io.Writer
	activityService *Service
	analyzer        *Analyzer
	format          effort.Format
	addr            string
	args            []string
	logger          *slog.Logger
}

func NewCLI(w io.Writer, logger *slog.Logger, activityService *Service, analyzer *Analyzer, format effort.Format, addr string, args []string) *CLI {
	return &CLI{
		writer:          w,
		activityService: activityService,
		analyzer:        analyzer,
		format:          format,
		addr:            addr,
		args:            args,
		logger:          logger,
	}
}

func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.Usage()
		return nil
	}

	ctx := context.Background()
	switch args[0] {
	case "analyze":
		return c.Analyze(ctx)
	case "batch":
		return c.Batch(ctx)
	case "stats":
		return c.Stats(ctx)
	case "efforts":
		return c.Efforts(ctx)
	case "api":
		return c.RunAPI(ctx)
	default:
		c.Usage()
	}
	return nil
}

func (c *CLI) Usage() {
	fmt.Fprintf(c.writer, "Usage: ridgeline [command] [flags]\n--help show this message\n\n"+
		"\tanalyze [--save] [--precision 5|6] FILE\n"+
		"\tbatch [--save] DIR\n"+
		"\tstats [--by type|year|month]\n"+
		"\tefforts --id ID\n"+
		"\tapi\n")
}

func (c *CLI) RunAPI(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	mux := NewAPI(c.logger, c.activityService)

	server := &http.Server{
		Addr:    c.addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		c.logger.Info("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("Error shutting down server", slog.Any("error", err))
		}
	}()

	c.logger.Info("Starting server", slog.String("addr", c.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.logger.Error("Error starting server", slog.Any("error", err))
		cancel()
		return err
	}

	return nil
}

// Analyze analyzes a single GPX, FIT or Strava JSON file.
func (c *CLI) Analyze(ctx context.Context) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(c.writer)
	save := fs.Bool("save", false, "store the analysis")
	digits := fs.Int("precision", 5, "polyline precision digits, 5 or 6")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("analyze takes exactly one file")
	}

	var precision float64
	switch *digits {
	case 5:
		precision = 1e5
	case 6:
		precision = 1e6
	default:
		return fmt.Errorf("unsupported polyline precision %d", *digits)
	}

	path := fs.Arg(0)
	c.logger.Info("Analyzing activity", slog.String("file", path))

	in, err := readActivityFile(path)
	if err != nil {
		return err
	}
	in.Precision = precision

	a, err := c.analyzer.Analyze(ctx, in)
	if err != nil {
		return err
	}

	c.printAnalysis(a)

	if *save {
		if err := c.activityService.Add(ctx, a); err != nil {
			return err
		}
		fmt.Fprintln(c.writer, "Activity saved successfully")
	}

	return nil
}

// Batch analyzes every activity file in a directory concurrently.
func (c *CLI) Batch(ctx context.Context) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(c.writer)
	save := fs.Bool("save", false, "store the analyses")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("batch takes exactly one directory")
	}

	paths, err := activityFiles(fs.Arg(0))
	if err != nil {
		return err
	}

	inputs := make([]Input, 0, len(paths))
	for _, path := range paths {
		in, err := readActivityFile(path)
		if err != nil {
			c.logger.Error("Skipping activity file", slog.String("file", path), slog.Any("error", err))
			continue
		}
		inputs = append(inputs, in)
	}

	bar := progressbar.Default(int64(len(inputs)), "Analyzing")
	outcomes := c.analyzer.AnalyzeAll(ctx, inputs, func() { _ = bar.Add(1) })
	_ = bar.Finish()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		if *save {
			if err := c.activityService.Add(ctx, o.Analysis); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(c.writer, "Analyzed %d activities, %d failed, %d unreadable\n",
		len(outcomes)-failed, failed, len(paths)-len(inputs))

	return nil
}

func (c *CLI) Stats(ctx context.Context) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(c.writer)
	by := fs.String("by", "type", "grouping: type, year or month")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}

	stats, err := c.activityService.Stats(ctx, *by)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(c.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tCOUNT\tDISTANCE\tELEVATION\n", strings.ToUpper(*by))
	for _, k := range keys {
		s := stats[k]
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", k, s.Count, c.format.Distance(s.Distance), c.format.Elevation(s.ElevationGain))
	}
	return tw.Flush()
}

func (c *CLI) Efforts(ctx context.Context) error {
	fs := flag.NewFlagSet("efforts", flag.ContinueOnError)
	fs.SetOutput(c.writer)
	id := fs.Int64("id", 0, "activity id")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}

	a, err := c.activityService.Activity(ctx, *id)
	if err != nil {
		return err
	}

	c.printAnalysis(a)
	return nil
}

func (c *CLI) printAnalysis(a Analysis) {
	act := a.Activity
	sport := effort.SportOf(act.Type)

	fmt.Fprintf(c.writer, "%s (%s) %d\n", act.Name, sport, act.ID)
	fmt.Fprintf(c.writer, "distance %s  elapsed %s  ascent %s  descent %s\n",
		c.format.Distance(act.Distance),
		c.format.Duration(act.ElapsedTime),
		c.format.Elevation(a.Ascent),
		c.format.Elevation(a.Descent))
	if a.UnknownAltitude > 0 {
		fmt.Fprintf(c.writer, "altitude unknown for %d samples\n", a.UnknownAltitude)
	}

	if len(a.Efforts) == 0 {
		return
	}

	tw := tabwriter.NewWriter(c.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nEFFORT\tDISTANCE\tTIME\tSPEED\tGRADIENT")
	for _, e := range a.Efforts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.format.Label(e),
			c.format.Distance(e.Distance),
			c.format.Duration(e.Seconds),
			c.format.Speed(sport, e.Distance, e.Seconds),
			c.format.Gradient(e.Gradient()))
	}
	_ = tw.Flush()
}

func readActivityFile(path string) (Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Input{}, fmt.Errorf("error reading activity file: %w", err)
	}

	if info.IsDir() {
		return Input{}, fmt.Errorf("activity file is a directory")
	}

	file, err := os.Open(path)
	if err != nil {
		return Input{}, err
	}
	defer file.Close()

	return ReadFile(path, file)
}

func activityFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".gpx", ".fit", ".json":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}
