package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/goliatone/go-ghostzola"
	"github.com/goliatone/go-ghostzola/internal/commands"
	convertcmd "github.com/goliatone/go-ghostzola/internal/commands/convert"
	"github.com/goliatone/go-ghostzola/internal/converter"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

const usage = `usage: ghostzola <command> [flags] [args]

commands:
  convert   [flags] <archive> <extract-dir>   convert a Ghost archive
  prefixes  [flags] <archive>                 list blog prefixes in an archive
  detect    <path>...                         classify files by content
  check-json [file]                           validate a Ghost JSON export (stdin when omitted)
`

var serviceBuilder = func(cfg ghostzola.Config, provider interfaces.LoggerProvider) converter.Service {
	return converter.NewService(cfg, provider)
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if code := ghostzola.ErrorCode(err); code != "" {
			log.Fatalf("ghostzola: [%s] %v", code, err)
		}
		log.Fatalf("ghostzola: %v", err)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("command is required")
	}
	switch args[0] {
	case "convert":
		return runConvert(args[1:], stdout, stderr)
	case "prefixes":
		return runPrefixes(args[1:], stdout, stderr)
	case "detect":
		return runDetect(args[1:], stdout)
	case "check-json":
		return runCheckJSON(args[1:], stdin, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type commonFlags struct {
	config   *string
	logLevel *string
	provider *string
}

func bindCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config:   fs.String("config", "", "YAML config overlaid on the defaults"),
		logLevel: fs.String("log-level", "", "Override the configured log level"),
		provider: fs.String("log-provider", "", "Override the configured logging provider (console or gologger)"),
	}
}

func (c commonFlags) load(stderr io.Writer) (ghostzola.Config, interfaces.LoggerProvider, error) {
	cfg := ghostzola.DefaultConfig()
	if path := strings.TrimSpace(*c.config); path != "" {
		loaded, err := ghostzola.LoadConfig(path)
		if err != nil {
			return cfg, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if level := strings.TrimSpace(*c.logLevel); level != "" {
		cfg.Logging.Level = level
	}
	if provider := strings.TrimSpace(*c.provider); provider != "" {
		cfg.Logging.Provider = provider
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("validate config: %w", err)
	}
	provider, err := ghostzola.NewLoggerProvider(cfg.Logging, stderr)
	if err != nil {
		return cfg, nil, fmt.Errorf("logger provider: %w", err)
	}
	return cfg, provider, nil
}

func runConvert(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("ghostzola-convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := bindCommon(fs)
	prefix := fs.String("prefix", "", "Blog prefix to convert when the archive holds several")
	force := fs.Bool("force", false, "Overwrite files this tool did not write")
	flavor := fs.String("flavor", "", "Target site generator (zola or hugo)")
	skipDrafts := fs.Bool("skip-drafts", false, "Do not emit draft posts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("convert expects <archive> <extract-dir>")
	}

	cfg, provider, err := common.load(stderr)
	if err != nil {
		return err
	}
	if *force {
		cfg.Output.Force = true
	}
	if *skipDrafts {
		cfg.Content.SkipDrafts = true
	}
	if f := strings.TrimSpace(*flavor); f != "" {
		cfg.Target.Flavor = f
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}

	logger := commands.CommandLogger(provider, "convert")
	handler := convertcmd.NewConvertArchiveHandler(serviceBuilder(cfg, provider), logger)

	var report *converter.Report
	msg := convertcmd.ConvertArchiveCommand{
		ArchivePath: fs.Arg(0),
		ExtractPath: fs.Arg(1),
		Prefix:      *prefix,
		ResultCallback: func(env convertcmd.ResultEnvelope) {
			report = env.Report
		},
	}
	if err := handler.Execute(context.Background(), msg); err != nil {
		return err
	}
	printReport(stdout, report)
	return nil
}

func printReport(w io.Writer, report *converter.Report) {
	if report == nil {
		return
	}
	var bytes uint64
	for _, rec := range report.Files {
		bytes += uint64(rec.Size)
	}
	fmt.Fprintf(w, "blog %q (%s)\n", report.Location.Prefix, report.Format)
	fmt.Fprintf(w, "posts: %d written, %d skipped\n", report.Posts, report.Skipped)
	fmt.Fprintf(w, "assets: %d\n", report.Assets)
	fmt.Fprintf(w, "files: %d (%s) in %s\n", len(report.Files), humanize.Bytes(bytes), report.Duration.Round(time.Millisecond))
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %v\n", warning)
	}
}

func runPrefixes(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("ghostzola-prefixes", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := bindCommon(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("prefixes expects <archive>")
	}
	cfg, provider, err := common.load(stderr)
	if err != nil {
		return err
	}

	logger := commands.CommandLogger(provider, "convert")
	handler := convertcmd.NewListPrefixesHandler(serviceBuilder(cfg, provider), logger)
	msg := convertcmd.ListPrefixesCommand{
		ArchivePath: fs.Arg(0),
		ResultCallback: func(env convertcmd.ResultEnvelope) {
			for _, prefix := range env.Prefixes {
				fmt.Fprintln(stdout, prefix)
			}
		},
	}
	return handler.Execute(context.Background(), msg)
}

func runDetect(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("detect expects at least one path")
	}
	var failed int
	for _, path := range args {
		detection, err := ghostzola.DetectFormat(path)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(stdout, "%s: error: %v\n", path, err)
		case detection.Supported():
			fmt.Fprintf(stdout, "%s: %s\n", path, detection.Format)
		case detection.SQLite():
			fmt.Fprintf(stdout, "%s: sqlite database (not an archive)\n", path)
		default:
			fmt.Fprintf(stdout, "%s: unsupported (%s)\n", path, detection.MIME)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d paths could not be read", failed, len(args))
	}
	return nil
}

func runCheckJSON(args []string, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	name := "stdin"
	if len(args) > 1 {
		return errors.New("check-json expects at most one file")
	}
	if len(args) == 1 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open export: %w", err)
		}
		defer file.Close()
		in = file
		name = args[0]
	}

	summary, err := ghostzola.CheckExport(in)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for i, export := range summary.Exports {
		fmt.Fprintf(stdout, "export %d: version %s", i, export.Version)
		if export.ExportedOn != "" {
			fmt.Fprintf(stdout, ", exported on %s", export.ExportedOn)
		}
		fmt.Fprintln(stdout)
		for _, table := range export.Tables() {
			fmt.Fprintf(stdout, "  %s: %d\n", table, export.Counts[table])
		}
	}
	return nil
}
