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

	"github.com/amirasaad/fxrates/infra"
	"github.com/amirasaad/fxrates/infra/initializer"
	"github.com/amirasaad/fxrates/pkg/app"
	"github.com/amirasaad/fxrates/pkg/config"
	"github.com/fatih/color"
	"golang.org/x/term"
)

const usage = `Usage: cli <command> [arguments]
Commands:
  resolve <from> <to>          resolve a rate
  convert <amount> <from> <to> convert an amount
  ingest [--force]             fetch rates from providers
  status                       show data freshness
  verify                       check stored rates for consistency
  migrate                      apply database migrations`

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

func main() {
	color.NoColor = color.NoColor || !term.IsTerminal(int(os.Stdout.Fd()))
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		_, _ = errColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(out, usage)
		return nil
	}

	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if args[0] == "migrate" {
		return migrate(cfg, out)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return err
	}
	a := app.New(deps, cfg)
	defer a.Close() //nolint: errcheck

	return dispatch(ctx, a, args, out)
}

func dispatch(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	switch cmd := args[0]; cmd {
	case "resolve":
		if len(args) != 3 {
			return errors.New("usage: resolve <from> <to>")
		}
		res, err := a.Resolver.Resolve(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		_, _ = okColor.Fprintf(out, "1 %s = %g %s", res.FromCurrency, res.Rate, res.ToCurrency)
		_, _ = fmt.Fprintf(out, " (path=%s quality=%.2f)\n", res.PathUsed, res.QualityScore)
		return nil

	case "convert":
		if len(args) != 4 {
			return errors.New("usage: convert <amount> <from> <to>")
		}
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		res, err := a.Converter.Convert(ctx, amount, args[2], args[3])
		if err != nil {
			return err
		}
		_, _ = okColor.Fprintf(out, "%g %s = %g %s", res.FromAmount, res.FromCurrency, res.ToAmount, res.ToCurrency)
		_, _ = fmt.Fprintf(out, " (rate=%g path=%s)\n", res.RateRounded, res.PathUsed)
		return nil

	case "ingest":
		fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
		fs.SetOutput(out)
		force := fs.Bool("force", false, "bypass the cached snapshot")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		ingest := a.Ingester.Ingest
		if *force {
			ingest = a.Ingester.Refresh
		}
		res, err := ingest(ctx)
		if res.Warning != "" {
			_, _ = warnColor.Fprintln(out, "warning:", res.Warning)
		}
		if err != nil {
			return err
		}
		_, _ = okColor.Fprintf(out, "stored %d pairs from %s", res.StoredCount, res.Source)
		_, _ = fmt.Fprintf(out, " (discarded=%d stale=%t cached=%t)\n", res.Discarded, res.Stale, res.FromCache)
		return nil

	case "status":
		st, err := a.Ingester.Status(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, st)

	case "verify":
		report, err := a.Verifier.Run(ctx)
		if err != nil {
			return err
		}
		if err := writeJSON(out, report); err != nil {
			return err
		}
		if !report.OK() {
			return errors.New("verification failed")
		}
		_, _ = okColor.Fprintln(out, "rates consistent")
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func migrate(cfg *config.App, out io.Writer) error {
	db, err := infra.NewDBConnection(*cfg.DB, cfg.Env)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close() //nolint: errcheck
	}
	if err := infra.Migrate(db); err != nil {
		return err
	}
	_, _ = okColor.Fprintln(out, "migrations applied")
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
