package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/dukerupert/medtrack/internal/config"
	"github.com/dukerupert/medtrack/internal/export"
	"github.com/dukerupert/medtrack/internal/logging"
)

func (a *app) exporter() (*export.Exporter, error) {
	var store *export.Store
	if a.cfg.S3Enabled() {
		var err error
		store, err = export.NewStore(export.S3Config{
			Endpoint:  a.cfg.S3Endpoint,
			Bucket:    a.cfg.S3Bucket,
			Region:    a.cfg.S3Region,
			AccessKey: a.cfg.S3AccessKey,
			SecretKey: a.cfg.S3SecretKey,
			Prefix:    "exports/",
		})
		if err != nil {
			return nil, fmt.Errorf("archive store: %w", err)
		}
	}
	return export.New(a.api, store, logging.Component(a.logger, "export")), nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "json", "json or csv")
	dir := fs.String("dir", ".", "directory to write to (empty to skip writing)")
	encrypt := fs.Bool("encrypt", false, "seal the archive with MEDTRACK_EXPORT_PASSPHRASE")
	upload := fs.Bool("upload", false, "upload the archive to the configured S3 bucket")
	fs.Parse(args)

	ex, err := a.exporter()
	if err != nil {
		return err
	}
	opts := export.Options{Format: export.Format(*format), Dir: *dir, Upload: *upload}
	if *encrypt {
		if a.cfg.ExportPassphrase == "" {
			return fmt.Errorf("-encrypt needs %s_EXPORT_PASSPHRASE", config.EnvPrefix)
		}
		opts.Passphrase = a.cfg.ExportPassphrase
	}
	if opts.Dir == "" && !opts.Upload {
		return fmt.Errorf("nothing to do: give -dir or -upload")
	}

	arc, err := ex.Export(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %s.\n", arc)
	if arc.Path != "" {
		fmt.Fprintf(a.out, "  written to %s\n", arc.Path)
	}
	if arc.Key != "" {
		fmt.Fprintf(a.out, "  uploaded as %s\n", arc.Key)
	}
	return nil
}

// runImport imports a local archive, or with -restore one from the bucket.
// Sealed archives are opened with MEDTRACK_EXPORT_PASSPHRASE.
func runImport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	restore := fs.Bool("restore", false, "fetch the named archive from the S3 bucket")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: medtrack import [-restore] <file-or-archive-name>")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	ex, err := a.exporter()
	if err != nil {
		return err
	}
	importFn := ex.Import
	if *restore {
		importFn = ex.Restore
	}
	res, err := importFn(ctx, fs.Arg(0), a.cfg.ExportPassphrase)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, res.Message)
	keys := make([]string, 0, len(res.Imported))
	for k := range res.Imported {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %-16s %d\n", k, res.Imported[k])
	}
	return nil
}
