// Package export downloads household data from the API, optionally seals it
// with a passphrase, and writes it to disk or an S3 bucket. It also restores
// such archives through the API's import endpoint.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"

	"github.com/dukerupert/medtrack/internal/medapi"
	"github.com/dukerupert/medtrack/internal/model"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

const sealedExt = ".enc"

var ErrNoStore = errors.New("no archive store configured")

// Source is the API surface an Exporter talks to.
type Source interface {
	ExportJSON(ctx context.Context) ([]byte, error)
	ExportCSV(ctx context.Context) ([]byte, error)
	ImportJSON(ctx context.Context, filename string, data []byte) (*model.ImportResult, error)
}

var _ Source = (*medapi.Client)(nil)

// Archive describes one written export.
type Archive struct {
	Name      string
	Path      string
	Key       string
	Size      int64
	Encrypted bool
}

func (a Archive) String() string {
	return fmt.Sprintf("%s (%s)", a.Name, humanize.Bytes(uint64(a.Size)))
}

type Options struct {
	Format     Format
	Dir        string
	Passphrase string
	Upload     bool
}

type Exporter struct {
	src    Source
	store  *Store
	logger *slog.Logger
	now    func() time.Time
}

// New returns an Exporter. store may be nil when uploads are not configured.
func New(src Source, store *Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		src:    src,
		store:  store,
		logger: logger.With("component", "export"),
		now:    time.Now,
	}
}

// FileName is the archive name for a given format and day.
func FileName(f Format, day time.Time, sealed bool) string {
	name := fmt.Sprintf("medication_export_%s.%s", day.UTC().Format("2006-01-02"), f)
	if sealed {
		name += sealedExt
	}
	return name
}

// Export downloads the data in opts.Format, seals it when a passphrase is
// given, then writes it to opts.Dir and/or uploads it.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Archive, error) {
	if opts.Upload && e.store == nil {
		return nil, ErrNoStore
	}

	var (
		data []byte
		err  error
	)
	switch opts.Format {
	case FormatJSON, "":
		opts.Format = FormatJSON
		data, err = e.src.ExportJSON(ctx)
	case FormatCSV:
		data, err = e.src.ExportCSV(ctx)
	default:
		return nil, fmt.Errorf("unknown export format %q", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("download %s export: %w", opts.Format, err)
	}

	sealed := opts.Passphrase != ""
	if sealed {
		if data, err = Seal(data, opts.Passphrase); err != nil {
			return nil, fmt.Errorf("seal export: %w", err)
		}
	}

	a := &Archive{
		Name:      FileName(opts.Format, e.now(), sealed),
		Size:      int64(len(data)),
		Encrypted: sealed,
	}

	if opts.Dir != "" {
		a.Path = filepath.Join(opts.Dir, a.Name)
		if err := writeFile(a.Path, data); err != nil {
			return nil, fmt.Errorf("write export: %w", err)
		}
	}
	if opts.Upload {
		if a.Key, err = e.store.Put(ctx, a.Name, data); err != nil {
			return nil, err
		}
	}

	e.logger.Info("export written", "name", a.Name, "size", humanize.Bytes(uint64(a.Size)), "path", a.Path, "key", a.Key)
	return a, nil
}

// Import reads an archive from disk and sends it to the API.
func (e *Exporter) Import(ctx context.Context, path, passphrase string) (*model.ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return e.ImportData(ctx, filepath.Base(path), data, passphrase)
}

// Restore downloads an archive from the store and imports it.
func (e *Exporter) Restore(ctx context.Context, name, passphrase string) (*model.ImportResult, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	data, err := e.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.ImportData(ctx, name, data, passphrase)
}

// ImportData opens a sealed archive if needed, checks that it is a JSON
// export, and uploads it. Records whose ids already exist are skipped by the
// server.
func (e *Exporter) ImportData(ctx context.Context, name string, data []byte, passphrase string) (*model.ImportResult, error) {
	if IsSealed(data) {
		plain, err := Open(data, passphrase)
		if err != nil {
			return nil, err
		}
		data = plain
		name = strings.TrimSuffix(name, sealedExt)
	}
	if err := checkExport(data); err != nil {
		return nil, err
	}

	res, err := e.src.ImportJSON(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", name, err)
	}
	e.logger.Info("import completed", "name", name, "imported", res.Imported)
	return res, nil
}

var exportKeys = []string{"family_members", "caregivers", "medications", "assignments", "administrations", "inventory"}

func checkExport(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("not a JSON export: %w", err)
	}
	for _, k := range exportKeys {
		if _, ok := doc[k]; ok {
			return nil
		}
	}
	return errors.New("not a JSON export: no known sections")
}

// writeFile writes through a temp file so a failed export never leaves a
// truncated archive behind.
func writeFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = tmp.Chmod(0o600); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
