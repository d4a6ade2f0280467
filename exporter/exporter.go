// Package exporter downloads every language of a POEditor project into the
// configured export directory.
//
// A run resets the export directory, asks the API for the current language
// list, then exports and downloads all languages concurrently. A failing
// language does not stop the others, but fails the run.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/Societec/poeditor-connector/config"
	"github.com/Societec/poeditor-connector/poeditor"
)

// Remote is the part of the POEditor API an export run needs.
type Remote interface {
	ListLanguages(ctx context.Context, cfg config.Config) ([]string, error)
	RequestExportURL(ctx context.Context, cfg config.Config, lang string) (string, error)
	Download(ctx context.Context, link string, w io.Writer) (int64, error)
}

var _ Remote = (*poeditor.Client)(nil)

// Result is one exported language file.
type Result struct {
	Language string
	Path     string
	Bytes    int64
}

// Options tunes an export run.
type Options struct {
	// MaxConcurrent caps simultaneous language downloads. When 0,
	// cfg.ExportConcurrency applies, and 0 there means unbounded.
	MaxConcurrent int
	// Reset replaces ResetDir.
	Reset func(dir string) error
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnProgress is called after each language finishes, failed or not.
	OnProgress func(lang string, done, total int)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) progress(lang string, done, total int) {
	if o.OnProgress != nil {
		o.OnProgress(lang, done, total)
	}
}

// limit returns the errgroup limit; negative means no limit.
func (o *Options) limit(cfg config.Config) int {
	n := o.MaxConcurrent
	if n <= 0 {
		n = cfg.ExportConcurrency
	}
	if n <= 0 {
		return -1
	}
	return n
}

// ResetDir deletes dir and everything in it, then recreates it empty.
func ResetDir(dir string) error {
	clean := filepath.Clean(dir)
	if dir == "" || clean == "." || clean == string(filepath.Separator) || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return fmt.Errorf("refusing to reset export directory %q", dir)
	}
	if err := os.RemoveAll(clean); err != nil {
		return err
	}
	return os.Mkdir(clean, 0755)
}

// Run exports all project languages into cfg.ExportDir. Results follow
// the order of the remote language list. On any failure Run returns nil
// results and all per-language errors joined.
func Run(ctx context.Context, cfg config.Config, remote Remote, opts Options) ([]Result, error) {
	reset := opts.Reset
	if reset == nil {
		reset = ResetDir
	}
	if err := reset(cfg.ExportDir); err != nil {
		return nil, fmt.Errorf("resetting %s: %w", cfg.ExportDir, err)
	}

	langs, err := remote.ListLanguages(ctx, cfg)
	if err != nil {
		return nil, err
	}
	langs = lo.Uniq(langs)
	if len(langs) == 0 {
		return nil, &poeditor.Error{Op: poeditor.OpExport, Kind: poeditor.KindNoLanguages}
	}
	opts.log("Languages: %s", strings.Join(langs, ", "))

	results := make([]Result, len(langs))
	errs := make([]error, len(langs))
	var done atomic.Int32

	var g errgroup.Group
	g.SetLimit(opts.limit(cfg))
	for i, lang := range langs {
		g.Go(func() error {
			res, err := exportLanguage(ctx, cfg, remote, lang, &opts)
			if err != nil {
				errs[i] = err
			} else {
				results[i] = res
			}
			opts.progress(lang, int(done.Add(1)), len(langs))
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

// exportLanguage runs the mapping lookup, export request and download of
// one language.
func exportLanguage(ctx context.Context, cfg config.Config, remote Remote, lang string, opts *Options) (Result, error) {
	name, ok := cfg.ExportFile(lang)
	if !ok {
		return Result{}, &poeditor.Error{Op: poeditor.OpExport, Kind: poeditor.KindMissingMapping, Language: lang}
	}
	target := filepath.Join(cfg.ExportDir, name)

	opts.log("Started downloading %s language ...", lang)
	link, err := remote.RequestExportURL(ctx, cfg, lang)
	if err != nil {
		return Result{}, tagLanguage(err, lang)
	}
	opts.log("Language file at %s", link)

	n, err := downloadTo(ctx, remote, link, target)
	if err != nil {
		return Result{}, tagLanguage(err, lang)
	}
	opts.log("Downloaded: %s (%d bytes)", target, n)

	return Result{Language: lang, Path: target, Bytes: n}, nil
}

// downloadTo streams link into target, overwriting it. A partial file is
// removed when the download fails.
func downloadTo(ctx context.Context, remote Remote, link, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, err
	}
	f, err := os.Create(target)
	if err != nil {
		return 0, err
	}

	n, err := remote.Download(ctx, link, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return 0, err
	}
	return n, nil
}

func tagLanguage(err error, lang string) error {
	var e *poeditor.Error
	if errors.As(err, &e) {
		if e.Language == "" {
			e.Language = lang
		}
		return err
	}
	return fmt.Errorf("%s: %w", lang, err)
}
