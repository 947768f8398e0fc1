package book

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"codeberg.org/ptrkv/fictionflow/internal"
	"codeberg.org/ptrkv/fictionflow/internal/ratelimit"
	"codeberg.org/ptrkv/fictionflow/internal/translator"
	"codeberg.org/ptrkv/fictionflow/internal/validate"
)

// RawDirName and TranslatedDirName are the per-book layout.
const (
	RawDirName        = "raw_chapters"
	TranslatedDirName = "translated_chapters"
)

// UnitProcessor runs one chapter to a terminal status.
type UnitProcessor interface {
	ProcessChapter(ctx context.Context, unit translator.Unit) (translator.Outcome, error)
}

// ProcessorFactory builds a unit processor bound to one book directory. The
// returned close func releases per-book resources.
type ProcessorFactory func(bookDir string) (UnitProcessor, func(), error)

// SiteBuilder regenerates the browsable output for a book or a library.
type SiteBuilder interface {
	GenerateBook(bookDir string) error
	GenerateLibraryIndex(libraryDir string) error
}

// FailureLookup reports recorded failed attempts per chapter for a book, so
// an audit can explain why a chapter keeps coming back broken. nil or an
// empty map means no history is available.
type FailureLookup func(bookDir string) map[int]int

// Config selects and caps the chapters a run touches.
type Config struct {
	// Chapters is an explicit ordinal allow-list; empty means all.
	Chapters []int
	// Limit caps the queue. Ignored when Chapters is set: explicit
	// requests are never silently dropped.
	Limit int
	// Force queues every selected chapter regardless of existing output.
	Force bool
	// FixOnly skips chapters that have no output yet; only existing
	// invalid translations are repaired.
	FixOnly bool
	// Audit reports the state of existing output and writes nothing.
	Audit bool
	// Workers is the dispatch width; values below 2 mean sequential.
	Workers int
}

// Tally is the per-run outcome count.
type Tally struct {
	Passed     int // existing translation revalidated fine
	Broken     int // existing translation failing validation (audit)
	Missing    int // no translation on disk (audit)
	Translated int // newly accepted this run
	Failed     int // retries exhausted this run
	Skipped    int // outside selection, fix-only skip, or aborted
}

// Driver walks book directories and feeds chapter units to the processor.
type Driver struct {
	factory   ProcessorFactory
	validator *validate.Validator
	site      SiteBuilder
	failures  FailureLookup
	cfg       Config
	log       *logrus.Logger
}

// NewDriver creates a batch driver. site may be nil to disable regeneration;
// failures may be nil to omit attempt history from audit reports.
func NewDriver(factory ProcessorFactory, validator *validate.Validator, site SiteBuilder, failures FailureLookup, cfg Config, log *logrus.Logger) *Driver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Driver{
		factory:   factory,
		validator: validator,
		site:      site,
		failures:  failures,
		cfg:       cfg,
		log:       log,
	}
}

// ProcessBook runs one book directory. The returned error is reserved for
// setup problems and session exhaustion; unit failures land in the tally.
func (d *Driver) ProcessBook(ctx context.Context, bookDir string) (Tally, error) {
	rawDir := filepath.Join(bookDir, RawDirName)
	outDir := filepath.Join(bookDir, TranslatedDirName)

	units, tally, err := d.classify(rawDir, outDir)
	if err != nil {
		return tally, err
	}

	if d.cfg.Audit {
		d.printAudit(bookDir, tally)
		return tally, nil
	}

	if len(units) == 0 {
		d.log.WithField("book", filepath.Base(bookDir)).Info("Nothing to translate")
		d.regenerate(bookDir)
		d.printSummary(bookDir, tally)
		return tally, nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return tally, fmt.Errorf("failed to create output directory: %w", err)
	}

	proc, closeProc, err := d.factory(bookDir)
	if err != nil {
		return tally, fmt.Errorf("failed to set up book %s: %w", bookDir, err)
	}
	defer closeProc()

	aborted := d.dispatch(ctx, proc, units, &tally)

	d.regenerate(bookDir)
	d.printSummary(bookDir, tally)

	if aborted {
		return tally, ratelimit.ErrSessionExhausted
	}
	return tally, nil
}

// ProcessLibrary treats every subdirectory of dir as a book. Session
// exhaustion in one book stops the remaining books too.
func (d *Driver) ProcessLibrary(ctx context.Context, libraryDir string) (Tally, error) {
	entries, err := os.ReadDir(libraryDir)
	if err != nil {
		return Tally{}, fmt.Errorf("failed to read library directory: %w", err)
	}

	var total Tally
	var abortErr error
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		bookDir := filepath.Join(libraryDir, entry.Name())
		if _, err := os.Stat(filepath.Join(bookDir, RawDirName)); err != nil {
			continue // not a book directory
		}

		d.log.WithField("book", entry.Name()).Info("Processing book")
		tally, err := d.ProcessBook(ctx, bookDir)
		total = total.add(tally)
		if errors.Is(err, ratelimit.ErrSessionExhausted) {
			d.log.Warn("Session budget exhausted, remaining books skipped")
			abortErr = err
			break
		}
		if err != nil {
			d.log.WithField("book", entry.Name()).Errorf("Book failed: %v", err)
		}
	}

	if d.site != nil && !d.cfg.Audit {
		if err := d.site.GenerateLibraryIndex(libraryDir); err != nil {
			d.log.Warnf("Library index generation failed: %v", err)
		}
	}

	return total, abortErr
}

// classify walks the raw chapters and decides queue/skip/tally for each.
func (d *Driver) classify(rawDir, outDir string) ([]translator.Unit, Tally, error) {
	var tally Tally

	entries, err := os.ReadDir(rawDir)
	if err != nil {
		return nil, tally, fmt.Errorf("failed to read raw chapters: %w", err)
	}

	allowed := make(map[int]bool, len(d.cfg.Chapters))
	for _, n := range d.cfg.Chapters {
		allowed[n] = true
	}

	var units []translator.Unit
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		number, err := internal.ChapterNumber(entry.Name())
		if err != nil {
			d.log.Debugf("Skipping unparseable chapter file %s", entry.Name())
			continue
		}
		if len(allowed) > 0 && !allowed[number] {
			tally.Skipped++
			continue
		}

		unit := translator.Unit{
			Number:         number,
			RawPath:        filepath.Join(rawDir, entry.Name()),
			TranslatedPath: filepath.Join(outDir, internal.ChapterFilename(number)),
		}

		queue, err := d.classifyUnit(unit, &tally)
		if err != nil {
			return nil, tally, err
		}
		if queue {
			units = append(units, unit)
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Number < units[j].Number })

	if d.cfg.Limit > 0 && len(allowed) == 0 && len(units) > d.cfg.Limit {
		tally.Skipped += len(units) - d.cfg.Limit
		units = units[:d.cfg.Limit]
	}
	return units, tally, nil
}

// classifyUnit applies the force/fix-only/audit rules to one chapter.
func (d *Driver) classifyUnit(unit translator.Unit, tally *Tally) (bool, error) {
	if d.cfg.Force && !d.cfg.Audit {
		return true, nil
	}

	existing, err := os.ReadFile(unit.TranslatedPath)
	if errors.Is(err, os.ErrNotExist) {
		if d.cfg.Audit {
			tally.Missing++
			return false, nil
		}
		if d.cfg.FixOnly {
			tally.Skipped++
			return false, nil
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read existing translation: %w", err)
	}

	// Deep check: with the source text available the ratio and retention
	// checks run at full strength.
	source, err := os.ReadFile(unit.RawPath)
	if err != nil {
		return false, fmt.Errorf("failed to read source chapter: %w", err)
	}

	verdict := d.validator.Validate(string(existing), string(source))
	if verdict.OK {
		tally.Passed++
		return false, nil
	}

	d.log.WithFields(logrus.Fields{
		"chapter": unit.Number,
		"reason":  verdict.Reason.String(),
	}).Info("Existing translation invalid")

	if d.cfg.Audit {
		tally.Broken++
		return false, nil
	}
	return true, nil
}

// dispatch runs the queue, sequentially or over a worker pool. Returns true
// when the session budget ran out mid-batch.
func (d *Driver) dispatch(ctx context.Context, proc UnitProcessor, units []translator.Unit, tally *Tally) bool {
	queue := make(chan translator.Unit)
	var aborted atomic.Bool
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range queue {
				outcome, err := proc.ProcessChapter(ctx, unit)

				mu.Lock()
				switch {
				case errors.Is(err, ratelimit.ErrSessionExhausted):
					aborted.Store(true)
					tally.Skipped++
				case outcome.Status == translator.StatusAccepted:
					tally.Translated++
				default:
					tally.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	dispatched := 0
	for _, unit := range units {
		if aborted.Load() {
			break
		}
		queue <- unit
		dispatched++
	}
	close(queue)
	wg.Wait()

	mu.Lock()
	tally.Skipped += len(units) - dispatched
	mu.Unlock()

	return aborted.Load()
}

// regenerate rebuilds the book site, tolerating failure.
func (d *Driver) regenerate(bookDir string) {
	if d.site == nil {
		return
	}
	if err := d.site.GenerateBook(bookDir); err != nil {
		d.log.WithField("book", filepath.Base(bookDir)).Warnf("Site generation failed: %v", err)
	}
}

func (d *Driver) printSummary(bookDir string, tally Tally) {
	fmt.Printf("\n=== Translation Summary: %s ===\n", filepath.Base(bookDir))
	fmt.Printf("Already valid: %d\n", tally.Passed)
	fmt.Printf("Translated:    %d\n", tally.Translated)
	if tally.Failed > 0 {
		fmt.Printf("Failed:        %d\n", tally.Failed)
	}
	if tally.Skipped > 0 {
		fmt.Printf("Skipped:       %d\n", tally.Skipped)
	}
	fmt.Printf("================================\n")
}

func (d *Driver) printAudit(bookDir string, tally Tally) {
	fmt.Printf("\n=== Audit: %s ===\n", filepath.Base(bookDir))
	fmt.Printf("Valid:   %d\n", tally.Passed)
	fmt.Printf("Broken:  %d\n", tally.Broken)
	fmt.Printf("Missing: %d\n", tally.Missing)
	if tally.Skipped > 0 {
		fmt.Printf("Skipped: %d\n", tally.Skipped)
	}
	if d.failures != nil {
		if counts := d.failures(bookDir); len(counts) > 0 {
			chapters := make([]int, 0, len(counts))
			for n := range counts {
				chapters = append(chapters, n)
			}
			sort.Ints(chapters)
			fmt.Printf("Failed attempts on record:\n")
			for _, n := range chapters {
				fmt.Printf("  chapter %d: %d\n", n, counts[n])
			}
		}
	}
	fmt.Printf("================================\n")
}

func (t Tally) add(other Tally) Tally {
	return Tally{
		Passed:     t.Passed + other.Passed,
		Broken:     t.Broken + other.Broken,
		Missing:    t.Missing + other.Missing,
		Translated: t.Translated + other.Translated,
		Failed:     t.Failed + other.Failed,
		Skipped:    t.Skipped + other.Skipped,
	}
}
