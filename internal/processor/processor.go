package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"codeberg.org/ptrkv/fictionflow/internal/book"
	"codeberg.org/ptrkv/fictionflow/internal/cli"
	"codeberg.org/ptrkv/fictionflow/internal/epub"
	"codeberg.org/ptrkv/fictionflow/internal/glossary"
	"codeberg.org/ptrkv/fictionflow/internal/history"
	"codeberg.org/ptrkv/fictionflow/internal/provider"
	"codeberg.org/ptrkv/fictionflow/internal/ratelimit"
	"codeberg.org/ptrkv/fictionflow/internal/site"
	"codeberg.org/ptrkv/fictionflow/internal/translator"
	"codeberg.org/ptrkv/fictionflow/internal/validate"
)

// Per-book file names next to raw_chapters/ and translated_chapters/.
const (
	GlossaryFilename = "glossary.json"
	HistoryFilename  = "history.db"
)

// Runner wires the pipeline together from the command-line flags and runs
// the selected mode.
type Runner struct {
	flags *cli.Flags
	log   *logrus.Logger
}

// NewRunner creates a runner for the given flags.
func NewRunner(flags *cli.Flags) *Runner {
	return &Runner{
		flags: flags,
		log:   logrus.StandardLogger(),
	}
}

// Run executes the mode the flags select: EPUB extraction, site-only
// regeneration, or the translation batch over a book or a library.
func (r *Runner) Run(ctx context.Context) error {
	if r.flags.ExtractEPUB != "" {
		outDir := filepath.Join(r.flags.BookDir, book.RawDirName)
		count, err := epub.Extract(r.flags.ExtractEPUB, outDir, r.log)
		if err != nil {
			return fmt.Errorf("EPUB extraction failed: %w", err)
		}
		fmt.Printf("Extracted %d chapters to %s\n", count, outDir)
		return nil
	}

	generator := site.NewGenerator(book.TranslatedDirName, r.log)

	if r.flags.SiteOnly {
		if r.flags.LibraryDir != "" {
			return generator.GenerateLibraryIndex(r.flags.LibraryDir)
		}
		return generator.GenerateBook(r.flags.BookDir)
	}

	prov, err := r.newProvider(ctx)
	if err != nil {
		return err
	}

	driver := book.NewDriver(
		r.processorFactory(prov),
		validate.New(validate.DefaultConfig()),
		generator,
		r.failureLookup(),
		book.Config{
			Chapters: r.flags.Chapters,
			Limit:    r.flags.Limit,
			Force:    r.flags.Force,
			FixOnly:  r.flags.FixOnly,
			Audit:    r.flags.Audit,
			Workers:  r.flags.Workers,
		},
		r.log,
	)

	if r.flags.LibraryDir != "" {
		_, err = driver.ProcessLibrary(ctx, r.flags.LibraryDir)
	} else {
		_, err = driver.ProcessBook(ctx, r.flags.BookDir)
	}
	if err != nil {
		return fmt.Errorf("translation run stopped: %w", err)
	}
	return nil
}

// newProvider builds the translation provider the flags select.
func (r *Runner) newProvider(ctx context.Context) (provider.Provider, error) {
	apiKey := cli.APIKeyFor(r.flags.Provider)
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %s", r.flags.Provider)
	}

	switch r.flags.Provider {
	case "gemini":
		return provider.NewGeminiClient(ctx, provider.GeminiConfig{
			APIKey: apiKey,
			Model:  r.flags.Model,
		})
	case "openai":
		return provider.NewOpenAIClient(provider.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: r.flags.BaseURL,
			Model:   r.flags.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", r.flags.Provider)
	}
}

// processorFactory returns the per-book unit-processor factory. The rate
// limiter and session budget are shared across books; glossary and attempt
// history are per book.
func (r *Runner) processorFactory(prov provider.Provider) book.ProcessorFactory {
	limiter := ratelimit.NewLimiter(r.flags.RPM, r.flags.TPM, nil, r.log)
	session := ratelimit.NewSession(r.flags.SessionRequests, r.flags.SessionTokens)

	cfg := translator.DefaultConfig()
	cfg.MaxAttempts = r.flags.MaxAttempts
	cfg.MaxChunkRunes = r.flags.MaxChunkRunes

	return func(bookDir string) (book.UnitProcessor, func(), error) {
		store, err := glossary.Load(filepath.Join(bookDir, GlossaryFilename))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load glossary: %w", err)
		}

		// Attempt history is best-effort; a broken database must not
		// block translation.
		attempts, err := history.Open(filepath.Join(bookDir, HistoryFilename))
		if err != nil {
			r.log.Warnf("Attempt history unavailable: %v", err)
			attempts = nil
		}

		proc := translator.New(translator.Options{
			Provider:  prov,
			Glossary:  store,
			Limiter:   limiter,
			Session:   session,
			Validator: validate.New(validate.DefaultConfig()),
			History:   attempts,
			Config:    cfg,
			Log:       r.log,
		})

		closer := func() {
			if attempts != nil {
				attempts.Close()
			}
		}
		return proc, closer, nil
	}
}

// failureLookup reads a book's attempt log for the audit report. A book
// without a history database reports nothing; an audit never creates one.
func (r *Runner) failureLookup() book.FailureLookup {
	return func(bookDir string) map[int]int {
		path := filepath.Join(bookDir, HistoryFilename)
		if _, err := os.Stat(path); err != nil {
			return nil
		}
		attempts, err := history.Open(path)
		if err != nil {
			r.log.Debugf("Attempt history unavailable: %v", err)
			return nil
		}
		defer attempts.Close()

		failures, err := attempts.ChapterFailures()
		if err != nil {
			r.log.Debugf("Attempt history query failed: %v", err)
			return nil
		}
		return failures
	}
}

// ApplyConfig applies config-file values for settings the user did not set
// on the command line. changed reports whether a flag was given explicitly.
func (r *Runner) ApplyConfig(changed func(string) bool) {
	if !changed("provider") && viper.IsSet("translate.provider") {
		r.flags.Provider = viper.GetString("translate.provider")
	}
	if !changed("model") && viper.IsSet("translate.model") {
		r.flags.Model = viper.GetString("translate.model")
	}
	if !changed("base-url") && viper.IsSet("translate.base_url") {
		r.flags.BaseURL = viper.GetString("translate.base_url")
	}
	if !changed("max-attempts") && viper.IsSet("translate.max_attempts") {
		r.flags.MaxAttempts = viper.GetInt("translate.max_attempts")
	}
	if !changed("max-chunk-runes") && viper.IsSet("translate.max_chunk_runes") {
		r.flags.MaxChunkRunes = viper.GetInt("translate.max_chunk_runes")
	}
	if !changed("rpm") && viper.IsSet("limits.rpm") {
		r.flags.RPM = viper.GetInt("limits.rpm")
	}
	if !changed("tpm") && viper.IsSet("limits.tpm") {
		r.flags.TPM = viper.GetInt("limits.tpm")
	}
	if !changed("session-requests") && viper.IsSet("limits.session_requests") {
		r.flags.SessionRequests = viper.GetInt("limits.session_requests")
	}
	if !changed("session-tokens") && viper.IsSet("limits.session_tokens") {
		r.flags.SessionTokens = viper.GetInt("limits.session_tokens")
	}
	if !changed("workers") && viper.IsSet("translate.workers") {
		r.flags.Workers = viper.GetInt("translate.workers")
	}
	if !changed("book-dir") && viper.IsSet("book.directory") {
		r.flags.BookDir = viper.GetString("book.directory")
	}
	if !changed("library-dir") && viper.IsSet("library.directory") {
		r.flags.LibraryDir = viper.GetString("library.directory")
	}
}
