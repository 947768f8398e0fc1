package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/ptrkv/fictionflow/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fictionflow",
		Short: "Quality-gated novel translation pipeline",
		Long: `fictionflow batch-translates serialized fiction chapters through an
LLM provider, validates every result before accepting it and renders the
accepted chapters into a static reading site.

Examples:
  fictionflow                          # Translate the book in the current directory
  fictionflow --book-dir ~/books/mw    # Translate one book
  fictionflow --library-dir ~/books    # Translate every book in a library
  fictionflow --chapters 12,13 --force # Redo two specific chapters
  fictionflow --audit                  # Report translation state, write nothing
  fictionflow --extract-epub novel.epub # Split an EPUB into raw chapters`,
		Args:    cobra.NoArgs,
		Version: internal.Version,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.fictionflow.yaml)")

	// Local flags
	cmd.Flags().StringVarP(&flags.BookDir, "book-dir", "b", flags.BookDir, "Book directory (contains raw_chapters/)")
	cmd.Flags().StringVar(&flags.LibraryDir, "library-dir", "", "Library directory; every subdirectory with raw_chapters/ is a book")
	cmd.Flags().IntSliceVar(&flags.Chapters, "chapters", nil, "Explicit chapter numbers to process (default: all)")
	cmd.Flags().IntVar(&flags.Limit, "limit", 0, "Cap the number of chapters queued (ignored with --chapters)")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Retranslate chapters even when the existing translation is valid")
	cmd.Flags().BoolVar(&flags.FixOnly, "fix-only", false, "Only repair existing invalid translations, skip untranslated chapters")
	cmd.Flags().BoolVar(&flags.Audit, "audit", false, "Report valid/broken/missing tallies without translating anything")
	cmd.Flags().IntVarP(&flags.Workers, "workers", "w", flags.Workers, "Parallel chapter workers (1 = sequential)")

	// Provider flags
	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "Translation provider: openai or gemini")
	cmd.Flags().StringVar(&flags.Model, "model", "", "Model name (default depends on provider)")
	cmd.Flags().StringVar(&flags.BaseURL, "base-url", "", "OpenAI-compatible API base URL")
	cmd.Flags().IntVar(&flags.MaxAttempts, "max-attempts", flags.MaxAttempts, "Validation/error retries per chapter")
	cmd.Flags().IntVar(&flags.MaxChunkRunes, "max-chunk-runes", 0, "Split chapters larger than this into chunks (0 = never split)")

	// Rate limit flags
	cmd.Flags().IntVar(&flags.RPM, "rpm", flags.RPM, "Requests per minute ceiling")
	cmd.Flags().IntVar(&flags.TPM, "tpm", flags.TPM, "Estimated tokens per minute ceiling")
	cmd.Flags().IntVar(&flags.SessionRequests, "session-requests", flags.SessionRequests, "Total request budget for this run (0 = unlimited)")
	cmd.Flags().IntVar(&flags.SessionTokens, "session-tokens", flags.SessionTokens, "Total estimated-token budget for this run (0 = unlimited)")

	// Utility modes
	cmd.Flags().StringVar(&flags.ExtractEPUB, "extract-epub", "", "Extract chapters from an EPUB into raw_chapters/ and exit")
	cmd.Flags().BoolVar(&flags.SiteOnly, "site-only", false, "Regenerate the reading site without translating")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("translate.provider", cmd.Flags().Lookup("provider"))
	viper.BindPFlag("translate.model", cmd.Flags().Lookup("model"))
	viper.BindPFlag("translate.base_url", cmd.Flags().Lookup("base-url"))
	viper.BindPFlag("translate.max_attempts", cmd.Flags().Lookup("max-attempts"))
	viper.BindPFlag("translate.max_chunk_runes", cmd.Flags().Lookup("max-chunk-runes"))
	viper.BindPFlag("translate.workers", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("limits.rpm", cmd.Flags().Lookup("rpm"))
	viper.BindPFlag("limits.tpm", cmd.Flags().Lookup("tpm"))
	viper.BindPFlag("limits.session_requests", cmd.Flags().Lookup("session-requests"))
	viper.BindPFlag("limits.session_tokens", cmd.Flags().Lookup("session-tokens"))
	viper.BindPFlag("book.directory", cmd.Flags().Lookup("book-dir"))
	viper.BindPFlag("library.directory", cmd.Flags().Lookup("library-dir"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	// A local .env carries API keys during development; absence is fine.
	godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".fictionflow" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fictionflow")
	}

	// Environment variables
	viper.SetEnvPrefix("FICTIONFLOW")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// APIKeyFor retrieves the API key for a provider from environment or config
func APIKeyFor(providerName string) string {
	switch providerName {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return viper.GetString("translate.gemini_key")
	default:
		if key := os.Getenv("SAMBANOVA_API_KEY"); key != "" {
			return key
		}
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
		return viper.GetString("translate.api_key")
	}
}
