package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	BookDir    string
	LibraryDir string
	Chapters   []int
	Limit      int
	Force      bool
	FixOnly    bool
	Audit      bool
	Workers    int

	// Provider flags
	Provider      string
	Model         string
	BaseURL       string
	MaxAttempts   int
	MaxChunkRunes int

	// Rate limit flags
	RPM             int
	TPM             int
	SessionRequests int
	SessionTokens   int

	// Utility modes
	ExtractEPUB string
	SiteOnly    bool
}

// NewFlags creates a new Flags instance with default values. The rate and
// session defaults match the free-tier profile the pipeline was tuned on.
func NewFlags() *Flags {
	return &Flags{
		BookDir:         ".",
		Workers:         1,
		Provider:        "openai",
		MaxAttempts:     3,
		RPM:             30,
		TPM:             64000,
		SessionRequests: 40,
		SessionTokens:   200000,
	}
}
