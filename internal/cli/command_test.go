package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestCreateRootCommand(t *testing.T) {
	flags := NewFlags()
	cmd := CreateRootCommand(flags)

	// Test basic command properties
	if cmd.Use != "fictionflow" {
		t.Errorf("Expected Use to be 'fictionflow', got %s", cmd.Use)
	}

	if !strings.Contains(cmd.Short, "translation pipeline") {
		t.Errorf("Expected Short description to contain 'translation pipeline'")
	}

	// Test that flags are set up
	flagTests := []string{
		"config",
		"book-dir",
		"library-dir",
		"chapters",
		"limit",
		"force",
		"fix-only",
		"audit",
		"workers",
		"provider",
		"model",
		"base-url",
		"max-attempts",
		"max-chunk-runes",
		"rpm",
		"tpm",
		"session-requests",
		"session-tokens",
		"extract-epub",
		"site-only",
	}

	for _, name := range flagTests {
		t.Run("flag_"+name, func(t *testing.T) {
			var flag *pflag.Flag
			if name == "config" {
				flag = cmd.PersistentFlags().Lookup(name)
			} else {
				flag = cmd.Flags().Lookup(name)
			}
			if flag == nil {
				t.Errorf("Expected flag %s to exist", name)
			}
		})
	}
}

func TestSetupFlags(t *testing.T) {
	cmd := &cobra.Command{}
	flags := NewFlags()

	setupFlags(cmd, flags)

	// Test rate limit defaults
	rpmFlag := cmd.Flags().Lookup("rpm")
	if rpmFlag == nil {
		t.Fatal("rpm flag not found")
	}
	if rpmFlag.DefValue != "30" {
		t.Errorf("Expected default rpm to be 30, got %s", rpmFlag.DefValue)
	}

	tpmFlag := cmd.Flags().Lookup("tpm")
	if tpmFlag == nil {
		t.Fatal("tpm flag not found")
	}
	if tpmFlag.DefValue != "64000" {
		t.Errorf("Expected default tpm to be 64000, got %s", tpmFlag.DefValue)
	}

	providerFlag := cmd.Flags().Lookup("provider")
	if providerFlag == nil {
		t.Fatal("provider flag not found")
	}
	if providerFlag.DefValue != "openai" {
		t.Errorf("Expected default provider to be openai, got %s", providerFlag.DefValue)
	}
}

func TestInitConfig(t *testing.T) {
	// Save original viper state
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	tests := []struct {
		name      string
		cfgFile   string
		setupFunc func(t *testing.T) string
	}{
		{
			name:    "with config file",
			cfgFile: "test-config.yaml",
			setupFunc: func(t *testing.T) string {
				tmpDir := t.TempDir()
				cfgPath := filepath.Join(tmpDir, "test-config.yaml")
				content := `translate:
  provider: gemini
  api_key: test-key
limits:
  rpm: 10`
				err := os.WriteFile(cfgPath, []byte(content), 0644)
				if err != nil {
					t.Fatalf("Failed to create test config: %v", err)
				}
				return cfgPath
			},
		},
		{
			name:    "without config file",
			cfgFile: "",
			setupFunc: func(t *testing.T) string {
				return ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset viper for each test
			viper.Reset()

			cfgPath := tt.setupFunc(t)
			if tt.cfgFile != "" && cfgPath != "" {
				tt.cfgFile = cfgPath
			}

			InitConfig(tt.cfgFile)

			// Test environment variable prefix
			os.Setenv("FICTIONFLOW_TEST_VAR", "test-value")
			defer os.Unsetenv("FICTIONFLOW_TEST_VAR")

			if viper.GetString("test_var") != "test-value" {
				t.Error("Environment variable not properly loaded")
			}
		})
	}
}

func TestAPIKeyFor(t *testing.T) {
	// Save original viper state
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	tests := []struct {
		name     string
		provider string
		env      map[string]string
		config   map[string]string
		expected string
	}{
		{
			name:     "sambanova env wins for openai",
			provider: "openai",
			env:      map[string]string{"SAMBANOVA_API_KEY": "samba-key", "OPENAI_API_KEY": "openai-key"},
			expected: "samba-key",
		},
		{
			name:     "openai env fallback",
			provider: "openai",
			env:      map[string]string{"OPENAI_API_KEY": "openai-key"},
			expected: "openai-key",
		},
		{
			name:     "config fallback for openai",
			provider: "openai",
			config:   map[string]string{"translate.api_key": "config-key"},
			expected: "config-key",
		},
		{
			name:     "gemini env",
			provider: "gemini",
			env:      map[string]string{"GEMINI_API_KEY": "gem-key", "OPENAI_API_KEY": "openai-key"},
			expected: "gem-key",
		},
		{
			name:     "gemini config fallback",
			provider: "gemini",
			config:   map[string]string{"translate.gemini_key": "gem-config"},
			expected: "gem-config",
		},
		{
			name:     "empty when neither set",
			provider: "openai",
			expected: "",
		},
	}

	allKeys := []string{"SAMBANOVA_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			for _, key := range allKeys {
				os.Unsetenv(key)
			}
			for key, value := range tt.env {
				os.Setenv(key, value)
				defer os.Unsetenv(key)
			}
			for key, value := range tt.config {
				viper.Set(key, value)
			}

			if got := APIKeyFor(tt.provider); got != tt.expected {
				t.Errorf("APIKeyFor(%q) = %v, want %v", tt.provider, got, tt.expected)
			}
		})
	}
}

func TestBindFlagsToViper(t *testing.T) {
	// Save original viper state
	originalConfig := viper.New()
	*originalConfig = *viper.GetViper()
	defer func() {
		*viper.GetViper() = *originalConfig
	}()

	// Reset viper
	viper.Reset()

	cmd := &cobra.Command{}
	flags := NewFlags()
	setupFlags(cmd, flags)

	// Set some flag values
	cmd.Flags().Set("provider", "gemini")
	cmd.Flags().Set("rpm", "10")
	cmd.Flags().Set("book-dir", "/test/book")

	bindFlagsToViper(cmd)

	// Test that values are bound
	if viper.GetString("translate.provider") != "gemini" {
		t.Errorf("Expected translate.provider to be gemini, got %s", viper.GetString("translate.provider"))
	}

	if viper.GetInt("limits.rpm") != 10 {
		t.Errorf("Expected limits.rpm to be 10, got %d", viper.GetInt("limits.rpm"))
	}

	if viper.GetString("book.directory") != "/test/book" {
		t.Errorf("Expected book.directory to be /test/book, got %s", viper.GetString("book.directory"))
	}
}
