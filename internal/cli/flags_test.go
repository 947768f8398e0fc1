package cli

import (
	"reflect"
	"testing"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()

	// Test default values
	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"BookDir", flags.BookDir, "."},
		{"Workers", flags.Workers, 1},
		{"Provider", flags.Provider, "openai"},
		{"MaxAttempts", flags.MaxAttempts, 3},
		{"RPM", flags.RPM, 30},
		{"TPM", flags.TPM, 64000},
		{"SessionRequests", flags.SessionRequests, 40},
		{"SessionTokens", flags.SessionTokens, 200000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	// Test boolean defaults (should be false)
	boolTests := []struct {
		name  string
		value bool
	}{
		{"Force", flags.Force},
		{"FixOnly", flags.FixOnly},
		{"Audit", flags.Audit},
		{"SiteOnly", flags.SiteOnly},
	}

	for _, tt := range boolTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != false {
				t.Errorf("%s = %v, want false", tt.name, tt.value)
			}
		})
	}

	// Test string defaults (should be empty)
	stringTests := []struct {
		name  string
		value string
	}{
		{"CfgFile", flags.CfgFile},
		{"LibraryDir", flags.LibraryDir},
		{"Model", flags.Model},
		{"BaseURL", flags.BaseURL},
		{"ExtractEPUB", flags.ExtractEPUB},
	}

	for _, tt := range stringTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Errorf("%s = %v, want empty string", tt.name, tt.value)
			}
		})
	}
}

func TestFlagsStructure(t *testing.T) {
	// Test that Flags struct has all expected fields
	flags := &Flags{}
	flagsType := reflect.TypeOf(*flags)

	expectedFields := []string{
		"CfgFile", "BookDir", "LibraryDir", "Chapters", "Limit",
		"Force", "FixOnly", "Audit", "Workers",
		"Provider", "Model", "BaseURL", "MaxAttempts", "MaxChunkRunes",
		"RPM", "TPM", "SessionRequests", "SessionTokens",
		"ExtractEPUB", "SiteOnly",
	}

	for _, fieldName := range expectedFields {
		t.Run("has_field_"+fieldName, func(t *testing.T) {
			if _, ok := flagsType.FieldByName(fieldName); !ok {
				t.Errorf("Flags struct missing field: %s", fieldName)
			}
		})
	}
}
