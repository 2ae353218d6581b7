// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"docket-scan/internal/paths"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format             string `yaml:"format"`
		Output             string `yaml:"output"`
		ConfidenceLevels   string `yaml:"confidence_levels"`
		Workers            int    `yaml:"workers"`
		Observability      bool   `yaml:"observability"`
		ObservabilityLevel string `yaml:"observability_level"`
		NoColor            bool   `yaml:"no_color"`
		Recursive          bool   `yaml:"recursive"`
		Mask               string `yaml:"mask"`
		Store              string `yaml:"store"`
		OverridesFile      string `yaml:"overrides_file"`
	} `yaml:"defaults"`

	// Rules is the versioned engine rule set. Thresholds, code tables
	// and keyword lists live here, never as module-level constants.
	Rules RulesConfig `yaml:"rules"`

	// Gate settings for the batch quality gate
	Gate struct {
		MaxMalformedRatio float64 `yaml:"max_malformed_ratio"`
	} `yaml:"gate"`

	// Ingest settings
	Ingest struct {
		S3Region    string `yaml:"s3_region"`
		TempDir     string `yaml:"temp_dir"`
		MaxParallel int    `yaml:"max_parallel"`
	} `yaml:"ingest"`

	// Platform-specific configurations
	Platform *PlatformConfig `yaml:"platform,omitempty"`

	// Profiles for different reconciliation scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// RulesConfig carries the domain rule set handed to the engine at
// construction time. Version identifies the rule revision in output
// and stored runs.
type RulesConfig struct {
	Version             string         `yaml:"version"`
	SimilarityThreshold float64        `yaml:"similarity_threshold"`
	Weights             WeightsConfig  `yaml:"weights"`
	MovementCodes       map[int]string `yaml:"movement_codes"`
	ReformCode          int            `yaml:"reform_code"`
	SubjectKeywords     struct {
		Employee []string `yaml:"employee"`
		Employer []string `yaml:"employer"`
	} `yaml:"subject_keywords"`
}

// WeightsConfig holds the similarity segment weights
type WeightsConfig struct {
	Sequential float64 `yaml:"sequential"`
	Year       float64 `yaml:"year"`
	Branch     float64 `yaml:"branch"`
}

// PlatformConfig holds platform-specific configuration settings
type PlatformConfig struct {
	// Windows-specific configuration
	Windows *WindowsConfig `yaml:"windows,omitempty"`
	// Unix-specific configuration (Linux, macOS, etc.)
	Unix *UnixConfig `yaml:"unix,omitempty"`
}

// WindowsConfig holds Windows-specific configuration settings
type WindowsConfig struct {
	UseAppData bool   `yaml:"use_appdata"` // Use APPDATA directory for configuration
	ConfigDir  string `yaml:"config_dir"`  // Override default config directory
	TempDir    string `yaml:"temp_dir"`    // Override default temp directory
}

// UnixConfig holds Unix-specific configuration settings
type UnixConfig struct {
	UseXDG    bool   `yaml:"use_xdg"`    // Use XDG Base Directory specification
	ConfigDir string `yaml:"config_dir"` // Override default config directory
	TempDir   string `yaml:"temp_dir"`   // Override default temp directory
}

// Profile represents a reconciliation profile with specific settings
type Profile struct {
	Format             string `yaml:"format"`
	Output             string `yaml:"output"`
	ConfidenceLevels   string `yaml:"confidence_levels"`
	Workers            int    `yaml:"workers"`
	Observability      bool   `yaml:"observability"`
	ObservabilityLevel string `yaml:"observability_level"`
	NoColor            bool   `yaml:"no_color"`
	Recursive          bool   `yaml:"recursive"`
	Mask               string `yaml:"mask"`
	Store              string `yaml:"store"`
	Description        string `yaml:"description"`
}

// DefaultRules returns the standard rule set: the CNJ julgamento
// movement codes, the 0.8 linkage threshold with 5/3/2 segment
// weights, and the subject keyword lists behind the appellant
// heuristic.
func DefaultRules() RulesConfig {
	rules := RulesConfig{
		Version:             "tpu-2024.1",
		SimilarityThreshold: 0.8,
		Weights:             WeightsConfig{Sequential: 5, Year: 3, Branch: 2},
		MovementCodes: map[int]string{
			219: "CLAIM_GRANTED",
			220: "CLAIM_DENIED",
			221: "CLAIM_PARTIALLY_GRANTED",
			236: "APPEAL_NOT_ADMITTED",
			237: "APPEAL_GRANTED",
			238: "APPEAL_PARTIALLY_GRANTED",
			242: "APPEAL_DENIED",
		},
		ReformCode: 190,
	}
	rules.SubjectKeywords.Employee = []string{
		"horas extras",
		"verbas rescisórias",
		"adicional de insalubridade",
		"adicional de periculosidade",
		"adicional noturno",
		"equiparação salarial",
		"salário",
		"indenização",
		"dano moral",
		"fgts",
		"aviso prévio",
	}
	rules.SubjectKeywords.Employer = []string{
		"justa causa",
		"reintegração",
		"estabilidade",
		"reversão da justa causa",
		"nulidade da dispensa",
	}
	return rules
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	// Default configuration
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	// Set default values
	config.Defaults.Format = "text"
	config.Defaults.ConfidenceLevels = "all"
	config.Defaults.Workers = 0 // 0 = number of CPUs
	config.Defaults.Observability = false
	config.Defaults.ObservabilityLevel = "metrics"
	config.Defaults.NoColor = false
	config.Defaults.Recursive = false
	config.Defaults.Mask = ""
	config.Rules = DefaultRules()
	config.Gate.MaxMalformedRatio = 0.02
	config.Ingest.MaxParallel = 4

	// Set platform-specific defaults
	config.Platform = getDefaultPlatformConfig()

	// Add the default gate profile used by data-pipeline pre-flight
	config.Profiles["gate"] = defaultGateProfile()

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	// Read config file
	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Store default values before unmarshaling
	defaultThreshold := config.Rules.SimilarityThreshold
	defaultWeights := config.Rules.Weights
	defaultRatio := config.Gate.MaxMalformedRatio

	// Parse YAML
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore defaults if not explicitly set in config file.
	// This handles the case where a rules or gate section is present
	// but leaves individual numeric fields out (or null).
	if !containsField(data, "rules", "similarity_threshold") {
		config.Rules.SimilarityThreshold = defaultThreshold
	}
	if !containsField(data, "rules", "weights") {
		config.Rules.Weights = defaultWeights
	}
	if !containsField(data, "gate", "max_malformed_ratio") {
		config.Gate.MaxMalformedRatio = defaultRatio
	}

	// Apply platform-specific defaults and path normalization
	ApplyPlatformDefaults(config)

	// Validate the configuration
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// defaultGateProfile returns the profile applied when -gate runs
// without an explicit profile
func defaultGateProfile() Profile {
	return Profile{
		Format:           "text",
		ConfidenceLevels: "all",
		NoColor:          true,
		Description:      "Optimized for pipeline pre-flight with concise output",
	}
}

// FindConfigFile looks for a configuration file in standard locations using platform-aware paths
func FindConfigFile() string {
	// Check current directory first
	if fileExists("docket.yaml") {
		return "docket.yaml"
	}
	if fileExists("docket.yml") {
		return "docket.yml"
	}

	// Check for .docket-scan.yaml in current directory (project-specific config)
	if fileExists(".docket-scan.yaml") {
		return ".docket-scan.yaml"
	}
	if fileExists(".docket-scan.yml") {
		return ".docket-scan.yml"
	}

	// Check standard location using platform-aware paths
	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}

	// Check platform-specific locations
	if runtime.GOOS == "windows" {
		return findWindowsConfigFile()
	}
	return findUnixConfigFile()
}

// findWindowsConfigFile looks for configuration files in Windows-specific locations
func findWindowsConfigFile() string {
	// Check environment variable for config override
	if configDir := resolveWindowsEnvVar("DOCKET_CONFIG_DIR"); configDir != "" {
		configFile := filepath.Join(configDir, "config.yaml")
		if fileExists(configFile) {
			return configFile
		}
	}

	// Check APPDATA directory (recommended Windows location)
	if appData := resolveWindowsEnvVar("APPDATA"); appData != "" {
		configFile := filepath.Join(appData, "docket-scan", "config.yaml")
		if fileExists(configFile) {
			return configFile
		}
		configFile = filepath.Join(appData, "docket-scan", "config.yml")
		if fileExists(configFile) {
			return configFile
		}
	}

	// Check USERPROFILE directory (fallback)
	if userProfile := resolveWindowsEnvVar("USERPROFILE"); userProfile != "" {
		configFile := filepath.Join(userProfile, ".docket-scan", "config.yaml")
		if fileExists(configFile) {
			return configFile
		}
		configFile = filepath.Join(userProfile, ".docket-scan", "config.yml")
		if fileExists(configFile) {
			return configFile
		}
	}

	return ""
}

// findUnixConfigFile looks for configuration files in Unix-specific locations
func findUnixConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	// Check legacy location in home directory
	homeConfig := filepath.Join(home, ".docket.yaml")
	if fileExists(homeConfig) {
		return homeConfig
	}

	// Check XDG config directory
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	xdgConfigFile := filepath.Join(xdgConfig, "docket-scan", "config.yaml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}
	xdgConfigFile = filepath.Join(xdgConfig, "docket-scan", "config.yml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns a list of available profile names
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// GetGateProfile returns the gate profile, creating a default one if
// it doesn't exist
func (c *Config) GetGateProfile() *Profile {
	if profile := c.GetProfile("gate"); profile != nil {
		return profile
	}
	profile := defaultGateProfile()
	return &profile
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			// Last key - check if it exists
			_, exists := current[key]
			return exists
		}
		// Intermediate key - navigate deeper
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// resolveWindowsEnvVar resolves Windows environment variables with proper expansion
func resolveWindowsEnvVar(varName string) string {
	value := os.Getenv(varName)
	if value == "" {
		return ""
	}

	// Expand any embedded environment variables (e.g., %USERPROFILE%\AppData)
	expanded := os.ExpandEnv(value)

	// Normalize the path for the platform
	return normalizePlatformPath(expanded)
}

// normalizePlatformPath normalizes a path for the current platform
func normalizePlatformPath(path string) string {
	if path == "" {
		return ""
	}
	return paths.NormalizePath(path)
}

// getDefaultPlatformConfig returns default platform-specific configuration
func getDefaultPlatformConfig() *PlatformConfig {
	platformConfig := &PlatformConfig{}

	if runtime.GOOS == "windows" {
		platformConfig.Windows = &WindowsConfig{
			UseAppData: true, // Use APPDATA by default on Windows
		}
	} else {
		platformConfig.Unix = &UnixConfig{
			UseXDG: true, // Use XDG Base Directory specification by default
		}
	}

	return platformConfig
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if t := config.Rules.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("similarity_threshold must be in (0,1], got %v", t)
	}
	w := config.Rules.Weights
	if w.Sequential <= 0 || w.Year <= 0 || w.Branch <= 0 {
		return fmt.Errorf("similarity weights must be positive, got %+v", w)
	}
	if len(config.Rules.MovementCodes) == 0 {
		return fmt.Errorf("rules.movement_codes must not be empty")
	}
	if r := config.Gate.MaxMalformedRatio; r < 0 || r > 1 {
		return fmt.Errorf("gate.max_malformed_ratio must be in [0,1], got %v", r)
	}
	switch config.Defaults.Mask {
	case "", "simple", "format", "format-preserving", "format_preserving", "synthetic":
	default:
		return fmt.Errorf("unknown mask strategy %q", config.Defaults.Mask)
	}

	// Validate platform-specific settings
	if config.Platform != nil {
		if err := validatePlatformConfig(config.Platform); err != nil {
			return fmt.Errorf("platform configuration validation failed: %w", err)
		}
	}

	return nil
}

// validatePlatformConfig validates platform-specific configuration settings
func validatePlatformConfig(platformConfig *PlatformConfig) error {
	if runtime.GOOS == "windows" && platformConfig.Windows != nil {
		if platformConfig.Windows.ConfigDir != "" {
			if err := paths.ValidatePath(platformConfig.Windows.ConfigDir); err != nil {
				return fmt.Errorf("invalid Windows config directory: %w", err)
			}
		}
		if platformConfig.Windows.TempDir != "" {
			if err := paths.ValidatePath(platformConfig.Windows.TempDir); err != nil {
				return fmt.Errorf("invalid Windows temp directory: %w", err)
			}
		}
	}

	if runtime.GOOS != "windows" && platformConfig.Unix != nil {
		if platformConfig.Unix.ConfigDir != "" {
			if err := paths.ValidatePath(platformConfig.Unix.ConfigDir); err != nil {
				return fmt.Errorf("invalid Unix config directory: %w", err)
			}
		}
		if platformConfig.Unix.TempDir != "" {
			if err := paths.ValidatePath(platformConfig.Unix.TempDir); err != nil {
				return fmt.Errorf("invalid Unix temp directory: %w", err)
			}
		}
	}

	return nil
}

// GetEffectiveConfigDir returns the effective configuration directory based on platform and config
func GetEffectiveConfigDir(config *Config) string {
	// Check for platform-specific override
	if config.Platform != nil {
		if runtime.GOOS == "windows" && config.Platform.Windows != nil && config.Platform.Windows.ConfigDir != "" {
			return normalizePlatformPath(config.Platform.Windows.ConfigDir)
		}
		if runtime.GOOS != "windows" && config.Platform.Unix != nil && config.Platform.Unix.ConfigDir != "" {
			return normalizePlatformPath(config.Platform.Unix.ConfigDir)
		}
	}

	// Fall back to default platform-aware config directory
	return paths.GetConfigDir()
}

// GetEffectiveTempDir returns the effective temporary directory based on platform and config
func GetEffectiveTempDir(config *Config) string {
	// Ingest-specific override first
	if config.Ingest.TempDir != "" {
		return normalizePlatformPath(config.Ingest.TempDir)
	}

	// Check for platform-specific override
	if config.Platform != nil {
		if runtime.GOOS == "windows" && config.Platform.Windows != nil && config.Platform.Windows.TempDir != "" {
			return normalizePlatformPath(config.Platform.Windows.TempDir)
		}
		if runtime.GOOS != "windows" && config.Platform.Unix != nil && config.Platform.Unix.TempDir != "" {
			return normalizePlatformPath(config.Platform.Unix.TempDir)
		}
	}

	// Fall back to default platform-aware temp directory
	return paths.GetTempDir()
}

// ApplyPlatformDefaults applies platform-specific defaults to paths in the configuration
func ApplyPlatformDefaults(config *Config) {
	if config == nil {
		return
	}

	if config.Defaults.Output != "" {
		config.Defaults.Output = normalizePlatformPath(config.Defaults.Output)
	}
	if config.Defaults.Store != "" {
		config.Defaults.Store = normalizePlatformPath(config.Defaults.Store)
	}
	if config.Defaults.OverridesFile != "" {
		config.Defaults.OverridesFile = normalizePlatformPath(config.Defaults.OverridesFile)
	}
	if config.Ingest.TempDir != "" {
		config.Ingest.TempDir = normalizePlatformPath(config.Ingest.TempDir)
	}

	// Apply platform defaults to profiles
	for profileName, profile := range config.Profiles {
		if profile.Output != "" {
			profile.Output = normalizePlatformPath(profile.Output)
		}
		if profile.Store != "" {
			profile.Store = normalizePlatformPath(profile.Store)
		}
		config.Profiles[profileName] = profile
	}
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
// This is the shared helper used by both the CLI and the web server.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg, _ = LoadConfig("")
	}
	return cfg
}
