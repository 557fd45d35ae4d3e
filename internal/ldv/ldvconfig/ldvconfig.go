// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvconfig provides configuration parsing and validation for ldvctl.
//
// Configuration is stored at ldvctl.yaml within the base directory.
package ldvconfig

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/ldv/ldvpath"
	"github.com/bufdev/ldvctl/internal/ldv/ldvprojection"
	"github.com/bufdev/ldvctl/internal/ldv/ldvtaxreport"
	"github.com/bufdev/ldvctl/internal/pkg/yamlio"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
)

const (
	// DefaultAssetsPattern matches asset accounts.
	DefaultAssetsPattern = "Assets"
	// DefaultCashPattern matches cash accounts.
	DefaultCashPattern = "Cash"
	// DefaultBrokerFeesPattern matches broker fee accounts.
	DefaultBrokerFeesPattern = "BrokerFees"
)

// DefaultExcludePatterns are the asset accounts excluded from disposals when
// accounts.exclude is not set. Currency balances held at cost are not securities.
var DefaultExcludePatterns = []string{"Assets:RU:BCS:FX"}

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# The ledger to report on.
#
# Required. Either a YAML journal or a SQLite ledger (.db) written by
# "ldvctl ledger import". Relative paths are relative to this directory.
ledger: ledger.yaml
# The fiscal year reported by "ldvctl tax report".
#
# Optional. Defaults to the previous calendar year.
# report_year: 2025
# The number of calendar years "ldvctl ldv future" looks ahead.
#
# Optional. Defaults to 1, which reports lots reaching LDV before the end
# of the current year.
# future_years: 1
# Account name patterns (regular expressions).
#
# Optional. The defaults are shown.
accounts:
  # Accounts holding assets. Reductions of these holdings are disposals.
  assets: Assets
  # Accounts receiving sale proceeds. Never treated as disposals.
  cash: Cash
  # Accounts accumulating broker fees.
  broker_fees: BrokerFees
  # Asset accounts whose reductions are not disposals.
  exclude:
    - "Assets:RU:BCS:FX"
`

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	// Version is the configuration file version (must be "v1").
	Version string `yaml:"version"`
	// Ledger is the path to the YAML journal or SQLite ledger.
	Ledger string `yaml:"ledger"`
	// ReportYear is the fiscal year to report on.
	ReportYear int `yaml:"report_year"`
	// FutureYears is the LDV projection window in calendar years.
	FutureYears int `yaml:"future_years"`
	// Accounts holds the account name patterns.
	Accounts ExternalAccountsConfig `yaml:"accounts"`
}

// ExternalAccountsConfig holds account name patterns.
type ExternalAccountsConfig struct {
	// Assets matches asset accounts.
	Assets string `yaml:"assets"`
	// Cash matches cash accounts.
	Cash string `yaml:"cash"`
	// BrokerFees matches broker fee accounts.
	BrokerFees string `yaml:"broker_fees"`
	// Exclude matches asset accounts excluded from disposals.
	//
	// Nil means DefaultExcludePatterns; an explicit empty list excludes nothing.
	Exclude []string `yaml:"exclude"`
}

// Config is the validated runtime configuration derived from the config file.
type Config struct {
	// LedgerFilePath is the resolved path to the ledger.
	LedgerFilePath string
	// ReportYear is the configured fiscal year, zero if unset.
	ReportYear int
	// FutureYears is the LDV projection window in calendar years, at least 1.
	FutureYears int
	// AssetsPattern matches asset accounts.
	AssetsPattern *regexp.Regexp
	// CashPattern matches cash accounts.
	CashPattern *regexp.Regexp
	// BrokerFeesPattern matches broker fee accounts.
	BrokerFeesPattern *regexp.Regexp
	// ExcludePatterns match asset accounts excluded from disposals.
	ExcludePatterns []*regexp.Regexp
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
//
// Relative ledger paths are resolved against dirPath.
func NewConfig(dirPath string, externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("unsupported config version %q, must be v1", externalConfig.Version)
	}
	if externalConfig.Ledger == "" {
		return nil, errors.New("ledger is required")
	}
	ledgerFilePath, err := ldvpath.ResolvePath(dirPath, externalConfig.Ledger)
	if err != nil {
		return nil, err
	}
	if externalConfig.ReportYear != 0 && (externalConfig.ReportYear < 1900 || externalConfig.ReportYear > 9999) {
		return nil, fmt.Errorf("report_year %d is out of range", externalConfig.ReportYear)
	}
	futureYears := externalConfig.FutureYears
	switch {
	case futureYears == 0:
		futureYears = ldvprojection.DefaultYears
	case futureYears < 0:
		return nil, fmt.Errorf("future_years must be at least 1, got %d", futureYears)
	}
	assetsPattern, err := compilePattern("accounts.assets", externalConfig.Accounts.Assets, DefaultAssetsPattern)
	if err != nil {
		return nil, err
	}
	cashPattern, err := compilePattern("accounts.cash", externalConfig.Accounts.Cash, DefaultCashPattern)
	if err != nil {
		return nil, err
	}
	brokerFeesPattern, err := compilePattern("accounts.broker_fees", externalConfig.Accounts.BrokerFees, DefaultBrokerFeesPattern)
	if err != nil {
		return nil, err
	}
	excludes := externalConfig.Accounts.Exclude
	if excludes == nil {
		excludes = DefaultExcludePatterns
	}
	excludePatterns := make([]*regexp.Regexp, 0, len(excludes))
	for _, exclude := range excludes {
		if exclude == "" {
			return nil, errors.New("accounts.exclude entries must not be empty")
		}
		excludePattern, err := regexp.Compile(exclude)
		if err != nil {
			return nil, fmt.Errorf("invalid accounts.exclude pattern %q: %w", exclude, err)
		}
		excludePatterns = append(excludePatterns, excludePattern)
	}
	return &Config{
		LedgerFilePath:    ledgerFilePath,
		ReportYear:        externalConfig.ReportYear,
		FutureYears:       futureYears,
		AssetsPattern:     assetsPattern,
		CashPattern:       cashPattern,
		BrokerFeesPattern: brokerFeesPattern,
		ExcludePatterns:   excludePatterns,
	}, nil
}

// DefaultReportYear returns the configured report year, or the year before today's.
func (c *Config) DefaultReportYear(today xtime.Date) int {
	if c.ReportYear != 0 {
		return c.ReportYear
	}
	return today.Year - 1
}

// TaxReportParams returns the tax report parameters for the year.
func (c *Config) TaxReportParams(year int) ldvtaxreport.Params {
	return ldvtaxreport.Params{
		Year:              year,
		AssetsPattern:     c.AssetsPattern,
		CashPattern:       c.CashPattern,
		BrokerFeesPattern: c.BrokerFeesPattern,
		ExcludePatterns:   c.ExcludePatterns,
	}
}

// HoldingsFilter returns the filter selecting asset holdings for LDV projection.
func (c *Config) HoldingsFilter() ldvledger.Filter {
	return ldvledger.Filter{
		AccountPattern: c.AssetsPattern,
	}
}

// ReadConfig reads and validates the configuration file from the given base directory.
// Returns a clear error message directing users to run "ldvctl config init" if the file is missing.
func ReadConfig(dirPath string) (*Config, error) {
	filePath := ldvpath.ConfigFilePath(dirPath)
	var externalConfig ExternalConfig
	if err := yamlio.ReadFileStrict(filePath, &externalConfig); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found at %s, run \"ldvctl config init\" to create one", filePath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	config, err := NewConfig(dirPath, externalConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filePath, err)
	}
	return config, nil
}

// InitConfig creates a new configuration file with a documented template.
// Creates the base directory if it does not exist.
// Returns the path to the created file, or an error if the file already exists.
func InitConfig(dirPath string) (string, error) {
	filePath := ldvpath.ConfigFilePath(dirPath)
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("configuration file already exists: %s", filePath)
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(configTemplate), 0o644); err != nil {
		return "", err
	}
	return filePath, nil
}

// ValidateConfig reads and validates the configuration file from the given base directory.
func ValidateConfig(dirPath string) error {
	_, err := ReadConfig(dirPath)
	return err
}

// *** PRIVATE ***

func compilePattern(name string, value string, defaultValue string) (*regexp.Regexp, error) {
	if value == "" {
		value = defaultValue
	}
	pattern, err := regexp.Compile(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern %q: %w", name, value, err)
	}
	return pattern, nil
}
