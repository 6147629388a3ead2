// Package config captures all command-line options required to run
// the harvester.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// Config holds the validated options for one pipeline run.
type Config struct {
	To             string
	LookbackDays   int
	ExcludeLabels  []string
	ProcessedLabel string

	Bucket string

	MetadataBatchSize  int
	MetadataBatchDelay time.Duration
	FullBatchSize      int
	FullBatchDelay     time.Duration
	ArchiveDelay       time.Duration
	Cooldown           time.Duration

	StrictList bool
	DryRun     bool

	Auth Auth
}

// Auth holds the options shared by every command that talks to the
// message store or the vendor directory.
type Auth struct {
	CredentialsPath string
	TokenPath       string
	VendorDBPath    string
}

func defaultVendorDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".invoicevault", "vendors.db"), nil
}

// RegisterAuthFlags attaches the shared credential and directory flags
// to the provided command.
func RegisterAuthFlags(cmd *cobra.Command) error {
	vendorDB, err := defaultVendorDBPath()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	flags.String("credentials", "credentials.json", "Path to the OAuth client credentials JSON file")
	flags.String("token", "token.json", "Path to the cached OAuth token JSON file")
	flags.String("vendor-db", vendorDB, "Path to the vendor directory database")
	return nil
}

// RegisterRunFlags attaches all pipeline flags to the run command.
func RegisterRunFlags(cmd *cobra.Command) error {
	if err := RegisterAuthFlags(cmd); err != nil {
		return err
	}
	flags := cmd.Flags()
	flags.String("to", "", "Destination address that scopes candidate discovery")
	flags.Int("lookback-days", 7, "Only consider messages newer than this many days")
	flags.StringArray("exclude-label", nil, "Label display name to exclude from discovery (repeatable)")
	flags.String("processed-label", "invoice-archived", "Label applied to fully archived messages")
	flags.String("bucket", "", "Object store bucket archives are written to")
	flags.Int("metadata-batch-size", 30, "Messages per metadata fetch chunk")
	flags.Duration("metadata-batch-delay", 500*time.Millisecond, "Pause between metadata fetch chunks")
	flags.Int("full-batch-size", 25, "Messages per full-content fetch chunk")
	flags.Duration("full-batch-delay", 2*time.Second, "Pause between full-content fetch chunks")
	flags.Duration("archive-delay", 200*time.Millisecond, "Pause between individual archival attempts")
	flags.Duration("cooldown", 2*time.Second, "Extra pause after a rate-limit rejection")
	flags.Bool("strict-list", false, "Abort the run when candidate listing fails part way")
	flags.Bool("dry-run", false, "Run all read-only stages but skip uploads and processed marks")

	if err := cmd.MarkFlagRequired("to"); err != nil {
		return err
	}
	return nil
}

// LoadAuth converts the shared flags into an Auth struct.
func LoadAuth(cmd *cobra.Command) (Auth, error) {
	flags := cmd.Flags()
	credentials, err := flags.GetString("credentials")
	if err != nil {
		return Auth{}, err
	}
	token, err := flags.GetString("token")
	if err != nil {
		return Auth{}, err
	}
	vendorDB, err := flags.GetString("vendor-db")
	if err != nil {
		return Auth{}, err
	}
	return Auth{
		CredentialsPath: credentials,
		TokenPath:       token,
		VendorDBPath:    vendorDB,
	}, nil
}

// LoadRun converts the parsed flags into a Config struct with
// validation.
func LoadRun(cmd *cobra.Command) (Config, error) {
	auth, err := LoadAuth(cmd)
	if err != nil {
		return Config{}, err
	}

	flags := cmd.Flags()
	to, err := flags.GetString("to")
	if err != nil {
		return Config{}, err
	}
	lookbackDays, err := flags.GetInt("lookback-days")
	if err != nil {
		return Config{}, err
	}
	excludeLabels, err := flags.GetStringArray("exclude-label")
	if err != nil {
		return Config{}, err
	}
	processedLabel, err := flags.GetString("processed-label")
	if err != nil {
		return Config{}, err
	}
	bucket, err := flags.GetString("bucket")
	if err != nil {
		return Config{}, err
	}
	metadataBatchSize, err := flags.GetInt("metadata-batch-size")
	if err != nil {
		return Config{}, err
	}
	metadataBatchDelay, err := flags.GetDuration("metadata-batch-delay")
	if err != nil {
		return Config{}, err
	}
	fullBatchSize, err := flags.GetInt("full-batch-size")
	if err != nil {
		return Config{}, err
	}
	fullBatchDelay, err := flags.GetDuration("full-batch-delay")
	if err != nil {
		return Config{}, err
	}
	archiveDelay, err := flags.GetDuration("archive-delay")
	if err != nil {
		return Config{}, err
	}
	cooldown, err := flags.GetDuration("cooldown")
	if err != nil {
		return Config{}, err
	}
	strictList, err := flags.GetBool("strict-list")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		To:                 to,
		LookbackDays:       lookbackDays,
		ExcludeLabels:      excludeLabels,
		ProcessedLabel:     processedLabel,
		Bucket:             bucket,
		MetadataBatchSize:  metadataBatchSize,
		MetadataBatchDelay: metadataBatchDelay,
		FullBatchSize:      fullBatchSize,
		FullBatchDelay:     fullBatchDelay,
		ArchiveDelay:       archiveDelay,
		Cooldown:           cooldown,
		StrictList:         strictList,
		DryRun:             dryRun,
		Auth:               auth,
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.LookbackDays < 0 {
		return fmt.Errorf("lookback-days must not be negative")
	}
	if c.MetadataBatchSize < 1 || c.FullBatchSize < 1 {
		return fmt.Errorf("batch sizes must be at least 1")
	}
	if !c.DryRun && c.Bucket == "" {
		return fmt.Errorf("--bucket is required unless --dry-run is set")
	}
	return nil
}
