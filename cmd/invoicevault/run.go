package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"invoicevault/internal/config"
	"invoicevault/internal/gmail"
	"invoicevault/internal/gmailhttp"
	"invoicevault/internal/objstore"
	"invoicevault/internal/pipeline"
	"invoicevault/internal/query"
	"invoicevault/internal/vendordir"

	_ "github.com/mattn/go-sqlite3"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the harvest pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRun(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	if err := config.RegisterRunFlags(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	svc, err := newGmailService(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	var objects pipeline.ObjectStore
	if cfg.DryRun {
		objects = discardStore{}
	} else {
		objects, err = objstore.NewGCS(ctx, cfg.Bucket)
		if err != nil {
			return errors.Wrap(err, "unable to initialize object store")
		}
	}

	vendors, err := loadVendorDirectory(ctx, cfg.Auth.VendorDBPath)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Messages:    svc,
		Objects:     objects,
		Vendors:     vendors,
		IsRateLimit: gmail.IsRateLimit,
		Config: pipeline.Config{
			Query: query.Spec{
				To:            cfg.To,
				NewerThanDays: cfg.LookbackDays,
				ExcludeLabels: cfg.ExcludeLabels,
			},
			ProcessedLabel:     cfg.ProcessedLabel,
			MetadataBatchSize:  cfg.MetadataBatchSize,
			MetadataBatchDelay: cfg.MetadataBatchDelay,
			FullBatchSize:      cfg.FullBatchSize,
			FullBatchDelay:     cfg.FullBatchDelay,
			ArchiveDelay:       cfg.ArchiveDelay,
			Cooldown:           cfg.Cooldown,
			StrictList:         cfg.StrictList,
			DryRun:             cfg.DryRun,
		},
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return errors.Wrap(err, "pipeline failed")
	}
	fmt.Printf("listed %d, resolved %d, attachments %d, archived %d, failed %d\n",
		summary.Listed, summary.Resolved, summary.Attachments, summary.Archived, summary.Failed)
	return nil
}

func newGmailService(ctx context.Context, auth config.Auth) (*gmail.Service, error) {
	client, err := gmailhttp.New(ctx, gmailhttp.Options{
		CredentialsPath: auth.CredentialsPath,
		TokenPath:       auth.TokenPath,
		Scopes:          []string{gmail.ModifyScope},
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize Gmail HTTP client")
	}
	svc, err := gmail.New(ctx, client)
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize Gmail")
	}
	return svc, nil
}

// loadVendorDirectory snapshots the label-to-vendor mapping for the
// interpreter.  A missing database is not fatal; the run proceeds
// without the label fallback.
func loadVendorDirectory(ctx context.Context, path string) (vendordir.Directory, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "unable to create vendor directory path")
	}
	db, err := vendordir.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open vendor directory")
	}
	defer db.Close()

	dir, err := db.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to snapshot vendor directory")
	}
	slog.Debug("loaded vendor directory", "vendors", len(dir))
	return dir, nil
}

// discardStore satisfies pipeline.ObjectStore for dry runs, where the
// archival worker never reaches the store anyway.
type discardStore struct{}

func (discardStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, objstore.ErrNotFound
}

func (discardStore) Put(ctx context.Context, key string, data []byte) error {
	return nil
}
