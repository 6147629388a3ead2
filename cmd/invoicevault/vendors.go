package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"invoicevault/internal/config"
	"invoicevault/internal/gmail"
	"invoicevault/internal/vendordir"
)

func newVendorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Maintain the label-to-vendor directory",
	}
	cmd.AddCommand(newVendorsAddCmd())
	cmd.AddCommand(newVendorsLogCmd())
	return cmd
}

func newVendorsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <vendor-name>",
		Short: "Map a vendor name to its inbox label and record the change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := config.LoadAuth(cmd)
			if err != nil {
				return err
			}
			return addVendor(cmd.Context(), auth, args[0])
		},
	}
	if err := config.RegisterAuthFlags(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

func newVendorsLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the vendor directory change log",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := config.LoadAuth(cmd)
			if err != nil {
				return err
			}
			return printVendorLog(cmd.Context(), auth)
		},
	}
	if err := config.RegisterAuthFlags(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

// addVendor resolves the label whose display name matches the vendor,
// then records the pair in the directory and its change log.
func addVendor(ctx context.Context, auth config.Auth, vendor string) error {
	svc, err := newGmailService(ctx, auth)
	if err != nil {
		return err
	}

	labels, err := svc.ListLabels(ctx)
	if err != nil {
		return err
	}
	var matches []gmail.Label
	for _, l := range labels {
		if l.Name == vendor {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return errors.Errorf("no label named %q in the mailbox; check the spelling", vendor)
	case 1:
	default:
		return errors.Errorf("label %q matches %d labels; resolve the duplicates in the mailbox first", vendor, len(matches))
	}
	labelID := matches[0].ID

	db, err := vendordir.Open(ctx, auth.VendorDBPath)
	if err != nil {
		return errors.Wrap(err, "unable to open vendor directory")
	}
	defer db.Close()

	action := "added"
	if _, ok, err := db.VendorForLabel(ctx, labelID); err != nil {
		return err
	} else if ok {
		action = "updated"
	}
	if err := db.Upsert(ctx, labelID, vendor, action); err != nil {
		return err
	}

	fmt.Printf("%s vendor %q with label %s\n", action, vendor, labelID)
	return nil
}

func printVendorLog(ctx context.Context, auth config.Auth) error {
	db, err := vendordir.Open(ctx, auth.VendorDBPath)
	if err != nil {
		return errors.Wrap(err, "unable to open vendor directory")
	}
	defer db.Close()

	changes, err := db.Changes(ctx)
	if err != nil {
		return err
	}
	for _, c := range changes {
		fmt.Printf("%s\t%s\t%s\t%s\n", c.At.Format("2006-01-02 15:04:05"), c.Action, c.Vendor, c.Label)
	}
	return nil
}
