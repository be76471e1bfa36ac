package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/contract-auditor/internal/observability"
	"github.com/jonathan/contract-auditor/internal/types"
)

var (
	auditConcurrency int
	auditJSON        bool
)

var auditCmd = &cobra.Command{
	Use:   "audit FILE...",
	Short: "Audit one or more contract documents",
	Long: "Extract, validate and decide each document (PDF, HTML or plain text) and store the result. " +
		"Documents are independent and are processed concurrently.",
	Args: cobra.MinimumNArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().IntVar(&auditConcurrency, "concurrency", 4, "Documents audited at the same time")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Print contracts as JSON instead of a report")
	rootCmd.AddCommand(auditCmd)
}

// auditOutcome is the result of one file; exactly one of Contract and Err is set.
type auditOutcome struct {
	File     string
	Contract *types.Contract
	Err      error
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes := make([]auditOutcome, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(auditConcurrency, 1))

	for i, path := range args {
		g.Go(func() error {
			outcomes[i].File = path
			data, err := os.ReadFile(path)
			if err != nil {
				outcomes[i].Err = fmt.Errorf("failed to read %s: %w", path, err)
				return nil
			}
			// Failures are collected per file so the remaining files still run.
			outcomes[i].Contract, outcomes[i].Err = a.service.Audit(ctx, data, filepath.Base(path))
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", o.File, o.Err)
			continue
		}
		if auditJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(o.Contract); err != nil {
				return fmt.Errorf("failed to encode contract: %w", err)
			}
			continue
		}
		printer.PrintContract(o.Contract)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents could not be audited", failed, len(args))
	}
	return nil
}
