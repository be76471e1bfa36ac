package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/contract-auditor/internal/export"
	"github.com/jonathan/contract-auditor/internal/observability"
)

var (
	exportOutput         string
	exportStatus         string
	exportRequiresReview string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export contracts to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the active rule table and confidence threshold",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "contracts.xlsx", "Output workbook path")
	addFilterFlags(exportCmd, &exportStatus, &exportRequiresReview)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	filter, err := parseFilterFlags(exportStatus, exportRequiresReview)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.service.List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	data, err := export.ContractsXLSX(list.Contracts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d contracts to %s\n", list.Total, exportOutput)
	return nil
}

func runRules(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	observability.NewPrinter(cmd.OutOrStdout()).PrintRules(a.service.Rules(), a.service.Threshold())
	return nil
}
