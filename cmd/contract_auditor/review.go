package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/contract-auditor/internal/observability"
	"github.com/jonathan/contract-auditor/internal/types"
)

var (
	reviewDataFile string
	reviewApprove  bool
	reviewNotes    string
)

var reviewCmd = &cobra.Command{
	Use:   "review ID",
	Short: "Save a correction or approve a contract",
	Long: "Re-validate a contract with corrected extracted data and either save it (status unchanged) " +
		"or approve it with --approve. Approving while issues remain is an override and needs --notes.\n\n" +
		"Without --data the stored extracted data is re-validated as is.",
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewDataFile, "data", "d", "", "Path to JSON file with corrected extracted_data")
	reviewCmd.Flags().BoolVar(&reviewApprove, "approve", false, "Approve the contract")
	reviewCmd.Flags().StringVar(&reviewNotes, "notes", "", "Reviewer notes")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	id := args[0]

	var data types.ExtractedData
	if reviewDataFile != "" {
		raw, err := os.ReadFile(reviewDataFile)
		if err != nil {
			return fmt.Errorf("failed to read data file: %w", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("failed to parse data file: %w", err)
		}
	} else {
		current, err := a.service.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.ExtractedData == nil {
			return fmt.Errorf("contract %s has no extracted data yet; pass --data", id)
		}
		data = *current.ExtractedData
	}

	req := types.UpdateContractRequest{ExtractedData: data, HumanApproved: reviewApprove}
	if cmd.Flags().Changed("notes") {
		req.ReviewerNotes = &reviewNotes
	}

	contract, err := a.service.Update(ctx, id, req)
	if err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintContract(contract)
	return nil
}
