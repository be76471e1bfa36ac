package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonathan/contract-auditor/internal/observability"
	"github.com/jonathan/contract-auditor/internal/types"
)

var (
	listStatus         string
	listRequiresReview string
	listJSON           bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored contracts, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	addFilterFlags(listCmd, &listStatus, &listRequiresReview)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the listing as JSON")
	rootCmd.AddCommand(listCmd)
}

func addFilterFlags(cmd *cobra.Command, status, requiresReview *string) {
	cmd.Flags().StringVar(status, "status", "", "Only contracts in this status (pending, processing, approved, requires_human_review, rejected)")
	cmd.Flags().StringVar(requiresReview, "requires-review", "", "Only contracts whose requires_human_review matches (true or false)")
}

func parseFilterFlags(status, requiresReview string) (types.ContractFilter, error) {
	var filter types.ContractFilter
	if status != "" {
		s, ok := types.ParseContractStatus(status)
		if !ok {
			return filter, fmt.Errorf("unknown status %q", status)
		}
		filter.Status = &s
	}
	if requiresReview != "" {
		b, err := strconv.ParseBool(requiresReview)
		if err != nil {
			return filter, fmt.Errorf("--requires-review must be true or false")
		}
		filter.RequiresReview = &b
	}
	return filter, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	filter, err := parseFilterFlags(listStatus, listRequiresReview)
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

	if listJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintContractList(list.Contracts)
	return nil
}
