package main

import (
	"context"
	"fmt"

	"github.com/nyxmori/warden/guard"
	"github.com/nyxmori/warden/internal/clifmt"
	"github.com/spf13/cobra"
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Review actions held for operator approval",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approval requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := approvalStore()
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.List(context.Background(), guard.ApprovalStatus(status), limit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println(clifmt.Dim("no approval requests"))
			return nil
		}
		for _, rec := range recs {
			fmt.Printf("%s  %-8s  %-12s  %s\n",
				rec.ID, rec.Status, rec.ActionType,
				clifmt.Dim(rec.SummaryRedacted))
		}
		return nil
	},
}

var approvalsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveApproval(cmd, args[0], guard.ApprovalApproved)
	},
}

var approvalsDenyCmd = &cobra.Command{
	Use:   "deny <id>",
	Short: "Deny a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveApproval(cmd, args[0], guard.ApprovalDenied)
	},
}

func init() {
	approvalsListCmd.Flags().String("status", string(guard.ApprovalPending), "filter by status (empty for all)")
	approvalsListCmd.Flags().Int("limit", 50, "maximum requests to list")
	for _, c := range []*cobra.Command{approvalsApproveCmd, approvalsDenyCmd} {
		c.Flags().String("actor", "operator", "who is resolving the request")
		c.Flags().String("comment", "", "optional resolution comment")
	}
	approvalsCmd.AddCommand(approvalsListCmd, approvalsApproveCmd, approvalsDenyCmd)
	rootCmd.AddCommand(approvalsCmd)
}

func approvalStore() (*guard.SQLiteApprovalStore, error) {
	cfg := guardConfigFromViper()
	return guard.NewSQLiteApprovalStore(cfg.Approvals.DSN)
}

func resolveApproval(cmd *cobra.Command, id string, status guard.ApprovalStatus) error {
	actor, _ := cmd.Flags().GetString("actor")
	comment, _ := cmd.Flags().GetString("comment")

	store, err := approvalStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Resolve(context.Background(), id, status, actor, comment); err != nil {
		return err
	}
	fmt.Println(clifmt.Success(fmt.Sprintf("%s %s", id, status)))
	return nil
}
