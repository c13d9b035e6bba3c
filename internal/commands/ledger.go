package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/engine/components"
)

const cliActor = "ledgerctl"

func newSeedChartCommand(a *app) *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "seed-chart",
		Short: "Create the default chart of accounts for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}

			s, err := a.session(cmd.Context(), components.BackendOptions{})
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			created, err := s.engine.Accounts.SeedDefaultChart(cmd.Context(), tenantID, shared.SystemActor(cliActor))
			if err != nil {
				return fmt.Errorf("seeding chart: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, acc := range created {
				fmt.Fprintf(out, "created %s %s (%s)\n", acc.Code, acc.Name, acc.Type)
			}
			fmt.Fprintf(out, "%d account(s) created\n", len(created))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func newTrialBalanceCommand(a *app) *cobra.Command {
	var tenant, asOf string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance of a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			date := time.Now().UTC()
			if asOf != "" {
				if date, err = time.Parse(time.DateOnly, asOf); err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
			}

			s, err := a.session(cmd.Context(), components.BackendOptions{})
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			tb, err := s.engine.Projector.TrialBalance(cmd.Context(), tenantID, date)
			if err != nil {
				return fmt.Errorf("building trial balance: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tTYPE\tDEBIT\tCREDIT")
			for _, row := range tb.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					row.AccountCode,
					row.AccountName,
					row.AccountType,
					row.DebitTotal.StringFixed(ledger.AmountScale),
					row.CreditTotal.StringFixed(ledger.AmountScale),
				)
			}
			fmt.Fprintf(w, "TOTAL\t\t\t%s\t%s\n",
				tb.TotalDebits.StringFixed(ledger.AmountScale),
				tb.TotalCredits.StringFixed(ledger.AmountScale),
			)
			if err := w.Flush(); err != nil {
				return err
			}

			if !tb.IsBalanced() {
				return fmt.Errorf("trial balance is off by %s", tb.Imbalance().StringFixed(ledger.AmountScale))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "balanced as of %s\n", tb.AsOf.Format(time.DateOnly))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	cmd.Flags().StringVar(&asOf, "as-of", "", "inclusive cutoff date, YYYY-MM-DD (default today)")

	return cmd
}

func newSnapshotCommand(a *app) *cobra.Command {
	var tenant, month string
	var store bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute the monthly snapshot of a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			period, err := time.Parse("2006-01", month)
			if err != nil {
				return fmt.Errorf("invalid --month, expected YYYY-MM: %w", err)
			}

			s, err := a.session(cmd.Context(), components.BackendOptions{ReadModels: store})
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			build := s.engine.Snapshots.Build
			if store {
				build = s.engine.Snapshots.Refresh
			}
			snap, err := build(cmd.Context(), tenantID, period)
			if err != nil {
				return fmt.Errorf("building snapshot: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	cmd.Flags().StringVar(&month, "month", "", "calendar month, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("month")
	cmd.Flags().BoolVar(&store, "store", false, "persist the snapshot to the read model")

	return cmd
}
