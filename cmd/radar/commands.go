package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/moneyradar/backend/internal/application/middleware"
	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/repository"
	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/config"
)

var (
	snapshotDate string
	alertsStatus string
	alertsLimit  int
	tokenSubject string
)

func init() {
	snapshotCmd.Flags().StringVar(&snapshotDate, "date", "", "Snapshot date (YYYY-MM-DD, default yesterday)")
	alertsCmd.Flags().StringVar(&alertsStatus, "status", "active", "Filter: active, resolved or all")
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 50, "Maximum alerts to show")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "Token subject")

	rootCmd.AddCommand(
		syncStripeCmd,
		snapshotCmd,
		mismatchesCmd,
		risksCmd,
		alertsCmd,
		scoreCmd,
		tokenCmd,
	)
}

func table() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

var syncStripeCmd = &cobra.Command{
	Use:   "sync-stripe",
	Short: "Mirror the Stripe product and price catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.syncer.Sync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d products: %d plans created, %d already known, %d prices skipped\n",
			result.Products, result.PlansCreated, result.PlansExisting, result.PricesSkipped)
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Compute the daily MRR snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		day := time.Now().UTC().AddDate(0, 0, -1)
		if snapshotDate != "" {
			if day, err = time.Parse("2006-01-02", snapshotDate); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
		}

		snapshot, err := a.snapshots.CalculateDaily(cmd.Context(), day)
		if err != nil {
			return err
		}

		w := table()
		fmt.Fprintf(w, "Date\t%s\n", snapshot.Date.Format("2006-01-02"))
		fmt.Fprintf(w, "Total MRR\t%.2f\n", snapshot.TotalMRR)
		fmt.Fprintf(w, "New\t%.2f\n", snapshot.NewMRR)
		fmt.Fprintf(w, "Expansion\t%.2f\n", snapshot.ExpansionMRR)
		fmt.Fprintf(w, "Contraction\t%.2f\n", snapshot.ContractionMRR)
		fmt.Fprintf(w, "Churned\t%.2f\n", snapshot.ChurnedMRR)
		fmt.Fprintf(w, "Net movement\t%.2f\n", snapshot.NetMovement())
		return w.Flush()
	},
}

var mismatchesCmd = &cobra.Command{
	Use:   "mismatches",
	Short: "Analyze usage-to-price fit across active subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.mismatches.AnalyzeAll(cmd.Context())
		if err != nil {
			return err
		}

		if len(report.UpgradeCandidates) == 0 && len(report.OverpricedCustomers) == 0 {
			fmt.Println("No mismatches found.")
			return nil
		}

		w := table()
		fmt.Fprintln(w, "TYPE\tCUSTOMER\tPLAN\tMRR\tUTILIZATION\tRECOMMENDATION")
		for _, m := range report.UpgradeCandidates {
			printMismatch(w, m)
		}
		for _, m := range report.OverpricedCustomers {
			printMismatch(w, m)
		}
		return w.Flush()
	},
}

func printMismatch(w *tabwriter.Writer, m *service.Mismatch) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.0f%%\t%s\n",
		m.Type, m.CustomerID, m.PlanName, m.MRR, m.Utilization*100, m.Recommendation)
}

var risksCmd = &cobra.Command{
	Use:   "risks",
	Short: "Run the churn-risk detectors now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.risks.ScanAll(cmd.Context())
		if err != nil {
			return err
		}

		raised := append(append(report.Critical, report.Warning...), report.Informational...)
		if len(raised) == 0 {
			fmt.Println("No new risks detected.")
			return nil
		}

		w := table()
		fmt.Fprintln(w, "SEVERITY\tTYPE\tCUSTOMER\tTITLE")
		for _, alert := range raised {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				alert.Severity, alert.AlertType, alert.CustomerID, alert.Title)
		}
		return w.Flush()
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := repository.AlertFilter(alertsStatus)
		switch filter {
		case repository.AlertsActive, repository.AlertsResolved, repository.AlertsAll:
		default:
			return fmt.Errorf("invalid --status %q", alertsStatus)
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		alerts, err := a.alertRepo.List(cmd.Context(), filter, alertsLimit)
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Println("No alerts.")
			return nil
		}

		w := table()
		fmt.Fprintln(w, "ID\tSEVERITY\tTYPE\tCUSTOMER\tCREATED\tRESOLVED\tTITLE")
		for _, alert := range alerts {
			resolved := ""
			if alert.IsResolved {
				resolved = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				alert.ID, alert.Severity, alert.AlertType, alert.CustomerID,
				alert.CreatedAt.Format("2006-01-02"), resolved, alert.Title)
		}
		return w.Flush()
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <customer_id>",
	Short: "Compute the expansion score for a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		score, err := a.scorer.ScoreCustomer(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printScore(score)
		return nil
	},
}

func printScore(score *entity.CustomerScore) {
	w := table()
	fmt.Fprintf(w, "Customer\t%s\n", score.CustomerID)
	fmt.Fprintf(w, "Expansion score\t%.1f\n", score.ExpansionScore)
	fmt.Fprintf(w, "Category\t%s\n", score.ExpansionCategory)
	fmt.Fprintf(w, "Tenure\t%d days\n", score.TenureDays)
	fmt.Fprintf(w, "Usage trend\t%+.2f\n", score.UsageTrend)
	fmt.Fprintf(w, "Engagement\t%.1f\n", score.EngagementScore)
	w.Flush()
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		jwtMiddleware := middleware.NewJWTMiddleware(cfg.JWT)
		token, _, err := jwtMiddleware.GenerateAccessToken(tokenSubject)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}
