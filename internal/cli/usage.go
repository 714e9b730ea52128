package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spetersoncode/llmgate/gateway"
	"github.com/spetersoncode/llmgate/internal/ledger"
)

var (
	usageUsers []string
	usageAll   bool
	usageLocal bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show token usage recorded by the gateway",
	Long: `Show token usage per user.

By default the gateway is asked for the configured user (gateway.user_id).
Pass --user several times to aggregate users, --all for every user the
gateway knows, or --local to read the server's own ledger instead.`,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().StringArrayVarP(&usageUsers, "user", "u", nil, "User ID to report (repeatable)")
	usageCmd.Flags().BoolVar(&usageAll, "all", false, "Report every user known to the gateway")
	usageCmd.Flags().BoolVar(&usageLocal, "local", false, "Read the local ledger instead of the gateway")
	rootCmd.AddCommand(usageCmd)
}

// usageSource is the part of gateway.Client the command needs.
type usageSource interface {
	UserUsage(ctx context.Context, userID string) ([]gateway.UsageRecord, error)
	ListUsers(ctx context.Context) ([]string, error)
	AggregateUsers(ctx context.Context, ids []string) (gateway.Aggregate, error)
}

func runUsage(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a := current

	users := lo.Uniq(lo.Compact(usageUsers))
	if len(users) == 0 && !usageAll {
		users = []string{a.cfg.Gateway.UserID}
	}

	if usageLocal {
		l, err := ledger.Open(a.cfg.Storage.LedgerPath)
		if err != nil {
			return err
		}
		defer l.Close()
		return a.localUsage(ctx, l, users)
	}

	if a.cfg.Gateway.MasterKey == "" {
		return fmt.Errorf("GATEWAY_MASTER_KEY not configured")
	}
	return a.gatewayUsage(ctx, gateway.New(a.cfg.Gateway.BaseURL, a.cfg.Gateway.MasterKey), users)
}

func summaryRow(label string, s gateway.Summary) []string {
	return []string{
		label,
		strconv.Itoa(s.RequestCount),
		strconv.Itoa(s.TotalPromptTokens),
		strconv.Itoa(s.TotalCompletionTokens),
		strconv.Itoa(s.TotalTokens),
		fmt.Sprintf("$%.4f", s.TotalCost),
	}
}

var summaryHeaders = []string{"", "Requests", "Prompt", "Completion", "Total", "Cost"}

func byModelTable(title string, by map[string]gateway.Summary, total gateway.Summary) string {
	keys := lo.Keys(by)
	slices.Sort(keys)
	rows := lo.Map(keys, func(k string, _ int) []string { return summaryRow(k, by[k]) })
	rows = append(rows, summaryRow("total", total))
	return renderTable(title, summaryHeaders, rows)
}

// gatewayUsage reports one user in detail, or several (all when users is
// empty) as an aggregate.
func (a *app) gatewayUsage(ctx context.Context, src usageSource, users []string) error {
	if len(users) == 1 {
		records, err := src.UserUsage(ctx, users[0])
		if err != nil {
			return fmt.Errorf("fetching usage: %w", err)
		}
		s := gateway.Summarize(records)
		fmt.Fprintln(a.out, panel("Usage for "+users[0], fmt.Sprintf(
			"Requests: %d\nPrompt tokens: %d\nCompletion tokens: %d\nTotal tokens: %d\nCost: $%.4f",
			s.RequestCount, s.TotalPromptTokens, s.TotalCompletionTokens, s.TotalTokens, s.TotalCost),
			lipgloss.Color("12")))
		if len(records) > 0 {
			fmt.Fprintln(a.out, byModelTable("By model", gateway.ByModel(records), s))
		}
		return nil
	}

	if len(users) == 0 {
		ids, err := src.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		users = ids
	}
	agg, err := src.AggregateUsers(ctx, users)
	if err != nil {
		return fmt.Errorf("fetching usage: %w", err)
	}
	rows := lo.Map(agg.Users, func(u gateway.UserSummary, _ int) []string { return summaryRow(u.UserID, u.Summary) })
	rows = append(rows, summaryRow("total", agg.Total))
	fmt.Fprintln(a.out, renderTable("Usage by user", summaryHeaders, rows))
	return nil
}

// localUsage reports what the server's ledger recorded for each user.
func (a *app) localUsage(ctx context.Context, l *ledger.Ledger, users []string) error {
	if len(users) == 0 {
		users = []string{""}
	}
	for _, u := range users {
		label := u
		if label == "" {
			label = "all users"
		}
		by, err := l.SummaryByModel(ctx, u)
		if err != nil {
			return err
		}
		total, err := l.Summary(ctx, u)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, byModelTable("Local usage for "+label, by, total))

		recent, err := l.Recent(ctx, u, 10)
		if err != nil {
			return err
		}
		for _, e := range recent {
			fmt.Fprintln(a.out, dimStyle.Render(fmt.Sprintf("%s  %s:%s  %d tokens  %dms",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.Provider, e.Model, e.TotalTokens, e.LatencyMS)))
		}
	}
	return nil
}
