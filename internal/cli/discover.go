package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spetersoncode/llmgate/catalog"
	"github.com/spetersoncode/llmgate/discovery"
)

var discoverImport bool

var discoverCmd = &cobra.Command{
	Use:   "discover [provider|all]",
	Short: "List the models a provider offers",
	Long: `List the models a provider currently offers, straight from its API.

With --import the discovered models are added to the web model list
(storage.models_file); models already listed are left alone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverImport, "import", false, "Add discovered models to the web model list")
	rootCmd.AddCommand(discoverCmd)
}

// modelLister is the part of discovery.Service the command needs.
type modelLister interface {
	SupportedProviders() []string
	Discover(ctx context.Context, provider string) ([]discovery.ModelInfo, error)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := current
	svc := discovery.NewDefaultService(ctx, a.cfg.DiscoveryConfig(), a.logger)

	target := "all"
	if len(args) == 1 {
		target = args[0]
	}

	var store catalog.Store
	if discoverImport {
		fs, err := catalog.Open(a.cfg.Storage.ModelsFile, catalog.DefaultWebModels())
		if err != nil {
			return err
		}
		store = fs
	}
	return a.discover(ctx, svc, target, store)
}

// discover prints the models of target ("all" for every provider) and
// imports them into store when it is non-nil.
func (a *app) discover(ctx context.Context, svc modelLister, target string, store catalog.Store) error {
	providers := svc.SupportedProviders()
	if target != "all" {
		if !slices.Contains(providers, target) {
			return &discovery.ErrUnsupportedProvider{Provider: target, Supported: providers}
		}
		providers = []string{target}
	}

	var found []discovery.ModelInfo
	var failed []error
	for _, p := range providers {
		models, err := svc.Discover(ctx, p)
		if err != nil {
			fmt.Fprintln(a.out, redStyle.Render(fmt.Sprintf("%s: %v", p, err)))
			failed = append(failed, err)
			continue
		}
		rows := make([][]string, len(models))
		for i, m := range models {
			rows[i] = []string{m.Model, m.Display}
		}
		if len(rows) == 0 {
			fmt.Fprintln(a.out, yellowStyle.Render(p+": no models found"))
			continue
		}
		fmt.Fprintln(a.out, renderTable(fmt.Sprintf("%s (%d)", p, len(models)), []string{"Model", "Display"}, rows))
		found = append(found, models...)
	}

	if store != nil && len(found) > 0 {
		added, err := store.Import(ctx, discovery.Entries(found))
		if err != nil {
			return fmt.Errorf("importing models: %w", err)
		}
		fmt.Fprintln(a.out, greenStyle.Render(fmt.Sprintf("✓ Imported %d new model(s)", added)))
	}

	// A single failing provider is an error; with "all" only total failure is.
	if len(failed) == len(providers) && len(failed) > 0 {
		return errors.Join(failed...)
	}
	return nil
}
