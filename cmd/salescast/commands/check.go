package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/salescast/internal/features"
	"github.com/wonny/salescast/internal/modelspec"
)

// checkCmd verifies that serving can start
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "아티팩트 / DB 점검",
	Long: `서빙에 필요한 아티팩트가 모두 있는지 확인하고, 실제로 한 번 로드해 봅니다.
FEATURE_STORE_SOURCE=postgres 이면 DB 상태도 점검합니다.

Example:
  go run ./cmd/salescast check`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// servingKeys lists the artifact keys read at startup
func servingKeys(spec *modelspec.Spec, featureSource string) []string {
	keys := []string{
		spec.Artifacts.TreeModel,
		spec.Artifacts.NationalModel,
		spec.Artifacts.Encoders,
		spec.Artifacts.FeatureOrder,
		spec.Artifacts.NationalHistory,
	}
	if featureSource != "postgres" {
		keys = append(keys, spec.Artifacts.RecentHistory, spec.Artifacts.Prices)
	}
	return keys
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	hash, err := modelspec.Hash(a.spec)
	if err != nil {
		return err
	}

	PrintJobHeader("Serving Check", map[string]string{
		"artifacts": a.cfg.Artifacts.Source,
		"features":  a.cfg.FeatureStoreSource,
		"model":     a.spec.Meta.ModelID,
		"spec":      hash[:12],
		"format":    a.cfg.ModelFormat,
	})

	// 1. Artifacts present
	missing := 0
	for _, key := range servingKeys(a.spec, a.cfg.FeatureStoreSource) {
		ok, err := a.store.Exists(ctx, key)
		switch {
		case err != nil:
			PrintError(fmt.Sprintf("%s: %v", key, err))
			missing++
		case !ok:
			PrintError(fmt.Sprintf("%s: missing", key))
			missing++
		default:
			PrintSuccess(key)
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d artifact(s) unavailable", missing)
	}

	// 2. Database (postgres feature store only)
	if a.cfg.FeatureStoreSource == "postgres" {
		if _, err := a.featureStore(ctx); err != nil {
			PrintError(err.Error())
			return err
		}
		status, err := a.db.HealthCheck(ctx)
		if err != nil {
			PrintError(fmt.Sprintf("database: %v", err))
			return err
		}
		PrintSuccess(fmt.Sprintf("database (%s, %d/%d conns)", status.ResponseTime, status.TotalConns, status.MaxConns))
	}

	// 3. Full load (widths, encoders, model parse)
	svc, err := a.service(ctx, features.NopObserver{})
	if err != nil {
		PrintError(err.Error())
		return err
	}

	info := svc.Info()
	PrintSeparator()
	PrintKeyValue("features", fmt.Sprintf("%d", info.Features), 14)
	PrintKeyValue("history pairs", fmt.Sprintf("%d", info.HistoryPairs), 14)
	PrintKeyValue("price rows", fmt.Sprintf("%d", info.PriceRows), 14)
	PrintKeyValue("series days", fmt.Sprintf("%d", info.SeriesDays), 14)
	fmt.Println()
	PrintSuccess("Serving artifacts load cleanly")
	return nil
}
