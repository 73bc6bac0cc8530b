package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/salescast/internal/forecast"
	"github.com/wonny/salescast/internal/pipeline"
)

// pipelineStep runs one offline job and prints its result
func pipelineStep(title string, run func(*pipeline.Pipeline, context.Context) (*pipeline.Result, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		PrintJobHeader(title, map[string]string{
			"artifacts": a.cfg.Artifacts.Source,
			"features":  a.cfg.FeatureStoreSource,
			"model":     a.spec.Meta.ModelID,
		})

		p, err := a.pipeline(ctx)
		if err != nil {
			return err
		}

		res, err := run(p, ctx)
		if err != nil {
			PrintError(err.Error())
			return fmt.Errorf("%s: %w", title, err)
		}

		PrintResult(res)
		return nil
	}
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "피처 프레임 생성 / 스냅샷 내보내기",
	Long: `판매 프레임에서 학습 피처를 만들고 최근 이력 스냅샷을 내보냅니다.

Subcommands:
  build   - sales_lag_*, rolling_mean_*, sales_trend, is_weekend 생성 + feature_order.json
  export  - 날짜 내림차순 상위 N행을 parquet 아티팩트 또는 PostgreSQL로 내보내기`,
}

var (
	featuresBuildCmd = &cobra.Command{
		Use:   "build",
		Short: "피처 프레임 생성",
		RunE:  pipelineStep("Features Build", (*pipeline.Pipeline).BuildFeatures),
	}

	featuresExportCmd = &cobra.Command{
		Use:   "export",
		Short: "최근 이력 스냅샷 내보내기",
		RunE:  pipelineStep("Snapshot Export", (*pipeline.Pipeline).ExportSnapshot),
	}

	pricesCmd = &cobra.Command{
		Use:   "prices",
		Short: "주간 가격표 관리",
	}

	pricesBuildCmd = &cobra.Command{
		Use:   "build",
		Short: "주간 가격표 생성 (year-week 규칙은 model spec)",
		RunE:  pipelineStep("Prices Build", (*pipeline.Pipeline).BuildPrices),
	}

	encodersCmd = &cobra.Command{
		Use:   "encoders",
		Short: "범주형 인코더 관리",
	}

	encodersFitCmd = &cobra.Command{
		Use:   "fit",
		Short: "범주형 인코더 학습 (d 컬럼 제외)",
		RunE:  pipelineStep("Encoders Fit", (*pipeline.Pipeline).FitEncoders),
	}

	timeseriesCmd = &cobra.Command{
		Use:   "timeseries",
		Short: "전국 매출 시계열 관리",
	}

	timeseriesPrepareCmd = &cobra.Command{
		Use:   "prepare",
		Short: "일별 전국 매출 + 휴일 테이블 생성",
		RunE:  pipelineStep("Timeseries Prepare", (*pipeline.Pipeline).PrepareSeries),
	}

	timeseriesTrainCmd = &cobra.Command{
		Use:   "train",
		Short: "전국 매출 가법 모델 학습",
		RunE: pipelineStep("Timeseries Train", func(p *pipeline.Pipeline, ctx context.Context) (*pipeline.Result, error) {
			return p.TrainSeries(ctx, trainOptions())
		}),
	}
)

var (
	trainChangepoints int
	trainYearlyOrder  int
	trainWeeklyOrder  int
)

func init() {
	rootCmd.AddCommand(featuresCmd, pricesCmd, encodersCmd, timeseriesCmd)
	featuresCmd.AddCommand(featuresBuildCmd, featuresExportCmd)
	pricesCmd.AddCommand(pricesBuildCmd)
	encodersCmd.AddCommand(encodersFitCmd)
	timeseriesCmd.AddCommand(timeseriesPrepareCmd, timeseriesTrainCmd)

	defaults := forecast.DefaultTrainOptions()
	timeseriesTrainCmd.Flags().IntVar(&trainChangepoints, "changepoints", defaults.Changepoints, "트렌드 변곡점 수")
	timeseriesTrainCmd.Flags().IntVar(&trainYearlyOrder, "yearly-order", 10, "연간 Fourier 차수 (0 = 끔)")
	timeseriesTrainCmd.Flags().IntVar(&trainWeeklyOrder, "weekly-order", 3, "주간 Fourier 차수 (0 = 끔)")
}

// trainOptions applies the train flags over the defaults
func trainOptions() forecast.TrainOptions {
	opts := forecast.DefaultTrainOptions()
	opts.Changepoints = trainChangepoints

	seasonalities := opts.Seasonalities[:0]
	for _, s := range forecast.DefaultTrainOptions().Seasonalities {
		switch s.Name {
		case "yearly":
			s.Order = trainYearlyOrder
		case "weekly":
			s.Order = trainWeeklyOrder
		}
		if s.Order > 0 {
			seasonalities = append(seasonalities, s)
		}
	}
	opts.Seasonalities = seasonalities
	return opts
}
