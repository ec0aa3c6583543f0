package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/multitest/internal/runner"
	"yqhp/multitest/pkg/logger"
	"yqhp/multitest/pkg/manifest"
	"yqhp/multitest/pkg/modifier"
)

var (
	// run 命令的 flags
	runRetry    int
	runRepeat   int
	runParallel int
	runTimeout  time.Duration
	runManifest string
	runName     string
	runJSON     bool
)

// runCmd 是 run 子命令
var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "在修饰器下执行命令",
	Long: `把命令的一次执行作为测试单元，按 retry -> repeat -> parallel 的顺序组合修饰器。
命令以非零状态退出视为 LOGIC_FAILURE。`,
	Example: `  # 失败最多重试 3 次
  multitest run --retry 3 -- go test -run TestFlaky ./...

  # 20 个副本同时启动，每个副本执行 5 次，2 秒超时
  multitest run --repeat 5 --parallel 20 --timeout 2s -- ./scripts/hit.sh

  # 从清单读取修饰器
  multitest run --manifest multitest-tests.yaml --name TestCounter -- ./counter_test.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWithModifiers,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runRetry, "retry", 0, "最大尝试次数 (0 表示不重试)")
	runCmd.Flags().IntVar(&runRepeat, "repeat", 0, "重复执行次数")
	runCmd.Flags().IntVarP(&runParallel, "parallel", "p", 0, "并行副本数")
	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", 0, "并行等待超时 (默认 10s，0 表示不等待)")
	runCmd.Flags().StringVarP(&runManifest, "manifest", "m", "", "修饰器清单文件")
	runCmd.Flags().StringVarP(&runName, "name", "n", "", "清单中的测试名")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "以 JSON 输出结果")
}

func runWithModifiers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(runOverrides(cmd))
	if err != nil {
		return err
	}
	defer logger.Sync()

	spec := cfg.Run.Spec()
	if runName != "" {
		spec, err = lookupSpec(cfg.Run.Manifest, runName)
		if err != nil {
			return err
		}
		spec = applyFlagOverrides(cmd, spec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := runner.New(ctx, runner.Options{
		Command:    args,
		Spec:       spec,
		OutputTail: cfg.Run.OutputTail,
	})
	if err != nil {
		return err
	}
	summary := r.Run()

	out := cmd.OutOrStdout()
	switch {
	case cfg.Run.Format == "json":
		err = runner.WriteJSON(out, summary)
	case !quiet || !summary.Passed:
		err = runner.WriteText(out, summary)
	}
	if err != nil {
		return fmt.Errorf("写入结果失败: %w", err)
	}

	if !summary.Passed {
		return ErrRunFailed
	}
	return nil
}

// runOverrides maps explicitly set flags onto config paths.
func runOverrides(cmd *cobra.Command) map[string]string {
	overrides := make(map[string]string)
	flags := cmd.Flags()
	if flags.Changed("retry") {
		overrides["run.retry"] = strconv.Itoa(runRetry)
	}
	if flags.Changed("repeat") {
		overrides["run.repeat"] = strconv.Itoa(runRepeat)
	}
	if flags.Changed("parallel") {
		overrides["run.parallel"] = strconv.Itoa(runParallel)
	}
	if flags.Changed("timeout") {
		overrides["run.timeout"] = runTimeout.String()
	}
	if flags.Changed("manifest") {
		overrides["run.manifest"] = runManifest
	}
	if runJSON {
		overrides["run.format"] = "json"
	}
	return overrides
}

func lookupSpec(path, name string) (modifier.Spec, error) {
	if path == "" {
		return modifier.Spec{}, fmt.Errorf("--name %s requires a manifest", name)
	}
	m, err := manifest.Load(path)
	if err != nil {
		return modifier.Spec{}, err
	}
	if err := m.Validate(); err != nil {
		return modifier.Spec{}, err
	}
	spec, ok := m.Lookup(name)
	if !ok {
		logger.Warn("no manifest entry, running once", zap.String("name", name), zap.String("manifest", path))
	}
	return spec, nil
}

// applyFlagOverrides lets explicit modifier flags replace manifest values.
func applyFlagOverrides(cmd *cobra.Command, spec modifier.Spec) modifier.Spec {
	flags := cmd.Flags()
	if flags.Changed("retry") {
		spec.Retry = &modifier.RetrySpec{Count: runRetry}
	}
	if flags.Changed("repeat") {
		spec.Repeat = &modifier.RepeatSpec{Count: runRepeat}
	}
	if flags.Changed("parallel") || (flags.Changed("timeout") && spec.Parallel != nil) {
		var p modifier.ParallelSpec
		if spec.Parallel != nil {
			p = *spec.Parallel
		}
		if flags.Changed("parallel") {
			p.Count = runParallel
		}
		if flags.Changed("timeout") {
			timeout := runTimeout
			p.Timeout = &timeout
		}
		spec.Parallel = &p
	}
	return spec
}
