// Package cmd 提供 multitest CLI 的命令实现
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yqhp/multitest/internal/config"
	"yqhp/multitest/pkg/logger"
)

// Version 是当前版本号
const Version = "0.1.0"

// ErrRunFailed is returned by run when the wrapped command failed. The
// summary has already been printed, so Execute only sets the exit code.
var ErrRunFailed = errors.New("run failed")

var (
	// 全局配置
	cfgFile string
	debug   bool
	quiet   bool
)

// rootCmd 是根命令
var rootCmd = &cobra.Command{
	Use:   "multitest",
	Short: "以 retry / repeat / parallel 修饰器执行测试",
	Long: `multitest 按固定顺序组合三种修饰器执行同一个测试单元：
  retry    失败时重试，报告最后一次失败
  repeat   固定执行 N 次，首次失败即终止
  parallel 多个副本在屏障处同时启动，超时后报告 TIMEOUT_FAILURE`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令并返回进程退出码
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认 "+config.DefaultConfigFile+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "启用调试日志")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "静默模式")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("multitest version {{.Version}}\n")
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig loads the configuration and initializes logging from it.
func loadConfig(overrides map[string]string) (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigFile
	}
	cfg, err := config.NewLoader().WithConfigPath(path).WithCmdArgs(overrides).Load()
	if err != nil {
		return nil, err
	}
	logger.Init(&cfg.Logging)
	if debug {
		logger.EnableDebug()
	}
	return cfg, nil
}
