package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"yqhp/multitest/pkg/manifest"
	"yqhp/multitest/pkg/modifier"
)

var checkName string

// checkCmd 是 check 子命令
var checkCmd = &cobra.Command{
	Use:   "check <manifest.yaml>",
	Short: "校验修饰器清单并输出解析结果",
	Example: `  multitest check multitest-tests.yaml
  multitest check multitest-tests.yaml --name TestFlakyNetwork`,
	Args: cobra.ExactArgs(1),
	RunE: checkManifest,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkName, "name", "n", "", "只显示该测试名解析到的修饰器")
}

func checkManifest(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}

	var out any = m.Resolved()
	if checkName != "" {
		spec, ok := m.Lookup(checkName)
		if !ok {
			return fmt.Errorf("%s: no entry matches %s", args[0], checkName)
		}
		out = map[string]modifier.Spec{checkName: spec}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("序列化清单失败: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
