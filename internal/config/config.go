// Package config loads multitest CLI configuration.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"yqhp/multitest/pkg/logger"
	"yqhp/multitest/pkg/modifier"
)

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "multitest.yaml"

// Config 顶层配置
type Config struct {
	Logging logger.Config `yaml:"logging"`
	Run     RunConfig     `yaml:"run"`
}

// RunConfig run 命令配置。计数为 0 表示不启用对应修饰器
type RunConfig struct {
	Manifest   string         `yaml:"manifest" env:"MT_MANIFEST"`
	Retry      int            `yaml:"retry" env:"MT_RETRY"`
	Repeat     int            `yaml:"repeat" env:"MT_REPEAT"`
	Parallel   int            `yaml:"parallel" env:"MT_PARALLEL"`
	Timeout    *time.Duration `yaml:"timeout,omitempty" env:"MT_TIMEOUT"` // nil 使用默认值，0 不等待
	Format     string         `yaml:"format" env:"MT_FORMAT"`           // text, json
	OutputTail int            `yaml:"output_tail" env:"MT_OUTPUT_TAIL"` // bytes of command output kept per failure
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: *logger.DefaultConfig(),
		Run: RunConfig{
			Format:     "text",
			OutputTail: 2048,
		},
	}
}

// Spec converts the run flags into a modifier spec. Parallel uses Timeout
// as its deadline, or the default deadline when Timeout is unset.
func (r RunConfig) Spec() modifier.Spec {
	var opts []modifier.SpecOption
	if r.Retry > 0 {
		opts = append(opts, modifier.WithRetry(r.Retry))
	}
	if r.Repeat > 0 {
		opts = append(opts, modifier.WithRepeat(r.Repeat))
	}
	if r.Parallel > 0 {
		if r.Timeout != nil {
			opts = append(opts, modifier.WithParallel(r.Parallel, *r.Timeout))
		} else {
			opts = append(opts, modifier.WithParallelCount(r.Parallel))
		}
	}
	return modifier.NewSpec(opts...)
}

// Loader 配置加载器，优先级：默认值 < 配置文件 < 环境变量 < 命令行参数
type Loader struct {
	configPath string
	cmdArgs    map[string]string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		cmdArgs: make(map[string]string),
	}
}

// WithConfigPath sets the configuration file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithCmdArgs sets overrides keyed by dot path, e.g. "run.retry".
func (l *Loader) WithCmdArgs(args map[string]string) *Loader {
	l.cmdArgs = args
	return l
}

// Load loads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("从文件加载配置失败: %w", err)
		}
	}

	if err := applyEnvToStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("应用环境变量覆盖失败: %w", err)
	}

	for key, value := range l.cmdArgs {
		if err := setConfigValue(cfg, key, value); err != nil {
			return nil, fmt.Errorf("设置配置值 %s 失败: %w", key, err)
		}
	}

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) && l.configPath == DefaultConfigFile {
			return nil
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

func applyEnvToStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("从环境变量 %s 设置字段 %s 失败: %w", envTag, fieldType.Name, err)
		}
	}
	return nil
}

// setConfigValue sets the field addressed by a dot path of yaml names.
func setConfigValue(cfg *Config, path, value string) error {
	v := reflect.ValueOf(cfg).Elem()
	parts := strings.Split(path, ".")
	for i, part := range parts {
		field, ok := fieldByYAMLName(v, part)
		if !ok {
			return fmt.Errorf("未知的配置路径: %s", path)
		}
		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}
		if field.Kind() != reflect.Struct {
			return fmt.Errorf("期望 %s 是结构体，实际是 %s", part, field.Kind())
		}
		v = field
	}
	return nil
}

func fieldByYAMLName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if tag == name || strings.EqualFold(t.Field(i).Name, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("无法设置字段")
	}

	switch field.Kind() {
	case reflect.Ptr:
		// 指针字段：非空即视为已设置
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)

	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := parseDuration(value)
			if err != nil {
				return fmt.Errorf("无效的时间格式: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("无效的整数: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("无效的布尔值: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("不支持的字段类型: %s", field.Kind())
	}
	return nil
}

// parseDuration accepts Go durations and bare integers as milliseconds.
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Serialize encodes the configuration as YAML.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses YAML on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}
