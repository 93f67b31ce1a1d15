package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"crawlproxy/internal/shared/types"
)

// Load 读取 ini 配置文件并应用环境变量覆盖。
// fileName 为空或文件不存在时只使用默认值与环境变量。
func Load(fileName string) (*types.Config, error) {
	cfg := types.Default()
	if fileName != "" {
		if err := LoadIni(cfg, fileName); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadIni maps fileName onto cfg. A missing file leaves cfg untouched.
func LoadIni(cfg *types.Config, fileName string) error {
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		return nil
	}
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", fileName, err)
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map config file '%s': %w", fileName, err)
	}
	return nil
}

func applyEnv(cfg *types.Config) {
	overrideFromEnv(&cfg.ProxyConf.Mode, "PROXY_MODE")
	overrideFromEnv(&cfg.ProxyConf.List, "PROXY_LIST")
	overrideFromEnv(&cfg.ProxyConf.Custom, "CUSTOM_PROXY")
	overrideFromEnv(&cfg.LogConf.Level, "LOG_LEVEL")
	overrideFromEnvInt(&cfg.CrawlerConf.MaxRetries, "CRAWLER_MAX_RETRIES")
}

func overrideFromEnv(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}
