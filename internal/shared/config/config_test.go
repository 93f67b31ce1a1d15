package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeIni(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crawlproxy.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_FromIni(t *testing.T) {
	path := writeIni(t, `
[proxy]
mode = once
list = /tmp/proxies.txt

[log]
level = debug

[crawler]
max_retries = 5
async = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}
	if cfg.ProxyConf.Mode != "once" {
		t.Errorf("Expected mode 'once', got '%s'", cfg.ProxyConf.Mode)
	}
	if cfg.ProxyConf.List != "/tmp/proxies.txt" {
		t.Errorf("Expected list '/tmp/proxies.txt', got '%s'", cfg.ProxyConf.List)
	}
	if cfg.LogConf.Level != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.LogConf.Level)
	}
	if cfg.CrawlerConf.MaxRetries != 5 || !cfg.CrawlerConf.Async {
		t.Errorf("Unexpected crawler config: %+v", cfg.CrawlerConf)
	}
	// Values absent from the file keep their defaults.
	if cfg.CrawlerConf.TimeoutSeconds != 20 {
		t.Errorf("Expected default timeout 20, got %d", cfg.CrawlerConf.TimeoutSeconds)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeIni(t, "[proxy]\nmode = once\nlist = a.txt\n")
	t.Setenv("PROXY_MODE", "custom")
	t.Setenv("CUSTOM_PROXY", "http://u:p@host:3128")
	t.Setenv("CRAWLER_MAX_RETRIES", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}
	if cfg.ProxyConf.Mode != "custom" {
		t.Errorf("Expected env mode 'custom', got '%s'", cfg.ProxyConf.Mode)
	}
	if cfg.ProxyConf.Custom != "http://u:p@host:3128" {
		t.Errorf("Unexpected custom proxy '%s'", cfg.ProxyConf.Custom)
	}
	if cfg.ProxyConf.List != "a.txt" {
		t.Errorf("Expected list from file, got '%s'", cfg.ProxyConf.List)
	}
	if cfg.CrawlerConf.MaxRetries != 7 {
		t.Errorf("Expected max retries 7, got %d", cfg.CrawlerConf.MaxRetries)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PROXY_LIST", "proxies.txt")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}
	if cfg.ProxyConf.List != "proxies.txt" || cfg.ProxyConf.Mode != "every_request" {
		t.Errorf("Unexpected proxy config: %+v", cfg.ProxyConf)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeIni(t, "[proxy\nmode = once\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected an error for a malformed ini file")
	}
}
