package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gocolly/colly/v2"
	"github.com/spf13/pflag"

	"crawlproxy/internal/crawler"
	"crawlproxy/internal/shared/config"
	"crawlproxy/internal/shared/logger"
	manager "crawlproxy/proxypool"
	"crawlproxy/proxypool/model"
	"crawlproxy/proxypool/source"
)

func main() {
	configPath := pflag.StringP("config", "c", "configs/crawlproxy.ini", "Path to the ini config file")
	urls := pflag.StringArrayP("url", "u", nil, "URL to crawl (repeatable)")
	logLevel := pflag.String("log-level", "", "Override the configured log level")
	pflag.Parse()
	targets := append(*urls, pflag.Args()...)

	// 1. 加载配置 (ini + 环境变量)
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogConf.Level = *logLevel
	}

	// 2. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	mode, err := model.ParseMode(cfg.ProxyConf.Mode)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid proxy mode.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 构建代理池
	src, err := source.New(mode, cfg.ProxyConf)
	if err != nil {
		logger.Fatal().Err(err).Msg("Proxy source is not configured.")
	}
	pool := manager.New()
	if err := pool.Load(ctx, mode, src); err != nil {
		logger.Fatal().Err(err).Str("source", src.Name()).Msg("Failed to load proxy pool.")
	}

	if len(targets) == 0 {
		logger.Warn().Msg("No URLs given, nothing to crawl.")
		return
	}

	// 4. 抓取
	cr := crawler.New(cfg.CrawlerConf, pool)
	cr.OnResponse(func(r *colly.Response) {
		logger.Info().
			Str("url", r.Request.URL.String()).
			Str("proxy", r.Ctx.Get("proxy")).
			Int("status_code", r.StatusCode).
			Int("bytes", len(r.Body)).
			Msg("Fetched.")
	})

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		if err := cr.Visit(target); err != nil {
			logger.Warn().Err(err).Str("url", target).Msg("Visit failed.")
		}
	}
	cr.Wait()

	logger.Info().Int("proxies_left", pool.Len()).Msg("Crawl finished.")
}
