package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"crawlproxy/internal/shared/logger"
	"crawlproxy/internal/shared/types"
	"crawlproxy/proxypool/model"
)

const (
	defaultFetchTimeout = 20 * time.Second
	// defaultMaxListSize caps a downloaded proxy list. A body that reaches
	// the cap was truncated and is rejected.
	defaultMaxListSize = 64 << 20
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

// Source yields raw proxy specification lines.
type Source interface {
	// Lines reads the source. Implementations return ErrProxySourceUnreadable
	// wrapped around the underlying error when the source cannot be read.
	Lines(ctx context.Context) ([]string, error)

	// Name identifies the source in logs.
	Name() string
}

// New picks the source for mode from the proxy configuration.
func New(mode model.Mode, cfg types.ProxyConf) (Source, error) {
	switch {
	case mode == model.Custom:
		if strings.TrimSpace(cfg.Custom) == "" {
			return nil, fmt.Errorf("%w: custom mode needs CUSTOM_PROXY", ErrMissingProxySource)
		}
		return NewCustomSource(cfg.Custom), nil
	case !mode.UsesList():
		return nil, fmt.Errorf("unsupported proxy mode %v", mode)
	}

	list := strings.TrimSpace(cfg.List)
	if list == "" {
		return nil, fmt.Errorf("%w: PROXY_LIST setting is missing", ErrMissingProxySource)
	}

	u, err := url.Parse(list)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			timeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
			return NewRemoteSource(list, timeout), nil
		case "file":
			return NewFileSource(u.Path), nil
		}
	}
	return NewFileSource(list), nil
}

// FileSource reads a newline-delimited proxy list from disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return s.path
}

func (s *FileSource) Lines(_ context.Context) ([]string, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProxySourceUnreadable, s.path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProxySourceUnreadable, s.path, err)
	}
	return lines, nil
}

// RemoteSource downloads a proxy list over HTTP(S). Plain-text bodies are
// split into lines; HTML bodies are reduced to the text of their <pre> and
// <textarea> blocks, or the whole body text when there are none.
type RemoteSource struct {
	url         string
	timeout     time.Duration
	maxBodySize int
}

func NewRemoteSource(rawURL string, timeout time.Duration) *RemoteSource {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &RemoteSource{url: rawURL, timeout: timeout, maxBodySize: defaultMaxListSize}
}

func (s *RemoteSource) Name() string {
	return s.url
}

func (s *RemoteSource) Lines(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Source")
	l.Info().Str("source", s.url).Msg("Downloading proxy list...")

	c := colly.NewCollector(
		colly.UserAgent(defaultUserAgent),
		colly.StdlibContext(ctx),
		colly.MaxBodySize(s.maxBodySize),
	)
	c.SetRequestTimeout(s.timeout)

	var (
		body      []byte
		isHTML    bool
		scrapeErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		isHTML = strings.Contains(strings.ToLower(r.Headers.Get("Content-Type")), "html")
	})
	c.OnError(func(r *colly.Response, err error) {
		l.Error().Err(err).Int("status_code", r.StatusCode).Str("source", s.url).Msg("Proxy list download failed.")
		scrapeErr = err
	})

	if err := c.Visit(s.url); err != nil && scrapeErr == nil {
		scrapeErr = err
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProxySourceUnreadable, s.url, scrapeErr)
	}

	if len(body) >= s.maxBodySize {
		return nil, fmt.Errorf("%w: %s: proxy list exceeds %d bytes", ErrProxySourceUnreadable, s.url, s.maxBodySize)
	}

	lines := splitLines(string(body))
	if isHTML {
		var err error
		if lines, err = htmlLines(body); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrProxySourceUnreadable, s.url, err)
		}
	}
	l.Info().Int("count", len(lines)).Str("source", s.url).Msg("Proxy list downloaded.")
	return lines, nil
}

func htmlLines(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var lines []string
	blocks := doc.Find("pre, textarea")
	if blocks.Length() == 0 {
		return splitLines(doc.Find("body").Text()), nil
	}
	blocks.Each(func(_ int, sel *goquery.Selection) {
		lines = append(lines, splitLines(sel.Text())...)
	})
	return lines, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// CustomSource is the single proxy given by CUSTOM_PROXY.
type CustomSource struct {
	spec string
}

func NewCustomSource(spec string) *CustomSource {
	return &CustomSource{spec: spec}
}

func (s *CustomSource) Name() string {
	return "custom"
}

func (s *CustomSource) Lines(_ context.Context) ([]string, error) {
	return []string{s.spec}, nil
}
