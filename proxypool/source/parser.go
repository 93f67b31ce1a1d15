package source

import (
	"fmt"
	"regexp"
	"strings"

	"crawlproxy/internal/shared/logger"
	"crawlproxy/proxypool/model"
)

// proxyPattern captures the scheme, an optional "user:pass@" block and the
// rest of the address.
const proxyPattern = `^(\w+://)([^:]+?:[^@]+?@)?(.+)`

// Parser turns proxy specifications into pool entries.
type Parser struct {
	re *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{re: regexp.MustCompile(proxyPattern)}
}

// ParseLine parses one "scheme://[user:pass@]host[:port][/...]" spec.
// ok is false for blank or malformed input.
func (p *Parser) ParseLine(line string) (model.Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.Entry{}, false
	}
	m := p.re.FindStringSubmatch(line)
	if m == nil {
		return model.Entry{}, false
	}
	return model.Entry{
		Address:    m[1] + m[3],
		Credential: strings.TrimSuffix(m[2], "@"),
	}, true
}

// ParseList parses every line and silently drops the ones that do not match.
// Duplicate addresses are returned as-is; the pool keeps the last credential.
func (p *Parser) ParseList(lines []string) []model.Entry {
	l := logger.WithComponent("ProxyPool/Source")
	entries := make([]model.Entry, 0, len(lines))
	for i, line := range lines {
		e, ok := p.ParseLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				l.Debug().Int("line", i+1).Msg("Skipping malformed proxy line.")
			}
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// ParseCustom parses a single custom proxy spec. Unlike list parsing, a
// malformed spec is an error.
func (p *Parser) ParseCustom(spec string) (model.Entry, error) {
	e, ok := p.ParseLine(spec)
	if !ok {
		return model.Entry{}, fmt.Errorf("%w: %q", ErrInvalidProxyFormat, spec)
	}
	return e, nil
}
