package model

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Entry is one upstream proxy in the pool.
type Entry struct {
	// Address is the normalized "scheme://host[:port][/path]" form with
	// credentials stripped. It is the pool's unique key.
	Address string
	// Credential is "user:pass", or empty when the proxy needs no auth.
	Credential string
}

// HasCredential reports whether the entry carries proxy credentials.
func (e Entry) HasCredential() bool {
	return e.Credential != ""
}

// Mode selects how the pool picks a proxy for each request.
type Mode int

const (
	// EveryRequest picks a random proxy for every request.
	EveryRequest Mode = iota
	// Once picks a random proxy and keeps it until it fails.
	Once
	// Custom always uses the single configured proxy.
	Custom
)

var modeNames = map[Mode]string{
	EveryRequest: "every_request",
	Once:         "once",
	Custom:       "custom",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// UsesList reports whether the mode is fed from a proxy list.
func (m Mode) UsesList() bool {
	return m == EveryRequest || m == Once
}

// ParseMode accepts the mode names and the numeric values 0, 1 and 2.
func ParseMode(s string) (Mode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "every_request", "every-request", "everyrequest", "0":
		return EveryRequest, nil
	case "once", "1":
		return Once, nil
	case "custom", "2":
		return Custom, nil
	}
	return 0, fmt.Errorf("unknown proxy mode %q", s)
}

// Request is the part of an outgoing crawl request the proxy hooks read and
// write. The crawling client owns it; the hooks only borrow it.
type Request struct {
	// Proxy is the address assigned to the request, empty if none yet.
	Proxy string
	// Retrying is set after the assigned proxy failed, so the next
	// before-request call assigns a fresh proxy instead of keeping it.
	Retrying bool
	// Header is the request's mutable header map.
	Header http.Header
}

// HasProxy reports whether a proxy has already been assigned.
func (r *Request) HasProxy() bool {
	return r.Proxy != ""
}
