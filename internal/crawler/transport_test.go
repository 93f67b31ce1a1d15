package crawler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestTransport_DirectWithoutUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("direct"))
	}))
	defer srv.Close()

	tr := NewTransport(nil, time.Second)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() returned an error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "direct" {
		t.Errorf("Expected 'direct', got '%s'", body)
	}
}

func TestTransport_AddsCredentialWhenHeaderMissing(t *testing.T) {
	var gotAuth string
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Proxy-Authorization")
	}))
	defer proxySrv.Close()
	address := "http://" + proxySrv.Listener.Addr().String()

	tr := NewTransport(func(a string) (string, bool) {
		if a == address {
			return "user:pass", true
		}
		return "", false
	}, time.Second)

	req, _ := http.NewRequest(http.MethodGet, "http://target.test/", nil)
	req.Header.Set(upstreamHeader, address)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() returned an error: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Basic dXNlcjpwYXNz" {
		t.Errorf("Expected Basic auth from credential lookup, got '%s'", gotAuth)
	}
	if req.Header.Get(upstreamHeader) != address {
		t.Error("RoundTrip must not modify the caller's request")
	}
}

func TestTransport_SchemeHandling(t *testing.T) {
	tr := NewTransport(func(string) (string, bool) { return "u:p", true }, time.Second)

	for _, address := range []string{"http://h:1", "https://h:2", "socks5://h:3", "socks5h://h:4"} {
		u, _ := parseForTest(address)
		if _, err := tr.transportFor(address, u); err != nil {
			t.Errorf("transportFor(%s) returned an error: %v", address, err)
		}
	}

	u, _ := parseForTest("ftp://h:5")
	if _, err := tr.transportFor("ftp://h:5", u); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("Expected unsupported scheme error, got %v", err)
	}
}

func TestTransport_ForgetDropsCachedTransport(t *testing.T) {
	tr := NewTransport(func(string) (string, bool) { return "", true }, time.Second)
	u, _ := parseForTest("http://h:1")
	first, _ := tr.transportFor("http://h:1", u)

	tr.Forget("http://h:1")
	tr.Forget("http://h:1")

	second, _ := tr.transportFor("http://h:1", u)
	if first == second {
		t.Error("Expected a new transport after Forget")
	}
}

func parseForTest(address string) (*url.URL, error) {
	return url.Parse(address)
}

func TestTransport_EvictedProxyIsNotCached(t *testing.T) {
	pooled := map[string]bool{"http://h:1": true}
	tr := NewTransport(func(a string) (string, bool) { return "", pooled[a] }, time.Second)
	u, _ := parseForTest("http://h:1")

	if _, err := tr.transportFor("http://h:1", u); err != nil {
		t.Fatal(err)
	}
	delete(pooled, "http://h:1")
	tr.Forget("http://h:1")

	// A request dispatched before the eviction still gets a transport.
	late, err := tr.transportFor("http://h:1", u)
	if err != nil {
		t.Fatalf("transportFor() returned an error: %v", err)
	}
	if !late.DisableKeepAlives {
		t.Error("Expected a one-off transport for an evicted proxy")
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if _, ok := tr.transports["http://h:1"]; ok {
		t.Error("Evicted proxy must not be cached again")
	}
}
