package model

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"every_request", EveryRequest},
		{"every-request", EveryRequest},
		{"EveryRequest", EveryRequest},
		{"0", EveryRequest},
		{"once", Once},
		{"  ONCE  ", Once},
		{"1", Once},
		{"custom", Custom},
		{"Custom", Custom},
		{" 2\n", Custom},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Errorf("ParseMode(%q) returned an error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}

	for _, bad := range []string{"", "3", "random", "every request"} {
		if _, err := ParseMode(bad); err == nil {
			t.Errorf("ParseMode(%q): expected an error", bad)
		}
	}
}

func TestMode_UsesList(t *testing.T) {
	if !EveryRequest.UsesList() || !Once.UsesList() {
		t.Error("Expected list modes to use the proxy list")
	}
	if Custom.UsesList() || Mode(7).UsesList() {
		t.Error("Expected custom and unknown modes not to use the proxy list")
	}
}

func TestMode_String(t *testing.T) {
	if Once.String() != "once" || Mode(7).String() != "mode(7)" {
		t.Errorf("Unexpected names: %s, %s", Once, Mode(7))
	}
}
