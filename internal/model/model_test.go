package model

import (
	"encoding/json"
	"testing"
)

func TestLiveSampleAvailability(t *testing.T) {
	tests := []struct {
		body        string
		wantInbound bool
		wantUsers   bool
	}{
		{`{"ts":1}`, true, true},
		{`{"ts":1,"stats_available":false}`, false, false},
		{`{"ts":1,"stats_available":false,"users_stats_available":true}`, false, true},
		{`{"ts":1,"inbound_stats_available":true,"users_stats_available":false}`, true, false},
	}
	for _, tt := range tests {
		var s LiveSample
		if err := json.Unmarshal([]byte(tt.body), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.body, err)
		}
		if s.InboundAvailable() != tt.wantInbound || s.UsersAvailable() != tt.wantUsers {
			t.Fatalf("%s: inbound=%v users=%v", tt.body, s.InboundAvailable(), s.UsersAvailable())
		}
	}
}

func TestXrayConfigKeepsRawDocument(t *testing.T) {
	body := `{"path":"/etc/xray/config.json","config":{"b":1,"a":12345678901234567890},"error":null}`
	var c XrayConfig
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(c.Config) != `{"b":1,"a":12345678901234567890}` {
		t.Fatalf("config altered: %s", c.Config)
	}
}
