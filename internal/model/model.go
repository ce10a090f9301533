package model

import (
	"encoding/json"
	"time"
)

// User is one client row of the dashboard.
type User struct {
	UserID          int64  `json:"user_id"`
	Email           string `json:"email"`
	UUID            string `json:"uuid"`
	URI             string `json:"uri"`
	Uplink          int64  `json:"uplink"`
	Downlink        int64  `json:"downlink"`
	Total           int64  `json:"total"`
	StatsAvailable  bool   `json:"stats_available"`
	Online          bool   `json:"online"`
	OnlineSupported bool   `json:"online_supported"`
}

type Summary struct {
	ActiveKeys           int     `json:"active_keys"`
	OnlineNow            int     `json:"online_now"`
	OfflineNow           int     `json:"offline_now"`
	OnlineSupportedUsers int     `json:"online_supported_users"`
	OnlineRatioPercent   float64 `json:"online_ratio_percent"`
	InboundTotal         int64   `json:"inbound_total"`
	UsersTotal           int64   `json:"users_total"`
	AvgUserTotal         int64   `json:"avg_user_total"`
}

type ServerLoad struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
}

type Dashboard struct {
	Nick           string      `json:"nick"`
	ServerID       json.Number `json:"server_id,omitempty"`
	StatsAvailable bool        `json:"stats_available"`
	Server         ServerLoad  `json:"server"`
	Summary        Summary     `json:"summary"`
	Users          []User      `json:"users"`
	TopUsers       []User      `json:"top_users"`
}

// LiveSample is one /api/graphs/live reading. The per-counter availability
// flags are pointers so an older backend that only reports stats_available
// can be told apart from one reporting false.
type LiveSample struct {
	TS                    int64   `json:"ts"`
	CPUPercent            float64 `json:"cpu_percent"`
	MemPercent            float64 `json:"mem_percent"`
	ActiveKeys            int     `json:"active_keys"`
	OnlineNow             int     `json:"online_now"`
	InboundTotal          int64   `json:"inbound_total"`
	UsersTotal            int64   `json:"users_total"`
	StatsAvailable        *bool   `json:"stats_available,omitempty"`
	InboundStatsAvailable *bool   `json:"inbound_stats_available,omitempty"`
	UsersStatsAvailable   *bool   `json:"users_stats_available,omitempty"`
}

func (s LiveSample) InboundAvailable() bool {
	return availability(s.InboundStatsAvailable, s.StatsAvailable)
}

func (s LiveSample) UsersAvailable() bool {
	return availability(s.UsersStatsAvailable, s.StatsAvailable)
}

func availability(specific, combined *bool) bool {
	if specific != nil {
		return *specific
	}
	if combined != nil {
		return *combined
	}
	return true
}

type ConfigSummary struct {
	InboundsCount     int    `json:"inbounds_count"`
	OutboundsCount    int    `json:"outbounds_count"`
	RoutingRulesCount int    `json:"routing_rules_count"`
	APIEnabled        bool   `json:"api_enabled"`
	LogLevel          string `json:"loglevel"`
	FirstInboundTag   string `json:"first_inbound_tag"`
}

type XrayKeys struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	ShortID    string `json:"short_id"`
}

type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Auth        string `json:"auth"`
	Description string `json:"description"`
}

// XraySettings is served by both /api/xray/settings and /api/panel/settings.
type XraySettings struct {
	TS                  int64         `json:"ts"`
	DBOK                bool          `json:"db_ok"`
	DBError             string        `json:"db_error"`
	StatsAvailable      bool          `json:"stats_available"`
	XrayAddr            string        `json:"xray_addr"`
	InboundTag          string        `json:"inbound_tag"`
	SyncServerID        json.Number   `json:"sync_server_id"`
	ConfigPath          string        `json:"config_path"`
	ConfigError         string        `json:"config_error"`
	ConfigSummary       ConfigSummary `json:"config_summary"`
	Protoset            string        `json:"protoset"`
	ProtoRoot           string        `json:"proto_root"`
	GrpcurlBin          string        `json:"grpcurl_bin"`
	ProtocBin           string        `json:"protoc_bin"`
	DependenciesMissing []string      `json:"dependencies_missing"`
	XrayKeys            XrayKeys      `json:"xray_keys"`
	APIEndpoints        []Endpoint    `json:"api_endpoints"`
}

// XrayConfig is the raw config document; Config stays undecoded so numbers and
// key order survive the round trip.
type XrayConfig struct {
	Path    string          `json:"path"`
	Config  json.RawMessage `json:"config"`
	Error   string          `json:"error"`
	Summary ConfigSummary   `json:"summary"`
}

type CreateKeyRequest struct {
	UserID int64 `json:"user_id"`
	Level  int   `json:"level"`
}

type CreateKeyResponse struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	UUID   string `json:"uuid"`
	Email  string `json:"email"`
	URI    string `json:"uri"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

type RestartResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

type ResyncResult struct {
	OK     bool              `json:"ok"`
	Synced int               `json:"synced"`
	Failed []json.RawMessage `json:"failed"`
}

// SaveConfigResult is the reply to a config PUT.
type SaveConfigResult struct {
	OK      bool          `json:"ok"`
	Path    string        `json:"path"`
	Summary ConfigSummary `json:"summary"`
}

type LoginRequest struct {
	Nick     string `json:"nick"`
	Password string `json:"password"`
}

type ResetScope string

const (
	ResetAll     ResetScope = "all"
	ResetInbound ResetScope = "inbound"
	ResetUsers   ResetScope = "users"
)

type ResetRequest struct {
	Scope ResetScope `json:"scope"`
}

// TrafficReset reports the counters zeroed for one side.
type TrafficReset struct {
	OK            bool  `json:"ok"`
	Available     bool  `json:"available"`
	ResetUplink   int64 `json:"reset_uplink"`
	ResetDownlink int64 `json:"reset_downlink"`
	ResetTotal    int64 `json:"reset_total"`
}

type ResetResult struct {
	OK      bool         `json:"ok"`
	Scope   ResetScope   `json:"scope"`
	Inbound TrafficReset `json:"inbound"`
	Users   TrafficReset `json:"users"`
}

type UsersResetResult struct {
	OK    bool         `json:"ok"`
	Users TrafficReset `json:"users"`
}

// XraySysStats is the runtime snapshot reported by xray's stats service.
type XraySysStats struct {
	NumGoroutine uint32 `json:"num_goroutine"`
	NumGC        uint32 `json:"num_gc"`
	Alloc        uint64 `json:"alloc"`
	TotalAlloc   uint64 `json:"total_alloc"`
	Sys          uint64 `json:"sys"`
	Mallocs      uint64 `json:"mallocs"`
	Frees        uint64 `json:"frees"`
	LiveObjects  uint64 `json:"live_objects"`
	PauseTotalNs uint64 `json:"pause_total_ns"`
	Uptime       uint32 `json:"uptime"`
}

type InboundTraffic struct {
	Tag      string `json:"tag"`
	Uplink   int64  `json:"uplink"`
	Downlink int64  `json:"downlink"`
}

// HostSample is a local host reading. Nil fields could not be sampled.
type HostSample struct {
	SampledAt         time.Time `json:"sampled_at"`
	CPUPercent        *float64  `json:"cpu_percent,omitempty"`
	MemoryPercent     *float64  `json:"memory_percent,omitempty"`
	Load1             *float64  `json:"load1,omitempty"`
	Load5             *float64  `json:"load5,omitempty"`
	Load15            *float64  `json:"load15,omitempty"`
	BandwidthDownMbps *float64  `json:"bandwidth_down_mbps,omitempty"`
	BandwidthUpMbps   *float64  `json:"bandwidth_up_mbps,omitempty"`
}
