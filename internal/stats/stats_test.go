package stats

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	statscommand "github.com/xtls/xray-core/app/stats/command"
	"google.golang.org/grpc"

	"github.com/najahiiii/lunetctl/internal/logger"
)

type fakeStatsServer struct {
	statscommand.UnimplementedStatsServiceServer
	values map[string]int64
}

func (f *fakeStatsServer) QueryStats(ctx context.Context, req *statscommand.QueryStatsRequest) (*statscommand.QueryStatsResponse, error) {
	resp := &statscommand.QueryStatsResponse{}
	for name, v := range f.values {
		if strings.Contains(name, req.GetPattern()) {
			resp.Stat = append(resp.Stat, &statscommand.Stat{Name: name, Value: v})
		}
	}
	return resp, nil
}

func (f *fakeStatsServer) GetSysStats(ctx context.Context, req *statscommand.SysStatsRequest) (*statscommand.SysStatsResponse, error) {
	return &statscommand.SysStatsResponse{NumGoroutine: 42, Alloc: 1 << 20, Uptime: 3600}, nil
}

func startStatsServer(t *testing.T, values map[string]int64) (string, func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer()
	statscommand.RegisterStatsServiceServer(server, &fakeStatsServer{values: values})
	go server.Serve(lis)
	return lis.Addr().String(), func() {
		server.Stop()
		_ = lis.Close()
	}
}

func TestInboundTraffic(t *testing.T) {
	addr, closeFn := startStatsServer(t, map[string]int64{
		"inbound>>>vless-in>>>traffic>>>uplink":   100,
		"inbound>>>vless-in>>>traffic>>>downlink": 200,
		"inbound>>>api>>>traffic>>>uplink":        7,
	})
	defer closeFn()

	c := New(addr, time.Second, logger.Discard())
	got, err := c.InboundTraffic(context.Background(), "vless-in")
	if err != nil {
		t.Fatalf("InboundTraffic: %v", err)
	}
	if got.Tag != "vless-in" || got.Uplink != 100 || got.Downlink != 200 {
		t.Fatalf("traffic = %+v", got)
	}

	missing, err := c.InboundTraffic(context.Background(), "nope")
	if err != nil || missing.Uplink != 0 || missing.Downlink != 0 {
		t.Fatalf("missing tag = %+v, %v", missing, err)
	}
}

func TestSysStats(t *testing.T) {
	addr, closeFn := startStatsServer(t, nil)
	defer closeFn()

	got, err := New(addr, time.Second, logger.Discard()).SysStats(context.Background())
	if err != nil {
		t.Fatalf("SysStats: %v", err)
	}
	if got.NumGoroutine != 42 || got.Alloc != 1<<20 || got.Uptime != 3600 {
		t.Fatalf("sys stats = %+v", got)
	}
}

func TestEmptyAddress(t *testing.T) {
	if _, err := New("", 0, logger.Discard()).SysStats(context.Background()); err == nil {
		t.Fatal("expected error for empty address")
	}
}
