package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	statscommand "github.com/xtls/xray-core/app/stats/command"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/najahiiii/lunetctl/internal/model"
)

// Client queries xray's stats service directly, bypassing the panel.
type Client struct {
	addr    string
	timeout time.Duration
	log     *slog.Logger
}

func New(addr string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{addr: addr, timeout: timeout, log: log}
}

func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) dial() (*grpc.ClientConn, error) {
	if c.addr == "" {
		return nil, fmt.Errorf("xray api address is empty")
	}
	conn, err := grpc.NewClient(c.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	conn.Connect()
	return conn, nil
}

func (c *Client) SysStats(ctx context.Context) (*model.XraySysStats, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := statscommand.NewStatsServiceClient(conn).GetSysStats(ctx, &statscommand.SysStatsRequest{})
	if err != nil {
		return nil, fmt.Errorf("sys stats: %w", err)
	}
	return &model.XraySysStats{
		NumGoroutine: resp.GetNumGoroutine(),
		NumGC:        resp.GetNumGC(),
		Alloc:        resp.GetAlloc(),
		TotalAlloc:   resp.GetTotalAlloc(),
		Sys:          resp.GetSys(),
		Mallocs:      resp.GetMallocs(),
		Frees:        resp.GetFrees(),
		LiveObjects:  resp.GetLiveObjects(),
		PauseTotalNs: resp.GetPauseTotalNs(),
		Uptime:       resp.GetUptime(),
	}, nil
}

// InboundTraffic reads the uplink/downlink counters of one inbound tag.
// Counters are never reset from here; the panel owns resets.
func (c *Client) InboundTraffic(ctx context.Context, tag string) (*model.InboundTraffic, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	client := statscommand.NewStatsServiceClient(conn)
	up, err := c.querySingle(ctx, client, fmt.Sprintf("inbound>>>%s>>>traffic>>>uplink", tag))
	if err != nil {
		return nil, err
	}
	down, err := c.querySingle(ctx, client, fmt.Sprintf("inbound>>>%s>>>traffic>>>downlink", tag))
	if err != nil {
		return nil, err
	}
	return &model.InboundTraffic{Tag: tag, Uplink: up, Downlink: down}, nil
}

func (c *Client) querySingle(ctx context.Context, client statscommand.StatsServiceClient, name string) (int64, error) {
	resp, err := client.QueryStats(ctx, &statscommand.QueryStatsRequest{Pattern: name})
	if err != nil {
		return 0, fmt.Errorf("stats query %s: %w", name, err)
	}
	for _, stat := range resp.GetStat() {
		if stat.GetName() == name {
			return stat.GetValue(), nil
		}
	}
	c.log.Debug("stat not reported", "name", name)
	return 0, nil
}
