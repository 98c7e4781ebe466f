package docker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aelpxy/dockup/internal/runtime"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/tlsconfig"
)

type Client struct {
	cli         *client.Client
	runtimeInfo *runtime.RuntimeInfo
}

func NewClient(cfg models.RuntimeConfig) (*Client, error) {
	runtimeInfo, err := runtime.DetectRuntime(cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect container runtime: %w\nplease install docker or podman", err)
	}

	if err := runtimeInfo.EnsureSocketExists(); err != nil {
		return nil, err
	}

	opts := []client.Opt{
		client.FromEnv,
		client.WithHost(runtimeInfo.Host),
		client.WithAPIVersionNegotiation(),
	}

	if cfg.TLSCA != "" || cfg.TLSCert != "" {
		tlsConfig, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:   cfg.TLSCA,
			CertFile: cfg.TLSCert,
			KeyFile:  cfg.TLSKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load runtime tls material: %w", err)
		}
		opts = append(opts, client.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		}))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create container runtime client: %w", err)
	}

	return &Client{
		cli:         cli,
		runtimeInfo: runtimeInfo,
	}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) GetClient() *client.Client {
	return c.cli
}

func (c *Client) GetRuntimeInfo() *runtime.RuntimeInfo {
	return c.runtimeInfo
}

// ServerVersion pings the daemon and reports its version.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ContainerOpTimeout)
	defer cancel()

	version, err := c.cli.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to reach container runtime: %w", err)
	}
	return version.Version, nil
}
