package inspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// Docker reads running containers and their published ports via the daemon
// API. Construction succeeds even without a daemon; Containers reports the
// connection failure so the check can degrade gracefully.
type Docker struct {
	cli *client.Client
}

func NewDocker() (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Docker{cli: cli}, nil
}

func (d *Docker) Containers(ctx context.Context) ([]domain.ContainerInfo, error) {
	list, err := d.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	out := make([]domain.ContainerInfo, 0, len(list))
	for _, ct := range list {
		info := domain.ContainerInfo{Name: containerName(ct.Names)}
		for _, port := range ct.Ports {
			if port.PublicPort == 0 {
				continue // not published to the host
			}
			info.Ports = append(info.Ports, domain.ContainerPort{
				HostIP:        port.IP,
				HostPort:      int(port.PublicPort),
				ContainerPort: int(port.PrivatePort),
			})
		}
		out = append(out, info)
	}
	return out, nil
}

func containerName(names []string) string {
	if len(names) == 0 {
		return "unknown"
	}
	return strings.TrimPrefix(names[0], "/")
}
