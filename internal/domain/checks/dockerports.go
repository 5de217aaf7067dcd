package checks

import (
	"context"
	"fmt"

	"github.com/vpsguard/vpsguard/internal/domain"
)

const CheckDockerPorts = "docker_ports"

// databasePortNames labels the default ports of the databases we guard.
var databasePortNames = map[int]string{
	5432:  "PostgreSQL",
	3306:  "MySQL",
	6379:  "Redis",
	27017: "MongoDB",
	9200:  "Elasticsearch",
}

// DockerPortsCheck detects database ports reachable from all interfaces,
// whether published by a running container, declared in a project compose
// file, or bound by a bare process. Never auto-fixed: closing the hole means
// editing a compose file.
type DockerPortsCheck struct {
	cfg        domain.Config
	containers domain.ContainerInspector
	sockets    domain.SocketInspector
	compose    domain.ComposeScanner
}

func NewDockerPortsCheck(cfg domain.Config, containers domain.ContainerInspector, sockets domain.SocketInspector, compose domain.ComposeScanner) *DockerPortsCheck {
	return &DockerPortsCheck{cfg: cfg, containers: containers, sockets: sockets, compose: compose}
}

func (c *DockerPortsCheck) ID() string { return CheckDockerPorts }

func (c *DockerPortsCheck) Evaluate(ctx context.Context) []domain.Finding {
	dangerous := make(map[int]bool)
	for _, p := range c.cfg.DangerousPorts() {
		dangerous[p] = true
	}

	var exposed []string
	var exposedPorts []int
	var notes []string

	containers, err := c.containers.Containers(ctx)
	if err != nil {
		// No daemon is a normal state on hosts without Docker; socket
		// inspection below still covers bare processes.
		notes = append(notes, fmt.Sprintf("container inspection unavailable: %v", err))
	}
	for _, ct := range containers {
		for _, pb := range ct.Ports {
			if !dangerous[pb.ContainerPort] {
				continue
			}
			if pb.HostIP == "0.0.0.0" || pb.HostIP == "::" || pb.HostIP == "" {
				exposed = append(exposed, fmt.Sprintf("container %s publishes %s port %d on %s:%d",
					ct.Name, portLabel(pb.ContainerPort), pb.ContainerPort, pb.HostIP, pb.HostPort))
				exposedPorts = append(exposedPorts, pb.ContainerPort)
			}
		}
	}

	if c.compose != nil {
		for _, proj := range c.cfg.Projects {
			if proj.DockerCompose == "" {
				continue
			}
			exposures, err := c.compose.ExposedPorts(proj.DockerCompose, c.cfg.DangerousPorts())
			if err != nil {
				notes = append(notes, fmt.Sprintf("project %s: could not scan %s: %v",
					proj.Name, proj.DockerCompose, err))
				continue
			}
			for _, e := range exposures {
				exposed = append(exposed, fmt.Sprintf("project %s: service %s maps %s port %d in %s",
					proj.Name, e.Service, portLabel(e.ContainerPort), e.ContainerPort, proj.DockerCompose))
				if !seen(exposedPorts, e.ContainerPort) {
					exposedPorts = append(exposedPorts, e.ContainerPort)
				}
			}
		}
	}

	sockets, err := c.sockets.ListeningSockets(ctx)
	if err != nil {
		return []domain.Finding{failSoft(CheckDockerPorts, err)}
	}
	for _, s := range sockets {
		if dangerous[s.Port] && s.WildcardBound() {
			if seen(exposedPorts, s.Port) {
				continue // already attributed to a container
			}
			exposed = append(exposed, fmt.Sprintf("%s port %d listens on all interfaces (pid %d, %s)",
				portLabel(s.Port), s.Port, s.PID, s.Process))
			exposedPorts = append(exposedPorts, s.Port)
		}
	}

	if len(exposedPorts) > 0 {
		details := append(exposed,
			"remove the ports section from database services in docker-compose.yml",
			"databases should only be reachable on the internal network")
		details = append(details, notes...)
		return []domain.Finding{{
			CheckID:  CheckDockerPorts,
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("%d database port(s) exposed to the internet", len(exposedPorts)),
			Details:  details,
			Ports:    exposedPorts,
		}}
	}

	details := append([]string{"no database port is bound to all interfaces"}, notes...)
	return []domain.Finding{ok(CheckDockerPorts,
		"all database ports properly isolated", details...)}
}

func portLabel(port int) string {
	if name, okName := databasePortNames[port]; okName {
		return name
	}
	return "database"
}

func seen(ports []int, p int) bool {
	for _, q := range ports {
		if q == p {
			return true
		}
	}
	return false
}
