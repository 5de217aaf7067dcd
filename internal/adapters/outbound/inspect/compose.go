package inspect

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// Compose parses docker-compose files for database ports published to all
// interfaces. Both the short "host:container" string syntax and the long
// mapping syntax are understood.
type Compose struct{}

func NewCompose() *Compose {
	return &Compose{}
}

type composeFile struct {
	Services map[string]struct {
		Ports []yaml.Node `yaml:"ports"`
	} `yaml:"services"`
}

func (c *Compose) ExposedPorts(path string, dangerous []int) ([]domain.ComposeExposure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file composeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	dangerSet := make(map[int]bool, len(dangerous))
	for _, p := range dangerous {
		dangerSet[p] = true
	}

	var out []domain.ComposeExposure
	for service, spec := range file.Services {
		for i := range spec.Ports {
			mapping, ok := parsePortMapping(&spec.Ports[i])
			if !ok || !mapping.public {
				continue
			}
			if dangerSet[mapping.container] {
				out = append(out, domain.ComposeExposure{
					Service:       service,
					HostPort:      mapping.host,
					ContainerPort: mapping.container,
				})
			}
		}
	}
	return out, nil
}

type portMapping struct {
	host      int
	container int
	public    bool
}

// flexInt accepts both `published: 5432` and `published: "5432"`, which
// compose files use interchangeably.
type flexInt int

func (f *flexInt) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid published port %q", s)
	}
	*f = flexInt(n)
	return nil
}

// parsePortMapping handles both compose syntaxes:
//
//	"5432:5432"            published on 0.0.0.0
//	"127.0.0.1:5433:5432"  bound to localhost
//	"5432"                 container-only, never published
//	{target: 5432, published: 5432, host_ip: ...}
func parsePortMapping(node *yaml.Node) (portMapping, bool) {
	var long struct {
		Target    int     `yaml:"target"`
		Published flexInt `yaml:"published"`
		HostIP    string  `yaml:"host_ip"`
	}
	if err := node.Decode(&long); err == nil && long.Target != 0 {
		m := portMapping{container: long.Target}
		if long.Published == 0 {
			return m, true // target only, not published
		}
		m.host = int(long.Published)
		m.public = long.HostIP == "" || long.HostIP == "0.0.0.0" || long.HostIP == "::"
		return m, true
	}

	var short string
	if err := node.Decode(&short); err != nil {
		return portMapping{}, false
	}

	parts := strings.Split(short, ":")
	switch len(parts) {
	case 1:
		// Container port only: reachable on the compose network, not the host.
		container, err := strconv.Atoi(strings.TrimSuffix(parts[0], "/tcp"))
		if err != nil {
			return portMapping{}, false
		}
		return portMapping{container: container}, true
	case 2:
		host, err1 := strconv.Atoi(parts[0])
		container, err2 := strconv.Atoi(strings.TrimSuffix(parts[1], "/tcp"))
		if err1 != nil || err2 != nil {
			return portMapping{}, false
		}
		return portMapping{host: host, container: container, public: true}, true
	case 3:
		host, err1 := strconv.Atoi(parts[1])
		container, err2 := strconv.Atoi(strings.TrimSuffix(parts[2], "/tcp"))
		if err1 != nil || err2 != nil {
			return portMapping{}, false
		}
		ip := parts[0]
		return portMapping{
			host:      host,
			container: container,
			public:    ip == "0.0.0.0" || ip == "::",
		}, true
	default:
		return portMapping{}, false
	}
}
