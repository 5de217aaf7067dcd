package inspect

import (
	"context"

	gopsnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// Sockets lists listening TCP sockets via gopsutil.
type Sockets struct{}

func NewSockets() *Sockets {
	return &Sockets{}
}

func (s *Sockets) ListeningSockets(ctx context.Context) ([]domain.ListeningSocket, error) {
	conns, err := gopsnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, err
	}

	var out []domain.ListeningSocket
	for _, conn := range conns {
		if conn.Status != "LISTEN" {
			continue
		}
		sock := domain.ListeningSocket{
			Address: conn.Laddr.IP,
			Port:    int(conn.Laddr.Port),
			PID:     conn.Pid,
		}
		if conn.Pid > 0 {
			if proc, err := process.NewProcessWithContext(ctx, conn.Pid); err == nil {
				if name, err := proc.NameWithContext(ctx); err == nil {
					sock.Process = name
				}
			}
		}
		out = append(out, sock)
	}
	return out, nil
}
