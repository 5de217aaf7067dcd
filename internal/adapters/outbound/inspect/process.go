package inspect

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// Processes reads the process table via gopsutil.
type Processes struct{}

func NewProcesses() *Processes {
	return &Processes{}
}

func (p *Processes) Processes(ctx context.Context) ([]domain.ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProcessInfo, 0, len(procs))
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			continue // raced with process exit
		}

		info := domain.ProcessInfo{PID: proc.Pid, Name: name}
		if cmdline, err := proc.CmdlineWithContext(ctx); err == nil {
			info.Cmdline = cmdline
		}
		if user, err := proc.UsernameWithContext(ctx); err == nil {
			info.User = user
		}
		if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = cpu
		}
		out = append(out, info)
	}
	return out, nil
}
