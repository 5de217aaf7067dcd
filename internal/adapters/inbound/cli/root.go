package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vpsguard/vpsguard/internal/adapters/outbound/config"
	"github.com/vpsguard/vpsguard/internal/adapters/outbound/inspect"
	"github.com/vpsguard/vpsguard/internal/adapters/outbound/lock"
	"github.com/vpsguard/vpsguard/internal/adapters/outbound/notify"
	"github.com/vpsguard/vpsguard/internal/adapters/outbound/runlog"
	"github.com/vpsguard/vpsguard/internal/adapters/outbound/state"
	"github.com/vpsguard/vpsguard/internal/adapters/outbound/tui"
	"github.com/vpsguard/vpsguard/internal/application"
	"github.com/vpsguard/vpsguard/internal/domain"
	"github.com/vpsguard/vpsguard/internal/domain/checks"
	"github.com/vpsguard/vpsguard/internal/domain/remedy"
)

var (
	version = "dev"
	commit  = "none"
)

// exitError carries the process exit code through cobra's error return.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		secretsPath string
		testSlack   bool
		dryRun      bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "vpsguard",
		Short: "Periodic security scanner for small VPS deployments",
		Long: "vpsguard checks firewall state, exposed database ports, SSH hardening,\n" +
			"failed logins, suspicious processes, file permissions, pending updates\n" +
			"and TLS expiry, fixes the safe subset automatically, and reports changes\n" +
			"to Slack. Designed to run from cron or a systemd timer.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, configPath, secretsPath, testSlack, dryRun, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "/etc/vpsguard/config.yaml", "Configuration file")
	cmd.Flags().StringVar(&secretsPath, "secrets", "/etc/vpsguard/secrets.env", "KEY=value secrets file")
	cmd.Flags().BoolVar(&testSlack, "test-slack", false, "Send a test notification and exit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what remediation would do without applying it")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the per-check report to stdout")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the CLI and returns the process exit code: 0 clean, 1
// warnings, 2 critical findings, 3 configuration failure, 4 skipped because
// another run holds the lock.
func Execute() int {
	err := newRootCmd().Execute()
	if err == nil {
		return domain.ExitOK
	}

	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return domain.ExitConfig
}

func runScan(cmd *cobra.Command, configPath, secretsPath string, testSlack, dryRun, verbose bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.NewLoader(configPath).WithSecrets(secretsPath).Load()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return exitError{domain.ExitConfig}
	}

	notifier := notify.NewSlackNotifier(cfg.Notify.Targets)
	if testSlack {
		if err := notifier.SendTest(ctx); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Test notification failed:", err)
			return exitError{domain.ExitWarnings}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent.")
		return nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	runner := inspect.OSRunner{}
	ufw := inspect.NewUFW(runner, cfg.SSH.Port)

	ins := checks.Inspectors{
		Firewall:   ufw,
		Processes:  inspect.NewProcesses(),
		Sockets:    inspect.NewSockets(),
		Containers: newContainerInspector(),
		Compose:    inspect.NewCompose(),
		Certs:      inspect.NewCerts(),
		SSH:        inspect.NewSSHDConfig(cfg.SSH.ConfigPath),
		AuthLog:    inspect.NewAuthLog(cfg.Logins.AuthLog, runner),
		Packages:   inspect.NewApt(runner),
	}

	engine := remedy.NewEngine(cfg.Remediation, ufw, remedy.NewJournal(cfg.Remediation.JournalDir))
	if dryRun {
		engine = engine.DryRun()
	}

	svc := application.NewScanService(cfg, application.Deps{
		Checks:   checks.All(cfg, ins),
		Engine:   engine,
		Notifier: notifier,
		State:    state.New(cfg.Run.StateFile),
		Locker:   lock.New(cfg.Run.LockFile),
		Logger:   runlog.New(cfg.Run.LogFile),
		Hostname: hostname,
		DryRun:   dryRun,
	})

	result, _, err := svc.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Skipped:", err)
			return exitError{domain.ExitSkipped}
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return exitError{domain.ExitConfig}
	}

	if verbose || dryRun {
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderResult(result, hostname))
	}

	if code := result.ExitCode(); code != domain.ExitOK {
		return exitError{code}
	}
	return nil
}

// newContainerInspector degrades to an erroring inspector when the docker
// client cannot even be constructed; the port check treats that the same as
// an unreachable daemon.
func newContainerInspector() domain.ContainerInspector {
	docker, err := inspect.NewDocker()
	if err != nil {
		return unavailableContainers{err: err}
	}
	return docker
}

type unavailableContainers struct {
	err error
}

func (u unavailableContainers) Containers(context.Context) ([]domain.ContainerInfo, error) {
	return nil, u.err
}
