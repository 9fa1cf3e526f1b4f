package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/workloop/internal/spool"
	"github.com/psantana5/workloop/pkg/clock"
	"github.com/psantana5/workloop/pkg/logging"
	"github.com/psantana5/workloop/pkg/loop"
	"github.com/psantana5/workloop/pkg/memguard"
	"github.com/psantana5/workloop/pkg/metrics"
	"github.com/psantana5/workloop/pkg/signals"
)

// exitCode is the loop's result, picked up by main after Execute.
var exitCode int

// ExitCode returns the exit code computed by the last run command
func ExitCode() int {
	return exitCode
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the worker loop over the spool directory",
	Long: `Run processes spooled job files with the configured command.

In batch mode (the default) the loop exits as soon as the spool is empty
or the job limit is reached. With --worker it polls forever, sleeping
--sleep seconds between empty polls, until SIGHUP, SIGINT or SIGTERM is
received; the signal is honored at the next iteration boundary so an
in-flight job is never interrupted.

Exit codes: 0 on a clean stop, 100 when the memory ceiling is crossed in
batch mode, 128+N when stopped by signal N.`,
	RunE: runLoop,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntP("limit", "l", 0, "maximum jobs to process (0 = unbounded)")
	runCmd.Flags().BoolP("worker", "w", false, "worker mode: poll forever, sleep on empty spool")
	runCmd.Flags().IntP("sleep", "s", 10, "seconds to sleep between empty polls in worker mode")
	runCmd.Flags().String("memory-limit", "", "memory ceiling, bytes or k/m/g/t suffix (empty = none)")
	runCmd.Flags().String("spool-dir", "./spool", "directory with job files")
	runCmd.Flags().String("command", "", "command to run per job file (file path appended)")
	runCmd.Flags().String("metrics-listen", "", "address for the Prometheus endpoint (empty = disabled)")

	viper.BindPFlag("limit", runCmd.Flags().Lookup("limit"))
	viper.BindPFlag("worker", runCmd.Flags().Lookup("worker"))
	viper.BindPFlag("sleep", runCmd.Flags().Lookup("sleep"))
	viper.BindPFlag("memory_limit", runCmd.Flags().Lookup("memory-limit"))
	viper.BindPFlag("spool_dir", runCmd.Flags().Lookup("spool-dir"))
	viper.BindPFlag("command", runCmd.Flags().Lookup("command"))
	viper.BindPFlag("metrics_listen", runCmd.Flags().Lookup("metrics-listen"))
}

func runLoop(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger(logging.ParseLevel(viper.GetString("log_level")), viper.GetBool("log_json"))

	command := strings.Fields(viper.GetString("command"))
	if len(command) == 0 {
		return fmt.Errorf("no job command configured; set --command or the config file's command key")
	}

	memLimit, err := memguard.ParseByteSize(viper.GetString("memory_limit"))
	if err != nil {
		return fmt.Errorf("invalid --memory-limit: %w", err)
	}

	proc, err := spool.New(viper.GetString("spool_dir"), command, log)
	if err != nil {
		return err
	}

	cfg := loop.Config{
		Limit:  viper.GetInt("limit"),
		Sleep:  time.Duration(viper.GetInt("sleep")) * time.Second,
		Worker: viper.GetBool("worker"),
	}

	notifier := signals.NewNotifier()
	defer notifier.Stop()

	collector := metrics.NewCollector(nil)
	collector.SetMemoryLimit(memLimit)

	if addr := viper.GetString("metrics_listen"); addr != "" {
		srv := metrics.Serve(addr, collector, log)
		defer srv.Close()
	}

	log.Info("starting worker loop", logging.Fields{
		"worker_mode":  cfg.Worker,
		"limit":        cfg.Limit,
		"sleep":        cfg.Sleep.String(),
		"memory_limit": memLimit,
		"spool_dir":    viper.GetString("spool_dir"),
	})

	l := loop.New(cfg, proc, log,
		loop.WithSignals(notifier),
		loop.WithMemoryChecker(memguard.New(memLimit, log)),
		loop.WithClock(clock.NewSystem()),
		loop.WithObserver(collector),
	)

	code, err := l.Run(cmd.Context())
	if err != nil {
		// Unrecoverable job failure: propagate unchanged, the host
		// turns it into an abnormal exit.
		return err
	}
	exitCode = code
	return nil
}
