// Package main implements regionipc, a small operator tool that drives the
// client facade against a real or test region endpoint: sending single
// calls, fanning calls out in parallel, and standing up the in-repo test
// server for manual poking.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yuoguoxianseng/hbase/client"
	"github.com/yuoguoxianseng/hbase/internal/logging"
)

const envPrefix = "regionipc"

var rootCmd = &cobra.Command{
	Use:   "regionipc",
	Short: "operator tool for the region IPC client",
	Long: `regionipc drives the multiplexed region-server IPC client from the
command line: single calls, parallel fan-out calls, and a throwaway test
server to point them at. Flags can also be set via REGIONIPC_<FLAG> env
vars (e.g. REGIONIPC_LOG_LEVEL=debug).`,
	PersistentPreRunE: bindFlags,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Duration("max-idle-time", 10*time.Second, "idle eviction window for pooled connections")
	rootCmd.PersistentFlags().Int("max-retries", 10, "non-timeout connect retry cap")
	rootCmd.PersistentFlags().Bool("tcp-no-delay", false, "disable Nagle's algorithm on client sockets")
	rootCmd.PersistentFlags().Duration("ping-interval", 60*time.Second, "read-timeout / heartbeat cadence")
	rootCmd.PersistentFlags().Bool("stats", false, "print client call metrics to stderr after the command completes")

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(callManyCmd)
	rootCmd.AddCommand(serveTestCmd)
}

// initConfig loads an optional .env file and wires viper to read
// REGIONIPC_-prefixed environment variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	logging.Init(viper.GetString("log-level"))
	return nil
}

// maybePrintStats writes the client's metrics to stderr when --stats is
// set. Callers defer it after deferring Stop, so it runs while the client
// is still registered.
func maybePrintStats(c *client.Client) {
	if !viper.GetBool("stats") {
		return
	}
	m := c.Metrics()
	fmt.Fprintln(os.Stderr)
	m.WritePrometheus(os.Stderr)
	snap := m.LatencySnapshot()
	fmt.Fprintf(os.Stderr, "call latency: count=%d mean=%v p99=%v\n",
		snap.Count(), time.Duration(snap.Mean()), time.Duration(snap.Percentile(0.99)))
}

func clientConfigFromFlags() client.Config {
	cfg := client.DefaultConfig()
	cfg.MaxIdleTime = viper.GetDuration("max-idle-time")
	cfg.MaxRetries = viper.GetInt("max-retries")
	cfg.TCPNoDelay = viper.GetBool("tcp-no-delay")
	cfg.PingInterval = viper.GetDuration("ping-interval")
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
