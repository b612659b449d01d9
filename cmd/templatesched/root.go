package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

// rootCmd is the templatesched binary's top-level command, per spec §6's
// "invocable runner". It carries only the persistent --config flag;
// everything else is local to the solve subcommand.
var rootCmd = &cobra.Command{
	Use:   "templatesched",
	Short: "Template-based job-shop scheduling core",
	Long: `templatesched solves parallel-identical-job scheduling problems by
exploiting a template: a single reusable structural description of a job
instantiated N times, generating constraints in O(template_size x instances)
rather than per-instance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.templatesched.yaml)")
	rootCmd.AddCommand(newSolveCmd())
	cobra.OnInitialize(initConfig)
}

// initConfig wires viper per the steveyegge-beads config.go pattern:
// an explicit --config file takes precedence; otherwise viper searches
// $HOME and the working directory, and TEMPLATESCHED_* environment
// variables always override file values.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".templatesched")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("templatesched")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.name", "templatesched")
	viper.SetDefault("db.user", "templatesched")
	viper.SetDefault("db.sslmode", "prefer")

	_ = viper.ReadInConfig() // a missing config file is not an error; defaults and env apply
}

// Execute runs the command tree and returns the process exit code per
// spec §6: 0 OPTIMAL/FEASIBLE, 2 INFEASIBLE, 3 TIME_LIMIT without a
// feasible solution, 4 malformed problem, 1 unexpected internal error.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := exitCodeFor(err); ok {
			fmt.Fprintln(os.Stderr, err)
			return code
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
