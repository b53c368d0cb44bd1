package main

import (
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/webkit-content-blocker/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what the subcommands share once the config is loaded
type app struct {
	cfgFile string
	cfg     models.Config
	log     *zap.Logger
}

// flagBindings maps config keys to the command flags that override them
var flagBindings = map[string]string{
	"output.max_rules_per_file":  "max-rules",
	"convert.selectors_per_rule": "selectors-per-rule",
	"convert.deduplicate":        "dedupe",
	"log.level":                  "log-level",
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "wkbl",
		Short: "Build WebKit content blocker rule lists",
		Long: `A tool that builds Safari/WebKitGTK content blocker JSON, either from
uBlock Origin filter lists read on stdin or from rules given on the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./configs/wkbl.toml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.newConvertCmd(),
		a.newCheckCmd(),
		a.newRuleCmd(),
		a.newHideCmd(),
	)

	return root
}

// loadConfig reads the optional config file, applies flag overrides,
// validates the result and builds the logger
func (a *app) loadConfig(cmd *cobra.Command) (err error) {
	defer func() { err = errors.Annotate(err, "loading config: %w") }()

	v := viper.New()
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName("wkbl")
		v.SetConfigType("toml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetDefault("output.max_rules_per_file", 50000)
	v.SetDefault("convert.selectors_per_rule", 1)
	v.SetDefault("convert.deduplicate", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "dev")

	for key, name := range flagBindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err = v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}

	if err = v.Unmarshal(&a.cfg); err != nil {
		return err
	}

	if err = a.cfg.Validate(); err != nil {
		return err
	}

	l, err := newLogger(a.cfg.Log)
	if err != nil {
		return err
	}
	a.log = l

	return nil
}
