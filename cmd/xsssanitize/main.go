// Command xsssanitize strips script-capable markup from HTML files or
// standard input.
package main

import (
	"fmt"
	"os"

	"github.com/njchilds90/xsssanitizer/internal/allowlist"
	"github.com/njchilds90/xsssanitizer/internal/config"
	"github.com/njchilds90/xsssanitizer/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "xsssanitize [files...]",
		Short: "Remove XSS vectors from HTML",
		Long: `xsssanitize removes script-capable elements, event handler attributes and
javascript:/vbscript: URIs from HTML fragments.

With no files, or "-", it reads standard input and writes standard output.
Files are processed concurrently and printed in argument order, or
rewritten in place with --write.

Settings come from --config (YAML), XSSSANITIZE_* environment variables and
flags, in increasing order of precedence.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, logging.Format(cfg.Log.Format))
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runSanitize,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringSlice("remove-elements", nil, "elements to remove (empty keeps all)")
	pf.StringSlice("remove-attributes", nil, `attribute patterns to remove, e.g. "on*,*tle" (empty keeps all)`)
	pf.Bool("keep-inner-html", true, "keep the children of removed elements")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console, json")

	f := root.Flags()
	f.String("allowlist", allowlist.None, fmt.Sprintf("bluemonday pass after sanitising: %v", allowlist.Names()))
	f.IntP("jobs", "j", 4, "files processed concurrently")
	f.BoolP("write", "w", false, "rewrite files in place")
	f.Bool("page", false, "treat input as complete documents rather than fragments")

	root.AddCommand(newPolicyCmd(a))
	return root
}

func newPolicyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective removal policy as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.cfg.Sanitizer(a.logger)
			return config.DumpPolicy(cmd.OutOrStdout(), s.Policy())
		},
	}
}
