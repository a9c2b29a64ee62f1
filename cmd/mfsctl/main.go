// Command mfsctl runs long file name redirector requests against host
// directories described by a YAML configuration file.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soypat/mfs"
	"github.com/soypat/mfs/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	drives   []string
	stats    bool

	redir    *mfs.Redirector
	registry *prometheus.Registry
)

var rootCmd = &cobra.Command{
	Use:   "mfsctl",
	Short: "Resolve and manipulate DOS paths on redirected host directories",
	Long: `mfsctl maps DOS drive letters onto host directories and carries out
long file name requests on them: truename resolution, directory searches,
short name generation and the basic directory and attribute operations.

Drives come from the --config file or from --drive LETTER=DIR flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stats {
			printStats(cmd)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML configuration file")
	pf.StringVar(&logLevel, "log-level", "", "log level overriding the configuration (debug, info, warn, error)")
	pf.StringArrayVar(&drives, "drive", nil, "mount a drive as LETTER=DIR, may be repeated")
	pf.BoolVar(&stats, "stats", false, "print request counters on exit")

	rootCmd.AddCommand(truenameCmd, dirCmd, shortnameCmd, delCmd, renCmd,
		mdCmd, rdCmd, attrCmd, cdCmd, volCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("mfsctl:", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
	}
	for _, d := range drives {
		letter, root, ok := strings.Cut(d, "=")
		if !ok {
			return errors.Errorf("invalid --drive %q, want LETTER=DIR", d)
		}
		cfg.Drives = append(cfg.Drives, config.Drive{Letter: letter, Root: root})
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, _ := cfg.SlogLevel()
	loc, _ := cfg.Location()
	dm, err := cfg.DriveMap()
	if err != nil {
		return err
	}
	codec, err := mfs.NewCodec(cfg.CodePage)
	if err != nil {
		return err
	}
	registry = prometheus.NewRegistry()
	redir, err = mfs.New(mfs.Config{
		Drives:   dm,
		Host:     mfs.NewOSHost(codec),
		Gate:     mfs.AccessGate{},
		CodePage: cfg.CodePage,
		Location: loc,
		Logger:   slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})),
		Metrics:  mfs.NewMetrics(registry),
	})
	return err
}

func printStats(cmd *cobra.Command) {
	families, err := registry.Gather()
	if err != nil {
		return
	}
	out := cmd.ErrOrStderr()
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			fmt.Fprintf(out, "%s{%s} %g\n", fam.GetName(), strings.Join(labels, ","), value)
		}
	}
}
