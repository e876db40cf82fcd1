// Package cli implements the physopt command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mit.edu/dsg/physopt"
	"mit.edu/dsg/physopt/config"
	"mit.edu/dsg/physopt/logging"
	"mit.edu/dsg/physopt/planner"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	CatalogDir string
	Verbose    bool
	Format     string // "text" | "yaml"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "yaml"}

// NewRootCommand creates the root command for the physopt CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "physopt",
		Short: "physopt - physical plan sort enforcement",
		Long: `Rewrite physical query plans so that every ordering requirement holds
with as few sorts as possible.

Plans are YAML documents. Scans that name a table without listing columns
are resolved against the catalog given with --catalog.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.CatalogDir, "catalog", "", "directory holding catalog.yaml")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every rewrite")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|yaml)")

	cmd.AddCommand(NewOptimizeCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the config file if one was given; --verbose lowers the
// log level to debug.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newOptimizer builds the optimizer the subcommands share.
func newOptimizer(opts *RootOptions, cfg *config.Config) (*physopt.Optimizer, error) {
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	o := physopt.NewOptimizer(nil, cfg, log)
	if opts.CatalogDir != "" {
		cat, err := physopt.OpenCatalog(opts.CatalogDir)
		if err != nil {
			return nil, err
		}
		o.Catalog = cat
	}
	return o, nil
}

// readPlan reads the plan document at path, or standard input for "-".
func readPlan(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		doc, err := io.ReadAll(cmd.InOrStdin())
		return doc, errors.Wrap(err, "reading plan from stdin")
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading plan %s", path)
	}
	return doc, nil
}

func syncLogger(log *zap.Logger) {
	_ = log.Sync()
}

// writePlan prints plan in the selected format.
func writePlan(w io.Writer, format string, plan planner.PlanNode) error {
	out, err := renderPlan(format, plan)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
