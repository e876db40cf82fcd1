package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mit.edu/dsg/physopt/catalog"
)

// NewTablesCommand creates the tables command, which lists the catalog.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "tables",
		Short:        "List the tables of the catalog",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.CatalogDir == "" {
				return fmt.Errorf("--catalog is required")
			}
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			o, err := newOptimizer(rootOpts, cfg)
			if err != nil {
				return err
			}
			defer syncLogger(o.Logger)

			tables := o.Catalog.ListTables()
			w := cmd.OutOrStdout()
			if rootOpts.Format == "yaml" {
				out, err := yaml.Marshal(tables)
				if err != nil {
					return err
				}
				_, err = w.Write(out)
				return err
			}
			for _, t := range tables {
				fmt.Fprintln(w, describeTable(t))
			}
			return nil
		},
	}
}

func describeTable(t *catalog.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) %s, %d partitions", t.Name, strings.Join(t.Columns.Names(), ", "), t.Layout.Format, t.Layout.Partitions)
	if len(t.Layout.SortOrder) > 0 {
		keys := make([]string, len(t.Layout.SortOrder))
		for i, sc := range t.Layout.SortOrder {
			keys[i] = sc.Name
			if sc.Descending {
				keys[i] += " DESC"
			}
			if sc.NullsLast {
				keys[i] += " NULLS LAST"
			}
		}
		fmt.Fprintf(&b, ", sorted by %s", strings.Join(keys, ", "))
	}
	if t.Layout.Unbounded {
		b.WriteString(", unbounded")
	}
	return b.String()
}
