// Package schema implements the schema command.
package schema

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/graphmerge/internal/appcontext"
	"github.com/agentstation/graphmerge/internal/cmd/output"
	"github.com/agentstation/graphmerge/internal/cmd/table"
	pkgschema "github.com/agentstation/graphmerge/pkg/schema"
)

// NewCommand creates the schema command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:     "schema",
		GroupID: "core",
		Short:   "Print the effective schema",
		Long: `Schema prints the entity types, field rules and relationship rules used
for resolution. A schema file replaces the built-in schema entirely; print it
with -o yaml to start a custom one.`,
		Example: `  graphmerge schema
  graphmerge schema -o yaml > schema.yaml
  graphmerge schema --schema schema.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load(app, file)
			if err != nil {
				return err
			}

			format, err := output.Resolve(app.OutputFormat(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, (*view)(s))
		},
	}

	cmd.Flags().StringVar(&file, "schema", "", "schema file to validate and print (default from config)")

	return cmd
}

func load(app appcontext.Interface, file string) (*pkgschema.Schema, error) {
	if file != "" {
		return pkgschema.Load(file)
	}
	return app.Schema()
}

// view renders a schema as its types, field rules and relationships.
type view pkgschema.Schema

// Tables implements table.Tabular.
func (v *view) Tables() []table.Data {
	s := (*pkgschema.Schema)(v)
	return []table.Data{
		table.TypesToTableData(s),
		table.FieldRulesToTableData(s),
		table.RelationshipsToTableData(s),
	}
}
