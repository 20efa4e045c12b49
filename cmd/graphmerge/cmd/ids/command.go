// Package ids implements the ids command.
package ids

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/graphmerge/internal/appcontext"
	"github.com/agentstation/graphmerge/internal/cmd/output"
	"github.com/agentstation/graphmerge/internal/cmd/table"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/identity"
	"github.com/agentstation/graphmerge/pkg/types"
)

// NewCommand creates the ids command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		entityType string
		tablePath  string
	)
	cmd := &cobra.Command{
		Use:     "ids",
		GroupID: "core",
		Short:   "List the persisted identity table",
		Example: `  graphmerge ids
  graphmerge ids --type Band -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tablePath == "" {
				tablePath = app.IdentityTable()
			}
			format, err := output.Resolve(app.OutputFormat(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			entries, err := list(tablePath, entityType)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, entries)
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "only list identifiers of this entity type")
	cmd.Flags().StringVar(&tablePath, "identity-table", "", "identity table file (default from config)")

	return cmd
}

// entryList is the ids command result.
type entryList []identity.Entry

// Tables implements table.Tabular.
func (l entryList) Tables() []table.Data {
	return []table.Data{table.IdentitiesToTableData(l)}
}

// list loads the table at path and returns its entries, by type then id.
func list(path, entityType string) (entryList, error) {
	t, err := identity.Load(path)
	if err != nil {
		return nil, err
	}

	if entityType != "" {
		et, ok := types.ParseEntityType(entityType)
		if !ok {
			return nil, errors.NewValidationError("type", entityType, "unknown entity type")
		}
		return t.Entries(et), nil
	}

	var out entryList
	for _, et := range t.Types() {
		out = append(out, t.Entries(et)...)
	}
	return out, nil
}
