// Package resolve implements the resolve command.
package resolve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/graphmerge"
	"github.com/agentstation/graphmerge/internal/appcontext"
	"github.com/agentstation/graphmerge/internal/cmd/output"
	"github.com/agentstation/graphmerge/internal/cmd/table"
	"github.com/agentstation/graphmerge/internal/extraction"
	"github.com/agentstation/graphmerge/pkg/schema"
)

// Flags holds the resolve command flags.
type Flags struct {
	DryRun             bool
	Threshold          float64
	ReferenceThreshold float64
	Workers            int
	Store              string
	IdentityTable      string
	Schema             string
	ProvenanceOut      string
}

// Result is the structured output of a resolve run.
type Result struct {
	Files  []string                `json:"files" yaml:"files"`
	Load   extraction.LoadStats    `json:"load" yaml:"load"`
	Report *graphmerge.MergeReport `json:"report" yaml:"report"`
}

// NewCommand creates the resolve command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}
	cmd := &cobra.Command{
		Use:     "resolve <files...>",
		GroupID: "core",
		Short:   "Resolve observation files and merge them into the graph",
		Long: `Resolve loads raw observations (JSON, JSON Lines or YAML), groups
near-duplicate entities, assigns stable identifiers from the identity table,
infers relationships, and upserts everything into the graph store.

Files are processed in the order given; observations are ordered by source
document and source unit before grouping, so the same input always yields
the same entities.`,
		Example: `  graphmerge resolve extractions/*.jsonl
  graphmerge resolve --store sqlite --identity-table ids.json chunks.json
  graphmerge resolve --dry-run -o json chunks.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "resolve into an in-memory graph and leave the identity table untouched")
	cmd.Flags().Float64Var(&flags.Threshold, "threshold", 0, "similarity threshold for grouping names (default from config)")
	cmd.Flags().Float64Var(&flags.ReferenceThreshold, "reference-threshold", 0, "similarity threshold for resolving relationship references")
	cmd.Flags().IntVar(&flags.Workers, "workers", 0, "entity types deduplicated concurrently (default from config)")
	cmd.Flags().StringVar(&flags.Store, "store", "", "graph store: memory, sqlite, neo4j (default from config)")
	cmd.Flags().StringVar(&flags.IdentityTable, "identity-table", "", "identity table file (.json or .yaml)")
	cmd.Flags().StringVar(&flags.Schema, "schema", "", "schema file replacing the built-in schema")
	cmd.Flags().StringVar(&flags.ProvenanceOut, "provenance-out", "", "write field level merge provenance to this YAML file")

	return cmd
}

func run(cmd *cobra.Command, app appcontext.Interface, flags *Flags, paths []string) error {
	ctx := cmd.Context()
	logger := app.Logger()

	format, err := output.Resolve(app.OutputFormat(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts, err := app.PipelineOptions()
	if err != nil {
		return err
	}
	overrides, err := flagOptions(cmd, flags)
	if err != nil {
		return err
	}
	opts = append(opts, overrides...)

	storeKind := flags.Store
	if flags.DryRun {
		storeKind = "memory" // nothing outside the process changes
	}
	store, err := app.OpenStore(ctx, storeKind)
	if err != nil {
		return err
	}
	opts = append(opts, graphmerge.WithStore(store))

	pipeline, err := graphmerge.New(opts...)
	if err != nil {
		return err
	}

	batch, err := extraction.LoadAll(paths, extraction.WithLogger(logger))
	if err != nil {
		return err
	}
	extraction.SortStable(batch.Observations)
	logger.Info().
		Int("files", len(paths)).
		Int("observations", len(batch.Observations)).
		Int("skipped", batch.Stats.Skipped()).
		Msg("Loaded observations")

	report, err := pipeline.ResolveAndMerge(ctx, batch.Observations)
	if err != nil {
		return err
	}

	result := Result{Files: paths, Load: batch.Stats, Report: report}
	return render(cmd, format, result)
}

// flagOptions turns explicitly set flags into pipeline options.
func flagOptions(cmd *cobra.Command, flags *Flags) ([]graphmerge.Option, error) {
	var opts []graphmerge.Option
	if flags.Schema != "" {
		s, err := schema.Load(flags.Schema)
		if err != nil {
			return nil, err
		}
		opts = append(opts, graphmerge.WithSchema(s))
	}
	if cmd.Flags().Changed("threshold") {
		opts = append(opts, graphmerge.WithThreshold(flags.Threshold))
	}
	if cmd.Flags().Changed("reference-threshold") {
		opts = append(opts, graphmerge.WithReferenceThreshold(flags.ReferenceThreshold))
	}
	if cmd.Flags().Changed("workers") {
		opts = append(opts, graphmerge.WithWorkers(flags.Workers))
	}
	if flags.IdentityTable != "" {
		opts = append(opts, graphmerge.WithIdentityTable(flags.IdentityTable))
	}
	if flags.ProvenanceOut != "" {
		opts = append(opts, graphmerge.WithProvenanceFile(flags.ProvenanceOut))
	}
	if flags.DryRun {
		opts = append(opts, graphmerge.WithDryRun(true))
	}
	return opts, nil
}

// Tables implements table.Tabular.
func (r Result) Tables() []table.Data {
	tables := []table.Data{table.ReportToTableData(r.Report), table.EdgesToTableData(r.Report)}
	if len(r.Report.Failures) > 0 {
		tables = append(tables, table.FailuresToTableData(r.Report))
	}
	return tables
}

func render(cmd *cobra.Command, format output.Format, result Result) error {
	w := cmd.OutOrStdout()
	if format == output.FormatTable {
		r := result.Report
		if _, err := fmt.Fprintf(w, "Run %s: %s\n", r.RunID, r.Summary()); err != nil {
			return err
		}
		if r.DryRun {
			if _, err := fmt.Fprintln(w, "Dry run: graph changes were not persisted and the identity table was not saved."); err != nil {
				return err
			}
		}
	}
	return output.Write(w, format, result)
}
