// Package table converts command results into rows for table output.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/graphmerge"
	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/identity"
	"github.com/agentstation/graphmerge/pkg/schema"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// Tabular is implemented by command results that have a table rendering.
// Other formats marshal the value itself.
type Tabular interface {
	Tables() []Data
}

func numeric(n int) []Align {
	out := make([]Align, n)
	for i := 1; i < n; i++ {
		out[i] = AlignRight
	}
	return out
}

// ReportToTableData renders the per-type outcome of a run, followed by a total row.
func ReportToTableData(r *graphmerge.MergeReport) Data {
	headers := []string{"Type", "Observations", "Skipped", "Entities", "Created", "Updated", "Unchanged",
		"Conflicts", "Alternates", "Ambiguous", "Unresolved", "Failed", "New IDs"}

	row := func(name string, t graphmerge.TypeReport) []string {
		return []string{
			name,
			strconv.Itoa(t.Observations),
			strconv.Itoa(t.Skipped),
			strconv.Itoa(t.Groups),
			strconv.Itoa(t.Created),
			strconv.Itoa(t.Updated),
			strconv.Itoa(t.Unchanged),
			strconv.Itoa(t.ConflictsRecorded),
			strconv.Itoa(t.AlternatesRecorded),
			strconv.Itoa(t.AmbiguousMatches),
			strconv.Itoa(t.UnresolvedRefs),
			strconv.Itoa(t.Failures),
			strconv.Itoa(t.Identity.Allocated),
		}
	}

	rows := make([][]string, 0, len(r.Types)+1)
	for _, et := range r.EntityTypes() {
		rows = append(rows, row(string(et), *r.Types[et]))
	}
	rows = append(rows, row("TOTAL", r.Totals()))

	return Data{Headers: headers, Rows: rows, ColumnAlignment: numeric(len(headers))}
}

// EdgesToTableData renders relationship counts of a run.
func EdgesToTableData(r *graphmerge.MergeReport) Data {
	return Data{
		Headers: []string{"Relationships", "Count"},
		Rows: [][]string{
			{"Inferred", strconv.Itoa(r.EdgesInferred)},
			{"Created", strconv.Itoa(r.EdgesCreated)},
			{"Existing", strconv.Itoa(r.EdgesExisting)},
			{"Skipped", strconv.Itoa(r.EdgesSkipped)},
			{"Failed", strconv.Itoa(r.EdgesFailed)},
		},
		ColumnAlignment: numeric(2),
	}
}

// FailuresToTableData renders the first merge errors of a run.
func FailuresToTableData(r *graphmerge.MergeReport) Data {
	var rows [][]string
	for i, f := range r.Failures {
		if i == constants.MaxReportedErrors {
			rows = append(rows, []string{"", "", fmt.Sprintf("... and %d more", len(r.Failures)-i)})
			break
		}
		msg := f.Error()
		if f.Err != nil {
			msg = f.Err.Error()
		}
		rows = append(rows, []string{f.Operation, f.Key, msg})
	}
	return Data{Headers: []string{"Operation", "Key", "Error"}, Rows: rows}
}

// IdentitiesToTableData renders identity table entries.
func IdentitiesToTableData(entries []identity.Entry) Data {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			string(e.EntityType),
			strconv.FormatInt(e.ID, 10),
			e.Key,
			strings.Join(e.Aliases, ", "),
		})
	}
	return Data{
		Headers:         []string{"Type", "ID", "Key", "Aliases"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft, AlignLeft},
	}
}

// TypesToTableData renders the entity types of a schema.
func TypesToTableData(s *schema.Schema) Data {
	rows := make([][]string, 0, len(s.Types))
	for _, t := range s.Types {
		rows = append(rows, []string{
			string(t.Type),
			strings.Join(s.NameFields(t.Type), ", "),
			strconv.Itoa(len(t.Fields)),
			strings.Join(s.ReferenceFields(t.Type), ", "),
		})
	}
	return Data{Headers: []string{"Type", "Name Fields", "Field Rules", "References"}, Rows: rows}
}

// RelationshipsToTableData renders the relationship rules of a schema.
func RelationshipsToTableData(s *schema.Schema) Data {
	rows := make([][]string, 0, len(s.Relationships))
	for _, r := range s.Relationships {
		from, to := r.Source, r.Target
		if r.Reverse {
			from, to = to, from
		}
		rows = append(rows, []string{
			string(r.Type),
			string(from),
			string(to),
			fmt.Sprintf("%s.%s", r.Source, r.Field),
		})
	}
	return Data{Headers: []string{"Relationship", "From", "To", "Source Field"}, Rows: rows}
}

// FieldRulesToTableData renders the common and per-type field rules of a schema.
func FieldRulesToTableData(s *schema.Schema) Data {
	caser := cases.Title(language.English)
	var rows [][]string
	add := func(scope string, rules []schema.FieldRule) {
		for _, r := range rules {
			rows = append(rows, []string{scope, r.Path, caser.String(string(r.Kind)), strconv.Itoa(r.Priority)})
		}
	}
	add("*", s.Common)
	for _, t := range s.Types {
		add(string(t.Type), t.Fields)
	}
	return Data{
		Headers:         []string{"Scope", "Pattern", "Kind", "Priority"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight},
	}
}
