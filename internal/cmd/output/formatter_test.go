package output_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/graphmerge/internal/cmd/output"
	"github.com/agentstation/graphmerge/internal/cmd/table"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    output.Format
		wantErr bool
	}{
		{"", "", false},
		{"table", output.FormatTable, false},
		{"JSON", output.FormatJSON, false},
		{"yaml", output.FormatYAML, false},
		{"wide", "", true},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := output.ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("explicit format wins", func(t *testing.T) {
		got, err := output.Resolve("YAML", &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, output.FormatYAML, got)
	})

	t.Run("non-terminal writer defaults to json", func(t *testing.T) {
		got, err := output.Resolve("", &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, output.FormatJSON, got)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := output.Resolve("wide", &bytes.Buffer{})
		assert.ErrorContains(t, err, "must be one of")
	})
}

type counts struct {
	Created int `json:"created" yaml:"created"`
}

func (c counts) Tables() []table.Data {
	return []table.Data{{Headers: []string{"Nodes", "Count"}, Rows: [][]string{{"Created", "7"}}}}
}

func TestWrite(t *testing.T) {
	v := counts{Created: 7}

	t.Run("table uses tables", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, output.Write(&buf, output.FormatTable, v))
		assert.Contains(t, buf.String(), "Created")
		assert.Contains(t, buf.String(), "7")
		assert.NotContains(t, buf.String(), "{")
	})

	t.Run("json marshals the value", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, output.Write(&buf, output.FormatJSON, v))
		assert.JSONEq(t, `{"created": 7}`, buf.String())
	})

	t.Run("table falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, output.Write(&buf, output.FormatTable, map[string]int{"created": 1}))
		assert.JSONEq(t, `{"created": 1}`, buf.String())
	})
}

func TestTableFormatter(t *testing.T) {
	data := table.Data{
		Headers: []string{"Type", "ID"},
		Rows:    [][]string{{"Band", "1"}, {"Album", "2"}},
	}

	t.Run("single table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, output.NewFormatter(output.FormatTable).Format(&buf, data))
		assert.Contains(t, buf.String(), "Band")
		assert.Contains(t, buf.String(), "Album")
	})

	t.Run("several tables", func(t *testing.T) {
		var buf bytes.Buffer
		other := table.Data{Headers: []string{"Relationships", "Count"}, Rows: [][]string{{"Created", "7"}}}
		require.NoError(t, output.NewFormatter(output.FormatTable).Format(&buf, []table.Data{data, other}))
		assert.Contains(t, buf.String(), "Band")
		assert.Contains(t, buf.String(), "Created")
	})
}

func TestJSONAndYAMLFormatters(t *testing.T) {
	v := map[string]int{"created": 2}

	var js bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatJSON).Format(&js, v))
	assert.JSONEq(t, `{"created": 2}`, js.String())

	var ys bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatYAML).Format(&ys, v))
	assert.Equal(t, "created: 2\n", ys.String())
}
