package schema_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemacmd "github.com/agentstation/graphmerge/cmd/graphmerge/cmd/schema"
	"github.com/agentstation/graphmerge/internal/appcontext"
	"github.com/agentstation/graphmerge/pkg/schema"
)

func run(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	cmd := schemacmd.NewCommand(&appcontext.Mock{Format: format})
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestSchemaCommand(t *testing.T) {
	t.Run("yaml round trips", func(t *testing.T) {
		out, err := run(t, "yaml")
		require.NoError(t, err)

		s, err := schema.Parse([]byte(out))
		require.NoError(t, err)
		assert.Equal(t, len(schema.Default().Relationships), len(s.Relationships))
	})

	t.Run("table", func(t *testing.T) {
		out, err := run(t, "table")
		require.NoError(t, err)
		assert.Contains(t, out, "MEMBER_OF")
		assert.Contains(t, out, "Person.associated_bands")
	})

	t.Run("custom file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.yaml")
		doc := "types:\n  - type: Band\n    name_fields: [name]\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		out, err := run(t, "yaml", "--schema", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Band")
		assert.NotContains(t, out, "MEMBER_OF")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := run(t, "xml")
		assert.Error(t, err)
	})
}
