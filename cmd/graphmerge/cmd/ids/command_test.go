package ids_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/graphmerge/cmd/graphmerge/cmd/ids"
	"github.com/agentstation/graphmerge/internal/appcontext"
	"github.com/agentstation/graphmerge/pkg/identity"
	"github.com/agentstation/graphmerge/pkg/types"
)

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ids.json")
	table := identity.NewTable()
	table.Allocate(types.EntityTypeBand, "black sabbath")
	table.Allocate(types.EntityTypeBand, "led zeppelin")
	table.Allocate(types.EntityTypeAlbum, "paranoid")
	require.NoError(t, table.Save(path))
	return path
}

func run(t *testing.T, app *appcontext.Mock, args ...string) (string, error) {
	t.Helper()
	cmd := ids.NewCommand(app)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestIDsCommand(t *testing.T) {
	path := seed(t)

	t.Run("all types", func(t *testing.T) {
		out, err := run(t, &appcontext.Mock{Format: "json", IdentityTablePath: path})
		require.NoError(t, err)

		var entries []identity.Entry
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		require.Len(t, entries, 3)
		assert.Equal(t, types.EntityTypeBand, entries[0].EntityType)
		assert.Equal(t, "black sabbath", entries[0].Key)
		assert.Equal(t, int64(1), entries[0].ID)
	})

	t.Run("filtered by type", func(t *testing.T) {
		out, err := run(t, &appcontext.Mock{Format: "json"}, "--identity-table", path, "--type", "Album")
		require.NoError(t, err)

		var entries []identity.Entry
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "paranoid", entries[0].Key)
	})

	t.Run("table output", func(t *testing.T) {
		out, err := run(t, &appcontext.Mock{Format: "table", IdentityTablePath: path})
		require.NoError(t, err)
		assert.Contains(t, out, "led zeppelin")
		assert.Contains(t, out, "paranoid")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := run(t, &appcontext.Mock{Format: "json", IdentityTablePath: path}, "--type", "Planet")
		assert.Error(t, err)
	})
}
