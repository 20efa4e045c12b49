package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/types"
)

// FormatVersion is the version of the persisted document.
const FormatVersion = 1

// Format is a persisted encoding of the table.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor returns the format implied by the extension of path.
// Anything other than .yaml or .yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// document is the flat serialized form of a Table.
type document struct {
	Version   int                        `json:"version" yaml:"version"`
	UpdatedAt time.Time                  `json:"updated_at" yaml:"updated_at"`
	Next      map[types.EntityType]int64 `json:"next" yaml:"next"`
	Entries   []Entry                    `json:"entries" yaml:"entries"`
}

// Load reads the table at path. A missing file yields an empty table.
// Anything that cannot be trusted is an *errors.IdentityTableCorruptionError.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return NewTable(), nil
		}
		return nil, errors.NewIdentityTableCorruptionError(path, "unreadable", err)
	}
	t, err := Parse(data, FormatFor(path))
	if err != nil {
		var corrupt *errors.IdentityTableCorruptionError
		if errors.As(err, &corrupt) {
			corrupt.Path = path
		}
		return nil, err
	}
	return t, nil
}

// Parse decodes and validates a persisted table.
func Parse(data []byte, format Format) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewIdentityTableCorruptionError("", "empty document", nil)
	}

	var doc document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, errors.NewIdentityTableCorruptionError("", "cannot decode "+string(format), err)
	}
	if doc.Version != FormatVersion {
		return nil, errors.NewIdentityTableCorruptionError("",
			fmt.Sprintf("unsupported version %d", doc.Version), nil)
	}

	t := NewTable()
	maxID := make(map[types.EntityType]int64)
	for i, e := range doc.Entries {
		if err := validateEntry(t, e); err != nil {
			return nil, errors.NewIdentityTableCorruptionError("", fmt.Sprintf("entries[%d]: %s", i, err), nil)
		}
		entry := e
		entry.Aliases = append([]string(nil), e.Aliases...)
		t.insertLocked(&entry)
		maxID[e.EntityType] = max(maxID[e.EntityType], e.ID)
	}
	for et, next := range doc.Next {
		if next <= 0 {
			return nil, errors.NewIdentityTableCorruptionError("",
				fmt.Sprintf("next %s identifier %d is not positive", et, next), nil)
		}
		t.next[et] = next
	}
	for et, m := range maxID {
		if next := t.nextLocked(et); next <= m {
			return nil, errors.NewIdentityTableCorruptionError("",
				fmt.Sprintf("next %s identifier %d does not exceed allocated %d", et, next, m), nil)
		}
	}
	return t, nil
}

func validateEntry(t *Table, e Entry) error {
	switch {
	case e.EntityType == "":
		return fmt.Errorf("missing entity type")
	case e.ID <= 0:
		return fmt.Errorf("%s identifier %d is not positive", e.EntityType, e.ID)
	case e.Key == "":
		return fmt.Errorf("%s %d has no key", e.EntityType, e.ID)
	}
	if _, dup := t.entries[e.EntityType][e.ID]; dup {
		return fmt.Errorf("duplicate %s identifier %d", e.EntityType, e.ID)
	}
	seen := make(map[string]bool, len(e.Aliases)+1)
	for _, key := range append([]string{e.Key}, e.Aliases...) {
		if key == "" {
			return fmt.Errorf("%s %d has an empty alias", e.EntityType, e.ID)
		}
		if _, dup := t.keys[e.EntityType][key]; dup || seen[key] {
			return fmt.Errorf("duplicate %s key %q", e.EntityType, key)
		}
		seen[key] = true
	}
	return nil
}

// Marshal encodes the table with entries sorted by type, then identifier.
func (t *Table) Marshal(format Format) ([]byte, error) {
	t.mu.RLock()
	doc := document{
		Version:   FormatVersion,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Next:      make(map[types.EntityType]int64, len(t.next)),
		Entries:   []Entry{},
	}
	for et, n := range t.next {
		doc.Next[et] = n
	}
	ets := make([]types.EntityType, 0, len(t.entries))
	for et := range t.entries {
		ets = append(ets, et)
	}
	types.SortEntityTypes(ets)
	for _, et := range ets {
		doc.Entries = append(doc.Entries, t.entriesLocked(et)...)
	}
	t.mu.RUnlock()

	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, errors.WrapParse("yaml", "identity table", err)
		}
		return data, nil
	default:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, errors.WrapParse("json", "identity table", err)
		}
		return append(data, '\n'), nil
	}
}

// Save writes the table to path atomically: the document goes to a
// temporary file in the same directory, is synced, and then renamed over
// path. On failure the previous file is left untouched.
func (t *Table) Save(path string) error {
	data, err := t.Marshal(FormatFor(path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.WrapIO("sync", tmpPath, err)
	}
	if err := tmp.Chmod(constants.FilePermissions); err != nil {
		cleanup()
		return errors.WrapIO("chmod", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", tmpPath, err)
	}

	// Atomically move temp file to final location
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("move", path, err)
	}

	t.mu.Lock()
	t.dirty = false
	t.mu.Unlock()
	return nil
}
