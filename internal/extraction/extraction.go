// Package extraction decodes the output of the upstream extraction service
// into raw observations.
//
// Input is untrusted. Records that cannot be decoded, lack an entity type,
// or name an unknown type are skipped with a warning and counted; only an
// unreadable or syntactically broken document is an error.
//
// Accepted shapes, in JSON, JSON Lines or YAML:
//
//	{"entity_type": "Band", "attributes": {...}, "provenance": {"source_unit": "c1"}}
//	{"chunk_id": "c1", "document_id": "d1", "entities": {"bands": [{...}], "people": [...]}}
//
// A document may hold one record or a list of records of either shape.
package extraction

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Format is an input encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// FormatFor returns the format implied by the extension of path.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadStats counts what a load accepted and skipped.
type LoadStats struct {
	Records      int            `json:"records" yaml:"records"`                                 // top-level records seen
	Observations int            `json:"observations" yaml:"observations"`                       // observations produced
	Malformed    int            `json:"malformed" yaml:"malformed"`                             // records or entities that could not be used
	UnknownTypes map[string]int `json:"unknown_types,omitempty" yaml:"unknown_types,omitempty"` // skipped entity type spellings
}

// Skipped returns the number of skipped records and entities.
func (s LoadStats) Skipped() int {
	n := s.Malformed
	for _, c := range s.UnknownTypes {
		n += c
	}
	return n
}

func (s *LoadStats) add(o LoadStats) {
	s.Records += o.Records
	s.Observations += o.Observations
	s.Malformed += o.Malformed
	for k, v := range o.UnknownTypes {
		s.unknown(k, v)
	}
}

func (s *LoadStats) unknown(spelling string, n int) {
	if s.UnknownTypes == nil {
		s.UnknownTypes = make(map[string]int)
	}
	s.UnknownTypes[spelling] += n
}

// Batch is the result of a load.
type Batch struct {
	Observations []entities.RawObservation
	Stats        LoadStats
}

type options struct {
	logger *zerolog.Logger
}

// Option configures loading.
type Option func(*options)

// WithLogger sets the logger used for skip warnings.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) *options {
	o := &options{logger: logging.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load reads and decodes the file at path.
func Load(path string, opts ...Option) (*Batch, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f, FormatFor(path), filepath.Base(path), opts...)
}

// LoadAll loads every path in order and concatenates the observations.
func LoadAll(paths []string, opts ...Option) (*Batch, error) {
	out := &Batch{}
	for _, path := range paths {
		b, err := Load(path, opts...)
		if err != nil {
			return nil, err
		}
		out.Observations = append(out.Observations, b.Observations...)
		out.Stats.add(b.Stats)
	}
	return out, nil
}

// Decode reads one document from r. source names the input in provenance
// fallbacks and warnings.
func Decode(r io.Reader, format Format, source string, opts ...Option) (*Batch, error) {
	d := &decoder{
		source: source,
		logger: buildOptions(opts).logger.With().Str("source", source).Logger(),
		batch:  &Batch{},
	}

	switch format {
	case FormatJSONL:
		if err := d.lines(r); err != nil {
			return nil, err
		}
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.WrapIO("read", source, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return d.batch, nil
		}
		js, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, errors.WrapParse("yaml", source, err)
		}
		if err := d.document(js); err != nil {
			return nil, errors.WrapParse("yaml", source, err)
		}
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.WrapIO("read", source, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return d.batch, nil
		}
		if err := d.document(data); err != nil {
			return nil, errors.WrapParse("json", source, err)
		}
	}

	d.batch.Stats.Observations = len(d.batch.Observations)
	return d.batch, nil
}

// SortStable orders observations by source document, then source unit,
// keeping input order otherwise. Deduplication groups by arrival order,
// so callers that want reproducible runs sort first.
func SortStable(obs []entities.RawObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i].Provenance, obs[j].Provenance
		if a.SourceDocument != b.SourceDocument {
			return a.SourceDocument < b.SourceDocument
		}
		return a.SourceUnit < b.SourceUnit
	})
}

type decoder struct {
	source string
	logger zerolog.Logger
	batch  *Batch
	index  int // running record number for provenance fallbacks
}

func (d *decoder) lines(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), constants.MaxLineSize)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		if !json.Valid(text) {
			d.batch.Stats.Records++
			perr := &errors.ParseError{Format: string(FormatJSONL), File: d.source, Line: line, Message: "invalid JSON"}
			d.malformed(perr.Error())
			continue
		}
		d.item(json.RawMessage(text))
	}
	if err := sc.Err(); err != nil {
		return errors.WrapIO("read", d.source, err)
	}
	return nil
}

func (d *decoder) document(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, item := range items {
			d.item(item)
		}
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("document is not valid JSON")
	}
	d.item(json.RawMessage(data))
	return nil
}

// chunk is the extractor's per-chunk output.
type chunk struct {
	ChunkID    flexString                 `json:"chunk_id"`
	DocumentID flexString                 `json:"document_id"`
	Entities   map[string]json.RawMessage `json:"entities"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (d *decoder) item(raw json.RawMessage) {
	d.batch.Stats.Records++
	d.index++

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		d.malformed("record is not an object")
		return
	}
	if _, ok := keys["entities"]; ok {
		d.chunk(raw)
		return
	}
	d.observation(raw)
}

func (d *decoder) observation(raw json.RawMessage) {
	var obs entities.RawObservation
	if err := json.Unmarshal(raw, &obs); err != nil {
		d.malformed(fmt.Sprintf("record %d: %v", d.index, err))
		return
	}
	et, ok := d.entityType(string(obs.EntityType), 1)
	if !ok {
		return
	}
	obs.EntityType = et
	if obs.Provenance.SourceUnit == "" {
		obs.Provenance.SourceUnit = types.SourceUnitID(fmt.Sprintf("%s#%d", d.source, d.index))
	}
	if obs.Provenance.SourceDocument == "" {
		obs.Provenance.SourceDocument = types.DocumentID(d.source)
	}
	d.batch.Observations = append(d.batch.Observations, obs)
}

func (d *decoder) chunk(raw json.RawMessage) {
	var c chunk
	if err := json.Unmarshal(raw, &c); err != nil {
		d.malformed(fmt.Sprintf("record %d: %v", d.index, err))
		return
	}
	unit := types.SourceUnitID(c.ChunkID)
	if unit == "" {
		unit = types.SourceUnitID(fmt.Sprintf("%s#%d", d.source, d.index))
	}
	doc := types.DocumentID(c.DocumentID)
	if doc == "" {
		doc = types.DocumentID(d.source)
	}

	// Resolve each key once, then emit in canonical type order.
	byType := make(map[types.EntityType][][]json.RawMessage)
	spellings := make([]string, 0, len(c.Entities))
	for spelling := range c.Entities {
		spellings = append(spellings, spelling)
	}
	sort.Strings(spellings)
	for _, spelling := range spellings {
		var items []json.RawMessage
		if err := json.Unmarshal(c.Entities[spelling], &items); err != nil {
			d.malformed(fmt.Sprintf("chunk %s: %s is not a list", unit, spelling))
			continue
		}
		et, ok := d.entityType(spelling, len(items))
		if !ok {
			continue
		}
		byType[et] = append(byType[et], items)
	}

	for _, et := range types.EntityTypes() {
		for _, items := range byType[et] {
			for i, item := range items {
				var attrs entities.Attributes
				if err := json.Unmarshal(item, &attrs); err != nil {
					d.malformed(fmt.Sprintf("chunk %s: %s[%d]: %v", unit, et, i, err))
					continue
				}
				d.batch.Observations = append(d.batch.Observations, entities.RawObservation{
					EntityType: et,
					Attributes: attrs,
					Provenance: entities.Provenance{SourceUnit: unit, SourceDocument: doc},
				})
			}
		}
	}
}

// entityType resolves spelling, counting n skipped records when it is unknown.
func (d *decoder) entityType(spelling string, n int) (types.EntityType, bool) {
	if strings.TrimSpace(spelling) == "" {
		d.malformed(fmt.Sprintf("record %d has no entity_type", d.index))
		return "", false
	}
	if et, ok := types.ParseEntityType(spelling); ok {
		return et, true
	}
	if n > 0 {
		d.batch.Stats.unknown(spelling, n)
		d.logger.Warn().Str(logging.FieldEntityType, spelling).Int("records", n).Msg("Skipping unknown entity type")
	}
	return "", false
}

func (d *decoder) malformed(reason string) {
	d.batch.Stats.Malformed++
	d.logger.Warn().Str("reason", reason).Msg("Skipping malformed record")
}
