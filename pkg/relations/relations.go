// Package relations projects entity attributes onto graph edges.
//
// Each schema.RelationshipRule names an attribute of a source type whose
// values are names of target entities. Inference runs once, after every
// type has been resolved and identified, and matches each referenced name
// against all name variations of the target type.
package relations

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/schema"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Ref identifies one endpoint of a relationship.
type Ref struct {
	EntityType types.EntityType `json:"entity_type" yaml:"entity_type"`
	StableID   int64            `json:"stable_id" yaml:"stable_id"`
	Name       string           `json:"name" yaml:"name"`
}

// String returns "Type:id".
func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.EntityType, r.StableID)
}

// InferredRelationship is one edge projected from an attribute.
type InferredRelationship struct {
	Type       types.RelationshipType `json:"type" yaml:"type"`
	From       Ref                    `json:"from" yaml:"from"`
	To         Ref                    `json:"to" yaml:"to"`
	Attributes entities.Attributes    `json:"attributes" yaml:"attributes"`
}

// Key identifies the edge independent of its attributes.
func (r InferredRelationship) Key() string {
	return fmt.Sprintf("%s-[%s]->%s", r.From, r.Type, r.To)
}

// UnresolvedKey groups references that matched no target entity.
type UnresolvedKey struct {
	Source types.EntityType
	Type   types.RelationshipType
}

// Unresolved counts unmatched references per source type and relationship.
type Unresolved map[UnresolvedKey]int

// Total returns the number of unmatched references.
func (u Unresolved) Total() int {
	n := 0
	for _, c := range u {
		n += c
	}
	return n
}

// ForSource returns the unmatched references whose source is t.
func (u Unresolved) ForSource(t types.EntityType) int {
	n := 0
	for k, c := range u {
		if k.Source == t {
			n += c
		}
	}
	return n
}

// Inferrer derives relationships from resolved entities.
type Inferrer struct {
	schema  *schema.Schema
	matcher *fuzzy.Matcher
	logger  *zerolog.Logger
}

// Option configures an Inferrer.
type Option func(*Inferrer)

// WithLogger sets the logger used for unresolved references.
func WithLogger(logger *zerolog.Logger) Option {
	return func(i *Inferrer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an Inferrer. References are matched with matcher, which may
// be stricter than the one used for deduplication.
func New(s *schema.Schema, matcher *fuzzy.Matcher, opts ...Option) *Inferrer {
	i := &Inferrer{schema: s, matcher: matcher, logger: logging.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Infer is a shorthand for New(s, matcher).Infer(res).
func Infer(res *dedup.Result, s *schema.Schema, matcher *fuzzy.Matcher) ([]InferredRelationship, Unresolved) {
	return New(s, matcher).Infer(res)
}

// Infer returns the relationships of res in rule order, then source slot
// order, then reference order. Entities must already carry stable IDs.
func (i *Inferrer) Infer(res *dedup.Result) ([]InferredRelationship, Unresolved) {
	var out []InferredRelationship
	unresolved := make(Unresolved)
	seen := make(map[string]struct{})
	targets := make(map[types.EntityType]*target)

	for _, rule := range i.schema.Relationships {
		tgt, ok := targets[rule.Target]
		if !ok {
			tgt = i.newTarget(res.Entities(rule.Target))
			targets[rule.Target] = tgt
		}

		for _, src := range res.Entities(rule.Source) {
			v, ok := src.PrimaryAttributes.Get(rule.Field)
			if !ok {
				continue
			}
			for _, name := range referencedNames(v, rule.Delimiter) {
				dst, score, ok := tgt.resolve(name)
				if !ok {
					unresolved[UnresolvedKey{Source: rule.Source, Type: rule.Type}]++
					i.logger.Debug().
						Str(logging.FieldEntityType, string(rule.Source)).
						Str("relationship", string(rule.Type)).
						Str("from", src.Primary()).
						Str("reference", name).
						Msg("Unresolved reference")
					continue
				}
				if dst.EntityType == src.EntityType && dst.Slot == src.Slot {
					continue
				}

				rel := InferredRelationship{
					Type: rule.Type,
					From: refOf(src),
					To:   refOf(dst),
					Attributes: entities.Attrs(
						"source_field", rule.Field,
						"match_score", score,
					),
				}
				if rule.Reverse {
					rel.From, rel.To = rel.To, rel.From
				}
				key := rel.Key()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, rel)
			}
		}
	}
	return out, unresolved
}

func refOf(e *entities.CanonicalEntity) Ref {
	return Ref{EntityType: e.EntityType, StableID: e.StableID, Name: e.Primary()}
}

// target is the lookup pool of one target type.
type target struct {
	items []*entities.CanonicalEntity
	index *fuzzy.Index
}

func (i *Inferrer) newTarget(items []*entities.CanonicalEntity) *target {
	t := &target{items: items, index: i.matcher.NewIndex()}
	for slot, e := range items {
		for _, name := range e.NameVariations {
			t.index.Add(name, slot)
		}
	}
	return t
}

func (t *target) resolve(name string) (*entities.CanonicalEntity, float64, bool) {
	m, ok := t.index.BestMatch(name)
	if !ok {
		return nil, 0, false
	}
	return t.items[m.Ref], m.Score, true
}

// referencedNames splits an attribute into target names. With a delimiter
// only the text before its first occurrence is kept.
func referencedNames(v entities.Value, delimiter string) []string {
	var raw []string
	switch v.Kind() {
	case entities.KindList:
		raw = v.Items()
	case entities.KindString, entities.KindNumber:
		raw = []string{v.String()}
	default:
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, name := range raw {
		if delimiter != "" {
			name, _, _ = strings.Cut(name, delimiter)
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
