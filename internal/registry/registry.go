package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"

	"github.com/aiinpocket/n3n/editor/pkg/api"
)

type (
	// NodeTypeInfo describes one node type for the editor palette: its
	// display label, icon, default configuration, and the JSON Schema
	// its configuration must satisfy
	NodeTypeInfo struct {
		DefaultData  api.NodeData `json:"default_data"`
		Type         api.NodeType `json:"type"`
		Label        string       `json:"label"`
		Icon         string       `json:"icon"`
		ConfigSchema string       `json:"config_schema,omitempty"`
	}

	// Registry is the read-only node-type catalog queried when nodes are
	// added. The set of node kinds is finite and known at build time;
	// lookup is a closed dispatch table, not open-ended duck typing
	Registry struct {
		types   map[api.NodeType]*NodeTypeInfo
		schemas map[api.NodeType]*jsonschema.Schema
		mu      sync.RWMutex
	}
)

var (
	ErrUnknownNodeType  = errors.New("unknown node type")
	ErrInvalidNodeData  = errors.New("invalid node config")
	ErrBadCatalogSchema = errors.New("bad catalog schema")
)

// New builds a registry from the embedded default catalog
func New() (*Registry, error) {
	return NewFromCatalog(defaultCatalog)
}

// NewFromCatalog builds a registry from catalog JSON of the form
// {"node_types": [{"type": ..., "label": ..., ...}]}
func NewFromCatalog(catalog string) (*Registry, error) {
	r := &Registry{
		types:   map[api.NodeType]*NodeTypeInfo{},
		schemas: map[api.NodeType]*jsonschema.Schema{},
	}

	entries := gjson.Get(catalog, "node_types")
	var outer error
	entries.ForEach(func(_, entry gjson.Result) bool {
		info := &NodeTypeInfo{
			Type:  api.NodeType(entry.Get("type").String()),
			Label: entry.Get("label").String(),
			Icon:  entry.Get("icon").String(),
		}
		if !info.Type.IsValid() {
			outer = fmt.Errorf("%w: %s", ErrUnknownNodeType, info.Type)
			return false
		}
		if defaults := entry.Get("default_data"); defaults.Exists() {
			data := api.NodeData{}
			if err := json.Unmarshal(
				[]byte(defaults.Raw), &data,
			); err != nil {
				outer = err
				return false
			}
			info.DefaultData = data
		}
		if schema := entry.Get("config_schema"); schema.Exists() {
			info.ConfigSchema = schema.Raw
			compiled, err := compileSchema(string(info.Type), schema.Raw)
			if err != nil {
				outer = fmt.Errorf("%w: %s: %v",
					ErrBadCatalogSchema, info.Type, err)
				return false
			}
			r.schemas[info.Type] = compiled
		}
		r.types[info.Type] = info
		return true
	})
	if outer != nil {
		return nil, outer
	}
	return r, nil
}

// Lookup returns the catalog entry for a node type
func (r *Registry) Lookup(t api.NodeType) (*NodeTypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.types[t]
	return info, ok
}

// Types returns all registered node types, ordered by type name
func (r *Registry) Types() []*NodeTypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*NodeTypeInfo, 0, len(r.types))
	for _, info := range r.types {
		res = append(res, info)
	}
	slices.SortFunc(res, func(l, r *NodeTypeInfo) int {
		return strings.Compare(string(l.Type), string(r.Type))
	})
	return res
}

// NewNode mints a node of the given type with a fresh ID, the catalog's
// default configuration, and the provided position
func (r *Registry) NewNode(
	t api.NodeType, pos api.Position,
) (*api.Node, error) {
	info, ok := r.Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, t)
	}

	data := info.DefaultData.Clone()
	if data == nil {
		data = api.NodeData{}
	}
	if _, ok := data[api.LabelKey]; !ok {
		data[api.LabelKey] = info.Label
	}

	return &api.Node{
		Data:     data,
		ID:       api.NewNodeID(),
		Type:     t,
		Position: pos,
	}, nil
}

// ValidateConfig checks node data against the type's config schema. Types
// without a schema accept any configuration
func (r *Registry) ValidateConfig(t api.NodeType, data api.NodeData) error {
	r.mu.RLock()
	schema, ok := r.schemas[t]
	r.mu.RUnlock()
	if !ok {
		if _, known := r.Lookup(t); !known {
			return fmt.Errorf("%w: %s", ErrUnknownNodeType, t)
		}
		return nil
	}

	doc, err := toJSONValue(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNodeData, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNodeData, err)
	}
	return nil
}

func compileSchema(name, raw string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	url := fmt.Sprintf("n3n://node-schema/%s", name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// toJSONValue round-trips a value through JSON encoding so numbers become
// json.Number, as the jsonschema library requires
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
	if err != nil {
		return nil, err
	}
	return doc, nil
}
