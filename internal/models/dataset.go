package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DatasetType is a named kind of data product. Units name the dimensions
// whose values identify one instance of the type.
type DatasetType struct {
	Name         string   `yaml:"name" json:"name"`
	Units        []string `yaml:"units,omitempty" json:"units,omitempty"`
	StorageClass string   `yaml:"storage_class,omitempty" json:"storage_class,omitempty"`
}

// DataID maps a unit name to its value (int, string, float or bool).
type DataID map[string]any

// Keys returns the unit names in sorted order.
func (id DataID) Keys() []string {
	keys := make([]string, 0, len(id))
	for k := range id {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the id as comma separated key=value pairs sorted by key.
// String values are quoted so visit=1 and visit="1" stay distinct.
func (id DataID) String() string {
	parts := make([]string, 0, len(id))
	for _, k := range id.Keys() {
		parts = append(parts, k+"="+formatValue(id[k]))
	}
	return strings.Join(parts, ",")
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprint(v)
}

// Project returns a new DataID restricted to the given units.
// Units missing from id are skipped.
func (id DataID) Project(units []string) DataID {
	out := make(DataID, len(units))
	for _, u := range units {
		if v, ok := id[u]; ok {
			out[u] = v
		}
	}
	return out
}

// Equal reports whether both ids carry the same units with equal rendered
// values. A string never equals a number.
func (id DataID) Equal(other DataID) bool {
	if len(id) != len(other) {
		return false
	}
	for k, v := range id {
		ov, ok := other[k]
		if !ok || formatValue(v) != formatValue(ov) {
			return false
		}
	}
	return true
}

// DatasetRef identifies one concrete dataset: a type plus a DataID.
type DatasetRef struct {
	DatasetType string `yaml:"dataset_type" json:"dataset_type"`
	DataID      DataID `yaml:"data_id" json:"data_id"`
}

// Key is the identity of the ref: the type name followed by every
// key=value pair of the DataID in key order, all colon separated.
// Two refs with equal keys are the same dataset.
func (r DatasetRef) Key() string {
	var b strings.Builder
	b.WriteString(r.DatasetType)
	for _, k := range r.DataID.Keys() {
		fmt.Fprintf(&b, ":%s=%s", k, formatValue(r.DataID[k]))
	}
	return b.String()
}

// DatasetPool maps a dataset type name to the DataIDs available (or
// requested) for it. An empty pool means "consult the repository".
type DatasetPool map[string][]DataID

// Empty reports whether the pool carries no DataIDs at all.
func (p DatasetPool) Empty() bool {
	for _, ids := range p {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a copy of the pool. DataIDs themselves are shared.
func (p DatasetPool) Clone() DatasetPool {
	out := make(DatasetPool, len(p))
	for name, ids := range p {
		out[name] = append([]DataID(nil), ids...)
	}
	return out
}

// Merge adds every DataID of other into p, skipping ids already present
// for the same dataset type. Insertion order is preserved.
func (p DatasetPool) Merge(other map[string][]DataID) {
	for name, ids := range other {
		seen := make(map[string]struct{}, len(p[name]))
		for _, id := range p[name] {
			seen[id.String()] = struct{}{}
		}
		for _, id := range ids {
			key := id.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			p[name] = append(p[name], id)
		}
	}
}

// Names returns the dataset type names of the pool in sorted order.
func (p DatasetPool) Names() []string {
	return sortedKeys(p)
}

func sortedKeys(m map[string][]DataID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
