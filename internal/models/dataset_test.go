package models

import "testing"

func TestDatasetRefKey(t *testing.T) {
	tests := []struct {
		name string
		ref  DatasetRef
		want string
	}{
		{
			name: "keys sorted",
			ref:  DatasetRef{DatasetType: "calexp", DataID: DataID{"visit": 10, "ccd": 3}},
			want: "calexp:ccd=3:visit=10",
		},
		{
			name: "no units",
			ref:  DatasetRef{DatasetType: "schema"},
			want: "schema",
		},
		{
			name: "string values",
			ref:  DatasetRef{DatasetType: "coadd", DataID: DataID{"filter": "r", "tract": 0}},
			want: "coadd:filter=\"r\":tract=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ref.Key(); got != tt.want {
				t.Errorf("expected key %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDatasetPoolMerge(t *testing.T) {
	pool := DatasetPool{"raw": {{"visit": 1}}}
	pool.Merge(map[string][]DataID{
		"raw":    {{"visit": 1}, {"visit": 2}},
		"calexp": {{"visit": 1}},
	})

	if len(pool["raw"]) != 2 {
		t.Fatalf("expected 2 raw ids after merge, got %d", len(pool["raw"]))
	}
	if pool["raw"][1]["visit"] != 2 {
		t.Errorf("expected appended id to keep insertion order, got %v", pool["raw"])
	}
	if len(pool["calexp"]) != 1 {
		t.Errorf("expected calexp to be added, got %v", pool["calexp"])
	}
}

func TestDatasetPoolEmpty(t *testing.T) {
	if !(DatasetPool{}).Empty() {
		t.Error("expected empty pool to be empty")
	}
	if !(DatasetPool{"raw": nil}).Empty() {
		t.Error("expected pool with no ids to be empty")
	}
	if (DatasetPool{"raw": {{"visit": 1}}}).Empty() {
		t.Error("expected pool with ids to be non-empty")
	}
}

func TestDataIDProject(t *testing.T) {
	id := DataID{"visit": 1, "ccd": 2, "filter": "g"}
	got := id.Project([]string{"visit", "filter", "tract"})
	if !got.Equal(DataID{"visit": 1, "filter": "g"}) {
		t.Errorf("unexpected projection %v", got)
	}
}

func TestDataIDTypedIdentity(t *testing.T) {
	num := DataID{"visit": 1}
	str := DataID{"visit": "1"}

	if num.Equal(str) {
		t.Error("expected int and string values to differ")
	}
	if num.String() == str.String() {
		t.Errorf("expected distinct renderings, both were %q", num.String())
	}
	a := DatasetRef{DatasetType: "raw", DataID: num}
	b := DatasetRef{DatasetType: "raw", DataID: str}
	if a.Key() == b.Key() {
		t.Errorf("expected distinct keys, both were %q", a.Key())
	}

	pool := DatasetPool{"raw": {num}}
	pool.Merge(map[string][]DataID{"raw": {str, {"visit": 1}}})
	if len(pool["raw"]) != 2 {
		t.Errorf("expected merge to keep both typed ids, got %v", pool["raw"])
	}
}
