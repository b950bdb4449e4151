package schema

import (
	"testing"

	"github.com/matthewbaird/metaform/internal/meta"
)

func TestLoadCatalog_AllEntitiesValid(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	want := []string{"dealer", "donation", "event", "meeting", "region", "subscription", "task", "user"}
	got := c.Entities()
	if len(got) != len(want) {
		t.Fatalf("Entities() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entities()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for _, name := range got {
		m := c.EntityMeta(name)
		if m == nil {
			t.Fatalf("EntityMeta(%q) = nil", name)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("bundled %q fails validation: %v", name, err)
		}
	}
}

func TestLoadCatalog_DealerShape(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	dealer := c.EntityMeta("dealer")
	if dealer == nil {
		t.Fatal("no dealer meta")
	}
	if dealer.PrimaryKey != "id" {
		t.Errorf("primaryKey = %q, want id", dealer.PrimaryKey)
	}

	status := dealer.Field("status")
	if status == nil || status.DisplayType != meta.DisplayDropdown {
		t.Fatalf("status field missing or not a dropdown: %+v", status)
	}
	if len(status.EnumValues()) != 4 {
		t.Errorf("status enum values = %v", status.EnumValues())
	}

	region := dealer.Field("region")
	if region == nil || !region.IsScalarRef() {
		t.Fatalf("region should be a scalar ref: %+v", region)
	}
	if region.RefEntity() != "region" {
		t.Errorf("region refEntity = %q", region.RefEntity())
	}

	tasks := dealer.Field("tasks")
	if tasks == nil || !tasks.Collection || !tasks.Standalone {
		t.Fatalf("tasks should be a standalone collection: %+v", tasks)
	}
	if tasks.Relational.MappedBy != "dealer_id" {
		t.Errorf("tasks mappedBy = %q", tasks.Relational.MappedBy)
	}

	active := dealer.Field("active")
	if active == nil || !active.BoolDefault() {
		t.Errorf("active should default to true: %+v", active)
	}
}

func TestLoadCatalog_RefOptions(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	regions := c.RefOptions("region")
	if len(regions) != 4 {
		t.Fatalf("region options = %d, want 4", len(regions))
	}
	if regions[0]["name"] == "" {
		t.Errorf("region option missing name: %v", regions[0])
	}
	if c.RefOptions("nonexistent") != nil {
		t.Error("unknown entity should have nil options")
	}
}
