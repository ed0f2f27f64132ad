package resync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/denorm"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "denorm.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
aggregates:
  - parent_table: groups
    target_field: members_count
    kind: count
    child_table: members
    parent_ref_field: group_id
    eligible_where: "active = 1"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	spec := cfg.Aggregates[0]
	if spec.ParentKey != "id" {
		t.Fatalf("parent_key default: want=id got=%q", spec.ParentKey)
	}
	if spec.Name != "groups.members_count" {
		t.Fatalf("name default: got=%q", spec.Name)
	}
	if cfg.Concurrency != 1 {
		t.Fatalf("concurrency default: want=1 got=%d", cfg.Concurrency)
	}
	if spec.Kind != denorm.KindCount {
		t.Fatalf("kind: want=count got=%s", spec.Kind)
	}
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no aggregates", `aggregates: []`},
		{"bad identifier", `
aggregates:
  - parent_table: "groups; drop table users"
    target_field: members_count
    kind: count
    child_table: members
    parent_ref_field: group_id
`},
		{"unknown kind", `
aggregates:
  - parent_table: groups
    target_field: members_count
    kind: avg
    child_table: members
    parent_ref_field: group_id
`},
		{"sum without source", `
aggregates:
  - parent_table: groups
    target_field: points_sum
    kind: sum
    child_table: members
    parent_ref_field: group_id
`},
		{"statement injection in filter", `
aggregates:
  - parent_table: groups
    target_field: members_count
    kind: count
    child_table: members
    parent_ref_field: group_id
    eligible_where: "1 = 1; DROP TABLE groups"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); !denorm.IsCode(err, denorm.CodeConfig) {
				t.Fatalf("want config error, got %v", err)
			}
		})
	}
}

func TestStatementRendering(t *testing.T) {
	spec := Spec{
		Name:           "groups.points_sum",
		ParentTable:    "groups",
		ParentKey:      "id",
		TargetField:    "points_sum",
		Kind:           denorm.KindSum,
		ChildTable:     "members",
		ParentRefField: "group_id",
		SourceField:    "points",
		EligibleWhere:  "active = 1",
	}
	want := "UPDATE groups SET points_sum = (SELECT COALESCE(SUM(points), 0) FROM members" +
		" WHERE members.group_id = groups.id AND (active = 1))"
	if got := Statement(spec); got != want {
		t.Fatalf("statement:\nwant: %s\ngot:  %s", want, got)
	}
}
