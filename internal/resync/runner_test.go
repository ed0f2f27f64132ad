package resync

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/denorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	stmts := []string{
		`CREATE TABLE groups (id TEXT PRIMARY KEY, members_count INTEGER NOT NULL DEFAULT 0, points_sum REAL NOT NULL DEFAULT 0)`,
		`CREATE TABLE members (id TEXT PRIMARY KEY, group_id TEXT, points REAL, active INTEGER)`,
		`INSERT INTO groups (id, members_count, points_sum) VALUES ('g1', 99, -1), ('g2', 99, -1)`,
		`INSERT INTO members (id, group_id, points, active) VALUES
			('m1', 'g1', 5, 1), ('m2', 'g1', 10, 1), ('m3', 'g1', 7, 0), ('m4', 'g2', 2, 1)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

func testConfig() *Config {
	return &Config{
		Concurrency: 2,
		Aggregates: []Spec{
			{
				Name:           "groups.members_count",
				ParentTable:    "groups",
				ParentKey:      "id",
				TargetField:    "members_count",
				Kind:           denorm.KindCount,
				ChildTable:     "members",
				ParentRefField: "group_id",
				EligibleWhere:  "active = 1",
			},
			{
				Name:           "groups.points_sum",
				ParentTable:    "groups",
				ParentKey:      "id",
				TargetField:    "points_sum",
				Kind:           denorm.KindSum,
				ChildTable:     "members",
				ParentRefField: "group_id",
				SourceField:    "points",
				EligibleWhere:  "active = 1",
			},
		},
	}
}

func TestRunRepairsAllParents(t *testing.T) {
	db := testDB(t)
	runner := NewRunner(db, nil)

	if err := runner.Run(context.Background(), testConfig(), Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	type row struct {
		MembersCount int64
		PointsSum    float64
	}
	var g1, g2 row
	if err := db.Raw("SELECT members_count, points_sum FROM groups WHERE id = 'g1'").Scan(&g1).Error; err != nil {
		t.Fatalf("read g1: %v", err)
	}
	if err := db.Raw("SELECT members_count, points_sum FROM groups WHERE id = 'g2'").Scan(&g2).Error; err != nil {
		t.Fatalf("read g2: %v", err)
	}
	if g1.MembersCount != 2 || g1.PointsSum != 15 {
		t.Fatalf("g1: want count=2 sum=15 got %+v", g1)
	}
	if g2.MembersCount != 1 || g2.PointsSum != 2 {
		t.Fatalf("g2: want count=1 sum=2 got %+v", g2)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	db := testDB(t)
	runner := NewRunner(db, nil)

	if err := runner.Run(context.Background(), testConfig(), Options{DryRun: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var count int64
	if err := db.Raw("SELECT members_count FROM groups WHERE id = 'g1'").Scan(&count).Error; err != nil {
		t.Fatalf("read: %v", err)
	}
	if count != 99 {
		t.Fatalf("dry run must not write: got %d", count)
	}
}

func TestRunTableSelection(t *testing.T) {
	db := testDB(t)
	runner := NewRunner(db, nil)

	err := runner.Run(context.Background(), testConfig(), Options{Tables: []string{"orders"}})
	if !denorm.IsCode(err, denorm.CodeConfig) {
		t.Fatalf("selecting no specs is a config error, got %v", err)
	}
}
