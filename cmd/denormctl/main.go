// denormctl resynchronizes denormalized aggregate fields at the table
// level: every parent row gets its aggregates recomputed from the current
// eligible children, as declared in a YAML config.
//
//	denormctl -config denorm.yaml [-table groups] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/yungbote/denorm/internal/data/db"
	"github.com/yungbote/denorm/internal/resync"
	"github.com/yungbote/denorm/pkg/envutil"
	"github.com/yungbote/denorm/pkg/logger"
)

type tableList []string

func (l *tableList) String() string { return strings.Join(*l, ",") }
func (l *tableList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var configPath string
	var tables tableList
	var dryRun bool
	flag.StringVar(&configPath, "config", "denorm.yaml", "path to aggregate config")
	flag.Var(&tables, "table", "parent table to resync (repeatable, default all)")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned statements without executing")
	flag.Parse()

	_ = godotenv.Load()

	logg, err := logger.New(envutil.String("DENORM_LOG_MODE", "dev"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer logg.Sync()

	cfg, err := resync.Load(configPath)
	if err != nil {
		logg.Error("load config", "path", configPath, "error", err.Error())
		os.Exit(1)
	}

	gdb, err := db.Open(logg)
	if err != nil {
		logg.Error("open database", "error", err.Error())
		os.Exit(1)
	}

	runner := resync.NewRunner(gdb, logg)
	if err := runner.Run(context.Background(), cfg, resync.Options{
		Tables: tables,
		DryRun: dryRun,
	}); err != nil {
		logg.Error("resync run failed", "error", err.Error())
		os.Exit(1)
	}
}
