package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

func main() {
	var (
		from = flag.String("from", "", "Source profiles: .yaml file or SQLite database (default: embedded)")
		db   = flag.String("db", "", "SQLite database to seed (required for seed)")
		out  = flag.String("out", "", "Path to write YAML for dump (defaults to stdout)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: drugdb [flags] seed|dump\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd := strings.TrimSpace(flag.Arg(0))
	ctx := context.Background()
	switch cmd {
	case "seed":
		if *db == "" {
			log.Fatal("missing required -db")
		}
		reg, err := drugs.Open(ctx, *from)
		if err != nil {
			log.Fatalf("load source profiles: %v", err)
		}
		if err := drugs.SaveSQLite(ctx, *db, reg); err != nil {
			log.Fatalf("seed %s: %v", *db, err)
		}
		log.Printf("seeded %s with %v", *db, reg.Types())
	case "dump":
		src := *from
		if src == "" {
			src = *db
		}
		reg, err := drugs.Open(ctx, src)
		if err != nil {
			log.Fatalf("load profiles: %v", err)
		}
		blob, err := reg.EncodeYAML()
		if err != nil {
			log.Fatalf("encode yaml: %v", err)
		}
		if *out == "" {
			_, _ = os.Stdout.Write(blob)
			return
		}
		if err := os.WriteFile(*out, blob, 0o644); err != nil {
			log.Fatalf("write %s: %v", *out, err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}
