package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"speedgate/internal/repository/sqlite"
)

func main() {
	imagesDir := flag.String("images", "violations", "Directory containing violation snapshots")
	dbPath := flag.String("db", "data/violations.db", "Database path")
	prune := flag.Bool("prune", false, "Delete records whose snapshot file is missing")
	flag.Parse()

	fmt.Printf("Migrating database %s\n", *dbPath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// New applies the schema
	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewViolationRepository(db)

	violations, err := repo.GetAll(nil)
	if err != nil {
		log.Fatalf("Failed to read violations: %v", err)
	}

	missing := 0
	for _, v := range violations {
		if v.ImagePath == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(*imagesDir, v.ImagePath)); !os.IsNotExist(err) {
			continue
		}

		missing++
		if *prune {
			if err := repo.Delete(v.ID); err != nil {
				log.Printf("⚠️  Failed to delete %s: %v", v.ID, err)
			}
		}
	}

	count, err := repo.GetTotalCount(nil)
	if err != nil {
		log.Fatalf("Failed to count violations: %v", err)
	}
	size, err := repo.GetDirectorySize()
	if err != nil {
		log.Fatalf("Failed to sum snapshot sizes: %v", err)
	}

	fmt.Printf("✅ Schema up to date\n")
	fmt.Printf("\n📊 Database Statistics:\n")
	fmt.Printf("   Total violations: %d\n", count)
	fmt.Printf("   Total size: %d bytes\n", size)
	if missing > 0 {
		if *prune {
			fmt.Printf("   Pruned %d records with missing snapshots\n", missing)
		} else {
			fmt.Printf("⚠️  %d records point at missing snapshots (run with -prune to remove)\n", missing)
		}
	}
}
