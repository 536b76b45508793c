package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mmanyinorie/internal/config"
	"mmanyinorie/internal/database"
	"mmanyinorie/internal/repository"
	"mmanyinorie/internal/service"
	"mmanyinorie/pkg/logging"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	recalcCmd := flag.NewFlagSet("recalculate", flag.ExitOnError)

	// Export flags
	exportCommunity := exportCmd.String("community", "", "Community ID to export (required)")
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importOwner := importCmd.String("owner", "", "Email of the user who will own the imported community (required)")

	// Recalculate flags
	recalcCommunity := recalcCmd.String("community", "", "Community ID to recalculate (required)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	logging.SetupWithLevel(logging.LevelFromString(cfg.LogLevel))

	ctx := context.Background()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		fatal("Failed to initialize database", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx); err != nil {
		fatal("Failed to run migrations", err)
	}

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		requireFlag(exportCmd, "community", *exportCommunity)
		handleExport(ctx, service.NewBackupService(db), *exportCommunity, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		requireFlag(importCmd, "input", *importInput)
		requireFlag(importCmd, "owner", *importOwner)
		handleImport(ctx, db, *importInput, *importOwner)

	case "recalculate":
		recalcCmd.Parse(os.Args[2:])
		requireFlag(recalcCmd, "community", *recalcCommunity)
		handleRecalculate(ctx, db, *recalcCommunity)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, communityID, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fatal("Failed to create output directory", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		fatal("Failed to create output file", err)
	}
	defer f.Close()

	slog.Info("Exporting community", "community", communityID, "file", outputPath)
	backup, err := backupService.Export(ctx, communityID, f)
	if err != nil {
		fatal("Export failed", err)
	}

	fileInfo, _ := f.Stat()
	slog.Info("Export complete",
		"families", len(backup.Families),
		"contributions", len(backup.Contributions),
		"members", len(backup.Members),
		"size_kb", fileInfo.Size()/1024)
}

func handleImport(ctx context.Context, db *database.DB, inputPath, ownerEmail string) {
	owner, err := repository.NewUserRepository(db).GetUserByEmail(ctx, ownerEmail)
	if err != nil {
		fatal("Failed to look up owner", err)
	}
	if owner == nil {
		fatal("Owner not found", fmt.Errorf("no user with email %s", ownerEmail))
	}

	f, err := os.Open(inputPath)
	if err != nil {
		fatal("Failed to open input file", err)
	}
	defer f.Close()

	slog.Info("Importing community", "file", inputPath, "owner", owner.Email)
	community, err := service.NewBackupService(db).Import(ctx, f, owner.ID)
	if err != nil {
		fatal("Import failed", err)
	}

	slog.Info("Import complete", "community", community.ID, "name", community.Name)
}

func handleRecalculate(ctx context.Context, db *database.DB, communityID string) {
	communities := service.NewCommunityService(db, nil, nil, nil)
	updated, err := communities.RecalculateTiers(ctx, communityID)
	if err != nil {
		fatal("Recalculation failed", err)
	}
	slog.Info("Recalculation complete", "community", communityID, "updated", updated)
}

func requireFlag(fs *flag.FlagSet, name, value string) {
	if value == "" {
		fmt.Printf("Error: -%s flag is required\n", name)
		fs.PrintDefaults()
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Mmanyin Orie Community Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]        Export a community to a JSON file")
	fmt.Println("  backup import [options]        Import a community from a JSON file")
	fmt.Println("  backup recalculate [options]   Recompute tiers and contributions for a community")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -community <id>   Community to export (required)")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -owner <email>    Existing user who becomes owner and admin (required)")
	fmt.Println()
	fmt.Println("Recalculate Options:")
	fmt.Println("  -community <id>   Community to recalculate (required)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./mmanyinorie.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
