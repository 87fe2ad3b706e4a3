// Package main is the entry point for the VibeVault admin CLI.
// This tool provides administrative commands for managing user accounts,
// notably creating admin users which the public API never does.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/vibevault/vibevault/internal/config"
	"github.com/vibevault/vibevault/internal/domain"
	"github.com/vibevault/vibevault/internal/repository"
	"github.com/vibevault/vibevault/internal/repository/postgres"
	"github.com/vibevault/vibevault/internal/repository/sqlite"
	"github.com/vibevault/vibevault/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("VibeVault Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if err := runUserCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runUserCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user subcommand required: create-admin, list")
	}

	switch args[0] {
	case "create-admin":
		fs := flag.NewFlagSet("user create-admin", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		username := fs.String("username", "", "username for the new admin")
		password := fs.String("password", "", "password for the new admin")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *username == "" || *password == "" {
			return fmt.Errorf("both --username and --password are required")
		}
		return createAdmin(*configPath, *username, *password)

	case "list":
		fs := flag.NewFlagSet("user list", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return listUsers(*configPath)

	default:
		return fmt.Errorf("unknown user subcommand: %s", args[0])
	}
}

func createAdmin(configPath, username, password string) error {
	ctx := context.Background()

	users, closeDB, err := openUserRepo(ctx, configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	svc := service.NewUserService(users, zerolog.Nop())
	user, err := svc.Register(ctx, service.RegisterInput{
		Username: username,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Admin user created: %s (id %d)\n", user.Username, user.ID)
	return nil
}

func listUsers(configPath string) error {
	ctx := context.Background()

	users, closeDB, err := openUserRepo(ctx, configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	all, err := service.NewUserService(users, zerolog.Nop()).List(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-24s %s\n", "ID", "USERNAME", "ROLE")
	for _, u := range all {
		fmt.Printf("%-6d %-24s %s\n", u.ID, u.Username, u.Role)
	}
	return nil
}

func openUserRepo(ctx context.Context, configPath string) (repository.UserRepository, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := zerolog.Nop()

	if cfg.Database.Driver == "postgres" {
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewUserRepository(db), func() { db.Close() }, nil
	}

	sqliteCfg := sqlite.DefaultConfig(cfg.Database.Path)
	sqliteCfg.JournalMode = cfg.Database.JournalMode
	sqliteCfg.BusyTimeout = cfg.Database.BusyTimeout
	sqliteCfg.SynchronousMode = cfg.Database.SynchronousMode

	db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return sqlite.NewUserRepository(db), func() { db.Close() }, nil
}

func printUsage() {
	fmt.Println(`VibeVault Admin CLI

Usage:
  vibevault-admin <command> [arguments]

Commands:
  user        Manage user accounts (create-admin, list)
  version     Print version information
  help        Show this help message

Examples:
  vibevault-admin user create-admin --username root --password secret
  vibevault-admin user list --config ./configs/config.yaml`)
}
