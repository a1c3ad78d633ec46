package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"sparked/internal/config"
	"sparked/internal/db"
	"sparked/internal/logger"
	"sparked/internal/migration"
)

func main() {
	command := flag.String("command", "up", "migration command: up, down, status, version, reset")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*command, *timeout, cfg, log); err != nil {
		log.Error("migration failed", zap.String("command", *command), zap.Error(err))
		os.Exit(1)
	}
}

func run(command string, timeout time.Duration, cfg *config.Config, log *zap.Logger) error {
	gormDB, err := db.Open(&cfg.Database, log)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	migrator, err := migration.NewMigrator(cfg.Database.Driver, sqlDB)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "reset":
		err = migrator.Reset(ctx)
	case "version":
		var version int64
		if version, err = migrator.Version(ctx); err == nil {
			log.Info("current migration version", zap.Int64("version", version))
		}
	case "status":
		statuses, serr := migrator.Status(ctx)
		if serr != nil {
			return serr
		}
		for _, s := range statuses {
			fields := []zap.Field{
				zap.Int64("version", s.Source.Version),
				zap.String("source", s.Source.Path),
				zap.String("state", string(s.State)),
			}
			if !s.AppliedAt.IsZero() {
				fields = append(fields, zap.Time("applied_at", s.AppliedAt))
			}
			log.Info("migration", fields...)
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	log.Info("migration command completed", zap.String("command", command), zap.String("driver", cfg.Database.Driver))
	return nil
}
