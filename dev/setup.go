package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mtgstats-backend/cmd/mtgstats/commands"
	"mtgstats-backend/internal/db"
	"mtgstats-backend/internal/jobs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const redisContainer = "mtgstats-dev-redis"

func cmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fmt.Printf("$ %s %s\n", name, strings.Join(args, " "))
	return cmd.Run()
}

// StartRedis starts the broker container, it is left alone when it already runs.
func StartRedis() {
	err := cmd("docker", "run", "-d", "--name", redisContainer, "-p", "6379:6379", "redis:7-alpine")
	if err != nil {
		fmt.Println("could not start", redisContainer, "(it may already exist):", err)
		_ = cmd("docker", "start", redisContainer)
	}
}

func databasePath() string {
	return filepath.Join(stateDir, "mtgstats.db")
}

func configPath() string {
	return filepath.Join(stateDir, "config.json5")
}

func CreateDatabase(ctx context.Context) error {
	_, err := os.Stat(databasePath())
	if err == nil {
		fmt.Println("database already created at", databasePath())
		return nil
	}

	fmt.Println("creating database at", databasePath())
	database, err := db.Config{File: databasePath()}.Open(ctx)
	if err != nil {
		return err
	}
	return database.Close()
}

// WriteConfig writes a config for the dev state, plain json is valid json5.
func WriteConfig(redis bool) error {
	cfg := commands.Config{
		Timezone: "Europe/Paris",
		Database: db.Config{File: databasePath()},
		Workers:  4,
	}
	cfg.Harvest.RatePerMinute = 10
	cfg.Harvest.SoftTimeLimitSeconds = 5
	cfg.Mtgtop8.RequestsPerSecond = 1
	cfg.Mkm.RequestsPerSecond = 1
	if redis {
		cfg.Broker.Redis = jobs.RedisOptions{Addr: "localhost:6379", Prefix: "mtgstats:dev"}
	}

	contents, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), contents, 0600)
}
