package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
)

const stateDir = "dev/.state"

func create(ctx context.Context, recreate, redis bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll(stateDir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll(stateDir, 0777)
	if err != nil {
		return err
	}

	if redis {
		StartRedis()
	}
	err = CreateDatabase(ctx)
	if err != nil {
		return err
	}
	return WriteConfig(redis)
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	redis := flag.Bool("redis", false, "start a redis container and use it as the job broker")
	flag.Parse()

	err := create(context.Background(), *recreate, *redis)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!", "config", configPath())
	fmt.Printf("\n$ go run ./cmd/mtgstats --config %s harvest formats\n", configPath())
}
