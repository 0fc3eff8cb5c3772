package main

import (
	"context"
	"os"

	"github.com/avolkovs/authapi/internal/buildinfo"
	"github.com/avolkovs/authapi/internal/client/cli"
	"github.com/avolkovs/authapi/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app := cli.NewApp(cfg)
	app.Run(ctx)
}
