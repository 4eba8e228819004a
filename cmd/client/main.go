package main

import (
	"context"

	"github.com/avolkov-dev/filevault/internal/client/cli"
	"github.com/avolkov-dev/filevault/internal/client/config"
)

func main() {

	cfg := config.LoadConfig()
	app := cli.NewApp(cfg)

	app.Run(context.Background())

}
