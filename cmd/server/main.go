package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophaccounts/internal/buildinfo"
	"github.com/dmitrijs2005/gophaccounts/internal/server"
	"github.com/dmitrijs2005/gophaccounts/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	runErr := app.Run(ctx)
	if err := app.Close(); err != nil {
		log.Printf("close: %v", err)
	}
	if runErr != nil {
		log.Fatalf("%v", runErr)
	}

}
