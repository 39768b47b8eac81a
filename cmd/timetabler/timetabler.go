package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/api"
	"github.com/timetabler/timetabler/pkg/config"
	"github.com/timetabler/timetabler/pkg/etl"
	"github.com/timetabler/timetabler/pkg/refdata"
	"github.com/timetabler/timetabler/pkg/txc"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("TIMETABLER_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("TIMETABLER_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	if err := config.Load(os.Getenv("TIMETABLER_CONFIG")); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	app := &cli.App{
		Name:        "timetabler",
		Description: "Single binary of truth for Timetabler - runs all the services",

		Commands: []*cli.Command{
			etl.RegisterCLI(),
			refdata.RegisterCLI(),
			txc.RegisterCLI(),
			api.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
