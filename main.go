package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	zero "github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/config"
	db "github.com/sidereusnuntius/courier/internal/db/impl"
	"github.com/sidereusnuntius/courier/internal/distributor"
	"github.com/sidereusnuntius/courier/internal/federation"
	"github.com/sidereusnuntius/courier/internal/initialization"
	"github.com/sidereusnuntius/courier/internal/queue"
	"github.com/sidereusnuntius/courier/internal/state"
	"github.com/sidereusnuntius/courier/internal/web"
	"github.com/sidereusnuntius/courier/internal/wellknown"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	zero.Logger = zero.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	config, err := config.ReadConfig()
	if err != nil {
		log.Fatal(err)
	}

	d, err := initialization.OpenDB(config.DbUrl)
	if err != nil {
		log.Fatal(err)
	}
	zero.Info().Msg("database connection established")

	q, err := initialization.InitQueue(&config)
	if err != nil {
		zero.Fatal().Err(err).Msg("unable to connect with backlite database")
		os.Exit(1)
	}

	if os.Getenv("SETUP") != "" {
		err = initialization.SetupDB(d, config.MigrationsFolder, config.DbUrl)
		if err != nil {
			log.Fatal(err)
		}
	}

	dd := db.New(config, d)
	fed := federation.New(&config, dd, &http.Client{})

	tasks := queue.New(fed, q)
	dist := distributor.New(fed, dd, tasks, &config)
	tasks.Start(context.Background(), dist)

	st := state.State{
		DB:     dd,
		Config: config,
	}

	handler := web.New(&config, dd, fed, dist)
	router := chi.NewRouter()
	handler.Mount(router)
	wellknown.Mount(&st, router)

	s := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: router,
	}

	zero.Info().Uint16("port", config.Port).Msg("started server")
	err = s.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}
