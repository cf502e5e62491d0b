// A sync server exposing one VersionStore over HTTP: a flag-configured
// HTTP service wrapping a single store. CLI parsing beyond this thin
// flag.String/flag.Int surface is explicitly out of scope for the core, so
// this binary is deliberately the only place flag lives in the module.
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/entro/taskrepl/sync"
)

var (
	dbPath = flag.String("db", "", "path to the version-store database file - only one process should access it at a time.")
	addr = flag.String("addr", ":8080", "address to listen on for sync requests")
)

func main() {
	flag.Parse()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *dbPath == "" {
		log.Fatal().Msg("please specify a version-store database path via -db")
	}

	store, err := sync.OpenVersionStore(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open version store")
	}
	defer store.Close()

	srv := sync.NewServer(store, log)
	log.Info().Str("addr", *addr).Str("db", *dbPath).Msg("sync server listening")
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("sync server exited")
	}
}
