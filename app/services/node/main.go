package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/minichain/app/services/node/handlers"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/genesis"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
	"github.com/ardanlabs/minichain/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/minichain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/minichain/foundation/blockchain/worker"
	"github.com/ardanlabs/minichain/foundation/events"
	"github.com/ardanlabs/minichain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			CORSOrigins     []string      `conf:"default:*"`
		}
		State struct {
			GenesisPath    string `conf:"help:path to a genesis file or empty for the built in genesis"`
			SelectStrategy string `conf:"default:lifo"`
			Storage        string `conf:"default:memory,help:memory or leveldb"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "minichain ledger node",
		},
	}

	// Defaults are overridden by NODE_* environment variables and flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	gen := genesis.Default()
	if cfg.State.GenesisPath != "" {
		gen, err = genesis.Load(cfg.State.GenesisPath)
		if err != nil {
			return fmt.Errorf("unable to load genesis: %w", err)
		}
	}

	// Logging the starting balances for documentation in the logs.
	for account, value := range gen.Balances {
		log.Infow("startup", "status", "genesis", "account", account, "balance", value)
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Messages prefixed for the viewer are also sent to
	// any websocket client that is connected through the events package.
	evts := events.New(events.DefaultBacklog)
	ev := func(v string, args ...any) {
		const websocketPrefix = "viewer:"

		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, websocketPrefix) {
			evts.Send(s)
		}
	}

	strg, err := newStorage(cfg.State.Storage)
	if err != nil {
		return err
	}

	st, err := state.New(state.Config{
		Genesis:        gen,
		Storage:        strg,
		SelectStrategy: cfg.State.SelectStrategy,
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// Mining happens in the background whenever transactions arrive.
	worker.Run(st, ev)

	// =========================================================================
	// Start Debug Service

	// The debug host is not shut down with the API hosts; it goes when the
	// process does.
	go func() {
		log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)
		if err := http.ListenAndServe(cfg.Web.DebugHost, handlers.DebugMux(build, log, st)); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start API Services

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	muxCfg := handlers.MuxConfig{
		Shutdown:    shutdown,
		Log:         log,
		State:       st,
		Evts:        evts,
		CORSOrigins: cfg.Web.CORSOrigins,
	}

	// The private host goes down first so no reset lands while the public
	// host is draining.
	servers := []struct {
		name string
		srv  *http.Server
	}{
		{"private", newServer(cfg.Web.PrivateHost, handlers.PrivateMux(muxCfg), log)},
		{"public", newServer(cfg.Web.PublicHost, handlers.PublicMux(muxCfg), log)},
	}

	serverErrors := make(chan error, len(servers))
	for _, s := range servers {
		s.srv.ReadTimeout = cfg.Web.ReadTimeout
		s.srv.WriteTimeout = cfg.Web.WriteTimeout
		s.srv.IdleTimeout = cfg.Web.IdleTimeout

		go func(name string, srv *http.Server) {
			log.Infow("startup", "status", name+" api router started", "host", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}(s.name, s.srv)
	}

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Websocket handlers block on their channels; closing them lets the
		// connections finish.
		evts.Shutdown()

		for _, s := range servers {
			log.Infow("shutdown", "status", "shutdown "+s.name+" api started")
			if err := shutdownServer(s.srv, cfg.Web.ShutdownTimeout); err != nil {
				return fmt.Errorf("could not stop %s service gracefully: %w", s.name, err)
			}
		}
	}

	return nil
}

func newServer(addr string, h http.Handler, log *zap.SugaredLogger) *http.Server {
	return &http.Server{
		Addr:     addr,
		Handler:  h,
		ErrorLog: zap.NewStdLog(log.Desugar()),
	}
}

// shutdownServer gives in-flight requests the timeout to complete before the
// listener is closed outright.
func shutdownServer(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		srv.Close()
		return err
	}

	return nil
}

// newStorage constructs the block storage named in the config. Both kinds
// live in memory for the life of the process.
func newStorage(kind string) (database.Serializer, error) {
	switch kind {
	case "memory":
		return memory.New()
	case "leveldb":
		return leveldb.New()
	}

	return nil, fmt.Errorf("unknown storage %q", kind)
}
