package cmd

import (
	"context"
	"fmt"

	"github.com/trellisgraph/trellis/internal/assets"
	"github.com/trellisgraph/trellis/internal/config"
	"github.com/trellisgraph/trellis/internal/infrastructure/sqlite"
	"github.com/trellisgraph/trellis/internal/log"
	"github.com/trellisgraph/trellis/internal/protocol"
	"github.com/trellisgraph/trellis/internal/token"
	"github.com/trellisgraph/trellis/internal/tracing"
)

// engine bundles everything a command needs to run composition operations
// against the local database.
type engine struct {
	db       *sqlite.DB
	proto    *protocol.Protocol
	dir      *token.StaticDirectory
	tracing  *tracing.Provider
	cleanups []func()
}

// openEngine opens the database, registers the configured local
// collaborators, hydrates the graph and ledger, and builds the protocol.
func openEngine(c config.Config) (*engine, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &engine{}

	tp, err := newTracingProvider(c.Tracing)
	if err != nil {
		return nil, err
	}
	e.tracing = tp
	e.cleanups = append(e.cleanups, func() {
		_ = tp.Shutdown(context.Background())
	})

	dbPath := c.DBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	db, err := sqlite.NewDB(dbPath)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}
	e.db = db
	e.cleanups = append(e.cleanups, func() { _ = db.Close() })

	e.dir = buildDirectory(db, c.Directory)

	store := db.CompositionStore()
	maxDepth := c.Engine.MaxDepth
	if maxDepth == 0 {
		maxDepth = config.Defaults().Engine.MaxDepth
	}
	g, err := store.LoadGraphWithDepth(maxDepth)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("hydrating graph: %w", err)
	}
	l, err := store.LoadLedger()
	if err != nil {
		e.close()
		return nil, fmt.Errorf("hydrating ledger: %w", err)
	}
	log.Info(log.CatDB, "Composition state hydrated", "edges", g.Len(), "db", dbPath)

	engineAddr := c.Engine.Address
	if engineAddr == "" {
		engineAddr = protocol.DefaultEngineAddress
	}
	e.proto = protocol.New(e.dir,
		protocol.WithState(g, l),
		protocol.WithStore(store),
		protocol.WithEngineAddress(engineAddr),
		protocol.WithTracer(tp.Tracer()),
	)
	e.cleanups = append(e.cleanups, e.proto.Close)

	return e, nil
}

// close releases engine resources in reverse acquisition order.
func (e *engine) close() {
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		e.cleanups[i]()
	}
}

// buildDirectory registers a database-backed reference collaborator for
// every address the config lists.
func buildDirectory(db *sqlite.DB, dc config.DirectoryConfig) *token.StaticDirectory {
	dir := token.NewStaticDirectory()
	conn := db.Connection()
	for _, addr := range dc.Collections {
		dir.RegisterCollection(addr, assets.NewLocalCollection(conn, addr))
	}
	for _, addr := range dc.Currencies {
		dir.RegisterCurrency(addr, assets.NewLocalCurrency(conn, addr))
	}
	for _, addr := range dc.MultiAssets {
		dir.RegisterMultiAsset(addr, assets.NewLocalMultiAsset(conn, addr))
	}
	return dir
}

// newTracingProvider builds the tracing provider from config, filling in
// the default trace file path when unset.
func newTracingProvider(tc config.TracingConfig) (*tracing.Provider, error) {
	filePath := tc.FilePath
	if filePath == "" {
		filePath = config.DefaultTracesFilePath()
	}
	tp, err := tracing.NewProvider(tracing.Config{
		Enabled:      tc.Enabled,
		Exporter:     tc.Exporter,
		FilePath:     filePath,
		OTLPEndpoint: tc.OTLPEndpoint,
		SampleRate:   tc.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	return tp, nil
}
