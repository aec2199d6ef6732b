package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"auction-engine/internal/config"
	"auction-engine/internal/engine"
	"auction-engine/internal/fanout"
	"auction-engine/internal/payments"
	"auction-engine/internal/repository"
	"auction-engine/internal/scheduler"
	"auction-engine/internal/server"
	"auction-engine/internal/store"
	"auction-engine/utils"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}

	repo, cleanup, err := openRepository(cfg)
	if err != nil {
		utils.Fatal("failed to open repository", map[string]any{"error": err.Error()})
	}
	defer cleanup()

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		utils.Fatal("failed to create upload directory", map[string]any{"dir": cfg.Uploads.Dir, "error": err.Error()})
	}

	stateStore := store.NewStateStore()
	if err := loadAuctions(stateStore, repo); err != nil {
		utils.Fatal("failed to load auctions into state store", map[string]any{"error": err.Error()})
	}

	events := fanout.New()
	admission := engine.NewAdmissionEngine(stateStore, repo, events, cfg.Auction.AdmissionTimeout)
	lifecycle := scheduler.NewLifecycleScheduler(stateStore, repo, events, cfg.Auction.SchedulerInterval)

	router := server.SetupRouter(server.Deps{
		Store:        stateStore,
		Repo:         repo,
		Engine:       admission,
		Events:       events,
		Intents:      payments.NewStripeCreator(cfg.StripeKey),
		UploadDir:    cfg.Uploads.Dir,
		FanoutBuffer: cfg.Auction.FanoutBuffer,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{"address": srv.Addr})
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lifecycle.Run(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.Fatal("server exited with error", map[string]any{"error": err.Error()})
	}
	utils.Info("server stopped", nil)
}

// openRepository selects the persistence backend from configuration.
func openRepository(cfg *config.Config) (repository.AuctionDB, func(), error) {
	if cfg.Database.Backend == "memory" {
		return repository.NewMemoryRepo(), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, nil, err
	}
	repo, err := repository.NewSQLiteRepo(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { repo.Close() }, nil
}

// loadAuctions seeds the state store with every persisted auction so bid
// admission decisions never need a database read.
func loadAuctions(st *store.StateStore, repo repository.AuctionDB) error {
	auctions, err := repo.FindAuctions(context.Background(), repository.AuctionFilter{})
	if err != nil {
		return err
	}
	for _, a := range auctions {
		st.Register(a)
	}
	utils.Info("loaded auctions into state store", map[string]any{"count": len(auctions)})
	return nil
}
