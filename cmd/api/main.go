package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"tableside.org/internal/authz"
	"tableside.org/internal/httpapi"
	"tableside.org/internal/identity"
	"tableside.org/internal/ids"
	"tableside.org/internal/obs"
	"tableside.org/internal/shops"
	"tableside.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		db           *sql.DB
		catalogStore authz.CatalogStore
		grantStore   authz.GrantStore
		directory    identity.Directory
		shopStore    shops.Store
	)
	if dsn := os.Getenv("TABLESIDE_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = store.DB()
		catalogStore = store.Catalog()
		grantStore = store.Grants()
		directory = store.Users()
		shopStore = store.Shops()
	} else {
		// In-memory stores keep local development possible without Postgres.
		log.Print("TABLESIDE_PG_DSN not set, using in-memory stores")
		mem := authz.NewMemoryStore()
		catalogStore = mem.Catalog()
		grantStore = mem.Grants()
		directory = identity.NewMemoryDirectory()
		shopStore = shops.NewMemoryStore()
	}

	catalog, err := authz.NewCatalog(catalogStore)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	engine, err := authz.NewEngine(catalogStore, grantStore, directory)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	evaluator, err := authz.NewEvaluator(engine)
	if err != nil {
		log.Fatalf("evaluator: %v", err)
	}
	shopService, err := shops.NewService(shopStore)
	if err != nil {
		log.Fatalf("shops: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	bootstrapAdmin(ctx, directory)
	seeder, err := authz.NewSeeder(catalog, engine, directory)
	if err != nil {
		log.Fatalf("seeder: %v", err)
	}
	if err := seeder.Seed(ctx); err != nil {
		log.Fatalf("seed: %v", err)
	}
	if _, err := engine.SweepExpired(ctx, time.Now().UTC()); err != nil {
		obs.Warn("startup sweep failed", map[string]any{"error": err.Error()})
	}
	cancel()

	// Periodic retirement of expired grant rows. Live checks stay correct
	// without it; this only keeps the table tidy.
	schedule := os.Getenv("TABLESIDE_SWEEP_SCHEDULE")
	if schedule == "" {
		schedule = "@hourly"
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := engine.SweepExpired(ctx, time.Now().UTC()); err != nil {
			obs.Warn("scheduled sweep failed", map[string]any{"error": err.Error()})
		}
	}); err != nil {
		log.Fatalf("sweep schedule %q: %v", schedule, err)
	}
	c.Start()

	api := httpapi.New(httpapi.Deps{
		Catalog:   catalog,
		Engine:    engine,
		Evaluator: evaluator,
		Directory: directory,
		Shops:     shopService,
		Ready:     httpapi.ReadyProbe{DB: db},
		Version:   version,
	})

	handler := httpapi.Logging(
		httpapi.SecurityHeaders(
			httpapi.CORS(
				httpapi.MaxBodyBytes(
					httpapi.RateLimit(api.Handler(), 50, 25),
					1<<20))))

	addr := os.Getenv("TABLESIDE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tableside-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Print("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	<-c.Stop().Done()
	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Print("Stopped")
}

// bootstrapAdmin ensures the admin account the seeder assigns grants from.
// The password comes from the environment; without it a missing admin is
// only reported.
func bootstrapAdmin(ctx context.Context, directory identity.Directory) {
	if _, err := directory.FindByUsername(ctx, "admin"); err == nil {
		return
	} else if !errors.Is(err, identity.ErrNotFound) {
		log.Fatalf("lookup admin: %v", err)
	}

	password := os.Getenv("TABLESIDE_ADMIN_PASSWORD")
	if password == "" {
		obs.Warn("admin account missing and TABLESIDE_ADMIN_PASSWORD not set", nil)
		return
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	now := time.Now().UTC()
	admin := identity.User{
		ID:           ids.New(),
		Username:     "admin",
		Email:        "admin@tableside.local",
		PasswordHash: hash,
		Role:         identity.RoleAdmin,
		Status:       identity.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := directory.Create(ctx, &admin); err != nil && !errors.Is(err, identity.ErrAlreadyExists) {
		log.Fatalf("create admin: %v", err)
	}
	obs.Info("admin account bootstrapped", map[string]any{"user_id": admin.ID})
}
