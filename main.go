package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/utils"

	"hadirku_backend/internals/configs"
	database "hadirku_backend/internals/databases"
	"hadirku_backend/internals/features/attendance/geo"
	"hadirku_backend/internals/features/attendance/service"
	middlewares "hadirku_backend/internals/middlewares"
	routes "hadirku_backend/internals/route"
)

func main() {
	configs.LoadEnv()

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"}, // sesuaikan dengan CIDR gateway jika perlu
	})

	// ⚙️ middleware dasar + performa
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault})) // gzip
	app.Use(etag.New())                                                  // 304 caching

	// 🔎 Request-ID + timing (observability ringan)
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		// HTTP timeout guard (selaras dengan statement_timeout di DB)
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		dur := time.Since(start)
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), dur)
		return err
	})

	middlewares.SetupMiddlewares(app)

	// 🔌 Store: Postgres kalau DB_HOST diset, in-memory untuk dev lokal
	var store service.SessionStore
	usingDB := os.Getenv("DB_HOST") != ""
	if usingDB {
		database.ConnectDB()
		database.Migrate()
		database.TunePool()
		database.WarmUpQueries()
		store = service.NewGormSessionStore(database.DB)
	} else {
		log.Println("⚠️ DB_HOST kosong — pakai store in-memory (mode dev, data hilang saat restart)")
		store = service.NewMemorySessionStore()
	}

	// 📍 Geofence + registry posisi + service absen
	fence := geo.FenceConfig{
		Center:       geo.Coordinate{Lat: configs.OfficeLat, Lng: configs.OfficeLng},
		RadiusMeters: configs.GeofenceRadiusM,
	}
	positions := service.NewPositionRegistry(fence, configs.PositionTTL)
	svc := service.NewClockService(store, fence, positions, configs.MaxShift).
		WithLocation(configs.AppLocation)

	schedCtx, stopSchedulers := context.WithCancel(context.Background())

	// sesi open dari proses sebelumnya dimuat ulang dulu
	if err := svc.Rehydrate(schedCtx); err != nil {
		log.Printf("❌ Rehydrate gagal: %v", err)
	}

	// ⏱ scheduler setelah store siap
	svc.StartSnapshotTicker(schedCtx, configs.SnapshotTick)
	svc.StartAutoCloseSweeper(schedCtx, configs.SweepTick)
	positions.StartSweeper(schedCtx, configs.PositionTTL)

	// ✅ Routes
	routes.SetupRoutes(app, svc, positions)

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	// Start server non-blocking
	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: stop scheduler dulu, lalu server, lalu pool DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopSchedulers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if usingDB {
		if sqlDB, err := database.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
