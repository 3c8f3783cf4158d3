// Command seed loads the district master and a fiscal year of synthetic performance
// records into the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/cache/redisstore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/config"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/geo"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/locations"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/logger"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/mongostore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
	_ "github.com/mohammed-shakir/mgnrega-tracker/internal/store/memory"
	_ "github.com/mohammed-shakir/mgnrega-tracker/internal/store/mongodb"
	_ "github.com/mohammed-shakir/mgnrega-tracker/internal/store/rediskv"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/upstream"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
	cfg := config.FromEnv()

	fy := flag.String("fy", cfg.DefaultFiscalYear, "fiscal year to seed, e.g. 2024-25")
	months := flag.Int("months", 12, "number of fiscal months to seed starting from April")
	flag.Parse()

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Service: cfg.Service, Component: "seed"}, os.Stdout)
	l := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := seed(ctx, cfg, *fy, *months, l.Info); err != nil {
		l.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg config.Config, fy string, months int, logf func(string, ...any)) error {
	if months < 1 || months > 12 {
		return fmt.Errorf("months must be 1..12 (got %d)", months)
	}
	deps := store.Deps{}
	if cfg.StoreDriver == "mongo" || cfg.Geo.Source == "mongo" {
		c, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.Close(cctx)
		}()
		deps.Mongo = c

		ms := locations.NewMongoSource(c)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return err
		}
		n, err := ms.Seed(ctx, geo.Districts())
		if err != nil {
			return err
		}
		logf("district master seeded", "written", n)
	}
	if cfg.StoreDriver == "redis" {
		c, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis client: %w", err)
		}
		defer func() { _ = c.Close() }()
		deps.Redis = c
	}

	st, err := store.Open(ctx, cfg.StoreDriver, deps)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close(context.Background()) }()

	n, err := seedRecords(ctx, st, geo.Districts(), fy, months)
	if err != nil {
		return err
	}
	logf("performance records seeded", "store", cfg.StoreDriver, "fiscal_year", fy, "records", n)
	return nil
}

// seedRecords upserts a mock record for every district and each of the first n fiscal months.
func seedRecords(ctx context.Context, st store.Store, districts []model.DistrictLocation, fy string, months int) (int, error) {
	byCode := make(map[string]model.DistrictLocation, len(districts))
	for _, d := range districts {
		byCode[d.DistrictCode] = d
	}
	gen := upstream.NewMock(func(code string) (model.DistrictLocation, bool) {
		d, ok := byCode[code]
		return d, ok
	})

	written := 0
	for _, d := range districts {
		for i := 1; i <= months; i++ {
			key, err := model.NewPerformanceKey(d.StateCode, d.DistrictCode, fy, fiscalMonth(i))
			if err != nil {
				return written, err
			}
			if _, err := st.Upsert(ctx, gen.Generate(key)); err != nil {
				return written, fmt.Errorf("upsert %s: %w", key, err)
			}
			written++
		}
	}
	return written, nil
}

// fiscalMonth returns the month name for fiscal index i (1 = April).
func fiscalMonth(i int) string {
	return time.Month((i+2)%12 + 1).String()
}
