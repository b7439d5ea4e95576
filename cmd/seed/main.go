// Seed inserts fake items so the live list demo has data to push.
package main

import (
	"database/sql"
	"flag"

	"github.com/go-faker/faker/v4"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/zoravur/liveq/internal/app"
)

type fakeItem struct {
	Name string `faker:"name"`
}

func main() {
	n := flag.Int("n", 10, "number of items to insert")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)

	cfg := app.ConfigFromEnv()
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		zap.L().Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()

	for i := 0; i < *n; i++ {
		var it fakeItem
		if err := faker.FakeData(&it); err != nil {
			zap.L().Fatal("fake data failed", zap.Error(err))
		}
		if _, err := db.Exec("INSERT INTO items (name) VALUES ($1)", it.Name); err != nil {
			zap.L().Fatal("insert failed", zap.Error(err))
		}
	}
	zap.L().Info("seeded items", zap.Int("count", *n))
}
