package main

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"gite_booking/internal/adapters/observability"
	redisad "gite_booking/internal/adapters/redis"
	"gite_booking/internal/shared"
)

// seed statements are idempotent; re-running the tool refreshes the demo
// reference data without duplicating it.
var seedStmts = []string{
	`INSERT INTO accommodation_types (id, name, pricing_model) VALUES
	   (1, 'Whole property', 'whole'),
	   (2, 'Room', 'slot')
	 ON DUPLICATE KEY UPDATE name = VALUES(name), pricing_model = VALUES(pricing_model)`,

	`INSERT INTO rate_categories (id, name) VALUES
	   (1, 'Nightly'),
	   (2, 'Per person'),
	   (3, 'Tourist tax')
	 ON DUPLICATE KEY UPDATE name = VALUES(name)`,

	`INSERT INTO platforms (id, name, commission) VALUES
	   (1, 'Booking.com', 15.00),
	   (2, 'Airbnb', 14.20),
	   (3, 'Gites.fr', 10.00),
	   (4, 'Direct', 0)
	 ON DUPLICATE KEY UPDATE name = VALUES(name), commission = VALUES(commission)`,

	`INSERT INTO units (id, name, type_id, max_occupancy, parent_id) VALUES
	   (1, 'Gite entier', 1, 12, NULL),
	   (2, 'Chambre Lavande', 2, 4, 1),
	   (3, 'Chambre Tournesol', 2, 4, 1)
	 ON DUPLICATE KEY UPDATE name = VALUES(name), type_id = VALUES(type_id),
	   max_occupancy = VALUES(max_occupancy), parent_id = VALUES(parent_id)`,

	`INSERT INTO rates (id, type_id, category_id, platform_id, price, tax_included, tax_rate, valid_from, valid_to) VALUES
	   (1, 1, 1, NULL, 100.00, 1, 0,    '2025-01-01', NULL),
	   (2, 2, 2, NULL, 50.00,  0, 1.50, '2025-01-01', NULL),
	   (3, 1, 1, 1,    115.00, 1, 0,    '2025-01-01', NULL),
	   (4, 2, 2, 1,    57.50,  0, 1.50, '2025-01-01', NULL)
	 ON DUPLICATE KEY UPDATE price = VALUES(price), tax_included = VALUES(tax_included),
	   tax_rate = VALUES(tax_rate), valid_from = VALUES(valid_from), valid_to = VALUES(valid_to)`,
}

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	log.Info().Msg("seed starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	for i, stmt := range seedStmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatal().Err(err).Int("stmt", i).Msg("seed statement failed")
		}
	}

	// drop the cached unit tree so the API sees the new inventory
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Del(ctx, "inventory:units"); err != nil {
		log.Warn().Err(err).Msg("cache invalidation failed; entry expires on its own")
	}

	log.Info().Msg("seed done")
}
