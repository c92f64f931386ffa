// Command seed-db loads an initial catalog, a set of coupons, and an
// operator API key into the database. It is idempotent: rerunning upserts.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ayurkart/checkout/internal/storage/postgres"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Active   bool            `json:"active"`
}

type couponJSON struct {
	Code                  string           `json:"code"`
	Description           string           `json:"description"`
	Type                  string           `json:"type"`
	Value                 decimal.Decimal  `json:"value"`
	MinimumOrderAmount    decimal.Decimal  `json:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount"`
	UsageLimit            *int             `json:"usage_limit"`
	ExpiresAt             time.Time        `json:"expires_at"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		couponsFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&couponsFile, "coupons-file", "db/seed/coupons.json", "path to coupons JSON file")
	flag.StringVar(&apiKey, "api-key", "", "operator API key to seed (or CHECKOUT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CHECKOUT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CHECKOUT_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CHECKOUT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, couponsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed")
}

func run(ctx context.Context, databaseURL, productsFile, couponsFile, apiKey, apiKeyPepper string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool, couponsFile); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, apiKeyPepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products")
	}

	for _, p := range products {
		if _, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, price, quantity, active)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
			 SET name = EXCLUDED.name, price = EXCLUDED.price,
			     quantity = EXCLUDED.quantity, active = EXCLUDED.active,
			     updated_at = now()`,
			p.ID, p.Name, p.Price, p.Quantity, p.Active,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	var coupons []couponJSON
	if err := json.Unmarshal(data, &coupons); err != nil {
		return errors.Wrap(err, "parse coupons")
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx,
			`INSERT INTO coupons (code, description, coupon_type, value,
			                      minimum_order_amount, maximum_discount_amount,
			                      usage_limit, active, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
			 ON CONFLICT (code) DO UPDATE
			 SET description = EXCLUDED.description, coupon_type = EXCLUDED.coupon_type,
			     value = EXCLUDED.value, minimum_order_amount = EXCLUDED.minimum_order_amount,
			     maximum_discount_amount = EXCLUDED.maximum_discount_amount,
			     usage_limit = EXCLUDED.usage_limit, expires_at = EXCLUDED.expires_at`,
			c.Code, c.Description, c.Type, c.Value,
			c.MinimumOrderAmount, c.MaximumDiscountAmount, c.UsageLimit, c.ExpiresAt,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
	}

	slog.Info("coupons seeded", slog.Int("count", len(coupons)))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx,
		`INSERT INTO api_keys (id, key_hash, name, scopes)
		 VALUES ($1, $2, 'operator', '{orders:read,orders:write}')
		 ON CONFLICT (key_hash) DO NOTHING`,
		uuid.New().String(), hash,
	); err != nil {
		return errors.Wrap(err, "upsert api key")
	}

	slog.Info("api key seeded")
	return nil
}
