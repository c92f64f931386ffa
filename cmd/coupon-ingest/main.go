// Command coupon-ingest loads promotional code dumps into the coupons table.
//
// Marketing exports arrive as large gzip-compressed files of one code per
// line. A code counts as redeemable only when it appears in at least two of
// the dump files; the tool streams every file twice (bloom filters first,
// then candidate collection) so none of them has to fit in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ayurkart/checkout/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	dumpFiles     = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
)

// codeRule describes the discount applied when a known code is redeemed.
// Codes not listed here fall back to defaultRule.
type codeRule struct {
	couponType  string
	value       string
	minOrder    string
	maxDiscount string // empty means uncapped
	description string
}

var codeRules = map[string]codeRule{
	"WELLNESS": {couponType: "percentage", value: "15", minOrder: "300", maxDiscount: "200", description: "Wellness week: 15% off"},
	"AYURVEDA": {couponType: "percentage", value: "20", minOrder: "500", maxDiscount: "250", description: "20% off orders above 500"},
	"FLATHUND": {couponType: "fixed_amount", value: "100", minOrder: "600", description: "Flat 100 off orders above 600"},
	"NEWMOON1": {couponType: "fixed_amount", value: "75", minOrder: "400", description: "Flat 75 off orders above 400"},
	"HERBS300": {couponType: "percentage", value: "30", minOrder: "1000", maxDiscount: "300", description: "30% off bulk orders"},
}

var defaultRule = codeRule{
	couponType:  "percentage",
	value:       "10",
	minOrder:    "200",
	maxDiscount: "150",
	description: "Promo code: 10% off",
}

func main() {
	var (
		dataDir     string
		databaseURL string
		validFor    time.Duration
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing couponbaseN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.DurationVar(&validFor, "valid-for", 90*24*time.Hour, "how long ingested coupons stay redeemable")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, validFor); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed")
}

func run(ctx context.Context, dataDir, databaseURL string, validFor time.Duration) error {
	files := make([]string, dumpFiles)
	for i := range files {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("couponbase%d.gz", i+1))
		if _, err := os.Stat(files[i]); err != nil {
			return errors.Wrapf(err, "check file %s", files[i])
		}
	}

	slog.Info("first pass: building bloom filters", slog.Int("files", len(files)))
	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "first pass")
	}

	slog.Info("second pass: collecting codes seen in multiple dumps")
	codes, err := redeemableCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "second pass")
	}

	slog.Info("redeemable codes collected", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return upsertCoupons(ctx, pool, codes, time.Now().Add(validFor))
}

// buildFilters streams every dump concurrently, producing one bloom filter
// per file.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var seen uint64

			err := forEachLine(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				filter.AddString(code)
				if seen++; seen%progressEvery == 0 {
					slog.Info("filter build progress", slog.String("file", path), slog.Uint64("codes", seen))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "filter %s", path)
			}

			slog.Info("filter built", slog.String("file", path), slog.Uint64("codes", seen))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// redeemableCodes re-streams every dump, testing each code against the other
// files' filters, and keeps codes present in at least two dumps. Presence is
// tracked as a per-file bitmask so the merge is a single OR.
func redeemableCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	perFile := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]uint)
			bit := uint(1) << uint(i)
			var seen uint64

			err := forEachLine(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				if seen++; seen%progressEvery == 0 {
					slog.Info("scan progress", slog.String("file", path), slog.Uint64("codes", seen))
				}
				for j := range filters {
					if j != i && filters[j].TestString(code) {
						found[code] |= bit
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}

			slog.Info("scan complete", slog.String("file", path), slog.Int("candidates", len(found)))
			perFile[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	masks := make(map[string]uint)
	for _, found := range perFile {
		for code, bit := range found {
			masks[code] |= bit
		}
	}

	var codes []string
	for code, mask := range masks {
		if bits.OnesCount(mask) >= 2 {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// forEachLine streams a gzip-compressed file line by line, checking for
// cancellation between lines.
func forEachLine(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	return errors.Wrap(scanner.Err(), "scan")
}

// upsertCoupons writes every redeemable code with its rule's discount terms,
// reactivating codes that already exist.
func upsertCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string, expiresAt time.Time) error {
	slog.Info("writing coupons", slog.Int("count", len(codes)))

	for i, code := range codes {
		rule, ok := codeRules[code]
		if !ok {
			rule = defaultRule
		}

		value, err := decimal.NewFromString(rule.value)
		if err != nil {
			return errors.Wrapf(err, "parse value for code %s", code)
		}
		minOrder, err := decimal.NewFromString(rule.minOrder)
		if err != nil {
			return errors.Wrapf(err, "parse minimum order for code %s", code)
		}

		var maxDiscount *decimal.Decimal
		if rule.maxDiscount != "" {
			d, err := decimal.NewFromString(rule.maxDiscount)
			if err != nil {
				return errors.Wrapf(err, "parse maximum discount for code %s", code)
			}
			maxDiscount = &d
		}

		if _, err := pool.Exec(ctx,
			`INSERT INTO coupons (code, description, coupon_type, value,
			                      minimum_order_amount, maximum_discount_amount,
			                      active, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
			 ON CONFLICT (code) DO UPDATE
			 SET description = EXCLUDED.description, coupon_type = EXCLUDED.coupon_type,
			     value = EXCLUDED.value, minimum_order_amount = EXCLUDED.minimum_order_amount,
			     maximum_discount_amount = EXCLUDED.maximum_discount_amount,
			     active = TRUE, expires_at = EXCLUDED.expires_at`,
			code, rule.description, rule.couponType, value, minOrder, maxDiscount, expiresAt,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}

	return nil
}
