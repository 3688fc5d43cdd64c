// Command promo-gen generates random promo codes that do not collide with
// stored ones, inserts them in batches and exports them to a gzip file.
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shop-checkout/internal/domain/promo"
	"github.com/xenking/shop-checkout/internal/storage/postgres"
)

const bloomFPR = 0.001

type options struct {
	count     int
	length    int
	kind      string
	discount  string
	validDays int
	out       string
	batchSize int
	workers   int
}

func main() {
	var (
		databaseURL string
		opts        options
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&opts.count, "count", 1000, "number of codes to generate")
	flag.IntVar(&opts.length, "length", 8, "code length")
	flag.StringVar(&opts.kind, "type", string(promo.TypePercentage), "discount type: percentage or fixed")
	flag.StringVar(&opts.discount, "discount", "10", "discount value")
	flag.IntVar(&opts.validDays, "valid-days", 30, "days the codes stay valid")
	flag.StringVar(&opts.out, "out", "promo-codes.txt.gz", "gzip export path, empty to skip")
	flag.IntVar(&opts.batchSize, "batch", 500, "codes per insert batch")
	flag.IntVar(&opts.workers, "workers", 4, "concurrent insert batches")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, opts); err != nil {
		lg.Fatal("Promo generation failed", zap.Error(err))
	}
}

func (o options) template(now time.Time) (promo.PromoCode, error) {
	t := promo.Type(o.kind)
	if !t.Valid() {
		return promo.PromoCode{}, errors.Errorf("unknown discount type %q", o.kind)
	}
	d, err := decimal.NewFromString(o.discount)
	if err != nil {
		return promo.PromoCode{}, errors.Wrap(err, "parse discount")
	}
	if !d.IsPositive() || (t == promo.TypePercentage && d.GreaterThan(decimal.NewFromInt(100))) {
		return promo.PromoCode{}, errors.Errorf("discount %s out of range for %s", d, t)
	}
	if o.count <= 0 || o.batchSize <= 0 || o.workers <= 0 {
		return promo.PromoCode{}, errors.New("count, batch and workers must be positive")
	}
	return promo.PromoCode{
		Type:      t,
		Discount:  d,
		ValidFrom: now,
		ValidTo:   now.AddDate(0, 0, o.validDays),
		Active:    true,
	}, nil
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, opts options) error {
	tmpl, err := opts.template(time.Now())
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()
	repo := postgres.NewPromoRepository(pool)

	filter := bloom.NewWithEstimates(uint(opts.count)*4+1<<16, bloomFPR)
	var existing int
	if err := repo.ForEachCode(ctx, func(code string) error {
		filter.AddString(strings.ToUpper(code))
		existing++
		return nil
	}); err != nil {
		return errors.Wrap(err, "load existing codes")
	}
	lg.Info("Loaded existing codes", zap.Int("count", existing))

	codes, err := generate(filter, opts.count, opts.length)
	if err != nil {
		return err
	}
	lg.Info("Generated codes", zap.Int("count", len(codes)))

	var inserted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	if opts.out != "" {
		g.Go(func() error { return export(opts.out, codes) })
	}

	batches := make(chan []string)
	g.Go(func() error {
		defer close(batches)
		for start := 0; start < len(codes); start += opts.batchSize {
			select {
			case batches <- codes[start:min(start+opts.batchSize, len(codes))]:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range opts.workers {
		g.Go(func() error {
			for batch := range batches {
				rows := make([]promo.PromoCode, len(batch))
				for i, code := range batch {
					rows[i] = tmpl
					rows[i].Code = code
				}
				n, err := repo.InsertBatch(gctx, rows)
				inserted.Add(n)
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lg.Info("Promo codes stored",
		zap.Int64("inserted", inserted.Load()),
		zap.Int64("skipped", int64(len(codes))-inserted.Load()),
		zap.String("export", opts.out),
	)
	return nil
}

// generate draws codes until n of them are absent from filter. A bloom false
// positive only costs another draw.
func generate(filter *bloom.BloomFilter, n, length int) ([]string, error) {
	codes := make([]string, 0, n)
	for attempts := 0; len(codes) < n; attempts++ {
		if attempts > n*100 {
			return nil, errors.Errorf("code space exhausted after %d attempts, increase -length", attempts)
		}
		code, err := promo.GenerateCode(length)
		if err != nil {
			return nil, err
		}
		if filter.TestOrAddString(code) {
			continue
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func export(path string, codes []string) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close export")
		}
	}()

	gz := pgzip.NewWriter(f)
	w := bufio.NewWriter(gz)
	for _, code := range codes {
		if _, err := w.WriteString(code + "\n"); err != nil {
			return errors.Wrap(err, "write export")
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush export")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip")
	}
	return nil
}
