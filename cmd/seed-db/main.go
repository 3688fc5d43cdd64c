// Command seed-db loads a development catalog: users with balances and
// addresses, warehouses, products with variants, promo codes and API keys.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/auth"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/promo"
	"github.com/xenking/shop-checkout/internal/storage/postgres"
)

type catalog struct {
	Warehouses []struct {
		City      string `json:"city"`
		IsPrimary bool   `json:"is_primary"`
	} `json:"warehouses"`
	Users []struct {
		Phone        string          `json:"phone"`
		BonusBalance decimal.Decimal `json:"bonus_balance"`
		Addresses    []struct {
			City            string `json:"city"`
			ApartmentNumber string `json:"apartment_number"`
			Entrance        string `json:"entrance"`
			Floor           string `json:"floor"`
			Intercom        string `json:"intercom"`
		} `json:"addresses"`
		APIKeys []struct {
			ID     string   `json:"id"`
			Key    string   `json:"key"`
			Name   string   `json:"name"`
			Scopes []string `json:"scopes"`
		} `json:"api_keys"`
	} `json:"users"`
	Products []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Variants    []struct {
			Size            string              `json:"size"`
			Color           string              `json:"color"`
			Price           decimal.Decimal     `json:"price"`
			DiscountedPrice decimal.NullDecimal `json:"discounted_price"`
			BonusPrice      decimal.NullDecimal `json:"bonus_price"`
			Quantity        int                 `json:"quantity"`
		} `json:"variants"`
	} `json:"products"`
	PromoCodes []struct {
		Code      string          `json:"code"`
		Type      promo.Type      `json:"type"`
		Discount  decimal.Decimal `json:"discount"`
		ValidDays int             `json:"valid_days"`
		Active    bool            `json:"active"`
	} `json:"promo_codes"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
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
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile, []byte(apiKeyPepper)); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string, pepper []byte) error {
	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}
	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return errors.Wrap(err, "parse catalog")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// The whole catalog lands or nothing does.
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return seed(ctx, lg, tx, &c, pepper)
	})
}

func seed(ctx context.Context, lg *zap.Logger, db postgres.DBTX, c *catalog, pepper []byte) error {
	s := postgres.NewSeeder(db)

	for _, w := range c.Warehouses {
		id, err := s.Warehouse(ctx, account.Warehouse{City: w.City, IsPrimary: w.IsPrimary})
		if err != nil {
			return err
		}
		lg.Info("Warehouse", zap.Int64("id", id), zap.String("city", w.City), zap.Bool("primary", w.IsPrimary))
	}

	for _, u := range c.Users {
		userID, err := s.User(ctx, u.Phone, u.BonusBalance)
		if err != nil {
			return err
		}
		lg.Info("User", zap.Int64("id", userID), zap.String("phone", u.Phone))

		for _, a := range u.Addresses {
			id, err := s.Address(ctx, account.Address{
				UserID:          userID,
				City:            a.City,
				ApartmentNumber: a.ApartmentNumber,
				Entrance:        a.Entrance,
				Floor:           a.Floor,
				Intercom:        a.Intercom,
			})
			if err != nil {
				return err
			}
			lg.Info("Address", zap.Int64("id", id), zap.Int64("user_id", userID))
		}
		for _, k := range u.APIKeys {
			if err := s.APIKey(ctx, auth.APIKeyInfo{
				ID:      k.ID,
				UserID:  userID,
				KeyHash: auth.HashKey(k.Key, pepper),
				Name:    k.Name,
				Scopes:  k.Scopes,
			}); err != nil {
				return err
			}
			lg.Info("API key", zap.String("id", k.ID), zap.Int64("user_id", userID), zap.Strings("scopes", k.Scopes))
		}
	}

	for _, p := range c.Products {
		productID, err := s.Product(ctx, p.Name, p.Description)
		if err != nil {
			return err
		}
		for _, v := range p.Variants {
			id, err := s.Variant(ctx, inventory.Variant{
				ProductID:       productID,
				SizeName:        v.Size,
				ColorName:       v.Color,
				Price:           v.Price,
				DiscountedPrice: v.DiscountedPrice,
				BonusPrice:      v.BonusPrice,
				QuantityOnHand:  v.Quantity,
			})
			if err != nil {
				return err
			}
			lg.Info("Variant", zap.Int64("id", id), zap.String("product", p.Name),
				zap.String("size", v.Size), zap.String("color", v.Color), zap.Int("quantity", v.Quantity))
		}
	}

	now := time.Now()
	codes := make([]promo.PromoCode, len(c.PromoCodes))
	for i, p := range c.PromoCodes {
		codes[i] = promo.PromoCode{
			Code:      p.Code,
			Type:      p.Type,
			Discount:  p.Discount,
			ValidFrom: now,
			ValidTo:   now.AddDate(0, 0, p.ValidDays),
			Active:    p.Active,
		}
	}
	inserted, err := postgres.NewPromoRepository(db).InsertBatch(ctx, codes)
	if err != nil {
		return err
	}
	lg.Info("Promo codes", zap.Int64("inserted", inserted), zap.Int("total", len(codes)))
	return nil
}
