// Command seed-db loads a development dataset: the product catalog, a few
// coupons, a demo customer with a funded wallet, and an API key.
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
	"github.com/shopspring/decimal"

	"github.com/rxkart/checkout-api/internal/domain/auth"
	"github.com/rxkart/checkout-api/internal/domain/coupon"
	"github.com/rxkart/checkout-api/internal/domain/product"
	"github.com/rxkart/checkout-api/internal/storage/postgres"
)

type attributeJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
}

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	RequiresRx  bool            `json:"requires_rx"`
	Attributes  []attributeJSON `json:"attributes"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or RXKART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or RXKART_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("RXKART_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or RXKART_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("RXKART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedCustomer(ctx, postgres.NewCustomerRepository(pool)); err != nil {
		return errors.Wrap(err, "seed customer")
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	var items []productJSON
	if err := json.Unmarshal(raw, &items); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}

	slog.Info("seeding products", slog.Int("count", len(items)))

	for _, item := range items {
		p := &product.Product{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			Category:    item.Category,
			RequiresRx:  item.RequiresRx,
		}
		for _, a := range item.Attributes {
			p.Attributes = append(p.Attributes, product.Attribute{
				ID:              a.ID,
				ProductID:       item.ID,
				Name:            a.Name,
				AdditionalPrice: a.AdditionalPrice,
			})
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return err
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	nextMonth := time.Now().AddDate(0, 1, 0)

	coupons := []coupon.Coupon{
		{
			Code:       "WELCOME10",
			Kind:       coupon.KindPercentage,
			Amount:     decimal.NewFromInt(10),
			ExpiryDate: nextMonth,
			UsageLimit: 1000,
		},
		{
			Code:       "FLAT50",
			Kind:       coupon.KindFlat,
			Amount:     decimal.NewFromInt(50),
			ExpiryDate: nextMonth,
			UsageLimit: 100,
		},
		{
			Code:       "HALFPRICE",
			Kind:       coupon.KindPercentage,
			Amount:     decimal.NewFromInt(50),
			ExpiryDate: time.Now().AddDate(0, 0, 7),
			UsageLimit: 10,
		},
	}

	for i := range coupons {
		if err := repo.Upsert(ctx, &coupons[i]); err != nil {
			return err
		}
		slog.Info("upserted coupon", slog.String("code", coupons[i].Code))
	}
	return nil
}

func seedCustomer(ctx context.Context, repo *postgres.CustomerRepository) error {
	slog.Info("seeding demo customer")

	err := repo.Upsert(ctx, "demo", "Demo Customer", "demo@example.com", decimal.NewFromInt(500))
	if err != nil {
		return err
	}

	slog.Info("upserted customer", slog.String("id", "demo"))
	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := repo.Upsert(ctx, &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: keyHash,
		Name:    "Default test key",
		Scopes:  []string{"create_order"},
	}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
