package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rxkart/checkout-api/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, kind, amount, expiry_date, usage_limit, times_used
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	// Compare-and-increment: the WHERE clause re-checks redeemability so two
	// concurrent redemptions of a nearly exhausted coupon can never both
	// succeed.
	redeemCouponSQL = `UPDATE coupons SET times_used = times_used + 1
		WHERE UPPER(code) = UPPER($1)
		  AND times_used < usage_limit
		  AND expiry_date >= CURRENT_DATE`

	upsertCouponSQL = `INSERT INTO coupons (code, kind, amount, expiry_date, usage_limit, times_used)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (code) DO UPDATE
		SET kind = EXCLUDED.kind, amount = EXCLUDED.amount,
		    expiry_date = EXCLUDED.expiry_date, usage_limit = EXCLUDED.usage_limit`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive). Returns
// coupon.ErrInvalidCoupon when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Redeem atomically increments the usage counter, conditional on the coupon
// still being unexpired and under its usage limit. Returns
// coupon.ErrInvalidCoupon when the condition matches no row.
func (r *CouponRepository) Redeem(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, redeemCouponSQL, code)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrInvalidCoupon
	}
	return nil
}

// Upsert inserts or replaces a coupon definition, preserving the usage
// counter of an existing row.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.Code, string(c.Kind), c.Amount, c.ExpiryDate, c.UsageLimit,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c    coupon.Coupon
		kind string
	)
	err := row.Scan(&c.Code, &kind, &c.Amount, &c.ExpiryDate, &c.UsageLimit, &c.TimesUsed)
	c.Kind = coupon.Kind(kind)
	return c, err
}
