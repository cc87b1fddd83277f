package catalog

import (
	"context"
	"database/sql"
	"errors"

	"petcare-be/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Repository interface {
	GetProduct(ctx context.Context, id string) (*Offering, error)
	GetService(ctx context.Context, id string) (*Offering, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const getProductQuery = `
	SELECT
		pp.id,
		'product' AS kind,
		pp.name,
		pp.description,
		pp.image_url,
		pp.price,
		pp.currency,
		p.id AS provider_id,
		p.business_name AS provider_name,
		p.has_delivery,
		p.has_pickup,
		COALESCE(p.delivery_fee, 0) AS delivery_fee
	FROM provider_products pp
	JOIN providers p ON p.id = pp.provider_id
	WHERE pp.id = $1 AND pp.is_active = TRUE
`

const getServiceQuery = `
	SELECT
		ps.id,
		'service' AS kind,
		ps.name,
		ps.description,
		ps.image_url,
		ps.base_price AS price,
		ps.currency,
		p.id AS provider_id,
		p.business_name AS provider_name,
		p.has_delivery,
		p.has_pickup,
		COALESCE(p.delivery_fee, 0) AS delivery_fee
	FROM provider_services ps
	JOIN providers p ON p.id = ps.provider_id
	WHERE ps.id = $1 AND ps.is_active = TRUE
`

func (r *repository) GetProduct(ctx context.Context, id string) (*Offering, error) {
	return r.get(ctx, "GetProduct", getProductQuery, id)
}

func (r *repository) GetService(ctx context.Context, id string) (*Offering, error) {
	return r.get(ctx, "GetService", getServiceQuery, id)
}

func (r *repository) get(ctx context.Context, method, query, id string) (*Offering, error) {
	log := logger.ForLayer(ctx, "repository", method).With(zap.String("offering_id", id))

	var o Offering
	err := r.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("offering not found")
		return nil, ErrNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}

	return &o, nil
}
