package postgres

import (
	"context"

	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
)

// directory reads the users and shops tables owned by the account service.
type directory struct{ m *TxManager }

func (d directory) GetBuyerProfile(ctx context.Context, userID string) (lifecycle.Profile, error) {
	var p lifecycle.Profile
	err := d.m.conn(ctx).QueryRow(ctx, `
		SELECT id, full_name, phone, email, locale, address_line1, address_line2, city, region, postal_code, country
		FROM users WHERE id=$1`, userID).Scan(
		&p.UserID, &p.FullName, &p.Phone, &p.Email, &p.Locale,
		&p.AddressLine1, &p.AddressLine2, &p.City, &p.Region, &p.PostalCode, &p.Country,
	)
	if err != nil {
		return lifecycle.Profile{}, mapError(err, notFoundf(lifecycle.ErrProfileNotFound, userID))
	}
	return p, nil
}

func (d directory) GetShopBySellerID(ctx context.Context, sellerID string) (lifecycle.Shop, error) {
	var s lifecycle.Shop
	err := d.m.conn(ctx).QueryRow(ctx, `SELECT id, seller_id, name FROM shops WHERE seller_id=$1`, sellerID).
		Scan(&s.ID, &s.SellerID, &s.Name)
	if err != nil {
		return lifecycle.Shop{}, mapError(err, notFoundf(lifecycle.ErrShopNotFound, sellerID))
	}
	return s, nil
}

// PutProfile upserts a user row. Used by seeding and integration tests.
func (s *Store) PutProfile(ctx context.Context, p lifecycle.Profile) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO users(id, full_name, phone, email, locale, address_line1, address_line2, city, region, postal_code, country)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET full_name=EXCLUDED.full_name, phone=EXCLUDED.phone, email=EXCLUDED.email,
			locale=EXCLUDED.locale, address_line1=EXCLUDED.address_line1, address_line2=EXCLUDED.address_line2,
			city=EXCLUDED.city, region=EXCLUDED.region, postal_code=EXCLUDED.postal_code, country=EXCLUDED.country`,
		p.UserID, p.FullName, p.Phone, p.Email, p.Locale, p.AddressLine1, p.AddressLine2, p.City, p.Region, p.PostalCode, p.Country,
	)
	return mapError(err, nil)
}

func (s *Store) PutShop(ctx context.Context, shop lifecycle.Shop) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO shops(id, seller_id, name) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET seller_id=EXCLUDED.seller_id, name=EXCLUDED.name`,
		shop.ID, shop.SellerID, shop.Name,
	)
	return mapError(err, nil)
}
