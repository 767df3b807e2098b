package main

import (
	"context"

	"github.com/ariefcatur/go-marketplace-orders/internal/app"
	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
)

// seedDemo loads one shop, one buyer and some stock into the memory store.
func seedDemo(ctx context.Context, store *memstore.Store, comps *app.Components) error {
	store.PutShop(lifecycle.Shop{ID: "shop-demo", SellerID: "seller-demo", Name: "Demo Shop"})
	store.PutProfile(lifecycle.Profile{
		UserID:       "buyer-demo",
		FullName:     "Demo Buyer",
		Phone:        "+6281200000000",
		Email:        "buyer@example.com",
		Locale:       "id-ID",
		AddressLine1: "Jl. Merdeka 1",
		City:         "Jakarta",
	})
	for _, p := range []struct {
		id  string
		qty int
	}{{"P1", 50}, {"P2", 10}, {"P3", 1}} {
		if _, err := comps.Ledger.Restock(ctx, p.id, p.qty); err != nil {
			return err
		}
	}
	return nil
}
