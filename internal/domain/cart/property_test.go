package cart_test

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/memory"
)

func TestCart_QuantitiesStayPositive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := []string{"A", "B", "C"}
		store := memory.New()
		stocks := make(map[string]int, len(ids))
		for _, id := range ids {
			stocks[id] = rapid.IntRange(0, 6).Draw(t, "stock-"+id)
			store.PutProduct(product.Product{ID: id, Name: id, StockQuantity: stocks[id]})
		}
		carts := memory.NewCartStore()
		svc := cart.NewService(carts, store)
		ctx := context.Background()

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for range steps {
			id := rapid.SampledFrom(ids).Draw(t, "product")
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_, _ = svc.Add(ctx, session, id, rapid.IntRange(-1, 4).Draw(t, "delta"))
			case 1:
				_, _ = svc.Increase(ctx, session, id)
			case 2:
				_, _ = svc.Decrease(ctx, session, id)
			case 3:
				_, _ = svc.Remove(ctx, session, id)
			}

			c, err := carts.Load(ctx, session)
			if err != nil {
				t.Fatalf("load cart: %v", err)
			}
			for pid, q := range c {
				if q <= 0 {
					t.Fatalf("stored non-positive quantity %d for %s", q, pid)
				}
				if q > stocks[pid] {
					t.Fatalf("cart holds %d of %s, stock is %d", q, pid, stocks[pid])
				}
			}
		}
	})
}
