package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v84"
)

// PlusPlan describes the single paid plan.
var PlusPlan = struct {
	DisplayName     string
	LookupKey       string
	Currency        stripe.Currency
	MonthlyPriceMin int64
}{
	DisplayName:     "Voice2Post Plus",
	LookupKey:       "voice2post_plus_monthly",
	Currency:        stripe.CurrencyTHB,
	MonthlyPriceMin: 29900,
}

// EnsurePlusPrice resolves the Plus price when none is configured, finding
// it by lookup key or creating the product and price on first run.
func (b *Billing) EnsurePlusPrice(ctx context.Context) (string, error) {
	if b.plusPriceID != "" {
		return b.plusPriceID, nil
	}

	for p, err := range b.sc.V1Prices.List(ctx, &stripe.PriceListParams{
		Active:     stripe.Bool(true),
		LookupKeys: []*string{stripe.String(PlusPlan.LookupKey)},
	}) {
		if err != nil {
			return "", fmt.Errorf("failed to list prices: %w", err)
		}
		b.plusPriceID = p.ID
		return p.ID, nil
	}

	product, err := b.sc.V1Products.Create(ctx, &stripe.ProductCreateParams{
		Name:     stripe.String(PlusPlan.DisplayName),
		Metadata: map[string]string{"plan": "plus"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}

	price, err := b.sc.V1Prices.Create(ctx, &stripe.PriceCreateParams{
		Product:    stripe.String(product.ID),
		Currency:   stripe.String(string(PlusPlan.Currency)),
		UnitAmount: stripe.Int64(PlusPlan.MonthlyPriceMin),
		LookupKey:  stripe.String(PlusPlan.LookupKey),
		Recurring: &stripe.PriceCreateRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create price: %w", err)
	}

	log.Info().Str("product", product.ID).Str("price", price.ID).Msg("created Plus price")
	b.plusPriceID = price.ID
	return price.ID, nil
}
