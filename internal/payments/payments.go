package payments

import (
	"fmt"
	"math"
	"strconv"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

// convenienceFeeRate is added on top of the winning amount before charging.
const convenienceFeeRate = 0.03

// Intent is the result of creating a payment intent for a won auction.
type Intent struct {
	ClientSecret   string  `json:"clientSecret"`
	FinalAmount    float64 `json:"finalAmount"`
	ConvenienceFee float64 `json:"convenienceFee"`
}

// IntentCreator creates a payment intent with an external processor.
// The core never captures or settles payments.
type IntentCreator interface {
	CreateIntent(amount float64, auctionID int64, auctionTitle string) (Intent, error)
}

// StripeCreator implements IntentCreator against the Stripe API.
type StripeCreator struct{}

// NewStripeCreator configures the Stripe client with the given secret key.
func NewStripeCreator(apiKey string) *StripeCreator {
	stripe.Key = apiKey
	return &StripeCreator{}
}

// CreateIntent charges amount plus the convenience fee, in USD cents.
func (c *StripeCreator) CreateIntent(amount float64, auctionID int64, auctionTitle string) (Intent, error) {
	fee := amount * convenienceFeeRate
	total := amount + fee
	amountInCents := int64(total * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
	}
	params.AddMetadata("auction_id", strconv.FormatInt(auctionID, 10))
	params.AddMetadata("auction_title", auctionTitle)
	params.AddMetadata("original_amount", fmt.Sprintf("%.2f", amount))
	params.AddMetadata("convenience_fee_amount", fmt.Sprintf("%.2f", fee))

	intent, err := paymentintent.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("payments: create intent for auction %d: %w", auctionID, err)
	}

	return Intent{
		ClientSecret:   intent.ClientSecret,
		FinalAmount:    roundCents(total),
		ConvenienceFee: roundCents(fee),
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
