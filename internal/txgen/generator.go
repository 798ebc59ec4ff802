package txgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/fraudscope/pkg/logger"
)

const randomFloatDivisor = 1_000_000

var (
	merchants    = []string{"grocer", "fuel", "airline", "electronics", "gift_cards", "crypto_exchange"}
	countries    = []string{"US", "GB", "DE", "FR", "NL"}
	riskCountry  = "NG"
	emailDomains = []string{"example.com", "mail.test", "mailinator.com"}
)

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func pick[T any](xs []T) T {
	return xs[int(getRandomFloat()*float64(len(xs)))%len(xs)]
}

// newTransactionID mirrors the service format: TXN_ plus 8 upper-case hex.
func newTransactionID() string {
	return "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Generate creates cfg.Transactions transactions with unique ids spread over
// cfg.Users synthetic users.
func Generate(ctx context.Context, cfg *Config) ([]Transaction, error) {
	logger.Get().Info(ctx, "generating transactions",
		logger.Int("transactions", cfg.Transactions),
		logger.Int("users", cfg.Users),
		logger.Float64("fraud_ratio", cfg.FraudRatio))

	users := make([]string, cfg.Users)
	for i := range users {
		users[i] = "user_" + uuid.NewString()[:8]
	}

	seen := make(map[string]struct{}, cfg.Transactions)
	out := make([]Transaction, 0, cfg.Transactions)
	for len(out) < cfg.Transactions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}
		id := newTransactionID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, generateOne(id, pick(users), getRandomFloat() < cfg.FraudRatio))
	}
	return out, nil
}

// generateOne shapes either an ordinary purchase or one carrying the usual
// fraud markers: large amount, young account, foreign card, risky merchant.
func generateOne(id, user string, suspicious bool) Transaction {
	home := pick(countries)
	tx := Transaction{
		TransactionID: id,
		UserID:        user,
		Payment: &Payment{
			Processor:      "txgen",
			Currency:       "USD",
			IPAddress:      fmt.Sprintf("10.%d.%d.%d", int(getRandomFloat()*255), int(getRandomFloat()*255), int(getRandomFloat()*255)),
			Email:          user + "@" + emailDomains[0],
			BillingCountry: home,
			CardCountry:    home,
			Signals:        map[string]float64{"account_age_days": math.Round(30 + getRandomFloat()*2000)},
		},
	}
	if !suspicious {
		// most purchases sit between 5 and 300
		tx.Amount = math.Round((5+math.Exp(getRandomFloat()*4)*5)*100) / 100
		tx.Merchant = pick(merchants[:4])
		return tx
	}
	tx.Amount = math.Round((2000+getRandomFloat()*8000)*100) / 100
	tx.Merchant = pick(merchants[3:])
	tx.Payment.CardCountry = riskCountry
	tx.Payment.Email = user + "@" + emailDomains[2]
	tx.Payment.Signals["account_age_days"] = math.Round(getRandomFloat() * 7)
	tx.Payment.Signals["cross_border"] = 1
	return tx
}
