package reputation

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/fraudscope/internal/domain/model"
)

// InternalSourceName is the name of the internal reputation source.
const InternalSourceName = "internal"

// Contribution of each lookup to the internal risk score.
const (
	ipRiskShare    = 0.5
	emailRiskShare = 0.3
)

// Risk tags raised by the internal source.
const (
	TagProxyIP         = "proxy_ip"
	TagVPNIP           = "vpn_ip"
	TagDisposableEmail = "disposable_email"
)

// InternalSource scores a transaction against the internal IP and e-mail
// reputation data.
type InternalSource struct {
	store Store
}

// NewInternalSource scores transactions against the IP and email
// reputation held in store.
func NewInternalSource(store Store) *InternalSource {
	return &InternalSource{store: store}
}

// Name returns InternalSourceName.
func (s *InternalSource) Name() string { return InternalSourceName }

// Score adds half the IP risk and 30% of the e-mail risk, clamped to 1.
// Unknown addresses contribute nothing.
func (s *InternalSource) Score(ctx context.Context, ev model.TransactionEvent) (model.Reputation, error) { //nolint:gocritic // value semantics
	var out model.Reputation

	if ip := ev.IPAddress(); ip != "" {
		rep, ok, err := s.store.IP(ctx, ip)
		if err != nil {
			return model.Reputation{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
		}
		if ok {
			out.RiskScore += rep.RiskScore * ipRiskShare
			if rep.IsProxy {
				out.Tags = append(out.Tags, TagProxyIP)
			}
			if rep.IsVPN {
				out.Tags = append(out.Tags, TagVPNIP)
			}
		}
	}

	if email := ev.Email(); email != "" {
		rep, ok, err := s.store.Email(ctx, EmailHash(email))
		if err != nil {
			return model.Reputation{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
		}
		if ok {
			out.RiskScore += rep.RiskScore * emailRiskShare
			if rep.IsDisposable {
				out.Tags = append(out.Tags, TagDisposableEmail)
			}
		}
	}

	out.RiskScore = math.Min(out.RiskScore, 1)
	return out, nil
}
