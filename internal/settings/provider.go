package settings

import (
	"github.com/shopspring/decimal"

	"github.com/luisargote/vendora-backend/pkg/config"
)

// Provider exposes the store-wide settlement knobs as read-only values.
type Provider interface {
	TaxRate() decimal.Decimal
	FlatShippingCents() int64
	DefaultCommissionRate() decimal.Decimal
	AutomaticPayoutsEnabled() bool
	Currency() string
}

type provider struct {
	taxRate        decimal.Decimal
	shippingCents  int64
	commissionRate decimal.Decimal
	autoPayouts    bool
	currency       string
}

// NewProvider snapshots the settlement config at startup. Rates are parsed
// once so callers never see a parse error mid-request.
func NewProvider(cfg config.SettlementConfig) Provider {
	return &provider{
		taxRate:        cfg.TaxRateDecimal(),
		shippingCents:  cfg.FlatShippingCents,
		commissionRate: cfg.DefaultCommissionRateDecimal(),
		autoPayouts:    cfg.AutomaticPayouts,
		currency:       cfg.Currency,
	}
}

func (p *provider) TaxRate() decimal.Decimal               { return p.taxRate }
func (p *provider) FlatShippingCents() int64               { return p.shippingCents }
func (p *provider) DefaultCommissionRate() decimal.Decimal { return p.commissionRate }
func (p *provider) AutomaticPayoutsEnabled() bool          { return p.autoPayouts }
func (p *provider) Currency() string                       { return p.currency }
