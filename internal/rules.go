package internal

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"

	"github.com/verzog/merchant/internal/pricing"
	"github.com/verzog/merchant/internal/shipping"
	"github.com/verzog/merchant/internal/tax"
)

// Rules is the merchant policy file: the tax table, the shipping
// zones with their per-item rules and the volume discount.
type Rules struct {
	Tax      []tax.Rule
	Zones    []shipping.Zone
	Shipping []shipping.Rule
	Discount pricing.Discount
}

type taxRuleFile struct {
	Code    string  `mapstructure:"code"`
	Country string  `mapstructure:"country"`
	Ratio   float64 `mapstructure:"ratio"`
	Formula string  `mapstructure:"formula"`
}

type zoneFile struct {
	Code            string  `mapstructure:"code"`
	Pattern         string  `mapstructure:"pattern"`
	BillScopeAmount float64 `mapstructure:"bill_scope_amount"`
	TaxCode         string  `mapstructure:"tax_code"`
}

type shippingRuleFile struct {
	Zone    string  `mapstructure:"zone"`
	Item    string  `mapstructure:"item"`
	Value   float64 `mapstructure:"value"`
	Formula string  `mapstructure:"formula"`
	A       float64 `mapstructure:"a"`
	B       float64 `mapstructure:"b"`
	C       float64 `mapstructure:"c"`
}

type rulesFile struct {
	Tax      []taxRuleFile      `mapstructure:"tax"`
	Zones    []zoneFile         `mapstructure:"zones"`
	Shipping []shippingRuleFile `mapstructure:"shipping"`
	Discount struct {
		Threshold float64 `mapstructure:"threshold"`
		Rate      float64 `mapstructure:"rate"`
	} `mapstructure:"discount"`
}

// LoadRules reads the merchant policy file. A missing file yields
// empty rules: no tax, free shipping, no discount.
func LoadRules(path string) (*Rules, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return &Rules{}, nil
		}
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var file rulesFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	rules := &Rules{
		Discount: pricing.Discount{
			Threshold: file.Discount.Threshold,
			Rate:      file.Discount.Rate,
		},
	}
	for _, r := range file.Tax {
		rules.Tax = append(rules.Tax, tax.Rule{
			Code:    r.Code,
			Country: r.Country,
			Ratio:   r.Ratio,
			Formula: r.Formula,
		})
	}
	for _, z := range file.Zones {
		rules.Zones = append(rules.Zones, shipping.Zone{
			Code:            z.Code,
			Pattern:         z.Pattern,
			BillScopeAmount: z.BillScopeAmount,
			TaxCode:         z.TaxCode,
		})
	}
	for _, r := range file.Shipping {
		rules.Shipping = append(rules.Shipping, shipping.Rule{
			ZoneCode: r.Zone,
			ItemCode: r.Item,
			Value:    r.Value,
			Formula:  r.Formula,
			A:        r.A,
			B:        r.B,
			C:        r.C,
		})
	}
	return rules, nil
}
