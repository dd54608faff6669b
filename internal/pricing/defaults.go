package pricing

// Default variable constructors return fresh values on every call so no
// caller can mutate shared state. Overrides are merged over these via the
// Apply methods below; any subset of fields may be overridden.

// DefaultExchangeRates returns the platform's fixed conversion rates.
func DefaultExchangeRates() ExchangeRates {
	return ExchangeRates{
		GBPToUSD: 1.27,
		EURToUSD: 1.08,
		USDToAED: 3.67,
	}
}

// DefaultPCOVariables returns the standard private client order rates.
func DefaultPCOVariables() PCOVariables {
	return PCOVariables{
		CCMarginPercent:          2.5,
		ImportDutyPercent:        20,
		TransferCostPercent:      0.75,
		DistributorMarginPercent: 7.5,
		VATPercent:               5,
	}
}

// DefaultB2BVariables returns the standard wholesale rates.
func DefaultB2BVariables() B2BVariables {
	return B2BVariables{CCMarginPercent: 5}
}

// DefaultPocketCellarVariables returns the standard per-bottle subscription
// rates. LogisticsOceanPerBottle is carried for products explicitly quoted
// with sea freight even though the classifier never selects ocean itself.
func DefaultPocketCellarVariables() PocketCellarVariables {
	return PocketCellarVariables{
		CCMarginPercent:          5,
		ImportDutyPercent:        20,
		TransferCostPercent:      0.75,
		LogisticsAirPerBottle:    20,
		LogisticsOceanPerBottle:  5,
		DistributorMarginPercent: 7.5,
		SalesCommissionPercent:   2,
		VATPercent:               5,
	}
}

// PCOOverrides is a partial PCOVariables; nil fields keep the base value.
type PCOOverrides struct {
	CCMarginPercent          *float64 `json:"ccMarginPercent,omitempty"`
	ImportDutyPercent        *float64 `json:"importDutyPercent,omitempty"`
	TransferCostPercent      *float64 `json:"transferCostPercent,omitempty"`
	DistributorMarginPercent *float64 `json:"distributorMarginPercent,omitempty"`
	VATPercent               *float64 `json:"vatPercent,omitempty"`
}

// Apply merges the overrides over base and returns the result.
func (o PCOOverrides) Apply(base PCOVariables) PCOVariables {
	setIf(&base.CCMarginPercent, o.CCMarginPercent)
	setIf(&base.ImportDutyPercent, o.ImportDutyPercent)
	setIf(&base.TransferCostPercent, o.TransferCostPercent)
	setIf(&base.DistributorMarginPercent, o.DistributorMarginPercent)
	setIf(&base.VATPercent, o.VATPercent)
	return base
}

// Empty reports whether no field is overridden.
func (o PCOOverrides) Empty() bool {
	return o == PCOOverrides{}
}

// B2BOverrides is a partial B2BVariables.
type B2BOverrides struct {
	CCMarginPercent *float64 `json:"ccMarginPercent,omitempty"`
}

// Apply merges the overrides over base and returns the result.
func (o B2BOverrides) Apply(base B2BVariables) B2BVariables {
	setIf(&base.CCMarginPercent, o.CCMarginPercent)
	return base
}

// Empty reports whether no field is overridden.
func (o B2BOverrides) Empty() bool {
	return o == B2BOverrides{}
}

// PocketCellarOverrides is a partial PocketCellarVariables.
type PocketCellarOverrides struct {
	CCMarginPercent          *float64 `json:"ccMarginPercent,omitempty"`
	ImportDutyPercent        *float64 `json:"importDutyPercent,omitempty"`
	TransferCostPercent      *float64 `json:"transferCostPercent,omitempty"`
	LogisticsAirPerBottle    *float64 `json:"logisticsAirPerBottle,omitempty"`
	LogisticsOceanPerBottle  *float64 `json:"logisticsOceanPerBottle,omitempty"`
	DistributorMarginPercent *float64 `json:"distributorMarginPercent,omitempty"`
	SalesCommissionPercent   *float64 `json:"salesCommissionPercent,omitempty"`
	VATPercent               *float64 `json:"vatPercent,omitempty"`
}

// Apply merges the overrides over base and returns the result.
func (o PocketCellarOverrides) Apply(base PocketCellarVariables) PocketCellarVariables {
	setIf(&base.CCMarginPercent, o.CCMarginPercent)
	setIf(&base.ImportDutyPercent, o.ImportDutyPercent)
	setIf(&base.TransferCostPercent, o.TransferCostPercent)
	setIf(&base.LogisticsAirPerBottle, o.LogisticsAirPerBottle)
	setIf(&base.LogisticsOceanPerBottle, o.LogisticsOceanPerBottle)
	setIf(&base.DistributorMarginPercent, o.DistributorMarginPercent)
	setIf(&base.SalesCommissionPercent, o.SalesCommissionPercent)
	setIf(&base.VATPercent, o.VATPercent)
	return base
}

// Empty reports whether no field is overridden.
func (o PocketCellarOverrides) Empty() bool {
	return o == PocketCellarOverrides{}
}

func setIf(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
