package pricing

// ProductSource identifies where a product is sourced from, which in turn
// decides whether an international freight leg applies.
type ProductSource string

const (
	SourceCultX          ProductSource = "cultx"
	SourceLocalInventory ProductSource = "local_inventory"
)

// Valid reports whether s is a known product source.
func (s ProductSource) Valid() bool {
	return s == SourceCultX || s == SourceLocalInventory
}

// LogisticsType is the freight mode resolved for a product source. Ocean is
// representable but never chosen automatically: products shipped by sea must
// have their per-bottle rate supplied by the caller via an override.
type LogisticsType string

const (
	LogisticsAir   LogisticsType = "air"
	LogisticsOcean LogisticsType = "ocean"
	LogisticsNone  LogisticsType = "none"
)

// Logistics pairs a freight mode with its per-bottle USD cost.
type Logistics struct {
	Type      LogisticsType
	PerBottle float64
}

// ExchangeRates holds the fixed conversion rates used by the platform.
// All pricing math runs in USD; GBPToUSD and EURToUSD convert supplier
// prices into USD at the boundary, USDToAED converts the final price.
type ExchangeRates struct {
	GBPToUSD float64 `json:"gbpToUsd"`
	EURToUSD float64 `json:"eurToUsd"`
	USDToAED float64 `json:"usdToAed"`
}

// PCOVariables parameterizes the private client order model. Percent fields
// are fractions of 100 (5 means 5%). Margin percents must stay below 100 for
// the gross-up to be defined; callers validate before computing.
type PCOVariables struct {
	CCMarginPercent          float64 `json:"ccMarginPercent"`
	ImportDutyPercent        float64 `json:"importDutyPercent"`
	TransferCostPercent      float64 `json:"transferCostPercent"`
	DistributorMarginPercent float64 `json:"distributorMarginPercent"`
	VATPercent               float64 `json:"vatPercent"`
}

// B2BVariables parameterizes the wholesale model.
type B2BVariables struct {
	CCMarginPercent float64 `json:"ccMarginPercent"`
}

// PocketCellarVariables parameterizes the per-bottle subscription model.
type PocketCellarVariables struct {
	CCMarginPercent          float64 `json:"ccMarginPercent"`
	ImportDutyPercent        float64 `json:"importDutyPercent"`
	TransferCostPercent      float64 `json:"transferCostPercent"`
	LogisticsAirPerBottle    float64 `json:"logisticsAirPerBottle"`
	LogisticsOceanPerBottle  float64 `json:"logisticsOceanPerBottle"`
	DistributorMarginPercent float64 `json:"distributorMarginPercent"`
	SalesCommissionPercent   float64 `json:"salesCommissionPercent"`
	VATPercent               float64 `json:"vatPercent"`
}

// PCOResultAdmin is the fully itemized private client order calculation.
// Every intermediate amount is present and the inputs are echoed back, so a
// stored result is auditable without the original request.
type PCOResultAdmin struct {
	SupplierPriceUSD float64 `json:"supplierPriceUsd"`

	LandedDutyFree          float64 `json:"landedDutyFree"`
	CCMarginAmount          float64 `json:"ccMarginAmount"`
	ImportDutyAmount        float64 `json:"importDutyAmount"`
	TransferCostAmount      float64 `json:"transferCostAmount"`
	DutyPaidLanded          float64 `json:"dutyPaidLanded"`
	AfterDistributor        float64 `json:"afterDistributor"`
	DistributorMarginAmount float64 `json:"distributorMarginAmount"`
	VATAmount               float64 `json:"vatAmount"`
	FinalPriceUSD           float64 `json:"finalPriceUsd"`
	FinalPriceAED           float64 `json:"finalPriceAed"`

	CCMarginPercent          float64 `json:"ccMarginPercent"`
	ImportDutyPercent        float64 `json:"importDutyPercent"`
	TransferCostPercent      float64 `json:"transferCostPercent"`
	DistributorMarginPercent float64 `json:"distributorMarginPercent"`
	VATPercent               float64 `json:"vatPercent"`
	USDToAEDRate             float64 `json:"usdToAedRate"`
	IsBespoke                bool    `json:"isBespoke"`
}

// PCOResultPartner is the consolidated partner-facing view. Both margins are
// absorbed into the subtotal and total so a partner cannot back the margin
// percentages out of the line items.
type PCOResultPartner struct {
	SupplierPriceUSD float64 `json:"supplierPriceUsd"`
	SubtotalUSD      float64 `json:"subtotalUsd"`
	DutyUSD          float64 `json:"dutyUsd"`
	LogisticsUSD     float64 `json:"logisticsUsd"`
	VATUSD           float64 `json:"vatUsd"`
	TotalUSD         float64 `json:"totalUsd"`
	TotalAED         float64 `json:"totalAed"`
	IsBespoke        bool    `json:"isBespoke"`
}

// B2BResult is the wholesale calculation. There is no separate partner view;
// the breakdown is already minimal enough to share.
type B2BResult struct {
	SupplierPriceUSD float64 `json:"supplierPriceUsd"`
	CCMarginAmount   float64 `json:"ccMarginAmount"`
	FinalPriceUSD    float64 `json:"finalPriceUsd"`
	FinalPriceAED    float64 `json:"finalPriceAed"`
	CCMarginPercent  float64 `json:"ccMarginPercent"`
	USDToAEDRate     float64 `json:"usdToAedRate"`
	IsBespoke        bool    `json:"isBespoke"`
}

// PocketCellarResultAdmin is the fully itemized per-bottle subscription
// calculation.
type PocketCellarResultAdmin struct {
	SupplierPriceUSD float64       `json:"supplierPriceUsd"`
	ProductSource    ProductSource `json:"productSource"`
	BottleCount      int           `json:"bottleCount"`

	AfterCCMargin           float64       `json:"afterCcMargin"`
	CCMarginAmount          float64       `json:"ccMarginAmount"`
	LogisticsType           LogisticsType `json:"logisticsType"`
	LogisticsPerBottle      float64       `json:"logisticsPerBottle"`
	LogisticsAmount         float64       `json:"logisticsAmount"`
	LandedDutyFree          float64       `json:"landedDutyFree"`
	ImportDutyAmount        float64       `json:"importDutyAmount"`
	TransferCostAmount      float64       `json:"transferCostAmount"`
	DutyPaidLanded          float64       `json:"dutyPaidLanded"`
	AfterDistributor        float64       `json:"afterDistributor"`
	DistributorMarginAmount float64       `json:"distributorMarginAmount"`
	SalesCommissionAmount   float64       `json:"salesCommissionAmount"`
	PreVAT                  float64       `json:"preVat"`
	VATAmount               float64       `json:"vatAmount"`
	FinalPriceUSD           float64       `json:"finalPriceUsd"`
	FinalPriceAED           float64       `json:"finalPriceAed"`

	CCMarginPercent          float64 `json:"ccMarginPercent"`
	ImportDutyPercent        float64 `json:"importDutyPercent"`
	TransferCostPercent      float64 `json:"transferCostPercent"`
	DistributorMarginPercent float64 `json:"distributorMarginPercent"`
	SalesCommissionPercent   float64 `json:"salesCommissionPercent"`
	VATPercent               float64 `json:"vatPercent"`
	USDToAEDRate             float64 `json:"usdToAedRate"`
	IsBespoke                bool    `json:"isBespoke"`
}

// PocketCellarResultPartner is the consolidated partner-facing view.
// Transfer cost and freight are merged into one logistics line; margins and
// sales commission are absorbed into subtotal and total.
type PocketCellarResultPartner struct {
	SupplierPriceUSD float64 `json:"supplierPriceUsd"`
	SubtotalUSD      float64 `json:"subtotalUsd"`
	DutyUSD          float64 `json:"dutyUsd"`
	LogisticsUSD     float64 `json:"logisticsUsd"`
	VATUSD           float64 `json:"vatUsd"`
	TotalUSD         float64 `json:"totalUsd"`
	TotalAED         float64 `json:"totalAed"`
	IsBespoke        bool    `json:"isBespoke"`
}
