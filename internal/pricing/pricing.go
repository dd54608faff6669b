// Package pricing computes final consumer and partner prices from supplier
// prices across the platform's three commercial models: private client
// orders (PCO), wholesale (B2B), and the Pocket Cellar per-bottle
// subscription.
//
// Every function is pure: no I/O, no shared state, inputs passed by value.
// All math runs in USD with full float64 precision; nothing is rounded
// mid-chain. Round2 exists for presentation only. The functions are total:
// a margin percent at or above 100 propagates Inf/NaN rather than erroring,
// so callers must validate ranges before computing.
package pricing

import "math"

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ApplyMargin grosses up price so that the margin is marginPercent of the
// resulting price: (result - price) / result == marginPercent/100.
// Undefined at marginPercent == 100.
func ApplyMargin(price, marginPercent float64) float64 {
	return price / (1 - marginPercent/100)
}

// LogisticsInfo resolves the freight mode and per-bottle USD cost for a
// product source. CultX sourcing ships by air; local inventory has no
// freight leg. Ocean is never selected here: a product quoted with sea
// freight carries its rate through a caller-supplied override instead.
func LogisticsInfo(source ProductSource, vars PocketCellarVariables) Logistics {
	if source == SourceCultX {
		return Logistics{Type: LogisticsAir, PerBottle: vars.LogisticsAirPerBottle}
	}
	return Logistics{Type: LogisticsNone, PerBottle: 0}
}

// CalculatePCOAdmin runs the private client order chain and returns the
// fully itemized result. Each step builds on the previous step's output:
// supplier price, landed duty free, duty paid landed, after distributor
// margin, final with VAT.
func CalculatePCOAdmin(supplierPriceUSD float64, vars PCOVariables, rates ExchangeRates, isBespoke bool) PCOResultAdmin {
	landedDutyFree := ApplyMargin(supplierPriceUSD, vars.CCMarginPercent)
	ccMargin := landedDutyFree - supplierPriceUSD

	importDuty := landedDutyFree * vars.ImportDutyPercent / 100
	transferCost := landedDutyFree * vars.TransferCostPercent / 100
	dutyPaidLanded := landedDutyFree + importDuty + transferCost

	afterDistributor := ApplyMargin(dutyPaidLanded, vars.DistributorMarginPercent)
	distributorMargin := afterDistributor - dutyPaidLanded

	vat := afterDistributor * vars.VATPercent / 100
	finalUSD := afterDistributor + vat

	return PCOResultAdmin{
		SupplierPriceUSD: supplierPriceUSD,

		LandedDutyFree:          landedDutyFree,
		CCMarginAmount:          ccMargin,
		ImportDutyAmount:        importDuty,
		TransferCostAmount:      transferCost,
		DutyPaidLanded:          dutyPaidLanded,
		AfterDistributor:        afterDistributor,
		DistributorMarginAmount: distributorMargin,
		VATAmount:               vat,
		FinalPriceUSD:           finalUSD,
		FinalPriceAED:           finalUSD * rates.USDToAED,

		CCMarginPercent:          vars.CCMarginPercent,
		ImportDutyPercent:        vars.ImportDutyPercent,
		TransferCostPercent:      vars.TransferCostPercent,
		DistributorMarginPercent: vars.DistributorMarginPercent,
		VATPercent:               vars.VATPercent,
		USDToAEDRate:             rates.USDToAED,
		IsBespoke:                isBespoke,
	}
}

// CalculatePCOPartner projects the admin calculation into the consolidated
// partner view. Totals are copied from the admin result, so the two views
// can never disagree on the final price.
func CalculatePCOPartner(supplierPriceUSD float64, vars PCOVariables, rates ExchangeRates, isBespoke bool) PCOResultPartner {
	admin := CalculatePCOAdmin(supplierPriceUSD, vars, rates, isBespoke)
	return PCOResultPartner{
		SupplierPriceUSD: admin.SupplierPriceUSD,
		SubtotalUSD:      admin.LandedDutyFree,
		DutyUSD:          admin.ImportDutyAmount,
		LogisticsUSD:     admin.TransferCostAmount,
		VATUSD:           admin.VATAmount,
		TotalUSD:         admin.FinalPriceUSD,
		TotalAED:         admin.FinalPriceAED,
		IsBespoke:        admin.IsBespoke,
	}
}

// CalculateB2B runs the single-margin wholesale calculation. There is no
// separate partner projection for this model.
func CalculateB2B(supplierPriceUSD float64, vars B2BVariables, rates ExchangeRates, isBespoke bool) B2BResult {
	finalUSD := ApplyMargin(supplierPriceUSD, vars.CCMarginPercent)
	return B2BResult{
		SupplierPriceUSD: supplierPriceUSD,
		CCMarginAmount:   finalUSD - supplierPriceUSD,
		FinalPriceUSD:    finalUSD,
		FinalPriceAED:    finalUSD * rates.USDToAED,
		CCMarginPercent:  vars.CCMarginPercent,
		USDToAEDRate:     rates.USDToAED,
		IsBespoke:        isBespoke,
	}
}

// CalculatePocketCellarAdmin runs the per-bottle subscription chain. It
// extends the PCO chain with a freight leg priced per bottle (added between
// the sourcing margin and the duty base) and a sales commission step before
// VAT. bottleCount must be at least 1; the function does not guard.
func CalculatePocketCellarAdmin(supplierPriceUSD float64, source ProductSource, bottleCount int, vars PocketCellarVariables, rates ExchangeRates, isBespoke bool) PocketCellarResultAdmin {
	afterCCMargin := ApplyMargin(supplierPriceUSD, vars.CCMarginPercent)
	ccMargin := afterCCMargin - supplierPriceUSD

	logistics := LogisticsInfo(source, vars)
	logisticsAmount := logistics.PerBottle * float64(bottleCount)

	landedDutyFree := afterCCMargin + logisticsAmount
	importDuty := landedDutyFree * vars.ImportDutyPercent / 100
	transferCost := landedDutyFree * vars.TransferCostPercent / 100
	dutyPaidLanded := landedDutyFree + importDuty + transferCost

	afterDistributor := ApplyMargin(dutyPaidLanded, vars.DistributorMarginPercent)
	distributorMargin := afterDistributor - dutyPaidLanded

	salesCommission := afterDistributor * vars.SalesCommissionPercent / 100
	preVAT := afterDistributor + salesCommission
	vat := preVAT * vars.VATPercent / 100
	finalUSD := preVAT + vat

	return PocketCellarResultAdmin{
		SupplierPriceUSD: supplierPriceUSD,
		ProductSource:    source,
		BottleCount:      bottleCount,

		AfterCCMargin:           afterCCMargin,
		CCMarginAmount:          ccMargin,
		LogisticsType:           logistics.Type,
		LogisticsPerBottle:      logistics.PerBottle,
		LogisticsAmount:         logisticsAmount,
		LandedDutyFree:          landedDutyFree,
		ImportDutyAmount:        importDuty,
		TransferCostAmount:      transferCost,
		DutyPaidLanded:          dutyPaidLanded,
		AfterDistributor:        afterDistributor,
		DistributorMarginAmount: distributorMargin,
		SalesCommissionAmount:   salesCommission,
		PreVAT:                  preVAT,
		VATAmount:               vat,
		FinalPriceUSD:           finalUSD,
		FinalPriceAED:           finalUSD * rates.USDToAED,

		CCMarginPercent:          vars.CCMarginPercent,
		ImportDutyPercent:        vars.ImportDutyPercent,
		TransferCostPercent:      vars.TransferCostPercent,
		DistributorMarginPercent: vars.DistributorMarginPercent,
		SalesCommissionPercent:   vars.SalesCommissionPercent,
		VATPercent:               vars.VATPercent,
		USDToAEDRate:             rates.USDToAED,
		IsBespoke:                isBespoke,
	}
}

// CalculatePocketCellarPartner projects the admin calculation into the
// consolidated partner view. Freight and transfer cost are merged into a
// single logistics line; totals are copied from the admin result.
func CalculatePocketCellarPartner(supplierPriceUSD float64, source ProductSource, bottleCount int, vars PocketCellarVariables, rates ExchangeRates, isBespoke bool) PocketCellarResultPartner {
	admin := CalculatePocketCellarAdmin(supplierPriceUSD, source, bottleCount, vars, rates, isBespoke)
	return PocketCellarResultPartner{
		SupplierPriceUSD: admin.SupplierPriceUSD,
		SubtotalUSD:      admin.LandedDutyFree,
		DutyUSD:          admin.ImportDutyAmount,
		LogisticsUSD:     admin.TransferCostAmount + admin.LogisticsAmount,
		VATUSD:           admin.VATAmount,
		TotalUSD:         admin.FinalPriceUSD,
		TotalAED:         admin.FinalPriceAED,
		IsBespoke:        admin.IsBespoke,
	}
}
