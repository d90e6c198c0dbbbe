package demo

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/ledgerlink/internal/xero"
)

// Fixed business data for the demo transaction. Prices are decimals so line
// and subtotal arithmetic stays exact.
var (
	surfboardSalesPrice     = decimal.RequireFromString("520.99")
	surfboardPurchasePrice  = decimal.RequireFromString("375.50")
	skateboardSalesPrice    = decimal.RequireFromString("124.30")
	skateboardPurchasePrice = decimal.RequireFromString("90.00")
)

const (
	surfboardQuantity  = 4
	skateboardQuantity = 5

	demoCurrency        = "USD"
	demoTaxType         = "NONE"
	salesAccountCode    = "200"
	purchaseAccountCode = "310"
)

func decimalFromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// newRunID returns a short unique suffix. Codes are uniquified per run so a
// second execution creates a fresh entity set instead of tripping the
// platform's duplicate-code validation.
func newRunID() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

func surfboardItem(runID string) xero.Item {
	return xero.Item{
		Code:        "SURF-" + runID,
		Name:        "Surfboard",
		IsSold:      true,
		IsPurchased: true,
		SalesDetails: &xero.ItemDetails{
			UnitPrice:   surfboardSalesPrice.InexactFloat64(),
			AccountCode: salesAccountCode,
			TaxType:     demoTaxType,
		},
		PurchaseDetails: &xero.ItemDetails{
			UnitPrice:   surfboardPurchasePrice.InexactFloat64(),
			AccountCode: purchaseAccountCode,
			TaxType:     demoTaxType,
		},
	}
}

func skateboardItem(runID string) xero.Item {
	return xero.Item{
		Code:        "SKATE-" + runID,
		Name:        "Skateboard",
		IsSold:      true,
		IsPurchased: true,
		SalesDetails: &xero.ItemDetails{
			UnitPrice:   skateboardSalesPrice.InexactFloat64(),
			AccountCode: salesAccountCode,
			TaxType:     demoTaxType,
		},
		PurchaseDetails: &xero.ItemDetails{
			UnitPrice:   skateboardPurchasePrice.InexactFloat64(),
			AccountCode: purchaseAccountCode,
			TaxType:     demoTaxType,
		},
	}
}

func demoContact(runID string) xero.Contact {
	return xero.Contact{
		Name:          "Rod Drury",
		FirstName:     "Rod",
		LastName:      "Drury",
		EmailAddress:  "rod.drury@example.com",
		AccountNumber: "RD-" + runID,
	}
}

func demoBankAccount(runID string) xero.Account {
	return xero.Account{
		Code:              "B" + runID,
		Name:              "Demo Bank Account " + runID,
		Type:              xero.AccountTypeBank,
		BankAccountNumber: "1234-" + runID,
	}
}
