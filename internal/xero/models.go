// Package xero is a typed client for the subset of the Xero accounting API
// the application touches: items, contacts, invoices, accounts, payments,
// organisations and the tenant connections listing.
package xero

// Invoice types accepted by the API.
const (
	InvoiceTypeReceivable = "ACCREC"
	InvoiceTypePayable    = "ACCPAY"
)

// Account types used by the demo.
const (
	AccountTypeBank = "BANK"
)

// ItemDetails carries the price and posting defaults of one side of an item.
type ItemDetails struct {
	UnitPrice   float64 `json:"UnitPrice"`
	AccountCode string  `json:"AccountCode,omitempty"`
	TaxType     string  `json:"TaxType,omitempty"`
}

// Item is a catalog item. Sales and purchase details are nested per the API.
type Item struct {
	ItemID          string       `json:"ItemID,omitempty"`
	Code            string       `json:"Code" validate:"required"`
	Name            string       `json:"Name" validate:"required"`
	IsSold          bool         `json:"IsSold,omitempty"`
	IsPurchased     bool         `json:"IsPurchased,omitempty"`
	SalesDetails    *ItemDetails `json:"SalesDetails,omitempty"`
	PurchaseDetails *ItemDetails `json:"PurchaseDetails,omitempty"`
}

// Phone is one contact phone entry.
type Phone struct {
	PhoneType   string `json:"PhoneType,omitempty"`
	PhoneNumber string `json:"PhoneNumber,omitempty"`
}

// Contact is a customer or supplier record.
type Contact struct {
	ContactID     string  `json:"ContactID,omitempty"`
	Name          string  `json:"Name" validate:"required"`
	FirstName     string  `json:"FirstName,omitempty"`
	LastName      string  `json:"LastName,omitempty"`
	EmailAddress  string  `json:"EmailAddress,omitempty"`
	AccountNumber string  `json:"AccountNumber,omitempty"`
	Phones        []Phone `json:"Phones,omitempty"`
}

// ContactRef references an existing contact by identifier.
type ContactRef struct {
	ContactID string `json:"ContactID" validate:"required"`
}

// LineItem is one priced entry within an invoice.
type LineItem struct {
	Description string  `json:"Description,omitempty"`
	Quantity    float64 `json:"Quantity" validate:"required,gt=0"`
	UnitAmount  float64 `json:"UnitAmount" validate:"required"`
	ItemCode    string  `json:"ItemCode,omitempty"`
	AccountCode string  `json:"AccountCode,omitempty"`
	TaxType     string  `json:"TaxType,omitempty"`
	LineAmount  float64 `json:"LineAmount,omitempty"`
}

// Invoice is a sales or purchase invoice.
type Invoice struct {
	InvoiceID    string     `json:"InvoiceID,omitempty"`
	Type         string     `json:"Type" validate:"required,oneof=ACCREC ACCPAY"`
	Contact      ContactRef `json:"Contact" validate:"required"`
	Date         string     `json:"Date,omitempty"`
	DueDate      string     `json:"DueDate,omitempty"`
	LineItems    []LineItem `json:"LineItems" validate:"required,min=1,dive"`
	Status       string     `json:"Status,omitempty"`
	CurrencyCode string     `json:"CurrencyCode,omitempty"`
	SubTotal     float64    `json:"SubTotal,omitempty"`
	TotalTax     float64    `json:"TotalTax,omitempty"`
	Total        float64    `json:"Total,omitempty"`
}

// Account is a chart-of-accounts entry; the demo only creates BANK accounts.
type Account struct {
	AccountID         string `json:"AccountID,omitempty"`
	Code              string `json:"Code" validate:"required"`
	Name              string `json:"Name" validate:"required"`
	Type              string `json:"Type" validate:"required"`
	Status            string `json:"Status,omitempty"`
	BankAccountNumber string `json:"BankAccountNumber,omitempty"`
}

// AccountRef references an existing account by identifier.
type AccountRef struct {
	AccountID string `json:"AccountID" validate:"required"`
}

// InvoiceRef references an existing invoice by identifier.
type InvoiceRef struct {
	InvoiceID string `json:"InvoiceID" validate:"required"`
}

// Payment settles an invoice against an account.
type Payment struct {
	PaymentID string      `json:"PaymentID,omitempty"`
	Invoice   *InvoiceRef `json:"Invoice" validate:"required"`
	Account   *AccountRef `json:"Account" validate:"required"`
	Date      string      `json:"Date,omitempty"`
	Amount    float64     `json:"Amount" validate:"required,gt=0"`
	Status    string      `json:"Status,omitempty"`
}

// Organisation describes the tenant's organisation record.
type Organisation struct {
	OrganisationID string `json:"OrganisationID,omitempty"`
	Name           string `json:"Name"`
	LegalName      string `json:"LegalName,omitempty"`
	BaseCurrency   string `json:"BaseCurrency,omitempty"`
	CountryCode    string `json:"CountryCode,omitempty"`
}

// Connection is one tenant the user authorised, as returned by the
// connections endpoint. The endpoint keeps the most recent connection first.
type Connection struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	TenantType string `json:"tenantType"`
	TenantName string `json:"tenantName"`
}

// Response envelopes mirror the API's wrapping of collections.

// ItemsResponse wraps item collections.
type ItemsResponse struct {
	Items []Item `json:"Items"`
}

// ContactsResponse wraps contact collections.
type ContactsResponse struct {
	Contacts []Contact `json:"Contacts"`
}

// InvoicesResponse wraps invoice collections.
type InvoicesResponse struct {
	Invoices []Invoice `json:"Invoices"`
}

// AccountsResponse wraps account collections.
type AccountsResponse struct {
	Accounts []Account `json:"Accounts"`
}

// PaymentsResponse wraps payment collections.
type PaymentsResponse struct {
	Payments []Payment `json:"Payments"`
}

// OrganisationsResponse wraps organisation collections.
type OrganisationsResponse struct {
	Organisations []Organisation `json:"Organisations"`
}
