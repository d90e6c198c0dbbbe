package demo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/ledgerlink/internal/xero"
)

// API is the slice of the accounting client the demo uses.
type API interface {
	CreateItems(ctx context.Context, auth xero.Auth, items []xero.Item) (*xero.ItemsResponse, error)
	CreateContacts(ctx context.Context, auth xero.Auth, contacts []xero.Contact) (*xero.ContactsResponse, error)
	CreateInvoices(ctx context.Context, auth xero.Auth, invoices []xero.Invoice) (*xero.InvoicesResponse, error)
	CreateAccount(ctx context.Context, auth xero.Auth, account xero.Account) (*xero.AccountsResponse, error)
	CreatePayments(ctx context.Context, auth xero.Auth, payments []xero.Payment) (*xero.PaymentsResponse, error)
	GetContacts(ctx context.Context, auth xero.Auth) (*xero.ContactsResponse, error)
	GetAccounts(ctx context.Context, auth xero.Auth, where string) (*xero.AccountsResponse, error)
	GetOrganisations(ctx context.Context, auth xero.Auth) (*xero.OrganisationsResponse, error)
}

// StepResult pairs a step name with the raw creation response it produced.
type StepResult struct {
	Step     string `json:"step"`
	Response any    `json:"response"`
}

// StepError reports which step of the chain failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// chainState accumulates the entities each step needs from its predecessors.
type chainState struct {
	runID      string
	surfboard  xero.Item
	skateboard xero.Item
	contact    xero.Contact
	invoice    xero.Invoice
	account    xero.Account
}

// step is one stage of the chain. compensate is a hook for undoing the
// step's creation; every step currently leaves it nil, so entities created
// before a failure remain in the external system.
type step struct {
	name       string
	run        func(ctx context.Context, auth xero.Auth, st *chainState) (any, error)
	compensate func(ctx context.Context, auth xero.Auth, st *chainState) error
}

// Pipeline executes the fixed demo transaction: catalog items, contact,
// invoice, bank account, payment. Each step consumes identifiers returned by
// strictly earlier steps, so the chain is inherently sequential.
type Pipeline struct {
	api    API
	logger *slog.Logger
	now    func() time.Time
}

// NewPipeline constructs a Pipeline.
func NewPipeline(api API, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{api: api, logger: logger, now: time.Now}
}

// Execute runs the chain for the given tenant credentials. On failure the
// remaining steps are skipped and the failing step's error is returned along
// with the results gathered so far. The chain is not idempotent: every call
// creates a fresh set of entities.
func (p *Pipeline) Execute(ctx context.Context, auth xero.Auth) ([]StepResult, error) {
	st := &chainState{runID: newRunID()}
	steps := p.steps()

	results := make([]StepResult, 0, len(steps))
	for _, s := range steps {
		resp, err := s.run(ctx, auth, st)
		if err != nil {
			p.logger.Error("demo chain aborted",
				slog.String("run_id", st.runID),
				slog.String("step", s.name),
				slog.Any("error", err))
			return results, &StepError{Step: s.name, Err: err}
		}
		p.logger.Info("demo chain step complete",
			slog.String("run_id", st.runID),
			slog.String("step", s.name))
		results = append(results, StepResult{Step: s.name, Response: resp})
	}
	return results, nil
}

func (p *Pipeline) steps() []step {
	return []step{
		{name: "catalog items", run: p.createItems},
		{name: "contact", run: p.createContact},
		{name: "invoice", run: p.createInvoice},
		{name: "bank account", run: p.createBankAccount},
		{name: "payment", run: p.createPayment},
	}
}

func (p *Pipeline) createItems(ctx context.Context, auth xero.Auth, st *chainState) (any, error) {
	resp, err := p.api.CreateItems(ctx, auth, []xero.Item{surfboardItem(st.runID), skateboardItem(st.runID)})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) < 2 {
		return nil, fmt.Errorf("expected 2 items in response, got %d", len(resp.Items))
	}
	st.surfboard = resp.Items[0]
	st.skateboard = resp.Items[1]
	return resp, nil
}

func (p *Pipeline) createContact(ctx context.Context, auth xero.Auth, st *chainState) (any, error) {
	resp, err := p.api.CreateContacts(ctx, auth, []xero.Contact{demoContact(st.runID)})
	if err != nil {
		return nil, err
	}
	if len(resp.Contacts) == 0 || resp.Contacts[0].ContactID == "" {
		return nil, fmt.Errorf("contact response carries no identifier")
	}
	st.contact = resp.Contacts[0]
	return resp, nil
}

func (p *Pipeline) createInvoice(ctx context.Context, auth xero.Auth, st *chainState) (any, error) {
	surfLine, err := invoiceLine(st.surfboard, surfboardQuantity)
	if err != nil {
		return nil, err
	}
	skateLine, err := invoiceLine(st.skateboard, skateboardQuantity)
	if err != nil {
		return nil, err
	}

	invoice := xero.Invoice{
		Type:         xero.InvoiceTypeReceivable,
		Contact:      xero.ContactRef{ContactID: st.contact.ContactID},
		Date:         p.now().Format("2006-01-02"),
		DueDate:      p.now().AddDate(0, 1, 0).Format("2006-01-02"),
		CurrencyCode: demoCurrency,
		Status:       "AUTHORISED",
		LineItems:    []xero.LineItem{surfLine, skateLine},
	}
	resp, err := p.api.CreateInvoices(ctx, auth, []xero.Invoice{invoice})
	if err != nil {
		return nil, err
	}
	if len(resp.Invoices) == 0 || resp.Invoices[0].InvoiceID == "" {
		return nil, fmt.Errorf("invoice response carries no identifier")
	}
	st.invoice = resp.Invoices[0]
	return resp, nil
}

func (p *Pipeline) createBankAccount(ctx context.Context, auth xero.Auth, st *chainState) (any, error) {
	resp, err := p.api.CreateAccount(ctx, auth, demoBankAccount(st.runID))
	if err != nil {
		return nil, err
	}
	if len(resp.Accounts) == 0 || resp.Accounts[0].AccountID == "" {
		return nil, fmt.Errorf("account response carries no identifier")
	}
	st.account = resp.Accounts[0]
	return resp, nil
}

func (p *Pipeline) createPayment(ctx context.Context, auth xero.Auth, st *chainState) (any, error) {
	// Full settlement: the amount is the invoice total as the platform
	// computed it, not a locally recomputed figure.
	payment := xero.Payment{
		Invoice: &xero.InvoiceRef{InvoiceID: st.invoice.InvoiceID},
		Account: &xero.AccountRef{AccountID: st.account.AccountID},
		Date:    p.now().Format("2006-01-02"),
		Amount:  st.invoice.Total,
	}
	resp, err := p.api.CreatePayments(ctx, auth, []xero.Payment{payment})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// invoiceLine builds a line item from a created catalog item, taking the
// unit price and account code from the creation response. The line amount is
// computed with decimals to avoid drift against the platform's totals.
func invoiceLine(item xero.Item, quantity int64) (xero.LineItem, error) {
	if item.SalesDetails == nil {
		return xero.LineItem{}, fmt.Errorf("item %s carries no sales details", item.Code)
	}
	unit := decimal.NewFromFloat(item.SalesDetails.UnitPrice)
	amount := unit.Mul(decimal.NewFromInt(quantity))
	return xero.LineItem{
		Description: item.Name,
		Quantity:    float64(quantity),
		UnitAmount:  item.SalesDetails.UnitPrice,
		ItemCode:    item.Code,
		AccountCode: item.SalesDetails.AccountCode,
		TaxType:     item.SalesDetails.TaxType,
		LineAmount:  amount.InexactFloat64(),
	}, nil
}
