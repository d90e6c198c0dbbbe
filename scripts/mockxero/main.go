// Command mockxero runs a local stand-in for the Xero identity and
// accounting endpoints so the application can be exercised without real
// credentials. Point the app at it with:
//
//	XERO_AUTHORIZE_URL=http://localhost:8090/identity/connect/authorize
//	XERO_TOKEN_URL=http://localhost:8090/identity/connect/token
//	XERO_CONNECTIONS_URL=http://localhost:8090/connections
//	XERO_ACCOUNTING_URL=http://localhost:8090/api.xro/2.0
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	tenantName := flag.String("tenant", "Demo Company", "organisation name returned by the mock")
	flag.Parse()

	tenantID := uuid.NewString()

	mux := http.NewServeMux()

	mux.HandleFunc("/identity/connect/authorize", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		redirect, err := url.Parse(q.Get("redirect_uri"))
		if err != nil || redirect.Host == "" {
			http.Error(w, "missing redirect_uri", http.StatusBadRequest)
			return
		}
		cb := redirect.Query()
		cb.Set("code", "mock-"+uuid.NewString())
		cb.Set("state", q.Get("state"))
		redirect.RawQuery = cb.Encode()
		http.Redirect(w, r, redirect.String(), http.StatusFound)
	})

	mux.HandleFunc("/identity/connect/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{
			"access_token":  "mock-access-" + uuid.NewString(),
			"refresh_token": "mock-refresh-" + uuid.NewString(),
			"token_type":    "Bearer",
			"expires_in":    1800,
		})
	})

	mux.HandleFunc("/connections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{
			"id":         uuid.NewString(),
			"tenantId":   tenantID,
			"tenantType": "ORGANISATION",
			"tenantName": *tenantName,
		}})
	})

	mux.HandleFunc("/api.xro/2.0/Organisations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"Organisations": []map[string]any{{
			"OrganisationID": tenantID,
			"Name":           *tenantName,
			"BaseCurrency":   "USD",
			"CountryCode":    "US",
		}}})
	})

	mux.HandleFunc("/api.xro/2.0/Accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, map[string]any{"Accounts": []map[string]any{{
				"AccountID": uuid.NewString(),
				"Code":      "200",
				"Name":      "Sales",
				"Type":      "SALES",
				"Status":    "ACTIVE",
			}}})
			return
		}
		echoCreated(w, r, "AccountID")
	})

	for path, idField := range map[string]string{
		"/api.xro/2.0/Items":    "ItemID",
		"/api.xro/2.0/Invoices": "InvoiceID",
		"/api.xro/2.0/Payments": "PaymentID",
	} {
		field := idField
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			echoCreated(w, r, field)
		})
	}

	mux.HandleFunc("/api.xro/2.0/Contacts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, map[string]any{"Contacts": []map[string]any{{
				"ContactID": uuid.NewString(),
				"Name":      "Existing Contact",
			}}})
			return
		}
		echoCreated(w, r, "ContactID")
	})

	log.Printf("mockxero listening on %s (tenant %s)", *addr, tenantID)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// echoCreated reads the request envelope and returns it with identifiers
// assigned, mimicking the API's create responses.
func echoCreated(w http.ResponseWriter, r *http.Request, idField string) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("decode: %v", err), http.StatusBadRequest)
		return
	}
	wrapped := false
	for key, value := range payload {
		items, ok := value.([]any)
		if !ok {
			continue
		}
		wrapped = true
		for _, item := range items {
			if entity, ok := item.(map[string]any); ok {
				entity[idField] = uuid.NewString()
				if strings.EqualFold(key, "Invoices") {
					assignTotals(entity)
				}
			}
		}
	}
	if !wrapped {
		// Single-entity PUT (Accounts) has no wrapping array.
		payload[idField] = uuid.NewString()
		writeJSON(w, map[string]any{"Accounts": []any{payload}})
		return
	}
	writeJSON(w, payload)
}

func assignTotals(invoice map[string]any) {
	lines, ok := invoice["LineItems"].([]any)
	if !ok {
		return
	}
	var total float64
	for _, raw := range lines {
		line, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if amount, ok := line["LineAmount"].(float64); ok {
			total += amount
		}
	}
	invoice["SubTotal"] = total
	invoice["Total"] = total
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}
