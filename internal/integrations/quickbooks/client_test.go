package quickbooks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/realm42/query") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok_qbo" {
			t.Errorf("Unexpected auth header %q", got)
		}

		query := r.URL.Query().Get("query")
		switch {
		case strings.Contains(query, "FROM Purchase"):
			fmt.Fprint(w, `{"QueryResponse":{"Purchase":[
				{"Id":"101","TxnDate":"2026-01-15","TotalAmt":249.99,"PrivateNote":"Office chairs","PaymentType":"CreditCard"}
			]}}`)
		case strings.Contains(query, "FROM JournalEntry"):
			fmt.Fprint(w, `{"QueryResponse":{"JournalEntry":[
				{"Id":"201","TxnDate":"2026-01-20","PrivateNote":"Month-end accrual","Line":[
					{"Id":"1","Amount":1000,"Description":"Contractor invoice"},
					{"Id":"2","Amount":-1000,"Description":"Accrued liabilities"}
				]}
			]}}`)
		default:
			t.Errorf("Unexpected query %q", query)
		}
	}))
}

func TestSource_FetchTransactions(t *testing.T) {
	server := testServer(t)
	defer server.Close()

	client := NewClient("tok_qbo", "realm42", WithBaseURL(server.URL))
	source := NewSource(client)

	rows, err := source.FetchTransactions(context.Background(), day("2026-01-01"), day("2026-01-31"))
	if err != nil {
		t.Fatalf("FetchTransactions failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 1 purchase and 2 journal lines, got %d rows", len(rows))
	}

	if rows[0].ExternalID != "qbo_purchase_101" {
		t.Errorf("Unexpected purchase external id %q", rows[0].ExternalID)
	}
	if rows[0].Amount.String() != "249.99" {
		t.Errorf("Unexpected purchase amount %s", rows[0].Amount)
	}
	if rows[0].Category != "Expense" || rows[0].Memo != "CreditCard" {
		t.Errorf("Unexpected purchase category/memo: %q %q", rows[0].Category, rows[0].Memo)
	}

	if rows[1].ExternalID != "qbo_journal_201_1" || rows[2].ExternalID != "qbo_journal_201_2" {
		t.Errorf("Unexpected journal external ids: %q %q", rows[1].ExternalID, rows[2].ExternalID)
	}
	if rows[1].Category != "Journal Entry" {
		t.Errorf("Unexpected journal category %q", rows[1].Category)
	}
	if rows[2].Amount.String() != "-1000" {
		t.Errorf("Unexpected journal line amount %s", rows[2].Amount)
	}
	if rows[1].Memo != "Month-end accrual" {
		t.Errorf("Expected entry note carried to line memo, got %q", rows[1].Memo)
	}
}

func TestClient_QueryFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"Fault":{"Error":[{"Message":"Invalid query","code":"4000"}]}}`)
	}))
	defer server.Close()

	client := NewClient("tok_qbo", "realm42", WithBaseURL(server.URL))
	_, err := client.Purchases(context.Background(), day("2026-01-01"), day("2026-01-31"))
	if err == nil {
		t.Fatal("Expected fault error")
	}
	if !strings.Contains(err.Error(), "Invalid query") {
		t.Errorf("Expected fault message in error, got %v", err)
	}
}
