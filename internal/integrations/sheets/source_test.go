package sheets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
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

func TestSource_FetchTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok_abc" {
			t.Errorf("Unexpected auth header %q", got)
		}
		if got := r.URL.Query().Get("valueRenderOption"); got != "UNFORMATTED_VALUE" {
			t.Errorf("Unexpected render option %q", got)
		}

		// Row 2: ISO date, plain amount. Row 3: serial date, currency string.
		// Row 4: empty. Row 5: missing amount. Row 6: outside sync window.
		fmt.Fprint(w, `{"range":"Sheet1!A2:E1000","values":[
			["2026-01-10","Invoice 42",1500.5,"Revenue","net 30"],
			[46034,"AWS bill","-$1,234.56","",""],
			["","","","",""],
			["2026-01-12","no amount","","",""],
			["2020-06-01","ancient",10,"",""]
		]}`)
	}))
	defer server.Close()

	client := NewClient("tok_abc", WithBaseURL(server.URL))
	source := NewSource(client, "sheet123", "")

	rows, err := source.FetchTransactions(context.Background(), day("2026-01-01"), day("2026-01-31"))
	if err != nil {
		t.Fatalf("FetchTransactions failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 parseable in-window rows, got %d", len(rows))
	}

	if !rows[0].Date.Equal(day("2026-01-10")) {
		t.Errorf("Unexpected date %s", rows[0].Date)
	}
	if rows[0].Amount.String() != "1500.5" {
		t.Errorf("Unexpected amount %s", rows[0].Amount)
	}
	if rows[0].Category != "Revenue" || rows[0].Memo != "net 30" {
		t.Errorf("Unexpected category/memo: %q %q", rows[0].Category, rows[0].Memo)
	}
	if rows[0].ExternalID != "sheets_sheet123_2" {
		t.Errorf("Unexpected external id %q", rows[0].ExternalID)
	}

	// Serial 46034 is 2026-01-12 in the Sheets date system.
	if !rows[1].Date.Equal(day("2026-01-12")) {
		t.Errorf("Unexpected serial date %s", rows[1].Date)
	}
	if rows[1].Amount.String() != "-1234.56" {
		t.Errorf("Unexpected currency-string amount %s", rows[1].Amount)
	}
	if rows[1].ExternalID != "sheets_sheet123_3" {
		t.Errorf("Unexpected external id %q", rows[1].ExternalID)
	}
}

func TestSource_FetchTransactionsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`)
	}))
	defer server.Close()

	source := NewSource(NewClient("tok_abc", WithBaseURL(server.URL)), "sheet123", "")
	_, err := source.FetchTransactions(context.Background(), day("2026-01-01"), day("2026-01-31"))
	if err == nil {
		t.Fatal("Expected permission error")
	}
}
