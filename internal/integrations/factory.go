// Package integrations wires provider clients into the ingestion
// pipeline.
package integrations

import (
	"context"
	"fmt"

	"aurix/internal/domain"
	"aurix/internal/ingestion"
	"aurix/internal/integrations/quickbooks"
	"aurix/internal/integrations/sheets"
	"aurix/internal/integrations/stripe"
)

// Factory builds ingestion sources for data sources by kind. Provider
// connection details live in the data source config and its OAuth token.
type Factory struct {
	// StripeAPIKey is the fallback secret key used when a data source
	// has no stored token of its own.
	StripeAPIKey string
}

// Source builds an ingestion.Source for the given data source. Matches
// the ingestion.SourceFactory signature.
func (f *Factory) Source(_ context.Context, ds *domain.DataSource, token *domain.OAuthToken) (ingestion.Source, error) {
	switch ds.Kind {
	case domain.SourceKindSheets:
		return f.sheetsSource(ds, token)
	case domain.SourceKindQuickBooks:
		return f.quickbooksSource(ds, token)
	case domain.SourceKindStripe:
		return f.stripeSource(ds, token)
	default:
		return nil, fmt.Errorf("unknown datasource kind %q", ds.Kind)
	}
}

func (f *Factory) sheetsSource(ds *domain.DataSource, token *domain.OAuthToken) (ingestion.Source, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("datasource %s has no access token", ds.ID)
	}
	spreadsheetID := ds.Config["spreadsheet_id"]
	if spreadsheetID == "" {
		return nil, fmt.Errorf("datasource %s missing spreadsheet_id config", ds.ID)
	}

	client := sheets.NewClient(token.AccessToken)
	return sheets.NewSource(client, spreadsheetID, ds.Config["range"]), nil
}

func (f *Factory) quickbooksSource(ds *domain.DataSource, token *domain.OAuthToken) (ingestion.Source, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("datasource %s has no access token", ds.ID)
	}
	realmID := ds.Config["realm_id"]
	if realmID == "" {
		return nil, fmt.Errorf("datasource %s missing realm_id config", ds.ID)
	}

	var opts []quickbooks.Option
	if ds.Config["environment"] == "sandbox" {
		opts = append(opts, quickbooks.WithSandbox())
	}

	client := quickbooks.NewClient(token.AccessToken, realmID, opts...)
	return quickbooks.NewSource(client), nil
}

func (f *Factory) stripeSource(ds *domain.DataSource, token *domain.OAuthToken) (ingestion.Source, error) {
	apiKey := f.StripeAPIKey
	if token != nil && token.AccessToken != "" {
		apiKey = token.AccessToken
	}
	if apiKey == "" {
		return nil, fmt.Errorf("datasource %s has no Stripe API key", ds.ID)
	}

	var opts []stripe.Option
	if account := ds.Config["account_id"]; account != "" {
		opts = append(opts, stripe.WithAccount(account))
	}

	client := stripe.NewClient(apiKey, opts...)
	return stripe.NewSource(client), nil
}
