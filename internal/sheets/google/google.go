package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors transactions to a Google Sheets ledger.
// Column layout: A=ID, B=Date, C=Kind, D=Amount, E=Category, F=Group, G=Installment.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
}

var _ ports.TransactionExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus credentials, either a service account
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS) or an OAuth client and token
// (GOOGLE_OAUTH_CLIENT_JSON/FILE plus GOOGLE_OAUTH_TOKEN_JSON/FILE, the
// token being what cmd/oauth-init saves).
// Optional: GOOGLE_SHEET_NAME (default "Transactions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	ledger := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if ledger == "" {
		ledger = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerSheet:   ledger,
	}, nil
}

// newSheetsService initializes a Sheets Service. Service account credentials
// take precedence; without them the OAuth client and token written by
// cmd/oauth-init are used.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return newOAuthSheetsService(ctx)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newOAuthSheetsService builds the service from an OAuth client definition
// and a previously exchanged token (cmd/oauth-init performs the exchange).
func newOAuthSheetsService(ctx context.Context) (*gsheet.Service, error) {
	clientJSON, err := envJSON("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	if clientJSON == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	cfg, err := gauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}

	tokenJSON, err := envJSON("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithHTTPClient(cfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// envJSON returns inline JSON from jsonVar, or the contents of the file
// named by fileVar. Nil with no error means neither variable is set.
func envJSON(jsonVar, fileVar string) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv(jsonVar)); inline != "" {
		return []byte(inline), nil
	}
	if file := strings.TrimSpace(os.Getenv(fileVar)); file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileVar, err)
		}
		return b, nil
	}
	return nil, nil
}

func (c *Client) AppendTransactions(ctx context.Context, transactions []core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(transactions) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, ledgerRow(t))
	}

	rng := fmt.Sprintf("%s!A:G", c.ledgerSheet)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.ledgerSheet, err)
	}

	slog.InfoContext(ctx, "Exported transactions to sheet",
		"sheet", c.ledgerSheet, "rows", len(rows))
	return nil
}

func (c *Client) RemoveTransactions(ctx context.Context, ids []int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(ids) == 0 {
		return nil
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[strconv.FormatInt(id, 10)] = struct{}{}
	}

	// Scan the ID column and blank out every matching row. Rows are
	// cleared rather than deleted so later IDs keep a stable position.
	rng := fmt.Sprintf("%s!A:A", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", c.ledgerSheet, err)
	}

	cleared := 0
	blank := &gsheet.ValueRange{Values: [][]any{{"", "", "", "", "", "", ""}}}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(fmt.Sprint(row[0]))
		if _, ok := wanted[cell]; !ok {
			continue
		}
		rowRange := fmt.Sprintf("%s!A%d:G%d", c.ledgerSheet, i+1, i+1)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rowRange, blank).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("clear row %d in sheet %s: %w", i+1, c.ledgerSheet, err)
		}
		cleared++
	}

	slog.InfoContext(ctx, "Cleared exported transactions from sheet",
		"sheet", c.ledgerSheet, "requested", len(ids), "cleared", cleared)
	return nil
}

func ledgerRow(t core.Transaction) []any {
	installment := ""
	if t.InGroup() {
		installment = fmt.Sprintf("%d/%d", t.Index, t.Total)
	}
	group := ""
	if t.InGroup() {
		group = t.GroupID.String()
	}
	return []any{
		strconv.FormatInt(t.ID, 10),
		t.OccurredOn.Format("2006-01-02"),
		string(t.Kind),
		t.Amount.Decimal(),
		strconv.FormatInt(t.CategoryID, 10),
		group,
		installment,
	}
}
