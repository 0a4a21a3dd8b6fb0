package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"revdash/internal/core"
	"revdash/internal/ingest"
	ports "revdash/internal/sheets"

	gtransport "google.golang.org/api/googleapi/transport"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SourceConfig identifies the spreadsheet and how to authenticate.
// Exactly one of APIKey, CredentialsJSON or CredentialsFile is needed.
type SourceConfig struct {
	SpreadsheetID   string `validate:"required"`
	RecordsRange    string `validate:"required"`
	BankRange       string
	APIKey          string `validate:"required_without_all=CredentialsJSON CredentialsFile"`
	CredentialsJSON string
	CredentialsFile string
}

var validate = validator.New()

// Validate reports every missing field in one error.
func (c SourceConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required_without_all":
			msgs = append(msgs, "one of APIKey, CredentialsJSON or CredentialsFile is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid sheets source config: %s", strings.Join(msgs, "; "))
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	recordsRange  string
	bankRange     string
	logger        *slog.Logger
}

// Ensure interface conformance
var _ ports.Source = (*Client)(nil)

// New builds a Sheets client from a validated config. Extra options are
// appended after the credential options, which lets callers point the
// client at another endpoint.
func New(ctx context.Context, cfg SourceConfig, opts ...goption.ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	authOpts, err := credentialOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, append(authOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID,
		"records_range", cfg.RecordsRange,
		"bank_range", cfg.BankRange)
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		recordsRange:  cfg.RecordsRange,
		bankRange:     cfg.BankRange,
		logger:        slog.Default(),
	}, nil
}

// credentialOptions prefers service-account credentials and falls back to
// an API key sent on a pooled HTTP client.
func credentialOptions(ctx context.Context, cfg SourceConfig) ([]goption.ClientOption, error) {
	switch {
	case cfg.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []goption.ClientOption{
			goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		}, nil
	case cfg.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading service account credentials from file", "path", cfg.CredentialsFile)
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return []goption.ClientOption{
			goption.WithCredentialsJSON(data),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		}, nil
	default:
		slog.InfoContext(ctx, "Using API key authentication")
		hc := newHTTPClientWithPooling()
		hc.Transport = &gtransport.APIKey{Key: cfg.APIKey, Transport: hc.Transport}
		return []goption.ClientOption{goption.WithHTTPClient(hc)}, nil
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// FetchRecords reads the records range and resolves its header row.
func (c *Client) FetchRecords(ctx context.Context) ([]core.TransactionRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rows, err := c.readRange(ctx, c.recordsRange)
	if err != nil {
		return nil, err
	}
	batch, err := ingest.ParseRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.recordsRange, err)
	}
	if !batch.Columns.Resolved() {
		c.logger.WarnContext(ctx, "Records header partially resolved, using positional columns",
			"range", c.recordsRange,
			"unresolved", batch.Columns.Unresolved,
			"positional", batch.Columns.Positional)
	}
	if batch.Dropped > 0 {
		c.logger.DebugContext(ctx, "Dropped incomplete record rows", "range", c.recordsRange, "count", batch.Dropped)
	}
	return batch.Records, nil
}

// FetchBankAccounts reads the bank range. Without a configured range the
// result is empty.
func (c *Client) FetchBankAccounts(ctx context.Context) ([]core.BankAccountRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(c.bankRange) == "" {
		return nil, nil
	}
	rows, err := c.readRange(ctx, c.bankRange)
	if err != nil {
		return nil, err
	}
	batch, err := ingest.ParseBankAccounts(rows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.bankRange, err)
	}
	if batch.Dropped > 0 {
		c.logger.DebugContext(ctx, "Dropped incomplete bank rows", "range", c.bankRange, "count", batch.Dropped)
	}
	return batch.Accounts, nil
}

// TestConnection reads the spreadsheet metadata only.
func (c *Client) TestConnection(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("spreadsheetId", "properties.title").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	title := ""
	if ss.Properties != nil {
		title = ss.Properties.Title
	}
	c.logger.InfoContext(ctx, "Spreadsheet reachable", "spreadsheet_id", ss.SpreadsheetId, "title", title)
	return nil
}

func (c *Client) readRange(ctx context.Context, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return ingest.Strings(resp.Values), nil
}
