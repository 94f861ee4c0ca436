// Package sheets appends questionnaire responses to a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"surveybot/internal/model"
)

const (
	valueInputRaw     = "RAW"
	insertRows        = "INSERT_ROWS"
	headerRange       = "A1:B1"
	DefaultValueRange = "A:B"
)

var ErrNoCredentials = errors.New("no Google credentials configured")

// Client writes to one spreadsheet
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	valueRange    string
}

// CredentialsOption turns the credentials setting into a client option. Values starting
// with '{' are inline service account JSON, anything else is a file path.
func CredentialsOption(credentials string) (option.ClientOption, error) {
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return nil, ErrNoCredentials
	}
	if strings.HasPrefix(credentials, "{") {
		return option.WithCredentialsJSON([]byte(credentials)), nil
	}
	return option.WithCredentialsFile(credentials), nil
}

// New creates a client authenticated with credentials
func New(ctx context.Context, spreadsheetID, credentials, valueRange string) (*Client, error) {
	cred, err := CredentialsOption(credentials)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, spreadsheetID, valueRange, cred, option.WithScopes(sheets.SpreadsheetsScope))
}

// NewWithOptions creates a client with explicit API options
func NewWithOptions(ctx context.Context, spreadsheetID, valueRange string, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if valueRange == "" {
		valueRange = DefaultValueRange
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, valueRange: valueRange}, nil
}

// AppendRows appends one (question, answer) row per entry followed by a blank separator
// row, in a single request
func (c *Client) AppendRows(ctx context.Context, rows []model.Row) error {
	values := make([][]interface{}, 0, len(rows)+1)
	for _, r := range rows {
		values = append(values, []interface{}{r.Label, r.Text})
	}
	values = append(values, []interface{}{"", ""})

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.valueRange, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to spreadsheet %s: %w", c.spreadsheetID, err)
	}
	return nil
}

// InitializeHeader writes the header row
func (c *Client) InitializeHeader(ctx context.Context, label, text string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{{label, text}}}
	_, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, headerRange, vr).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header to spreadsheet %s: %w", c.spreadsheetID, err)
	}
	return nil
}

// CheckConnection fetches spreadsheet metadata and returns its title
func (c *Client) CheckConnection(ctx context.Context) (string, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("open spreadsheet %s: %w", c.spreadsheetID, err)
	}
	if ss.Properties == nil {
		return "", nil
	}
	return ss.Properties.Title, nil
}

// LastRow returns the number of rows with data in column A
func (c *Client) LastRow(ctx context.Context) (int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, "A:A").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	return len(resp.Values), nil
}
