package sheets

import (
	"context"

	"github.com/pkg/errors"
	sheetsapi "google.golang.org/api/sheets/v4"

	"google.golang.org/api/option"

	"github.com/kymaza/darasa/core"
)

type (
	// BatchOp targets one range with the rows to write there. It is
	// created by a reconciliation, consumed once by the batch scheduler
	// and never retried as a logical unit (only the underlying remote
	// call is).
	BatchOp struct {
		Range string
		Rows  [][]interface{}
	}

	// RemoteClient is the boundary to the quota-limited remote tabular
	// store. Row 1 of every sheet is the header and is never part of a
	// data range.
	RemoteClient interface {
		ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
		// AppendRows appends after the last data row and returns the
		// number of rows written.
		AppendRows(ctx context.Context, rangeSpec string, rows [][]interface{}) (int, error)
		// UpdateRange overwrites the given range and returns the number
		// of cells written.
		UpdateRange(ctx context.Context, rangeSpec string, rows [][]interface{}) (int, error)
		BatchUpdate(ctx context.Context, ops []BatchOp) error
	}

	// Client talks to the Google Sheets v4 API.
	Client struct {
		svc           *sheetsapi.Service
		spreadsheetID string
	}
)

var _ RemoteClient = (*Client)(nil) // interface compliance check

func NewClient(ctx context.Context, conf core.SheetsConfig) (*Client, error) {
	if conf.SpreadsheetID == "" {
		return nil, errors.Wrap(ErrRemoteUnavailable, "no spreadsheet configured")
	}
	svc, err := sheetsapi.NewService(
		ctx,
		option.WithCredentialsFile(conf.CredentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, errors.Wrap(err, "initializing sheets service")
	}
	return &Client{svc: svc, spreadsheetID: conf.SpreadsheetID}, nil
}

func (c *Client) ready() error {
	if c == nil || c.svc == nil {
		return ErrRemoteUnavailable
	}
	return nil
}

func (c *Client) ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "reading range %s", rangeSpec)
	}
	return resp.Values, nil
}

func (c *Client) AppendRows(ctx context.Context, rangeSpec string, rows [][]interface{}) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, rangeSpec, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, errors.Wrapf(err, "appending to range %s", rangeSpec)
	}
	if resp.Updates == nil {
		return 0, nil
	}
	return int(resp.Updates.UpdatedRows), nil
}

func (c *Client) UpdateRange(ctx context.Context, rangeSpec string, rows [][]interface{}) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	resp, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, rangeSpec, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return 0, errors.Wrapf(err, "updating range %s", rangeSpec)
	}
	return int(resp.UpdatedCells), nil
}

func (c *Client) BatchUpdate(ctx context.Context, ops []BatchOp) error {
	if err := c.ready(); err != nil {
		return err
	}
	data := make([]*sheetsapi.ValueRange, 0, len(ops))
	for _, op := range ops {
		data = append(data, &sheetsapi.ValueRange{Range: op.Range, Values: op.Rows})
	}
	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return errors.Wrapf(err, "batch updating %d ranges", len(ops))
	}
	return nil
}
