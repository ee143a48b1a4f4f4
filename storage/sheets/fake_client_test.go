package sheets

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kymaza/darasa/core"
)

// fakeClient is an in-memory RemoteClient. Each sheet holds its data rows
// only (remote row 2 is slot 0), mirroring how the real ranges address
// the store.
type fakeClient struct {
	mu   sync.Mutex
	data map[string][][]interface{}

	readCalls   int
	appendCalls int
	updateCalls int
	batchCalls  [][]BatchOp

	// when failTimes > 0 every call decrements it and returns failErr
	failErr   error
	failTimes int
}

var _ RemoteClient = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string][][]interface{})}
}

func (c *fakeClient) failNext(times int, err error) {
	c.mu.Lock()
	c.failTimes = times
	c.failErr = err
	c.mu.Unlock()
}

func (c *fakeClient) checkFail() error {
	if c.failTimes > 0 {
		c.failTimes--
		return c.failErr
	}
	return nil
}

// parseRange splits "sheet!A5:G5" into its sheet, 0-based data slots and
// whether only column A is addressed. endSlot < 0 means open-ended.
func parseRange(rangeSpec string) (sheet string, startSlot, endSlot int, colAOnly bool) {
	parts := strings.SplitN(rangeSpec, "!", 2)
	sheet = parts[0]
	cells := strings.SplitN(parts[1], ":", 2)

	startCol, startRow := splitCell(cells[0])
	endCol, endRow := splitCell(cells[1])

	startSlot = startRow - firstDataRow
	endSlot = -1
	if endRow > 0 {
		endSlot = endRow - firstDataRow
	}
	colAOnly = startCol == "A" && endCol == "A"
	return sheet, startSlot, endSlot, colAOnly
}

func splitCell(cell string) (col string, row int) {
	i := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		i++
	}
	row, _ = strconv.Atoi(cell[i:])
	return cell[:i], row
}

func (c *fakeClient) ReadRange(_ context.Context, rangeSpec string) ([][]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readCalls++
	if err := c.checkFail(); err != nil {
		return nil, err
	}

	sheet, start, end, colAOnly := parseRange(rangeSpec)
	rows := c.data[sheet]
	if start >= len(rows) {
		return nil, nil
	}
	if end < 0 || end >= len(rows) {
		end = len(rows) - 1
	}

	out := make([][]interface{}, 0, end-start+1)
	for _, row := range rows[start : end+1] {
		if colAOnly {
			if len(row) == 0 {
				out = append(out, []interface{}{})
			} else {
				out = append(out, []interface{}{row[0]})
			}
			continue
		}
		out = append(out, append([]interface{}(nil), row...))
	}
	return out, nil
}

func (c *fakeClient) AppendRows(_ context.Context, rangeSpec string, rows [][]interface{}) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendCalls++
	if err := c.checkFail(); err != nil {
		return 0, err
	}

	sheet, _, _, _ := parseRange(rangeSpec)
	for _, row := range rows {
		c.data[sheet] = append(c.data[sheet], append([]interface{}(nil), row...))
	}
	return len(rows), nil
}

func (c *fakeClient) UpdateRange(_ context.Context, rangeSpec string, rows [][]interface{}) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateCalls++
	if err := c.checkFail(); err != nil {
		return 0, err
	}
	return c.applyUpdate(rangeSpec, rows)
}

func (c *fakeClient) applyUpdate(rangeSpec string, rows [][]interface{}) (int, error) {
	sheet, start, _, _ := parseRange(rangeSpec)
	cells := 0
	for i, row := range rows {
		slot := start + i
		if slot >= len(c.data[sheet]) {
			return cells, fmt.Errorf("update outside data range: %s", rangeSpec)
		}
		c.data[sheet][slot] = append([]interface{}(nil), row...)
		cells += len(row)
	}
	return cells, nil
}

func (c *fakeClient) BatchUpdate(_ context.Context, ops []BatchOp) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batchCalls = append(c.batchCalls, append([]BatchOp(nil), ops...))
	if err := c.checkFail(); err != nil {
		return err
	}
	for _, op := range ops {
		if _, err := c.applyUpdate(op.Range, op.Rows); err != nil {
			return err
		}
	}
	return nil
}

// test fixtures

func testLogger() core.Logger {
	return core.NewStdLogger(log.New(io.Discard, "", 0))
}

func testSheetsConfig() core.SheetsConfig {
	return core.SheetsConfig{
		CacheTTL:          0, // cache until invalidated
		MaxRetries:        2,
		InitialRetryDelay: 0,
		MaxRetryDelay:     0,
		RetryJitterFactor: 0,
		BatchSize:         2,
		BatchInterval:     0,
	}
}

func newTestEngine(client RemoteClient) *Engine {
	eng := NewEngine(client, core.NewCache(), core.NewIDGenerator(), testSheetsConfig(), testLogger())
	eng.retry.sleepFunc = func(context.Context, time.Duration) error { return nil }
	return eng
}
