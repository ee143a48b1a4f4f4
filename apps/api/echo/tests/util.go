package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/kymaza/darasa/apps/api/echo"
	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/core/classwork"
	"github.com/kymaza/darasa/core/school"
	emailsvc "github.com/kymaza/darasa/services/email"
	"github.com/kymaza/darasa/storage/sheets"
)

const (
	adminUsername = "admin"
	adminPassword = "s3cr3t"
)

// fakeRemote is an in-memory stand-in for the remote tabular store. Each
// sheet holds its data rows only (remote row 2 is slot 0).
type fakeRemote struct {
	mu   sync.Mutex
	data map[string][][]interface{}
}

var _ sheets.RemoteClient = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: make(map[string][][]interface{})}
}

func parseRange(rangeSpec string) (sheet string, startSlot, endSlot int, colAOnly bool) {
	parts := strings.SplitN(rangeSpec, "!", 2)
	sheet = parts[0]
	cells := strings.SplitN(parts[1], ":", 2)
	startCol, startRow := splitCell(cells[0])
	endCol, endRow := splitCell(cells[1])
	startSlot = startRow - 2
	endSlot = -1
	if endRow > 0 {
		endSlot = endRow - 2
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

func (c *fakeRemote) ReadRange(_ context.Context, rangeSpec string) ([][]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

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

func (c *fakeRemote) AppendRows(_ context.Context, rangeSpec string, rows [][]interface{}) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sheet, _, _, _ := parseRange(rangeSpec)
	for _, row := range rows {
		c.data[sheet] = append(c.data[sheet], append([]interface{}(nil), row...))
	}
	return len(rows), nil
}

func (c *fakeRemote) UpdateRange(_ context.Context, rangeSpec string, rows [][]interface{}) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyUpdate(rangeSpec, rows)
}

func (c *fakeRemote) applyUpdate(rangeSpec string, rows [][]interface{}) (int, error) {
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

func (c *fakeRemote) BatchUpdate(_ context.Context, ops []sheets.BatchOp) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, op := range ops {
		if _, err := c.applyUpdate(op.Range, op.Rows); err != nil {
			return err
		}
	}
	return nil
}

func seedRemote(remote *fakeRemote) {
	remote.data["students"] = [][]interface{}{
		{"S1", "Asha", "asha@test.test", "123", "C1", "2024-09-01", true},
		{"S2", "Binta", "", "", "C1", "2024-09-02", true},
		{"S3", "Chidi", "chidi@test.test", "", "C2", "2024-09-03", true},
	}
	remote.data["classes"] = [][]interface{}{
		{"C1", "Go 101", "Ms. K", "R1", "2024-09-01"},
		{"C2", "Go 201", "Mr. O", "R2", "2024-09-01"},
	}
	remote.data["lectures"] = [][]interface{}{
		{"L1", "C1", "Loops", "2024-09-02", 90.0},
	}
	remote.data["attendance"] = [][]interface{}{
		{"AT1", "L1", "S1", "present", ""},
	}
	remote.data["homework"] = [][]interface{}{}
	remote.data["scores"] = [][]interface{}{
		{"SC1", "Midterm", "S1", "C1", 88.0, "2024-10-01"},
	}
}

var testConf *core.Config

func newTestConfig(t *testing.T) *core.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	return &core.Config{
		Env:                "TEST",
		TestMode:           true,
		AppName:            "Darasa",
		SecretKey:          []byte("secret"),
		JWTExpirationDelta: time.Hour,
		DefaultFromEmail:   "noreply@test.test",
		Admin:              core.AdminConfig{Username: adminUsername, PasswordHash: string(hash)},
		Sheets: core.SheetsConfig{
			MaxRetries: 1,
			BatchSize:  5,
		},
	}
}

func setup(t *testing.T) (echoapi.Server, *fakeRemote) {
	t.Helper()

	testConf = newTestConfig(t)
	logger := core.NewStdLogger(log.New(io.Discard, "", 0))

	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator(enLocale.Locale())
	core.InitValidators(validate, translator)

	remote := newFakeRemote()
	seedRemote(remote)
	eng := sheets.NewEngine(remote, core.NewCache(), core.NewIDGenerator(), testConf.Sheets, logger)

	studentRepo := sheets.NewStudentRepository(eng)
	classRepo := sheets.NewClassRepository(eng)
	lectureRepo := sheets.NewLectureRepository(eng)
	attRepo := sheets.NewAttendanceRepository(eng)
	hwRepo := sheets.NewHomeworkRepository(eng)
	scoreRepo := sheets.NewScoreRepository(eng)

	if err := eng.SeedIDGenerator(context.Background()); err != nil {
		t.Fatalf("SeedIDGenerator() failed: %v", err)
	}

	mailSvc := emailsvc.NewConsoleServiceMock(testConf)
	studentSvc := school.NewStudentService(studentRepo, classRepo, logger)
	classSvc := school.NewClassService(classRepo, studentRepo, logger)
	lectureSvc := school.NewLectureService(lectureRepo, classRepo, logger)
	classworkSvc := classwork.NewService(attRepo, hwRepo, scoreRepo, studentRepo, lectureRepo, classRepo, mailSvc, logger)

	srv := echoapi.NewServer(&echoapi.Options{
		DisableReqLogs: true,
		Conf:           testConf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		StudentSvc:     studentSvc,
		ClassSvc:       classSvc,
		LectureSvc:     lectureSvc,
		ClassworkSvc:   classworkSvc,
	})
	return srv, remote
}

type httpErr struct {
	Error string `json:"error"`
}

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T) string {
	now := time.Now()
	claims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   testConf.Admin.Username,
			ExpiresAt: now.Add(testConf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: testConf.Admin.Username,
	}
	token, err := echoapi.GenerateToken(testConf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if tt.wantCode == 0 {
		tt.wantCode = http.StatusOK
	}
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
