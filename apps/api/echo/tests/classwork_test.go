package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/kymaza/darasa/core/classwork"
	emailsvc "github.com/kymaza/darasa/services/email"
)

func Test_classworkApi_roster(t *testing.T) {
	srv, _ := setup(t)
	token := getToken(t)

	// S3 is in another class and never appears on L1's roster
	roster := []classwork.RosterEntry{
		{
			StudentID: "S1", StudentName: "Asha",
			Attendance: &classwork.Attendance{ID: "AT1", LectureID: "L1", StudentID: "S1", Status: "present"},
		},
		{StudentID: "S2", StudentName: "Binta"},
	}

	tests := []httpTest{
		{name: "roster", method: http.MethodGet, path: "/v1/lectures/L1/classwork", token: token,
			wantData: marshallList(t, roster[0], roster[1])},
		{name: "unknown lecture", method: http.MethodGet, path: "/v1/lectures/L9/classwork", token: token,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "lecture not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classworkApi_save(t *testing.T) {
	srv, remote := setup(t)
	token := getToken(t)
	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	body := []byte(`{"entries":[
		{"student_id":"S1","status":"absent","attendance_note":"no show"},
		{"student_id":"S2","status":"present","homework_done":true,"homework_grade":90,"homework_note":"neat"}
	]}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/lectures/L1/classwork", token, body)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("save code = %v; body %v", rec.Code, rec.Body.String())
	}

	var res classwork.SaveResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshalling SaveResult: %v", err)
	}

	// S1 had a row (adopted via the lecture+student pair) and changed; S2's
	// attendance and both homework rows are new
	if res.Attendance.Updated != 1 || res.Attendance.Inserted != 1 {
		t.Errorf("attendance = %+v, want 1 updated / 1 inserted", res.Attendance)
	}
	if res.Homework.Inserted != 2 || res.Homework.Updated != 0 {
		t.Errorf("homework = %+v, want 2 inserted", res.Homework)
	}

	if rows := remote.data["attendance"]; len(rows) != 2 {
		t.Errorf("attendance rows = %v, want 2", len(rows))
	} else {
		if rows[0][0] != "AT1" || rows[0][3] != "absent" || rows[0][4] != "no show" {
			t.Errorf("attendance row 0 = %v", rows[0])
		}
		if rows[1][0] != "AT2" || rows[1][2] != "S2" || rows[1][3] != "present" {
			t.Errorf("attendance row 1 = %v", rows[1])
		}
	}
	if rows := remote.data["homework"]; len(rows) != 2 {
		t.Errorf("homework rows = %v, want 2", len(rows))
	} else if rows[1][0] != "HW2" || rows[1][3] != true || rows[1][4] != 90.0 {
		t.Errorf("homework row 1 = %v", rows[1])
	}

	// the absent student was notified
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %v mails, want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.To[0].Address != "asha@test.test" {
		t.Errorf("mail to %v, want asha@test.test", msg.To[0].Address)
	}

	// a second identical save is a no-op and mails nobody
	req, rec = newAuthRequest(http.MethodPost, "/v1/lectures/L1/classwork", token, body)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second save code = %v; body %v", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshalling SaveResult: %v", err)
	}
	if res.Attendance.Updated != 0 || res.Attendance.Inserted != 0 || res.Homework.Inserted != 0 {
		t.Errorf("second save = %+v, want all-zero", res)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("second save sent %v more mails", len(emailsvc.SentMessages)-1)
	}
}

func Test_classworkApi_saveValidation(t *testing.T) {
	srv, _ := setup(t)
	token := getToken(t)

	tests := []httpTest{
		{
			name: "no entries", path: "/v1/lectures/L1/classwork", token: token,
			body:     []byte(`{"entries":[]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "bad status", path: "/v1/lectures/L1/classwork", token: token,
			body:     []byte(`{"entries":[{"student_id":"S1","status":"vanished"}]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "grade out of range", path: "/v1/lectures/L1/classwork", token: token,
			body:     []byte(`{"entries":[{"student_id":"S1","status":"present","homework_grade":101}]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate student", path: "/v1/lectures/L1/classwork", token: token,
			body: []byte(`{"entries":[
				{"student_id":"S1","status":"present"},
				{"student_id":"S1","status":"absent"}
			]}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"student_id": "duplicate entry for student S1"}),
		},
		{
			name: "unknown student", path: "/v1/lectures/L1/classwork", token: token,
			body:     []byte(`{"entries":[{"student_id":"S99","status":"present"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"student_id": "unknown student S99"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classworkApi_scores(t *testing.T) {
	srv, _ := setup(t)
	token := getToken(t)

	existing := classwork.Score{
		ID: "SC1", ExamName: "Midterm", StudentID: "S1", ClassID: "C1", Points: 88,
		TakenAt: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	created := classwork.Score{
		ID: "SC2", ExamName: "Final", StudentID: "S2", ClassID: "C1", Points: 75,
		TakenAt: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []httpTest{
		{name: "get all", method: http.MethodGet, path: "/v1/scores", token: token,
			wantData: marshallList(t, existing)},
		{name: "get one", method: http.MethodGet, path: "/v1/scores/SC1", token: token,
			wantData: marshallObj(t, existing)},
		{
			name: "create with unknown student", method: http.MethodPost, path: "/v1/scores", token: token,
			body:     []byte(`{"exam_name":"Final","student_id":"S99","class_id":"C1","points":75}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"student_id": "referenced student does not exist"}),
		},
		{
			name: "create", method: http.MethodPost, path: "/v1/scores", token: token,
			body:     []byte(`{"exam_name":"Final","student_id":"S2","class_id":"C1","points":75,"taken_at":"2024-12-01"}`),
			wantCode: http.StatusCreated,
			wantData: marshallObj(t, created),
		},
		{
			name: "update", method: http.MethodPut, path: "/v1/scores/SC1", token: token,
			body:     []byte(`{"points":92}`),
			wantData: marshallObj(t, classwork.Score{
				ID: "SC1", ExamName: "Midterm", StudentID: "S1", ClassID: "C1", Points: 92,
				TakenAt: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
			}),
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/scores/SC2", token: token,
			wantCode: http.StatusNoContent},
		{name: "get deleted", method: http.MethodGet, path: "/v1/scores/SC2", token: token,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "score not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
