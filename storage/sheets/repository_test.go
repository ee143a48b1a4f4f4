package sheets

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/core/school"
)

func seedStudents(client *fakeClient) {
	client.data["students"] = [][]interface{}{
		{"S1", "Asha", "asha@test.test", "123", "C1", "2024-09-01", true},
		{"S2", "Binta", "", "", "C1", "2024-09-02", true},
		{"S3", "Chidi", "chidi@test.test", "", "C2", "2024-09-03", false},
	}
}

func TestRepositoryQueryAllUsesCache(t *testing.T) {
	client := newFakeClient()
	seedStudents(client)
	eng := newTestEngine(client)
	repo := NewStudentRepository(eng)
	ctx := context.Background()

	students, err := repo.QueryAllStudents(ctx)
	if err != nil {
		t.Fatalf("QueryAllStudents() error = %v", err)
	}
	if len(students) != 3 {
		t.Fatalf("QueryAllStudents() = %v students, want 3", len(students))
	}
	if students[0].ID != "S1" || students[0].Name != "Asha" || !students[0].Active {
		t.Errorf("QueryAllStudents()[0] = %+v", students[0])
	}

	// second read must come from the cache
	if _, err = repo.QueryAllStudents(ctx); err != nil {
		t.Fatalf("QueryAllStudents() error = %v", err)
	}
	if client.readCalls != 1 {
		t.Errorf("remote reads = %v, want 1 (snapshot cached)", client.readCalls)
	}
}

func TestRepositoryGetByID(t *testing.T) {
	client := newFakeClient()
	seedStudents(client)
	repo := NewStudentRepository(newTestEngine(client))
	ctx := context.Background()

	st, err := repo.GetStudentByID(ctx, "S2")
	if err != nil {
		t.Fatalf("GetStudentByID() error = %v", err)
	}
	if st.Name != "Binta" {
		t.Errorf("GetStudentByID() = %+v", st)
	}

	if _, err = repo.GetStudentByID(ctx, "S99"); errors.Cause(err) != school.ErrStudentNotFound {
		t.Errorf("GetStudentByID(S99) error = %v, want ErrStudentNotFound", err)
	}
}

func TestRepositoryCreate(t *testing.T) {
	client := newFakeClient()
	seedStudents(client)
	eng := newTestEngine(client)
	repo := NewStudentRepository(eng)
	ctx := context.Background()

	if err := eng.SeedIDGenerator(ctx); err != nil {
		t.Fatalf("SeedIDGenerator() error = %v", err)
	}

	st, err := repo.CreateStudent(ctx, school.Student{Name: "Dia", ClassID: "C1", Active: true})
	if err != nil {
		t.Fatalf("CreateStudent() error = %v", err)
	}
	if st.ID != "S4" {
		t.Errorf("CreateStudent() ID = %v, want S4", st.ID)
	}
	if len(client.data["students"]) != 4 {
		t.Errorf("remote rows = %v, want 4", len(client.data["students"]))
	}

	// the create invalidated the snapshot; the next read sees the new row
	readsBefore := client.readCalls
	students, err := repo.QueryAllStudents(ctx)
	if err != nil {
		t.Fatalf("QueryAllStudents() error = %v", err)
	}
	if client.readCalls != readsBefore+1 {
		t.Error("QueryAllStudents() served a stale snapshot after create")
	}
	if len(students) != 4 {
		t.Errorf("QueryAllStudents() = %v students, want 4", len(students))
	}
}

func TestRepositoryCreateUnseededIDCollision(t *testing.T) {
	client := newFakeClient()
	seedStudents(client)
	repo := NewStudentRepository(newTestEngine(client))
	ctx := context.Background()

	// the generator was never seeded, so the first generated ID is S1,
	// which is already on the sheet: another writer owns those rows
	_, err := repo.CreateStudent(ctx, school.Student{Name: "Dia", ClassID: "C1", Active: true})
	if !core.IsShutdown(err) {
		t.Fatalf("CreateStudent() error = %v, want shutdown error", err)
	}
	if client.appendCalls != 0 {
		t.Errorf("appendCalls = %v, want 0 (colliding ID must not be written)", client.appendCalls)
	}
}

func TestRepositoryUpdate(t *testing.T) {
	client := newFakeClient()
	seedStudents(client)
	repo := NewStudentRepository(newTestEngine(client))
	ctx := context.Background()

	st, err := repo.UpdateStudent(ctx, "S2", core.Record{"phone": "456"})
	if err != nil {
		t.Fatalf("UpdateStudent() error = %v", err)
	}
	if st.Phone != "456" || st.Name != "Binta" {
		t.Errorf("UpdateStudent() = %+v", st)
	}
	// written at the snapshot position, untouched fields carried over
	if row := client.data["students"][1]; row[0] != "S2" || row[3] != "456" || row[1] != "Binta" {
		t.Errorf("remote row = %v", row)
	}
}

func TestRepositoryUpdateStalePosition(t *testing.T) {
	client := newFakeClient()
	seedStudents(client)
	repo := NewStudentRepository(newTestEngine(client))
	ctx := context.Background()

	// warm the snapshot, then shuffle the remote rows behind its back
	if _, err := repo.QueryAllStudents(ctx); err != nil {
		t.Fatalf("QueryAllStudents() error = %v", err)
	}
	client.mu.Lock()
	client.data["students"][1], client.data["students"][2] = client.data["students"][2], client.data["students"][1]
	client.mu.Unlock()

	_, err := repo.UpdateStudent(ctx, "S2", core.Record{"phone": "456"})
	if errors.Cause(err) != ErrStaleSnapshot {
		t.Errorf("UpdateStudent() error = %v, want ErrStaleSnapshot", err)
	}
	// nothing was written
	if row := client.data["students"][2]; row[3] != "" {
		t.Errorf("stale update wrote anyway: %v", row)
	}
}

func TestRepositoryDeleteBlanksRow(t *testing.T) {
	client := newFakeClient()
	seedStudents(client)
	repo := NewStudentRepository(newTestEngine(client))
	ctx := context.Background()

	if err := repo.DeleteStudent(ctx, "S2"); err != nil {
		t.Fatalf("DeleteStudent() error = %v", err)
	}

	// the row stays in place, blanked; positions of later rows are stable
	if len(client.data["students"]) != 3 {
		t.Fatalf("remote rows = %v, want 3 (delete must not remove rows)", len(client.data["students"]))
	}
	if row := client.data["students"][1]; row[0] != "" {
		t.Errorf("deleted row not blanked: %v", row)
	}

	students, err := repo.QueryAllStudents(ctx)
	if err != nil {
		t.Fatalf("QueryAllStudents() error = %v", err)
	}
	if len(students) != 2 {
		t.Errorf("QueryAllStudents() = %v students, want 2", len(students))
	}
	if _, err = repo.GetStudentByID(ctx, "S3"); err != nil {
		t.Errorf("GetStudentByID(S3) after delete error = %v", err)
	}
}

func TestSeedIDGenerator(t *testing.T) {
	client := newFakeClient()
	seedStudents(client)
	client.data["classes"] = [][]interface{}{
		{"C1", "Go 101", "Ms. K", "R1", "2024-09-01"},
		{"C7", "Go 201", "Ms. K", "R2", "2024-09-01"},
	}
	eng := newTestEngine(client)
	NewStudentRepository(eng)
	NewClassRepository(eng)

	if err := eng.SeedIDGenerator(context.Background()); err != nil {
		t.Fatalf("SeedIDGenerator() error = %v", err)
	}
	counters := eng.idgen.Counters()
	if counters["S"] != 3 || counters["C"] != 7 {
		t.Errorf("Counters() = %v, want S=3 C=7", counters)
	}
}
