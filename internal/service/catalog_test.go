package service

import (
	"database/sql"
	"errors"
	"math"
	"testing"

	"tree-garden/internal/db"
	"tree-garden/internal/notify"

	"github.com/DATA-DOG/go-sqlmock"
)

type mockAuthorizer struct {
	admin bool
	err   error
}

func (m *mockAuthorizer) IsAdministrator(userID int) (bool, error) {
	return m.admin, m.err
}

func newCatalogService(dbConn *sql.DB, admin bool, sink notify.Sink) *catalogService {
	return &catalogService{
		dbProv: db.NewCatalogDB(dbConn),
		auth:   &mockAuthorizer{admin: admin},
		sink:   sink,
		log:    &mockLogger{},
	}
}

func TestCatalogService_AddTree_CreatesNew(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, serial_number, price, quantity FROM trees WHERE name=\\$1 FOR UPDATE").
		WithArgs("Oak").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO trees").
		WithArgs("Oak", "SN1", 100, 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sink := &mockSink{}
	svc := newCatalogService(dbConn, true, sink)

	created, err := svc.AddTree(1, "Oak", "SN1", 100, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created=true for a new tree")
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("unmet expectations: %v", e2)
	}
	types := sink.types()
	if len(types) != 1 || types[0] != notify.EventTreeAdded {
		t.Errorf("unexpected events: %v", types)
	}
}

func TestCatalogService_AddTree_RestocksExisting(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, serial_number, price, quantity FROM trees WHERE name=\\$1 FOR UPDATE").
		WithArgs("Oak").
		WillReturnRows(treeRows("Oak", "SN1", 100, 5))
	// Price and serial stay untouched on restock.
	mock.ExpectExec("UPDATE trees SET quantity = quantity \\+ \\$1 WHERE name=\\$2").
		WithArgs(3, "Oak").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newCatalogService(dbConn, true, &mockSink{})

	created, err := svc.AddTree(1, "Oak", "SN-ignored", 999, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected created=false for an existing tree")
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("unmet expectations: %v", e2)
	}
}

func TestCatalogService_AddTree_OverflowRejected(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, serial_number, price, quantity FROM trees WHERE name=\\$1 FOR UPDATE").
		WithArgs("Oak").
		WillReturnRows(treeRows("Oak", "SN1", 100, math.MaxInt64-1))
	mock.ExpectRollback()

	svc := newCatalogService(dbConn, true, &mockSink{})

	if _, err := svc.AddTree(1, "Oak", "SN1", 100, 5); !errors.Is(err, ErrQuantityOverflow) {
		t.Errorf("expected ErrQuantityOverflow, got %v", err)
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("unmet expectations: %v", e2)
	}
}

func TestCatalogService_AddTree_Unauthorized(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	svc := newCatalogService(dbConn, false, &mockSink{})

	if _, err := svc.AddTree(1, "Oak", "SN1", 100, 5); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("no SQL expected: %v", e2)
	}
}

func TestCatalogService_RemoveTree_Success(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, serial_number, price, quantity FROM trees WHERE name=\\$1 FOR UPDATE").
		WithArgs("Oak").
		WillReturnRows(treeRows("Oak", "SN1", 100, 5))
	mock.ExpectExec("DELETE FROM trees WHERE name=\\$1").
		WithArgs("Oak").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sink := &mockSink{}
	svc := newCatalogService(dbConn, true, sink)

	if err := svc.RemoveTree(1, "Oak"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("unmet expectations: %v", e2)
	}
	types := sink.types()
	if len(types) != 1 || types[0] != notify.EventTreeRemoved {
		t.Errorf("unexpected events: %v", types)
	}
}

func TestCatalogService_RemoveTree_NotFound(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, serial_number, price, quantity FROM trees WHERE name=\\$1 FOR UPDATE").
		WithArgs("Ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	svc := newCatalogService(dbConn, true, &mockSink{})

	if err := svc.RemoveTree(1, "Ghost"); !errors.Is(err, ErrTreeNotFound) {
		t.Errorf("expected ErrTreeNotFound, got %v", err)
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("unmet expectations: %v", e2)
	}
}

func TestCatalogService_UpdatePrice_Success(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, serial_number, price, quantity FROM trees WHERE name=\\$1 FOR UPDATE").
		WithArgs("Oak").
		WillReturnRows(treeRows("Oak", "SN1", 100, 5))
	mock.ExpectExec("UPDATE trees SET price = \\$1 WHERE name=\\$2").
		WithArgs(120, "Oak").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newCatalogService(dbConn, true, &mockSink{})

	if err := svc.UpdatePrice(1, "Oak", 120); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("unmet expectations: %v", e2)
	}
}

func TestCatalogService_UpdatePrice_NotFound(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, serial_number, price, quantity FROM trees WHERE name=\\$1 FOR UPDATE").
		WithArgs("Ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	svc := newCatalogService(dbConn, true, &mockSink{})

	if err := svc.UpdatePrice(1, "Ghost", 120); !errors.Is(err, ErrTreeNotFound) {
		t.Errorf("expected ErrTreeNotFound, got %v", err)
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("unmet expectations: %v", e2)
	}
}

func TestCatalogService_GetTree_AbsentIsNotAnError(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectQuery("SELECT name, serial_number, price, quantity FROM trees WHERE name=\\$1").
		WithArgs("Ghost").
		WillReturnError(sql.ErrNoRows)

	svc := newCatalogService(dbConn, false, &mockSink{})

	tree, found, err := svc.GetTree("Ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected found=false")
	}
	if tree.Name != "" || tree.SerialNumber != "" {
		t.Errorf("expected zero-value record, got %+v", tree)
	}
	if e2 := mock.ExpectationsWereMet(); e2 != nil {
		t.Errorf("unmet expectations: %v", e2)
	}
}
