package tokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var (
	insertQ    = `(?s)^INSERT\s+INTO\s+tokens\s*\(uid,\s*api_key,\s*account_id,\s*valid_until,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*ON\s+CONFLICT\s+DO\s+NOTHING\s*RETURNING\s+id$`
	columns    = []string{"id", "uid", "api_key", "account_id", "valid_until", "created_at"}
	now        = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	validUntil = now.Add(24 * time.Hour)
)

func sampleToken() *models.Token {
	return &models.Token{UID: "tok000000000001", Key: "k1", AccountID: 7, ValidUntil: validUntil, CreatedAt: now}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("tok000000000001", "k1", int64(7), validUntil, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	got, err := repo.Create(context.Background(), sampleToken())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 11 || got.Key != "k1" {
		t.Fatalf("unexpected token: %+v", got)
	}
}

func TestCreate_CollisionReturnsAlreadyExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Create(context.Background(), sampleToken())
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), sampleToken())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListByAccount_OrderedByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+tokens\s+WHERE\s+account_id\s*=\s*\$1\s+ORDER\s+BY\s+id$`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(3), "u3", "k3", int64(7), validUntil, now).
			AddRow(int64(5), "u5", "k5", int64(7), validUntil, now))

	got, err := repo.ListByAccount(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListByAccount error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].Key != "k5" {
		t.Fatalf("unexpected tokens: %+v", got)
	}
}

func TestListByAccount_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+tokens`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("not-a-number", "u", "k", int64(7), validUntil, now))

	if _, err := repo.ListByAccount(context.Background(), 7); err == nil {
		t.Fatal("expected scan error")
	}
}

func TestUpdateExpiry(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	extended := validUntil.Add(24 * time.Hour)
	mock.ExpectQuery(`^UPDATE\s+tokens\s+SET\s+valid_until\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+id,`).
		WithArgs(int64(3), extended).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(3), "u3", "k3", int64(7), extended, now))

	got, err := repo.UpdateExpiry(context.Background(), 3, extended)
	if err != nil {
		t.Fatalf("UpdateExpiry error: %v", err)
	}
	if !got.ValidUntil.Equal(extended) {
		t.Fatalf("valid_until = %v, want %v", got.ValidUntil, extended)
	}
}

func TestUpdateExpiry_Missing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^UPDATE\s+tokens`).WillReturnRows(sqlmock.NewRows(columns))

	if _, err := repo.UpdateExpiry(context.Background(), 3, validUntil); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^DELETE\s+FROM\s+tokens\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs(int64(5)).WillReturnError(errors.New("conn reset"))

	if err := repo.Delete(context.Background(), 3); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), 4); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), 5); err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestGetByKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `FROM\s+tokens\s+WHERE\s+api_key\s*=\s*\$1$`
	mock.ExpectQuery(q).WithArgs("k3").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(3), "u3", "k3", int64(7), validUntil, now))
	mock.ExpectQuery(q).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByKey(context.Background(), "k3")
	if err != nil || got.AccountID != 7 {
		t.Fatalf("GetByKey = %+v, %v", got, err)
	}
	if _, err := repo.GetByKey(context.Background(), "nope"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
