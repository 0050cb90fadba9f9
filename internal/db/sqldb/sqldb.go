// Package sqldb provides the relational storage backend. It works with
// PostgreSQL (through the pgx driver) and SQLite (through the pure-Go modernc driver),
// applies the embedded schema migrations on start and maps driver errors to
// the storage-level errors in the models package.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/patric-chuzhbe/bkmrk/internal/db/migrations"
	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

// SQLDB is a database/sql-backed implementation of storage.Storage.
type SQLDB struct {
	database          *sqlx.DB
	driver            string
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset rolls back every migration before applying them again.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

const userColumns = `id, email, hash, first_name, last_name, created_at, updated_at`

const bookmarkColumns = `id, user_id, title, description, link, created_at, updated_at`

// Open opens a connection pool for the driver ("postgres" or "sqlite") without touching the schema.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "postgres":
		database, err := sqlx.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/Open(): error while `sqlx.Open()` calling: %w", err)
		}
		return database, nil
	case "sqlite":
		database, err := sqlx.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/Open(): error while `sqlx.Open()` calling: %w", err)
		}
		// A single connection serializes writers and keeps shared in-memory databases alive.
		database.SetMaxOpenConns(1)
		return database, nil
	default:
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/Open(): unsupported driver %q", driver)
	}
}

// New connects to the database, runs the schema migrations and returns a ready storage.
func New(
	ctx context.Context,
	driver string,
	dsn string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*SQLDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	result := &SQLDB{
		database:          database,
		driver:            driver,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := migrations.Reset(database.DB, driver); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	if err := migrations.Up(database.DB, driver); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

// Ping verifies connectivity with the database within the configured timeout.
func (db *SQLDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *SQLDB) Close() error {
	return db.database.Close()
}

// CreateUser inserts a new user. A taken email yields models.ErrDuplicateEmail.
func (db *SQLDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	now := time.Now().UTC()

	var userID int64
	err := db.database.QueryRowxContext(
		ctx,
		db.database.Rebind(`
			INSERT INTO users (email, hash, first_name, last_name, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				RETURNING id
		`),
		usr.Email,
		usr.Hash,
		nullable(usr.FirstName),
		nullable(usr.LastName),
		now,
		now,
	).Scan(&userID)
	if isUniqueViolation(err) {
		return nil, models.ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/CreateUser(): error while inserting a user: %w", err)
	}

	return db.GetUserByID(ctx, userID)
}

// GetUserByID fetches a user by id. Unknown ids yield models.ErrNotFound.
func (db *SQLDB) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	return db.getUser(ctx, `id = ?`, userID)
}

// GetUserByEmail fetches a user by email. Unknown emails yield models.ErrNotFound.
func (db *SQLDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return db.getUser(ctx, `email = ?`, email)
}

func (db *SQLDB) getUser(ctx context.Context, condition string, arg interface{}) (*user.User, error) {
	usr := &user.User{}
	err := db.database.GetContext(
		ctx,
		usr,
		db.database.Rebind(`SELECT `+userColumns+` FROM users WHERE `+condition),
		arg,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/getUser(): error while `db.database.GetContext()` calling: %w", err)
	}

	return usr, nil
}

// UpdateUser applies the non-nil fields of patch.
func (db *SQLDB) UpdateUser(ctx context.Context, userID int64, patch models.UserPatch) (*user.User, error) {
	assignments := newAssignments(time.Now().UTC())
	assignments.add("email", patch.Email)
	assignments.add("first_name", patch.FirstName)
	assignments.add("last_name", patch.LastName)

	query, args := assignments.update("users", `id = ?`, userID)
	result, err := db.database.ExecContext(ctx, db.database.Rebind(query), args...)
	if isUniqueViolation(err) {
		return nil, models.ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/UpdateUser(): error while `db.database.ExecContext()` calling: %w", err)
	}
	if err := expectAffectedRows(result); err != nil {
		return nil, err
	}

	return db.GetUserByID(ctx, userID)
}

// CreateBookmark inserts a bookmark owned by bookmark.UserID.
func (db *SQLDB) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (*models.Bookmark, error) {
	now := time.Now().UTC()

	var bookmarkID int64
	err := db.database.QueryRowxContext(
		ctx,
		db.database.Rebind(`
			INSERT INTO bookmarks (user_id, title, description, link, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				RETURNING id
		`),
		bookmark.UserID,
		bookmark.Title,
		nullable(bookmark.Description),
		bookmark.Link,
		now,
		now,
	).Scan(&bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/CreateBookmark(): error while inserting a bookmark: %w", err)
	}

	return db.GetBookmarkByID(ctx, bookmarkID)
}

// GetBookmarksByUser returns the user's bookmarks ordered by id.
func (db *SQLDB) GetBookmarksByUser(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	bookmarks := []models.Bookmark{}
	err := db.database.SelectContext(
		ctx,
		&bookmarks,
		db.database.Rebind(`SELECT `+bookmarkColumns+` FROM bookmarks WHERE user_id = ? ORDER BY id`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/GetBookmarksByUser(): error while `db.database.SelectContext()` calling: %w", err)
	}

	return bookmarks, nil
}

// GetBookmarkByID looks the bookmark up by id alone.
func (db *SQLDB) GetBookmarkByID(ctx context.Context, bookmarkID int64) (*models.Bookmark, error) {
	return db.getBookmark(ctx, `id = ?`, bookmarkID)
}

// GetUserBookmark returns the bookmark only when userID owns it.
func (db *SQLDB) GetUserBookmark(ctx context.Context, userID, bookmarkID int64) (*models.Bookmark, error) {
	return db.getBookmark(ctx, `id = ? AND user_id = ?`, bookmarkID, userID)
}

func (db *SQLDB) getBookmark(ctx context.Context, condition string, args ...interface{}) (*models.Bookmark, error) {
	bookmark := &models.Bookmark{}
	err := db.database.GetContext(
		ctx,
		bookmark,
		db.database.Rebind(`SELECT `+bookmarkColumns+` FROM bookmarks WHERE `+condition),
		args...,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/getBookmark(): error while `db.database.GetContext()` calling: %w", err)
	}

	return bookmark, nil
}

// UpdateBookmark applies the non-nil fields of patch to a bookmark owned by userID.
func (db *SQLDB) UpdateBookmark(
	ctx context.Context,
	userID,
	bookmarkID int64,
	patch models.BookmarkPatch,
) (*models.Bookmark, error) {
	assignments := newAssignments(time.Now().UTC())
	assignments.add("title", patch.Title)
	assignments.add("description", patch.Description)
	assignments.add("link", patch.Link)

	query, args := assignments.update("bookmarks", `id = ? AND user_id = ?`, bookmarkID, userID)
	result, err := db.database.ExecContext(ctx, db.database.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/UpdateBookmark(): error while `db.database.ExecContext()` calling: %w", err)
	}
	if err := expectAffectedRows(result); err != nil {
		return nil, err
	}

	return db.GetUserBookmark(ctx, userID, bookmarkID)
}

// DeleteBookmark removes a bookmark owned by userID.
func (db *SQLDB) DeleteBookmark(ctx context.Context, userID, bookmarkID int64) error {
	result, err := db.database.ExecContext(
		ctx,
		db.database.Rebind(`DELETE FROM bookmarks WHERE id = ? AND user_id = ?`),
		bookmarkID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/sqldb/sqldb.go/DeleteBookmark(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return expectAffectedRows(result)
}

// GetNumberOfUsers returns the number of registered users.
func (db *SQLDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, "users")
}

// GetNumberOfBookmarks returns the number of stored bookmarks.
func (db *SQLDB) GetNumberOfBookmarks(ctx context.Context) (int64, error) {
	return db.count(ctx, "bookmarks")
}

func (db *SQLDB) count(ctx context.Context, table string) (int64, error) {
	var result int64
	err := db.database.GetContext(ctx, &result, `SELECT COUNT(*) FROM `+table)
	if err != nil {
		return 0, fmt.Errorf("in internal/db/sqldb/sqldb.go/count(): error while `db.database.GetContext()` calling: %w", err)
	}

	return result, nil
}

// assignments collects the SET part of a merge-patch UPDATE. updated_at is always set.
type assignments struct {
	columns []string
	args    []interface{}
}

func newAssignments(updatedAt time.Time) *assignments {
	return &assignments{
		columns: []string{"updated_at = ?"},
		args:    []interface{}{updatedAt},
	}
}

func (a *assignments) add(column string, value *string) {
	if value == nil {
		return
	}
	a.columns = append(a.columns, column+" = ?")
	a.args = append(a.args, *value)
}

func (a *assignments) update(table, condition string, conditionArgs ...interface{}) (string, []interface{}) {
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s`, table, strings.Join(a.columns, ", "), condition)
	return query, append(a.args, conditionArgs...)
}

func nullable(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func expectAffectedRows(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("in internal/db/sqldb/sqldb.go/expectAffectedRows(): error while `result.RowsAffected()` calling: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}

	return false
}
