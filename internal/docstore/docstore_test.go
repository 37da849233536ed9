package docstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fake querier with function fields, one per pgx entry point.

type fakeQuerier struct {
	execFn     func(sql string, args []any) (pgconn.CommandTag, error)
	queryFn    func(sql string, args []any) (pgx.Rows, error)
	queryRowFn func(sql string, args []any) pgx.Row
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.execFn != nil {
		return f.execFn(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.queryFn != nil {
		return f.queryFn(sql, args)
	}
	return &fakeRows{}, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if f.queryRowFn != nil {
		return f.queryRowFn(sql, args)
	}
	return &fakeRow{}
}

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return pgx.ErrNoRows
}

// fakeRows walks a list of per-row scan functions.

type fakeRows struct {
	scans []func(dest ...any) error
	i     int
	err   error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	return r.i < len(r.scans)
}

func (r *fakeRows) Scan(dest ...any) error {
	fn := r.scans[r.i]
	r.i++
	return fn(dest...)
}

func scanRaw(raw string) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*[]byte)) = []byte(raw)
		return nil
	}
}

func newTestStore(q Querier) *Store {
	return New(q, testLogger(), nil)
}

func TestCollectionNameValidation(t *testing.T) {
	store := newTestStore(&fakeQuerier{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on invalid collection name")
		}
	}()

	store.Collection("users; drop table users")
}

func TestInsertAssignsID(t *testing.T) {
	var gotSQL string
	var gotArgs []any

	q := &fakeQuerier{
		execFn: func(sql string, args []any) (pgconn.CommandTag, error) {
			if strings.HasPrefix(sql, "INSERT") {
				gotSQL = sql
				gotArgs = args
			}
			return pgconn.CommandTag{}, nil
		},
	}

	col := newTestStore(q).Collection("users")

	res, err := col.Insert(context.Background(), Document{"email": "a@x.com"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, _ := res.Doc["id"].(string)

	if id == "" {
		t.Fatal("insert did not assign an id")
	}

	if gotSQL != "INSERT INTO users (id, doc) VALUES ($1, $2)" {
		t.Fatalf("unexpected insert sql: %q", gotSQL)
	}

	if gotArgs[0] != id {
		t.Fatalf("id column %v does not match doc id %s", gotArgs[0], id)
	}

	// the embedded doc carries the id too
	if !strings.Contains(string(gotArgs[1].([]byte)), id) {
		t.Fatal("stored doc does not embed its id")
	}
}

func TestInsertKeepsCallerID(t *testing.T) {
	col := newTestStore(&fakeQuerier{}).Collection("users")

	res, err := col.Insert(context.Background(), Document{"id": "fixed-id"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Doc["id"] != "fixed-id" {
		t.Fatalf("caller id overwritten: %v", res.Doc["id"])
	}
}

func TestInsertManyStopsAtFirstFailure(t *testing.T) {
	var inserts int

	q := &fakeQuerier{
		execFn: func(sql string, args []any) (pgconn.CommandTag, error) {
			if !strings.HasPrefix(sql, "INSERT") {
				return pgconn.CommandTag{}, nil
			}

			inserts++

			if strings.Contains(string(args[1].([]byte)), "boom") {
				return pgconn.CommandTag{}, errors.New("constraint violated")
			}

			return pgconn.CommandTag{}, nil
		},
	}

	col := newTestStore(q).Collection("items")

	docs := []Document{
		{"name": "A"},
		{"name": "boom"},
		{"name": "C"},
	}

	res, err := col.InsertMany(context.Background(), docs)

	if err == nil {
		t.Fatal("expected error from second document")
	}

	// A went in, B failed, C was never attempted
	if inserts != 2 {
		t.Fatalf("got %d insert attempts, want 2", inserts)
	}

	if len(res.Docs) != 1 || res.Docs[0]["name"] != "A" {
		t.Fatalf("unexpected inserted prefix: %v", res.Docs)
	}
}

func TestFindOneEmptyOutcome(t *testing.T) {
	q := &fakeQuerier{
		queryRowFn: func(sql string, args []any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	col := newTestStore(q).Collection("users")

	res, err := col.FindOne(context.Background(), Filter{"email": "nobody@x.com"}, nil, FindOptions{})

	if err != nil {
		t.Fatalf("no match must not be an error, got: %v", err)
	}

	if !res.Empty() {
		t.Fatal("expected OutcomeEmpty")
	}
}

func TestFindOneProjected(t *testing.T) {
	q := &fakeQuerier{
		queryRowFn: func(sql string, args []any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error {
				*(dest[0].(*[]byte)) = []byte(`{"id":"1","email":"a@x.com","password":"hash"}`)
				return nil
			}}
		},
	}

	col := newTestStore(q).Collection("users")

	res, err := col.FindOne(context.Background(), Filter{"email": "a@x.com"}, Projection{"email"}, FindOptions{})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Empty() {
		t.Fatal("expected a document")
	}

	if _, ok := res.Doc["password"]; ok {
		t.Fatal("projection leaked the password field")
	}
}

func TestCountZeroIsOK(t *testing.T) {
	q := &fakeQuerier{
		queryRowFn: func(sql string, args []any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error {
				*(dest[0].(*int64)) = 0
				return nil
			}}
		},
	}

	col := newTestStore(q).Collection("users")

	res, err := col.Count(context.Background(), nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// zero matches is a valid answer, not an absence
	if res.Empty() {
		t.Fatal("count of zero must be OutcomeOK")
	}

	if res.Count != 0 {
		t.Fatalf("got count %d, want 0", res.Count)
	}
}

func TestExistsFalseIsOK(t *testing.T) {
	q := &fakeQuerier{
		queryRowFn: func(sql string, args []any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error {
				*(dest[0].(*bool)) = false
				return nil
			}}
		},
	}

	col := newTestStore(q).Collection("users")

	res, err := col.Exists(context.Background(), Filter{"email": "nobody@x.com"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Empty() || res.Exists {
		t.Fatalf("want OutcomeOK with Exists=false, got %+v", res)
	}
}

func TestUpdateOneNoMatch(t *testing.T) {
	col := newTestStore(&fakeQuerier{
		queryRowFn: func(sql string, args []any) pgx.Row {
			return &fakeRow{}
		},
	}).Collection("users")

	res, err := col.UpdateOne(context.Background(), Filter{"email": "nobody@x.com"}, Document{"admin": true})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Empty() {
		t.Fatal("expected OutcomeEmpty for an unmatched update")
	}
}

func TestUpdateOneStripsID(t *testing.T) {
	var gotPatch string

	q := &fakeQuerier{
		queryRowFn: func(sql string, args []any) pgx.Row {
			if strings.HasPrefix(sql, "UPDATE") {
				gotPatch = string(args[0].([]byte))
			}
			return &fakeRow{scanFn: scanRaw(`{"id":"1","admin":true}`)}
		},
	}

	col := newTestStore(q).Collection("users")

	res, err := col.UpdateOne(context.Background(), nil, Document{"id": "evil", "admin": true})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(gotPatch, "evil") {
		t.Fatal("patch must not rewrite the id")
	}

	if res.Doc["admin"] != true {
		t.Fatalf("unexpected post-update doc: %v", res.Doc)
	}
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	q := &fakeQuerier{
		execFn: func(sql string, args []any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errors.New("connection refused")
		},
	}

	col := newTestStore(q).Collection("users")

	_, err := col.Insert(context.Background(), Document{"email": "a@x.com"})

	if err == nil {
		t.Fatal("expected error")
	}

	if !strings.Contains(err.Error(), "docstore: insert users") {
		t.Fatalf("error not wrapped with op context: %v", err)
	}
}

func TestAggregateJoinFlattensAndPreservesUnmatched(t *testing.T) {
	q := &fakeQuerier{
		queryFn: func(sql string, args []any) (pgx.Rows, error) {
			return &fakeRows{scans: []func(dest ...any) error{
				// matched row: left + right
				func(dest ...any) error {
					*(dest[0].(*[]byte)) = []byte(`{"id":"p1","submittedBy":"u1"}`)
					*(dest[1].(*[]byte)) = []byte(`{"id":"u1","email":"a@x.com"}`)
					return nil
				},
				// unmatched row: right side is NULL
				func(dest ...any) error {
					*(dest[0].(*[]byte)) = []byte(`{"id":"p2","submittedBy":"ghost"}`)
					return nil
				},
			}}, nil
		},
	}

	col := newTestStore(q).Collection("payloads")

	res, err := col.AggregateJoin(context.Background(), JoinSpec{
		From:         "users",
		LocalField:   "submittedBy",
		ForeignField: "id",
		As:           "author",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(res.Docs))
	}

	author, ok := res.Docs[0]["author"].(Document)

	if !ok || author["email"] != "a@x.com" {
		t.Fatalf("joined doc not flattened under as-key: %v", res.Docs[0])
	}

	// the left document without a match survives, just without an author
	if _, ok := res.Docs[1]["author"]; ok {
		t.Fatalf("unmatched row grew an author: %v", res.Docs[1])
	}
}

func TestAggregateGroup(t *testing.T) {
	q := &fakeQuerier{
		queryFn: func(sql string, args []any) (pgx.Rows, error) {
			return &fakeRows{scans: []func(dest ...any) error{
				func(dest ...any) error {
					key := "true"
					*(dest[0].(**string)) = &key
					n := int64(2)
					*(dest[1].(**int64)) = &n
					return nil
				},
				func(dest ...any) error {
					key := "false"
					*(dest[0].(**string)) = &key
					n := int64(5)
					*(dest[1].(**int64)) = &n
					return nil
				},
			}}, nil
		},
	}

	col := newTestStore(q).Collection("users")

	res, err := col.AggregateGroup(context.Background(), nil, Grouping{
		Key:    "admin",
		Accums: []Accum{{As: "total", Op: "count"}},
	}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Docs) != 2 {
		t.Fatalf("got %d groups, want 2", len(res.Docs))
	}

	if res.Docs[0]["admin"] != "true" || res.Docs[0]["total"] != int64(2) {
		t.Fatalf("unexpected group row: %v", res.Docs[0])
	}
}
