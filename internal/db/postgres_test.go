package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow scans a fixed list of values or returns err.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeQuerier struct {
	rows       []fakeRow
	execTag    pgconn.CommandTag
	execErr    error
	sql        []string
	rowCalls   int
	begun      int
	committed  bool
	rolledBack bool
}

func (f *fakeQuerier) Begin(context.Context) (pgx.Tx, error) {
	f.begun++
	return &fakeTx{q: f}, nil
}

// fakeTx routes statements to its fakeQuerier and records how the
// transaction ended. Methods the store never calls are left to the
// embedded nil interface.
type fakeTx struct {
	pgx.Tx
	q    *fakeQuerier
	done bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t.q.Begin(ctx) }

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.q.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.q.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.q.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.q.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.q.rolledBack = true
	return nil
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	return f.execTag, f.execErr
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.sql = append(f.sql, sql)
	row := f.rows[f.rowCalls]
	f.rowCalls++
	return row
}

var created = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func chatRow(id, userID int64, title string) fakeRow {
	return fakeRow{values: []any{id, userID, title, false, created}}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  models.Message
		ok   bool
	}{
		{"user message", models.Message{Role: models.RoleUser, Content: "hi"}, true},
		{"ai message", models.Message{Role: models.RoleAI, Content: "hello"}, true},
		{"unknown role", models.Message{Role: "system", Content: "hi"}, false},
		{"blank content", models.Message{Role: models.RoleUser, Content: "   "}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			}
		})
	}
}

func TestChatStore_AddMessageRejectsInvalidBeforeQuerying(t *testing.T) {
	fake := &fakeQuerier{}
	store := NewChatStore(fake)

	_, err := store.AddMessage(context.Background(), models.Message{ChatID: 1, UserID: 1, Role: "bot", Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Empty(t, fake.sql)
}

func TestChatStore_CreateChatDefaultsTitle(t *testing.T) {
	fake := &fakeQuerier{rows: []fakeRow{chatRow(3, 7, DefaultChatTitle)}}
	store := NewChatStore(fake)

	chat, err := store.CreateChat(context.Background(), 7, "  ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), chat.ID)
	assert.Equal(t, DefaultChatTitle, chat.Title)
	assert.Equal(t, created, chat.CreatedAt)
}

func TestChatStore_GetChatNotFound(t *testing.T) {
	store := NewChatStore(&fakeQuerier{rows: []fakeRow{{err: pgx.ErrNoRows}}})

	_, err := store.GetChat(context.Background(), 7, 99)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestChatStore_AddMessage(t *testing.T) {
	fake := &fakeQuerier{rows: []fakeRow{
		chatRow(3, 7, "Broken Product"),
		{values: []any{int64(11), created}},
	}}
	store := NewChatStore(fake)

	msg, err := store.AddMessage(context.Background(), models.Message{
		ChatID: 3, UserID: 7, Role: models.RoleAI, Content: "feedback", Risk: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), msg.ID)
	assert.True(t, msg.Risk)
	assert.Equal(t, created, msg.CreatedAt)
}

func TestChatStore_AddMessageToForeignChat(t *testing.T) {
	fake := &fakeQuerier{rows: []fakeRow{{err: pgx.ErrNoRows}}}
	store := NewChatStore(fake)

	_, err := store.AddMessage(context.Background(), models.Message{
		ChatID: 3, UserID: 8, Role: models.RoleUser, Content: "hi",
	})
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.Equal(t, 1, fake.rowCalls)
}

func TestChatStore_DeleteChat(t *testing.T) {
	store := NewChatStore(&fakeQuerier{execTag: pgconn.NewCommandTag("DELETE 1")})
	assert.NoError(t, store.DeleteChat(context.Background(), 7, 3))

	store = NewChatStore(&fakeQuerier{execTag: pgconn.NewCommandTag("DELETE 0")})
	assert.ErrorIs(t, store.DeleteChat(context.Background(), 7, 3), ErrChatNotFound)
}

func TestChatStore_EnsureSchema(t *testing.T) {
	fake := &fakeQuerier{}
	require.NoError(t, NewChatStore(fake).EnsureSchema(context.Background()))
	require.Len(t, fake.sql, 1)
	assert.Contains(t, fake.sql[0], "CREATE TABLE IF NOT EXISTS messages")
}

func exchange() models.Exchange {
	return models.Exchange{
		RequestID: "req-1",
		UserID:    7,
		Title:     "Broken Product",
		UserText:  "the product was broken",
		Reply:     "Hello Alex! ...",
		Risk:      true,
	}
}

func TestChatStore_RecordExchangeNewChat(t *testing.T) {
	fake := &fakeQuerier{rows: []fakeRow{
		{err: pgx.ErrNoRows},           // no earlier exchange for req-1
		chatRow(3, 7, "Broken Product"), // create chat
		chatRow(3, 7, "Broken Product"), // ownership check, user message
		{values: []any{int64(11), created}},
		chatRow(3, 7, "Broken Product"), // ownership check, reply
		{values: []any{int64(12), created}},
	}}
	store := NewChatStore(fake)

	chat, err := store.RecordExchange(context.Background(), exchange())
	require.NoError(t, err)
	assert.Equal(t, int64(3), chat.ID)
	assert.Equal(t, "Broken Product", chat.Title)
	assert.Equal(t, 1, fake.begun)
	assert.True(t, fake.committed)
	assert.False(t, fake.rolledBack)
	assert.Equal(t, 6, fake.rowCalls)
}

func TestChatStore_RecordExchangeAlreadyStored(t *testing.T) {
	fake := &fakeQuerier{rows: []fakeRow{chatRow(3, 7, "Broken Product")}}
	store := NewChatStore(fake)

	chat, err := store.RecordExchange(context.Background(), exchange())
	require.NoError(t, err)
	assert.Equal(t, int64(3), chat.ID)
	assert.Zero(t, fake.begun)
	assert.Equal(t, 1, fake.rowCalls)
}

func TestChatStore_RecordExchangeRollsBackOnReplyFailure(t *testing.T) {
	fake := &fakeQuerier{rows: []fakeRow{
		{err: pgx.ErrNoRows},
		chatRow(3, 7, "Broken Product"),
		chatRow(3, 7, "Broken Product"),
		{values: []any{int64(11), created}},
		chatRow(3, 7, "Broken Product"),
		{err: errors.New("connection reset")},
	}}
	store := NewChatStore(fake)

	_, err := store.RecordExchange(context.Background(), exchange())
	require.Error(t, err)
	assert.True(t, fake.rolledBack)
	assert.False(t, fake.committed)
}

func TestChatStore_RecordExchangeForeignChat(t *testing.T) {
	ex := exchange()
	ex.ChatID = 3
	fake := &fakeQuerier{rows: []fakeRow{
		{err: pgx.ErrNoRows},
		{err: pgx.ErrNoRows},
	}}
	store := NewChatStore(fake)

	_, err := store.RecordExchange(context.Background(), ex)
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.True(t, fake.rolledBack)
}
