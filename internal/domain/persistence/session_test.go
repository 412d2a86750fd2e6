package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/patentdb/pkg/errors"
)

// mockTx only records Commit and Rollback; the data methods are unused here.
type mockTx struct {
	mock.Mock
	Tx
}

func (m *mockTx) Commit() error   { return m.Called().Error(0) }
func (m *mockTx) Rollback() error { return m.Called().Error(0) }

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Begin(ctx context.Context) (Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(Tx)
	return tx, args.Error(1)
}

func TestCommit_Success(t *testing.T) {
	tx := new(mockTx)
	tx.On("Commit").Return(nil)

	require.NoError(t, Commit(tx))
	tx.AssertNotCalled(t, "Rollback")
}

func TestCommit_FailureRollsBack(t *testing.T) {
	tx := new(mockTx)
	tx.On("Commit").Return(errors.New("disk full"))
	tx.On("Rollback").Return(nil)

	err := Commit(tx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDatabaseError))
	assert.Contains(t, err.Error(), "disk full")
	tx.AssertExpectations(t)
}

func TestCommit_FailureKeepsBothCauses(t *testing.T) {
	commitErr := errors.New("disk full")
	rollbackErr := errors.New("connection reset")
	tx := new(mockTx)
	tx.On("Commit").Return(commitErr)
	tx.On("Rollback").Return(rollbackErr)

	err := Commit(tx)
	require.Error(t, err)
	assert.ErrorIs(t, err, commitErr)
	assert.ErrorIs(t, err, rollbackErr)
}

func TestCommit_FinishedTransactionRollbackNotJoined(t *testing.T) {
	commitErr := errors.New("disk full")
	tx := new(mockTx)
	tx.On("Commit").Return(commitErr)
	tx.On("Rollback").Return(sql.ErrTxDone)

	err := Commit(tx)
	require.Error(t, err)
	assert.ErrorIs(t, err, commitErr)
	assert.NotErrorIs(t, err, sql.ErrTxDone)
	assert.NotContains(t, err.Error(), sql.ErrTxDone.Error())
	tx.AssertExpectations(t)
}

func TestWithTransaction_Commits(t *testing.T) {
	tx := new(mockTx)
	tx.On("Commit").Return(nil)
	s := new(mockSession)
	s.On("Begin", mock.Anything).Return(tx, nil)

	called := false
	err := WithTransaction(context.Background(), s, func(got Tx) error {
		called = true
		assert.Same(t, tx, got)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	tx.AssertNotCalled(t, "Rollback")
}

func TestWithTransaction_ErrorRollsBack(t *testing.T) {
	tx := new(mockTx)
	tx.On("Rollback").Return(nil)
	s := new(mockSession)
	s.On("Begin", mock.Anything).Return(tx, nil)

	want := pkgerrors.Validation("bad record")
	err := WithTransaction(context.Background(), s, func(Tx) error { return want })
	assert.Same(t, want, err)
	tx.AssertNotCalled(t, "Commit")
	tx.AssertExpectations(t)
}

func TestWithTransaction_PanicRollsBack(t *testing.T) {
	tx := new(mockTx)
	tx.On("Rollback").Return(nil)
	s := new(mockSession)
	s.On("Begin", mock.Anything).Return(tx, nil)

	assert.PanicsWithValue(t, "boom", func() {
		_ = WithTransaction(context.Background(), s, func(Tx) error { panic("boom") })
	})
	tx.AssertExpectations(t)
}

func TestWithTransaction_BeginFailure(t *testing.T) {
	s := new(mockSession)
	s.On("Begin", mock.Anything).Return(nil, errors.New("pool exhausted"))

	err := WithTransaction(context.Background(), s, func(Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDatabaseError))
}

//Personal.AI order the ending
