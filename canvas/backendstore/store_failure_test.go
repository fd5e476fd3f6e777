package backendstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studioflow/canvasflow/types"
)

// newMockStore wires the store to a sqlmock connection so backend failures
// can be injected. Migration is skipped; these tests never touch schema.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return &Store{db: db, logger: zap.NewNop()}, mock
}

func TestStore_ReadNode_BackendFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err := store.ReadNode(context.Background(), "proj", "n1")
	require.Error(t, err)
	// A transport failure is not absence.
	assert.NotEqual(t, types.ErrNodeNotFound, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStore_ListEdges_BackendFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("server gone away"))

	_, err := store.ListEdges(context.Background(), "proj")
	assert.Error(t, err)
}

func TestStore_Exists_BackendFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("deadlock"))

	_, err := store.Exists(context.Background(), "id", "proj")
	assert.Error(t, err, "checker errors must surface so the allocator can fail safe")
}
