package invite

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, table string, in any, key string, out any) error {
	args := m.Called(ctx, table, in, key, out)
	return args.Error(0)
}

func (m *MockStore) Query(ctx context.Context, table string, out any) error {
	args := m.Called(ctx, table, out)
	return args.Error(0)
}

func (m *MockStore) DeleteGuestbook(ctx context.Context, id, secret string) error {
	args := m.Called(ctx, id, secret)
	return args.Error(0)
}

func (m *MockStore) Subscribe(ctx context.Context, table string) (<-chan Change, error) {
	args := m.Called(ctx, table)
	ch, _ := args.Get(0).(<-chan Change)
	return ch, args.Error(1)
}
