package mocks

import (
	"context"

	"docvault/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockStore hands out whatever repositories the test registered and runs
// WithinTx callbacks against itself unless the expectation returns an error.
type MockStore struct {
	mock.Mock
}

var _ repository.Store = (*MockStore)(nil)

func (m *MockStore) Documents() repository.DocumentRepository {
	args := m.Called()
	return args.Get(0).(repository.DocumentRepository)
}

func (m *MockStore) Categories() repository.CategoryRepository {
	args := m.Called()
	return args.Get(0).(repository.CategoryRepository)
}

func (m *MockStore) Histories() repository.HistoryRepository {
	args := m.Called()
	return args.Get(0).(repository.HistoryRepository)
}

func (m *MockStore) Users() repository.UserRepository {
	args := m.Called()
	return args.Get(0).(repository.UserRepository)
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}
