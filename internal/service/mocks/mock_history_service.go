package mocks

import (
	"context"

	"docvault/internal/repository"
	"docvault/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockHistoryService struct {
	mock.Mock
}

var _ service.HistoryService = (*MockHistoryService)(nil)

func (m *MockHistoryService) ForDocument(ctx context.Context, documentID string, limit, offset int) (*service.HistoryListResult, error) {
	args := m.Called(ctx, documentID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HistoryListResult), args.Error(1)
}

func (m *MockHistoryService) Query(ctx context.Context, f repository.HistoryFilter) (*service.HistoryListResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HistoryListResult), args.Error(1)
}
