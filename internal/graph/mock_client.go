package graph

import (
	"context"

	"github.com/alainbuyze/outlook-categorizer/internal/model"
)

// MockStore is a test double for the Graph client. Each operation delegates
// to an optional function field; unset fields return zero values.
type MockStore struct {
	FetchMessagesFunc func(ctx context.Context, folderID string, limit int, opts FetchOptions) ([]*model.Email, error)
	TagMessageFunc    func(ctx context.Context, messageID string, categories []string) error
	MoveMessageFunc   func(ctx context.Context, messageID, destinationFolderID, sourceFolderID string) error
	ListFoldersFunc   func(ctx context.Context, includeChildren bool) ([]*model.Folder, error)
	CreateFolderFunc  func(ctx context.Context, displayName, parentID string) (*model.Folder, error)
}

func (m *MockStore) FetchMessages(ctx context.Context, folderID string, limit int, opts FetchOptions) ([]*model.Email, error) {
	if m.FetchMessagesFunc != nil {
		return m.FetchMessagesFunc(ctx, folderID, limit, opts)
	}
	return nil, nil
}

func (m *MockStore) TagMessage(ctx context.Context, messageID string, categories []string) error {
	if m.TagMessageFunc != nil {
		return m.TagMessageFunc(ctx, messageID, categories)
	}
	return nil
}

func (m *MockStore) MoveMessage(ctx context.Context, messageID, destinationFolderID, sourceFolderID string) error {
	if m.MoveMessageFunc != nil {
		return m.MoveMessageFunc(ctx, messageID, destinationFolderID, sourceFolderID)
	}
	return nil
}

func (m *MockStore) ListFolders(ctx context.Context, includeChildren bool) ([]*model.Folder, error) {
	if m.ListFoldersFunc != nil {
		return m.ListFoldersFunc(ctx, includeChildren)
	}
	return nil, nil
}

func (m *MockStore) CreateFolder(ctx context.Context, displayName, parentID string) (*model.Folder, error) {
	if m.CreateFolderFunc != nil {
		return m.CreateFolderFunc(ctx, displayName, parentID)
	}
	return &model.Folder{ID: "created-" + displayName, DisplayName: displayName, ParentFolderID: parentID}, nil
}
