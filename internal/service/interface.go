// Package service runs the triage workflow: fetch messages, categorize
// them, and file them into folders. Both the CLI and the HTTP API drive
// the same orchestrator.
package service

import (
	"context"

	"github.com/alainbuyze/outlook-categorizer/internal/graph"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
)

// MailboxStore is the message surface of the mail provider.
type MailboxStore interface {
	FetchMessages(ctx context.Context, folderID string, limit int, opts graph.FetchOptions) ([]*model.Email, error)
	TagMessage(ctx context.Context, messageID string, categories []string) error
	MoveMessage(ctx context.Context, messageID, destinationFolderID, sourceFolderID string) error
}

// Categorizer assigns categories; implementations never return nil.
type Categorizer interface {
	Categorize(ctx context.Context, email *model.Email) *model.CategorizationResult
}

// FolderDirectory resolves and creates destination folders.
type FolderDirectory interface {
	Initialize(ctx context.Context) error
	ResolveLabel(label string) (*model.Folder, error)
	FolderByName(name string) *model.Folder
	FolderByID(id string) *model.Folder
	Descendants(folderID string) []*model.Folder
	Destination(ctx context.Context, category, subcategory string) (*model.Folder, error)
}

// Runner is the workflow entry point shared by CLI and HTTP surfaces.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) ([]*model.ProcessingResult, error)
}
