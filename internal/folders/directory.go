// Package folders maintains an in-memory directory of the account's mail
// folder hierarchy and creates category/subcategory folders on demand.
package folders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/alainbuyze/outlook-categorizer/internal/graph"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
)

// Store is the folder surface of the mail provider the directory needs.
type Store interface {
	ListFolders(ctx context.Context, includeChildren bool) ([]*model.Folder, error)
	CreateFolder(ctx context.Context, displayName, parentID string) (*model.Folder, error)
}

type childKey struct {
	parentID string
	name     string // lowercased display name
}

// Directory caches the folder hierarchy in three projections. byName is a
// global name index where root folders take precedence over same-named
// children; byParent scopes names to a parent and is authoritative for
// subfolder lookups. The two indexes deliberately answer different
// questions and are never merged.
//
// Lookup methods assume Initialize has been called; on a directory that
// was never loaded they return nil/empty rather than reaching out to the
// provider.
type Directory struct {
	store  Store
	logger *logrus.Logger

	mu          sync.Mutex
	byName      map[string]*model.Folder
	byID        map[string]*model.Folder
	byParent    map[childKey]*model.Folder
	ordered     []*model.Folder // provider listing order
	rootIDs     map[string]bool
	initialized bool
}

func NewDirectory(store Store, logger *logrus.Logger) *Directory {
	return &Directory{store: store, logger: logger}
}

// Initialize loads the folder hierarchy once; later calls are no-ops.
func (d *Directory) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	if err := d.reloadLocked(ctx); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

// Refresh re-reads the hierarchy from the provider, picking up folders
// created outside this process.
func (d *Directory) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.reloadLocked(ctx); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

func (d *Directory) reloadLocked(ctx context.Context) error {
	roots, err := d.store.ListFolders(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list root folders: %w", err)
	}
	all, err := d.store.ListFolders(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list folder hierarchy: %w", err)
	}

	d.rootIDs = make(map[string]bool, len(roots))
	for _, folder := range roots {
		d.rootIDs[folder.ID] = true
	}

	d.ordered = all
	d.byName = make(map[string]*model.Folder, len(all))
	d.byID = make(map[string]*model.Folder, len(all))
	d.byParent = make(map[childKey]*model.Folder, len(all))
	for _, folder := range all {
		name := strings.ToLower(folder.DisplayName)
		d.byID[folder.ID] = folder
		d.byParent[childKey{parentID: folder.ParentFolderID, name: name}] = folder
		existing, seen := d.byName[name]
		// Root folders take the global name slot over nested ones.
		if !seen || (d.rootIDs[folder.ID] && !d.rootIDs[existing.ID]) {
			d.byName[name] = folder
		}
	}

	d.logger.WithField("count", len(all)).Debug("loaded folder hierarchy")
	return nil
}

// FolderByName looks a folder up by display name, case-insensitively. Root
// folders win over same-named children.
func (d *Directory) FolderByName(name string) *model.Folder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byName[strings.ToLower(name)]
}

// FolderByID looks a folder up by its provider ID.
func (d *Directory) FolderByID(id string) *model.Folder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[id]
}

// ResolveLabel resolves a path like "Inbox/Receipts" to a folder. The first
// segment uses the global name index; every further segment must be a
// direct child of the previous one. Returns (nil, nil) when any segment
// does not exist.
func (d *Directory) ResolveLabel(label string) (*model.Folder, error) {
	segments := splitLabel(label)
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty folder label")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.byName[segments[0]]
	if current == nil {
		return nil, nil
	}
	for _, segment := range segments[1:] {
		current = d.byParent[childKey{parentID: current.ID, name: segment}]
		if current == nil {
			return nil, nil
		}
	}
	return current, nil
}

func splitLabel(label string) []string {
	raw := strings.FieldsFunc(label, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		segment = strings.ToLower(strings.TrimSpace(segment))
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// Descendants returns folderID's subtree in depth-first order, the folder
// itself excluded. Siblings keep the order the provider listed them in, so
// repeated runs scan the same folders in the same sequence.
func (d *Directory) Descendants(folderID string) []*model.Folder {
	d.mu.Lock()
	defer d.mu.Unlock()

	children := make(map[string][]*model.Folder, len(d.ordered))
	for _, folder := range d.ordered {
		children[folder.ParentFolderID] = append(children[folder.ParentFolderID], folder)
	}

	var result []*model.Folder
	var stack []*model.Folder
	// Push siblings in reverse so they pop in listing order.
	push := func(folders []*model.Folder) {
		for i := len(folders) - 1; i >= 0; i-- {
			stack = append(stack, folders[i])
		}
	}
	push(children[folderID])
	for len(stack) > 0 {
		folder := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, folder)
		push(children[folder.ID])
	}
	return result
}

// EnsureCategoryFolder returns the root-level folder for a category,
// creating it when missing. A create conflict means another process won
// the race, so the hierarchy is refreshed and resolved again.
func (d *Directory) EnsureCategoryFolder(ctx context.Context, name string) (*model.Folder, error) {
	if existing := d.FolderByName(name); existing != nil {
		return existing, nil
	}

	folder, err := d.store.CreateFolder(ctx, name, "")
	if errors.Is(err, graph.ErrFolderExists) {
		if refreshErr := d.Refresh(ctx); refreshErr != nil {
			return nil, refreshErr
		}
		if existing := d.FolderByName(name); existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("folder %q reported as existing but not found after refresh", name)
	}
	if err != nil {
		return nil, err
	}

	d.addFolder(folder, true)
	return folder, nil
}

// EnsureSubcategoryFolder returns the folder for a subcategory nested
// under its category folder, creating both levels as needed.
func (d *Directory) EnsureSubcategoryFolder(ctx context.Context, category, subcategory string) (*model.Folder, error) {
	parent, err := d.EnsureCategoryFolder(ctx, category)
	if err != nil {
		return nil, err
	}

	lowerSub := strings.ToLower(subcategory)
	d.mu.Lock()
	existing := d.byParent[childKey{parentID: parent.ID, name: lowerSub}]
	d.mu.Unlock()
	if existing != nil {
		return existing, nil
	}

	folder, err := d.store.CreateFolder(ctx, subcategory, parent.ID)
	if errors.Is(err, graph.ErrFolderExists) {
		if refreshErr := d.Refresh(ctx); refreshErr != nil {
			return nil, refreshErr
		}
		d.mu.Lock()
		existing = d.byParent[childKey{parentID: parent.ID, name: lowerSub}]
		d.mu.Unlock()
		if existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("folder %q/%q reported as existing but not found after refresh", category, subcategory)
	}
	if err != nil {
		return nil, err
	}

	d.addFolder(folder, false)
	return folder, nil
}

// Destination picks the target folder for a categorization result. A
// subcategory folder is preferred; when it cannot be ensured the category
// folder is used instead.
func (d *Directory) Destination(ctx context.Context, category, subcategory string) (*model.Folder, error) {
	if subcategory != "" {
		folder, err := d.EnsureSubcategoryFolder(ctx, category, subcategory)
		if err == nil {
			return folder, nil
		}
		d.logger.WithFields(logrus.Fields{
			"category":    category,
			"subcategory": subcategory,
			"error":       err,
		}).Warn("failed to ensure subcategory folder, using category folder")
	}
	return d.EnsureCategoryFolder(ctx, category)
}

// addFolder records a newly created folder in all projections. isRoot
// marks top-level folders; the provider reports their parent as the
// mailbox root rather than empty, so the caller has to say.
func (d *Directory) addFolder(folder *model.Folder, isRoot bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name := strings.ToLower(folder.DisplayName)
	d.byID[folder.ID] = folder
	d.byParent[childKey{parentID: folder.ParentFolderID, name: name}] = folder
	d.ordered = append(d.ordered, folder)
	if isRoot {
		if d.rootIDs == nil {
			d.rootIDs = map[string]bool{}
		}
		d.rootIDs[folder.ID] = true
	}
	existing, seen := d.byName[name]
	if !seen || (d.rootIDs[folder.ID] && !d.rootIDs[existing.ID]) {
		d.byName[name] = folder
	}
}
