package model

// Folder is an Outlook mail folder. Display names are only unique within a
// parent folder, never mailbox-wide; any lookup by bare name is best-effort.
type Folder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId"`
	ChildFolderCount int    `json:"childFolderCount"`
}
