// Package graph is a minimal Microsoft Graph mail client covering the
// message and folder operations the categorizer needs.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alainbuyze/outlook-categorizer/internal/model"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

var (
	// ErrFolderExists reports a folder-create conflict (HTTP 409); the
	// folder was created by someone else between listing and creating.
	ErrFolderExists = errors.New("mail folder already exists")
	// ErrNotFound reports that a message or folder no longer exists.
	ErrNotFound = errors.New("not found")
)

// CredentialProvider supplies authentication headers for each request.
type CredentialProvider interface {
	AuthHeaders(ctx context.Context) (map[string]string, error)
}

// FetchOptions narrow a message fetch. Both flags translate into Graph
// $filter clauses evaluated server side.
type FetchOptions struct {
	// SkipFlagged excludes messages the user flagged for follow-up.
	SkipFlagged bool
	// SkipCategorized excludes messages that already carry any category.
	SkipCategorized bool
}

// Client talks to the Graph mail API for a single signed-in account.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      CredentialProvider
	logger     *logrus.Logger
}

func NewClient(creds CredentialProvider, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		creds:      creds,
		logger:     logger,
	}
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("graph api returned status %d: %s", e.Status, e.Body)
}

// do issues an authenticated request and returns the response body. Non-2xx
// responses come back as *apiError so callers can branch on status.
func (c *Client) do(ctx context.Context, method, requestURL string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	headers, err := c.creds.AuthHeaders(ctx)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

// FetchMessages lists up to limit messages in a folder, newest first.
func (c *Client) FetchMessages(ctx context.Context, folderID string, limit int, opts FetchOptions) ([]*model.Email, error) {
	query := url.Values{}
	query.Set("$top", strconv.Itoa(limit))
	query.Set("$select", "id,parentFolderId,subject,receivedDateTime,body,sender,from,toRecipients,importance,isRead,categories,flag")
	query.Set("$orderby", "receivedDateTime desc")

	var filters []string
	if opts.SkipFlagged {
		filters = append(filters, "flag/flagStatus eq 'notFlagged'")
	}
	if opts.SkipCategorized {
		filters = append(filters, "not categories/any()")
	}
	if len(filters) > 0 {
		query.Set("$filter", strings.Join(filters, " and "))
	}

	requestURL := fmt.Sprintf("%s/me/mailFolders/%s/messages?%s", c.baseURL, url.PathEscape(folderID), query.Encode())
	body, err := c.do(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var page struct {
		Value []*model.Email `json:"value"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"folder_id": folderID,
		"count":     len(page.Value),
	}).Debug("fetched messages")
	return page.Value, nil
}

// TagMessage replaces the categories of a message.
func (c *Client) TagMessage(ctx context.Context, messageID string, categories []string) error {
	requestURL := fmt.Sprintf("%s/me/messages/%s", c.baseURL, url.PathEscape(messageID))
	payload := map[string]any{"categories": categories}
	if _, err := c.do(ctx, http.MethodPatch, requestURL, payload); err != nil {
		return fmt.Errorf("failed to tag message %s: %w", messageID, err)
	}
	return nil
}

// MoveMessage moves a message into the destination folder. When the
// message-scoped endpoint answers 404 (the message moved or its ID became
// stale) the call retries through the source folder; a second 404 is
// reported as ErrNotFound so callers can treat it as already handled.
func (c *Client) MoveMessage(ctx context.Context, messageID, destinationFolderID, sourceFolderID string) error {
	payload := map[string]string{"destinationId": destinationFolderID}

	requestURL := fmt.Sprintf("%s/me/messages/%s/move", c.baseURL, url.PathEscape(messageID))
	_, err := c.do(ctx, http.MethodPost, requestURL, payload)
	if err == nil {
		return nil
	}
	if !isStatus(err, http.StatusNotFound) || sourceFolderID == "" {
		return fmt.Errorf("failed to move message %s: %w", messageID, err)
	}

	c.logger.WithField("message_id", messageID).Debug("move returned 404, retrying via source folder")
	requestURL = fmt.Sprintf("%s/me/mailFolders/%s/messages/%s/move",
		c.baseURL, url.PathEscape(sourceFolderID), url.PathEscape(messageID))
	_, err = c.do(ctx, http.MethodPost, requestURL, payload)
	if err == nil {
		return nil
	}
	if isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return fmt.Errorf("failed to move message %s: %w", messageID, err)
}

// ListFolders returns the account's mail folders. With includeChildren the
// hierarchy is walked and child folders included recursively.
func (c *Client) ListFolders(ctx context.Context, includeChildren bool) ([]*model.Folder, error) {
	roots, err := c.listFolderPage(ctx, fmt.Sprintf("%s/me/mailFolders?%s", c.baseURL, folderQuery()))
	if err != nil {
		return nil, err
	}
	if !includeChildren {
		return roots, nil
	}

	all := make([]*model.Folder, 0, len(roots))
	queue := append([]*model.Folder(nil), roots...)
	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]
		all = append(all, folder)
		if folder.ChildFolderCount == 0 {
			continue
		}
		children, err := c.listFolderPage(ctx,
			fmt.Sprintf("%s/me/mailFolders/%s/childFolders?%s", c.baseURL, url.PathEscape(folder.ID), folderQuery()))
		if err != nil {
			return nil, err
		}
		queue = append(queue, children...)
	}
	return all, nil
}

func folderQuery() string {
	query := url.Values{}
	query.Set("$top", "100")
	query.Set("$select", "id,displayName,parentFolderId,childFolderCount")
	return query.Encode()
}

// listFolderPage fetches one folder collection, following @odata.nextLink.
func (c *Client) listFolderPage(ctx context.Context, requestURL string) ([]*model.Folder, error) {
	var folders []*model.Folder
	for requestURL != "" {
		body, err := c.do(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list folders: %w", err)
		}
		var page struct {
			Value    []*model.Folder `json:"value"`
			NextLink string          `json:"@odata.nextLink"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode folders: %w", err)
		}
		folders = append(folders, page.Value...)
		requestURL = page.NextLink
	}
	return folders, nil
}

// CreateFolder creates a mail folder, at the root when parentID is empty.
// A name conflict is reported as ErrFolderExists.
func (c *Client) CreateFolder(ctx context.Context, displayName, parentID string) (*model.Folder, error) {
	requestURL := c.baseURL + "/me/mailFolders"
	if parentID != "" {
		requestURL = fmt.Sprintf("%s/me/mailFolders/%s/childFolders", c.baseURL, url.PathEscape(parentID))
	}

	body, err := c.do(ctx, http.MethodPost, requestURL, map[string]string{"displayName": displayName})
	if err != nil {
		if isStatus(err, http.StatusConflict) {
			return nil, fmt.Errorf("folder %q: %w", displayName, ErrFolderExists)
		}
		return nil, fmt.Errorf("failed to create folder %q: %w", displayName, err)
	}

	var folder model.Folder
	if err := json.Unmarshal(body, &folder); err != nil {
		return nil, fmt.Errorf("failed to decode created folder: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"folder_id": folder.ID,
		"name":      folder.DisplayName,
	}).Info("created mail folder")
	return &folder, nil
}

func isStatus(err error, status int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
