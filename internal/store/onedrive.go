package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGraphBase is the Microsoft Graph endpoint used by OneDrive.
const DefaultGraphBase = "https://graph.microsoft.com/v1.0"

// maxSimpleUpload is the Graph limit for single-request uploads.
const maxSimpleUpload = 4 * 1024 * 1024

type driveItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Size           int64     `json:"size"`
	LastModifiedAt time.Time `json:"-"`
	IsFolder       bool      `json:"-"`
	MimeType       string    `json:"-"`
}

// UnmarshalJSON flattens the Graph folder/file facets into driveItem.
func (d *driveItem) UnmarshalJSON(data []byte) error {
	type alias driveItem
	aux := &struct {
		*alias
		Folder *struct {
			ChildCount int `json:"childCount"`
		} `json:"folder"`
		File *struct {
			MimeType string `json:"mimeType"`
		} `json:"file"`
		LastModified string `json:"lastModifiedDateTime"`
	}{
		alias: (*alias)(d),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	d.IsFolder = aux.Folder != nil
	if aux.File != nil {
		d.MimeType = aux.File.MimeType
	}
	if aux.LastModified != "" {
		if t, err := time.Parse(time.RFC3339, aux.LastModified); err == nil {
			d.LastModifiedAt = t
		}
	}
	return nil
}

func (d driveItem) object() Object {
	mt := d.MimeType
	if mt == "" {
		mt = MimeTypeOf(d.Name)
	}
	return Object{ID: d.ID, Name: d.Name, MimeType: mt, ModifiedAt: d.LastModifiedAt, Size: d.Size}
}

type driveItemsResponse struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// OneDrive stores objects in the signed-in user's OneDrive. Folders are paths
// relative to the drive root.
type OneDrive struct {
	Client  *http.Client
	BaseURL string
}

// NewOneDrive creates a OneDrive store over an authenticated HTTP client.
func NewOneDrive(client *http.Client) *OneDrive {
	return &OneDrive{Client: client, BaseURL: DefaultGraphBase}
}

// List returns the files in folder, following pagination.
func (o *OneDrive) List(ctx context.Context, folder, mimeType string) ([]Object, error) {
	endpoint := o.BaseURL + "/me/drive/root/children"
	if p := escapePath(folder); p != "" {
		endpoint = o.BaseURL + "/me/drive/root:/" + p + ":/children"
	}

	var objs []Object
	for endpoint != "" {
		body, err := o.do(ctx, http.MethodGet, endpoint, nil, "")
		if errors.Is(err, ErrNotFound) && objs == nil {
			// The folder does not exist yet.
			return nil, nil
		}
		if err != nil {
			return nil, ioError("list", folder, err)
		}

		var result driveItemsResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, ioError("list", folder, fmt.Errorf("could not parse OneDrive response: %w", err))
		}

		for _, item := range result.Value {
			if item.IsFolder {
				continue
			}
			obj := item.object()
			if mimeType != "" && obj.MimeType != mimeType {
				continue
			}
			objs = append(objs, obj)
		}
		endpoint = result.NextLink
	}

	return objs, nil
}

// Upload creates folder/name with a simple upload. Graph is told to fail on
// a name conflict so existing objects are never replaced.
func (o *OneDrive) Upload(ctx context.Context, folder string, data []byte, name, mimeType string) (string, error) {
	if err := validName(name); err != nil {
		return "", ioError("upload", name, err)
	}
	if len(data) > maxSimpleUpload {
		return "", ioError("upload", name, fmt.Errorf("file too large for simple upload (%d bytes, max 4MB)", len(data)))
	}

	remote := escapePath(strings.Trim(folder, "/") + "/" + name)
	endpoint := o.BaseURL + "/me/drive/root:/" + remote + ":/content?@microsoft.graph.conflictBehavior=fail"
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	body, err := o.do(ctx, http.MethodPut, endpoint, data, mimeType)
	if err != nil {
		return "", ioError("upload", name, err)
	}

	var item driveItem
	if err := json.Unmarshal(body, &item); err != nil {
		return "", ioError("upload", name, fmt.Errorf("could not parse upload response: %w", err))
	}
	return item.ID, nil
}

// Download fetches an item's content by ID; Graph redirects to the blob URL.
func (o *OneDrive) Download(ctx context.Context, id string) ([]byte, error) {
	endpoint := o.BaseURL + "/me/drive/items/" + url.PathEscape(id) + "/content"
	body, err := o.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, ioError("download", id, err)
	}
	return body, nil
}

func (o *OneDrive) do(ctx context.Context, method, endpoint string, payload []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OneDrive request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read OneDrive response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return body, nil
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrExists
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("OneDrive API returned %d: %s", resp.StatusCode, string(body))
	}
}

// escapePath escapes each segment of a slash-separated drive path.
func escapePath(p string) string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, url.PathEscape(s))
		}
	}
	return strings.Join(segs, "/")
}
