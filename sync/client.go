package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/synccrypto"
)

// Client talks to one sync server on behalf of a single replica, encrypting
// and compressing every operation batch under a shared key before it ever
// reaches net/http.
type Client struct {
	baseURL string
	key synccrypto.Key
	http *http.Client
}

// NewClient returns a Client against baseURL (e.g. "https://sync.example.com")
// authenticated implicitly by possession of key - there is no separate
// bearer token; the key is the only credential a server-side actor needs
// to be considered the replica's owner.
func NewClient(baseURL string, key synccrypto.Key, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, key: key, http: httpClient}
}

// GetChildVersion fetches the operations recorded as the child of parent,
// if the server has one.
func (c *Client) GetChildVersion(ctx context.Context, parent string) (childID string, ops []op.Op, found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/client/get-child-version/"+urlEscape(parent), nil)
	if err != nil {
		return "", nil, false, errs.Wrap("sync.Client.GetChildVersion", errs.SyncTransport, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, false, errs.Wrap("sync.Client.GetChildVersion", errs.SyncTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return "", nil, false, nil
	case http.StatusOK:
		var cv childVersionResponse
		if err := json.NewDecoder(resp.Body).Decode(&cv); err != nil {
			return "", nil, false, errs.Wrap("sync.Client.GetChildVersion", errs.SyncTransport, err)
		}
		ops, err := DecodeOps(c.key, cv.Blob)
		if err != nil {
			return "", nil, false, err
		}
		return cv.ChildVersionID, ops, true, nil
	default:
		return "", nil, false, errs.New("sync.Client.GetChildVersion", errs.SyncTransport)
	}
}

// AddVersion attempts to push ops as the child of parent. ok reports
// success; on conflict (ok == false) the server's actual child is returned
// instead so the caller can rebase against it.
func (c *Client) AddVersion(ctx context.Context, parent string, ops []op.Op) (childID string, ok bool, conflictID string, conflictOps []op.Op, err error) {
	blob, err := EncodeOps(c.key, ops)
	if err != nil {
		return "", false, "", nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/client/add-version/"+urlEscape(parent), bytes.NewReader(blob))
	if err != nil {
		return "", false, "", nil, errs.Wrap("sync.Client.AddVersion", errs.SyncTransport, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, "", nil, errs.Wrap("sync.Client.AddVersion", errs.SyncTransport, err)
	}
	defer resp.Body.Close()

	var cv childVersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cv); err != nil {
		return "", false, "", nil, errs.Wrap("sync.Client.AddVersion", errs.SyncTransport, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return cv.ChildVersionID, true, "", nil, nil
	case http.StatusConflict:
		conflict, err := DecodeOps(c.key, cv.Blob)
		if err != nil {
			return "", false, "", nil, err
		}
		return "", false, cv.ChildVersionID, conflict, nil
	default:
		return "", false, "", nil, errs.New("sync.Client.AddVersion", errs.SyncTransport)
	}
}

// AddSnapshot pushes a full-state snapshot for version.
func (c *Client) AddSnapshot(ctx context.Context, version string, snap Snapshot) error {
	blob, err := EncodeSnapshot(c.key, snap)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/client/add-snapshot/"+urlEscape(version), bytes.NewReader(blob))
	if err != nil {
		return errs.Wrap("sync.Client.AddSnapshot", errs.SyncTransport, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap("sync.Client.AddSnapshot", errs.SyncTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return errs.New("sync.Client.AddSnapshot", errs.SyncTransport)
	}
	return nil
}

func urlEscape(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
