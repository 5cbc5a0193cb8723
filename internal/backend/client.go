/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
)

// ErrNotFound is returned by Client for 404 responses.
var ErrNotFound = errors.New("not found")

// Client reads a ledger served by Server.
type Client struct {
	BaseURL string
	client  *http.Client
}

// NewClient creates a new client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("server %s %s: %w", method, u.Path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// ListScenes returns every scene of the served ledger.
func (c *Client) ListScenes(ctx context.Context) (*SceneList, error) {
	var list SceneList
	if err := c.doJSON(ctx, http.MethodGet, "/api/scenes", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetScene returns one scene by number.
func (c *Client) GetScene(ctx context.Context, number string) (domain.Scene, error) {
	var sc domain.Scene
	err := c.doJSON(ctx, http.MethodGet, "/api/scenes/"+url.PathEscape(number), &sc)
	return sc, err
}

// ListConflicts returns the pending conflicts.
func (c *Client) ListConflicts(ctx context.Context) ([]ledger.Conflict, error) {
	var cs []ledger.Conflict
	if err := c.doJSON(ctx, http.MethodGet, "/api/conflicts", &cs); err != nil {
		return nil, err
	}
	return cs, nil
}
