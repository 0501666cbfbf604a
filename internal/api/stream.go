// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StreamRequest is the body of the streaming send endpoint. ConversationID
// is omitted until the entry has resolved one.
type StreamRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Completion is the payload of a "done" event.
type Completion struct {
	ConversationID string `json:"conversationId"`
	Answer         string `json:"answer"`
}

// ParseCompletion decodes a "done" payload. An empty payload is an empty
// record.
func ParseCompletion(data string) (Completion, error) {
	var c Completion
	if strings.TrimSpace(data) == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return Completion{}, &DecodeError{Err: err}
	}
	return c, nil
}

// OpenStream posts req and returns the response body once the server has
// answered with a success status. The caller must close the body. Closing
// it, or cancelling ctx, aborts the stream.
func (c *Client) OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + c.streamPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	c.setHeaders(httpReq)

	c.logger.Debug("opening stream", "url", url, "conversation", req.ConversationID)

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{Status: resp.StatusCode, URL: url, Message: string(msg)}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, fmt.Errorf("request failed: empty stream body")
	}

	return resp.Body, nil
}
