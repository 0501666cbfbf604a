// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jeranaias/entchat/internal/model"
)

// DefaultHistoryLimit is the number of messages requested per conversation.
const DefaultHistoryLimit = 50

// =============================================================================
// HISTORY RECORDS
// =============================================================================

// ContentBlock is one element of a structured message body.
type ContentBlock struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
	Data *struct {
		Text string `json:"text,omitempty"`
	} `json:"data,omitempty"`
}

// HistoryRecord is one stored message. Servers differ in which field holds
// the text, so all known ones are kept.
type HistoryRecord struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
	Answer  string          `json:"answer,omitempty"`
	Query   string          `json:"query,omitempty"`
	Message string          `json:"message,omitempty"`
	Text    string          `json:"text,omitempty"`
}

type historyResponse struct {
	Data []HistoryRecord `json:"data"`
}

// MessageRole maps the record's role case-insensitively.
func (r HistoryRecord) MessageRole() model.Role {
	return model.ParseRole(r.Role)
}

// DisplayText extracts the text to show: the first content block carrying
// text (directly or under data), else the first block, else the answer,
// query, message or text fields in that order.
func (r HistoryRecord) DisplayText() string {
	var blocks []ContentBlock
	if len(r.Content) > 0 && json.Unmarshal(r.Content, &blocks) == nil && len(blocks) > 0 {
		chosen := blocks[0]
		for _, b := range blocks {
			if b.Text != "" || (b.Data != nil && b.Data.Text != "") {
				chosen = b
				break
			}
		}
		if chosen.Text != "" {
			return chosen.Text
		}
		if chosen.Data != nil && chosen.Data.Text != "" {
			return chosen.Data.Text
		}
	}

	for _, s := range []string{r.Answer, r.Query, r.Message, r.Text} {
		if s != "" {
			return s
		}
	}
	return ""
}

// ToMessages converts records into finalized thread messages, preserving
// order.
func ToMessages(records []HistoryRecord) []*model.Message {
	msgs := make([]*model.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, model.NewMessage(r.MessageRole(), r.DisplayText()))
	}
	return msgs
}

// =============================================================================
// FETCH
// =============================================================================

// FetchHistory returns up to limit stored messages of conversationID in
// chronological order.
func (c *Client) FetchHistory(ctx context.Context, conversationID, userID string, limit int) ([]HistoryRecord, error) {
	if conversationID == "" {
		return nil, errors.New("conversation id is empty")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	q := url.Values{}
	q.Set("userId", userID)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + c.historyPath + "/" + url.PathEscape(conversationID) + "?" + q.Encode()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			c.logger.Debug("retrying history fetch", "conversation", conversationID, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		records, err := c.fetchHistoryOnce(ctx, endpoint)
		if err == nil {
			return records, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) fetchHistoryOnce(ctx context.Context, endpoint string) ([]HistoryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{Status: resp.StatusCode, URL: endpoint, Message: string(body)}
	}

	var payload historyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if payload.Data == nil {
		return []HistoryRecord{}, nil
	}
	return payload.Data, nil
}
