/*
 * Copyright 2018-present HiveMQ and the HiveMQ Community
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemq/trello-mcp/internal/trello"
)

type stubClient struct {
	boards    []trello.Board
	err       error
	deletedID string
}

func (s *stubClient) ListMyBoards(ctx context.Context) ([]trello.Board, error) {
	return s.boards, s.err
}

func (s *stubClient) CreateBoard(ctx context.Context, name string) (*trello.Board, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &trello.Board{ID: "abc123", Name: name}, nil
}

func (s *stubClient) DeleteBoard(ctx context.Context, boardID string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.deletedID = boardID
	return http.StatusOK, nil
}

func (s *stubClient) WithRetry(ctx context.Context, cfg trello.RetryConfig, op func(ctx context.Context) error) error {
	return op(ctx)
}

func testRetryConfig() trello.RetryConfig {
	return trello.RetryConfig{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
		TotalWaitCap: time.Millisecond,
	}
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()

	var request mcp.CallToolRequest
	request.Params.Arguments = args

	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestListBoardsHandler(t *testing.T) {
	client := &stubClient{boards: []trello.Board{{ID: "1", Name: "One"}, {ID: "2", Name: "Two"}}}

	text, isError := callTool(t, listBoardsHandler(client, testRetryConfig()), nil)
	require.False(t, isError, text)

	var boards []trello.Board
	require.NoError(t, json.Unmarshal([]byte(text), &boards))
	assert.Equal(t, client.boards, boards)
}

func TestListBoardsHandler_Error(t *testing.T) {
	client := &stubClient{err: &trello.HTTPError{Method: "GET", Endpoint: "/members/me/boards", StatusCode: http.StatusUnauthorized}}

	text, isError := callTool(t, listBoardsHandler(client, testRetryConfig()), nil)
	assert.True(t, isError)
	assert.Contains(t, text, "Failed to list boards")
	assert.Contains(t, text, "401")
}

func TestCreateBoardHandler(t *testing.T) {
	client := &stubClient{}

	text, isError := callTool(t, createBoardHandler(client, testRetryConfig()), map[string]interface{}{"name": "Roadmap"})
	require.False(t, isError, text)

	var board trello.Board
	require.NoError(t, json.Unmarshal([]byte(text), &board))
	assert.Equal(t, "abc123", board.ID)
	assert.Equal(t, "Roadmap", board.Name)
}

func TestCreateBoardHandler_MissingName(t *testing.T) {
	text, isError := callTool(t, createBoardHandler(&stubClient{}, testRetryConfig()), map[string]interface{}{})
	assert.True(t, isError)
	assert.Equal(t, "name parameter is required", text)
}

func TestDeleteBoardHandler(t *testing.T) {
	client := &stubClient{}

	text, isError := callTool(t, deleteBoardHandler(client, testRetryConfig()), map[string]interface{}{"board_id": "abc123"})
	require.False(t, isError, text)
	assert.Equal(t, "abc123", client.deletedID)

	var resp trello.DeleteBoardResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteBoardHandler_NotFound(t *testing.T) {
	client := &stubClient{err: &trello.HTTPError{Method: "DELETE", Endpoint: "/boards/000000000000000000000000", StatusCode: http.StatusNotFound}}

	text, isError := callTool(t, deleteBoardHandler(client, testRetryConfig()), map[string]interface{}{"board_id": "000000000000000000000000"})
	assert.True(t, isError)
	assert.Equal(t, "Board 000000000000000000000000 not found", text)
}

func TestGetVersion(t *testing.T) {
	assert.NotEmpty(t, getVersion())
}
