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
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hivemq/trello-mcp/internal/config"
	"github.com/hivemq/trello-mcp/internal/trello"
)

//go:embed VERSION
var versionFile string

// BuildVersion can be set at build time via ldflags
var BuildVersion = "dev"

// getVersion returns the application version, preferring embedded VERSION file over build version
func getVersion() string {
	if v := strings.TrimSpace(versionFile); v != "" {
		return v
	}
	return BuildVersion
}

// boardClient is the part of *trello.Client the tools need.
type boardClient interface {
	ListMyBoards(ctx context.Context) ([]trello.Board, error)
	CreateBoard(ctx context.Context, name string) (*trello.Board, error)
	DeleteBoard(ctx context.Context, boardID string) (int, error)
	WithRetry(ctx context.Context, cfg trello.RetryConfig, op func(ctx context.Context) error) error
}

func main() {
	var showVersion = flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("trello-mcp version %s\n", getVersion())
		os.Exit(0)
	}

	_ = godotenv.Load()

	// stdout carries the MCP protocol, so logs go to stderr
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "trello-mcp",
		Level:  hclog.LevelFromString(os.Getenv("TRELLO_LOG_LEVEL")),
		Output: os.Stderr,
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Debug("configuration loaded", "config", cfg.String())

	client, err := trello.NewClient(cfg, trello.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create Trello client: %v", err)
	}

	mcpServer := server.NewMCPServer("trello-mcp-server", getVersion())
	registerTools(mcpServer, client, trello.DefaultRetryConfig())

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func registerTools(s *server.MCPServer, client boardClient, retryConfig trello.RetryConfig) {
	listBoardsTool := mcp.NewTool("list_boards",
		mcp.WithDescription("List the id and name of every Trello board of the authenticated member"),
	)
	s.AddTool(listBoardsTool, listBoardsHandler(client, retryConfig))

	createBoardTool := mcp.NewTool("create_board",
		mcp.WithDescription("Create a new Trello board and return its id, name and URL"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The name of the board to create"),
		),
	)
	s.AddTool(createBoardTool, createBoardHandler(client, retryConfig))

	deleteBoardTool := mcp.NewTool("delete_board",
		mcp.WithDescription("Permanently delete a Trello board"),
		mcp.WithString("board_id",
			mcp.Required(),
			mcp.Description("The ID of the Trello board to delete"),
		),
	)
	s.AddTool(deleteBoardTool, deleteBoardHandler(client, retryConfig))
}

func listBoardsHandler(client boardClient, retryConfig trello.RetryConfig) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var boards []trello.Board
		err := client.WithRetry(ctx, retryConfig, func(ctx context.Context) error {
			var err error
			boards, err = client.ListMyBoards(ctx)
			return err
		})
		if err != nil {
			return mcp.NewToolResultError("Failed to list boards: " + err.Error()), nil
		}

		return jsonResult(boards)
	}
}

func createBoardHandler(client boardClient, retryConfig trello.RetryConfig) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := mcp.ParseString(request, "name", "")
		if strings.TrimSpace(name) == "" {
			return mcp.NewToolResultError("name parameter is required"), nil
		}

		var board *trello.Board
		err := client.WithRetry(ctx, retryConfig, func(ctx context.Context) error {
			var err error
			board, err = client.CreateBoard(ctx, name)
			return err
		})
		if err != nil {
			return mcp.NewToolResultError("Failed to create board: " + err.Error()), nil
		}

		return jsonResult(board)
	}
}

func deleteBoardHandler(client boardClient, retryConfig trello.RetryConfig) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		boardID := mcp.ParseString(request, "board_id", "")
		if strings.TrimSpace(boardID) == "" {
			return mcp.NewToolResultError("board_id parameter is required"), nil
		}

		var status int
		err := client.WithRetry(ctx, retryConfig, func(ctx context.Context) error {
			var err error
			status, err = client.DeleteBoard(ctx, boardID)
			return err
		})
		if err != nil {
			if trello.IsNotFound(err) {
				return mcp.NewToolResultError(fmt.Sprintf("Board %s not found", boardID)), nil
			}
			return mcp.NewToolResultError("Failed to delete board: " + err.Error()), nil
		}

		return jsonResult(trello.DeleteBoardResponse{BoardID: boardID, StatusCode: status})
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("Failed to serialize response: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
