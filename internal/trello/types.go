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

package trello

// Board is the subset of a Trello board this client reads. ID and Name are
// always requested; the remaining fields are filled when the endpoint
// returns them (e.g. on create).
type Board struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc,omitempty"`
	Closed bool   `json:"closed,omitempty"`
	URL    string `json:"url,omitempty"`
}

// APIError is the JSON error body Trello returns for some failures. Many
// endpoints reply with plain text instead.
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// DeleteBoardResponse is what the MCP delete_board tool reports back.
type DeleteBoardResponse struct {
	BoardID    string `json:"board_id"`
	StatusCode int    `json:"status_code"`
}
