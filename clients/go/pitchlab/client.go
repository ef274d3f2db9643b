// Package pitchlab provides a client for the PitchLab ideation server API.
package pitchlab

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a PitchLab API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new PitchLab client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:4000"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("pitchlab error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// Room represents a room.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Message represents a chat message.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	AuthorName string    `json:"author_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Idea represents a proposed idea with its vote score.
type Idea struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Content   string    `json:"content"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// TagCount is one row of a room's tag view.
type TagCount struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Uses int64  `json:"uses"`
}

// CreateRoom creates a new room.
func (c *Client) CreateRoom(name string) (*Room, error) {
	body, _ := json.Marshal(map[string]string{"name": name})
	respBody, err := c.doRequest("POST", "/rooms", body)
	if err != nil {
		return nil, err
	}

	var room Room
	if err := json.Unmarshal(respBody, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms lists all rooms, newest first.
func (c *Client) ListRooms() ([]Room, error) {
	respBody, err := c.doRequest("GET", "/rooms", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Rooms []Room `json:"rooms"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// MessagesResponse is one page of room history, oldest first.
type MessagesResponse struct {
	Room       Room      `json:"room"`
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"has_more"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// GetMessages retrieves a page of messages from a room. cursor pages further
// back in history; pass the NextCursor of a previous response.
func (c *Client) GetMessages(roomID string, limit int, cursor string) (*MessagesResponse, error) {
	path := fmt.Sprintf("/rooms/%s/messages?limit=%d", roomID, limit)
	if cursor != "" {
		path += "&cursor=" + url.QueryEscape(cursor)
	}

	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PostMessage posts a user message to a room. With triggerAI set, the server
// runs a full digest in the background after accepting the message.
func (c *Client) PostMessage(roomID, authorName, content string, triggerAI bool) (*Message, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"author_name": authorName,
		"content":     content,
		"trigger_ai":  triggerAI,
	})

	respBody, err := c.doRequest("POST", "/rooms/"+roomID+"/messages", body)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateIdea posts an idea to a room.
func (c *Client) CreateIdea(roomID, content string) (*Idea, error) {
	body, _ := json.Marshal(map[string]string{"content": content})
	respBody, err := c.doRequest("POST", "/rooms/"+roomID+"/ideas", body)
	if err != nil {
		return nil, err
	}

	var idea Idea
	if err := json.Unmarshal(respBody, &idea); err != nil {
		return nil, err
	}
	return &idea, nil
}

// VoteIdea upvotes an idea and returns it with the updated score.
func (c *Client) VoteIdea(ideaID string) (*Idea, error) {
	body, _ := json.Marshal(map[string]int{"value": 1})
	respBody, err := c.doRequest("POST", "/ideas/"+ideaID+"/vote", body)
	if err != nil {
		return nil, err
	}

	var idea Idea
	if err := json.Unmarshal(respBody, &idea); err != nil {
		return nil, err
	}
	return &idea, nil
}

// Digest modes accepted by RunDigest.
const (
	DigestSummary = "summary"
	DigestTags    = "tags"
	DigestPitch   = "pitch"
)

// RunDigest runs one synchronous digest invocation for a room. mode is one
// of DigestSummary, DigestTags or DigestPitch.
func (c *Client) RunDigest(roomID, mode string) error {
	body, _ := json.Marshal(map[string]string{"room_id": roomID})
	_, err := c.doRequest("POST", "/ai/"+mode, body)
	return err
}

// RoomTags retrieves a room's aggregated tag view.
func (c *Client) RoomTags(roomID string) ([]TagCount, error) {
	respBody, err := c.doRequest("GET", "/rooms/"+roomID+"/tags", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Tags []TagCount `json:"tags"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
