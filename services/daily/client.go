package dailysvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

const (
	publicPrivacy   = "public"
	cloudRecording  = "cloud"
	requestTimeout  = 15 * time.Second
	maxErrorBodyLen = 4096
)

type (
	// Recording is only ever switched on per room; a room without enable_recording
	// follows the domain setting, which must be left unset for lessons to stay unrecorded.
	roomProperties struct {
		Exp             int64  `json:"exp,omitempty"`
		EnableRecording string `json:"enable_recording,omitempty"`
	}

	// https://docs.daily.co/reference/rest-api/rooms/create-room
	createRoomRequest struct {
		Name       string         `json:"name"`
		Privacy    string         `json:"privacy"`
		Properties roomProperties `json:"properties"`
	}

	roomResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	apiError struct {
		Error string `json:"error"`
		Info  string `json:"info"`
	}
)

// APIError is returned for any non-2xx Daily response.
type APIError struct {
	StatusCode int
	Kind       string
	Info       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daily: status %d, %s: %s", e.StatusCode, e.Kind, e.Info)
}

// Client manages Daily.co rooms with a static API key.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ lesson.RoomProvider = (*Client)(nil)

func Configured(conf core.DailyConfig) bool {
	return conf.APIKey != ""
}

func NewClient(ctx context.Context, conf core.DailyConfig) *Client {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: conf.APIKey,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = requestTimeout

	return &Client{
		baseURL: strings.TrimRight(conf.APIBaseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) CreateRoom(ctx context.Context, req lesson.RoomRequest) (lesson.MeetingResource, error) {
	body := createRoomRequest{
		Name:    req.Name,
		Privacy: publicPrivacy, // the stored join URL admits learners without a meeting token
	}
	if !req.ExpiresAt.IsZero() {
		body.Properties.Exp = req.ExpiresAt.Unix()
	}
	if req.EnableRecording {
		body.Properties.EnableRecording = cloudRecording
	}

	var room roomResponse
	if err := c.do(ctx, http.MethodPost, "/rooms", body, &room); err != nil {
		return lesson.MeetingResource{}, errors.Wrapf(err, "creating room %q", req.Name)
	}
	return lesson.MeetingResource{
		Provider:   lesson.ProviderDaily,
		ExternalID: room.ID,
		Name:       room.Name,
		JoinURL:    room.URL,
	}, nil
}

func (c *Client) DeleteRoom(ctx context.Context, name string) error {
	err := c.do(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(name), nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return errors.Wrapf(err, "deleting room %q", name)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var apiErr apiError
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyLen))
		if json.Unmarshal(raw, &apiErr) != nil {
			apiErr.Info = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: res.StatusCode, Kind: apiErr.Error, Info: apiErr.Info}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding response")
}
