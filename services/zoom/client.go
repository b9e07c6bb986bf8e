package zoomsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

const (
	scheduledMeeting = 2
	maxTopicLen      = 200
	maxAgendaLen     = 2000
	requestTimeout   = 15 * time.Second
)

type (
	meetingSettings struct {
		HostVideo        bool   `json:"host_video"`
		ParticipantVideo bool   `json:"participant_video"`
		WaitingRoom      bool   `json:"waiting_room"`
		Audio            string `json:"audio,omitempty"`
		AutoRecording    string `json:"auto_recording,omitempty"`
	}

	// https://marketplace.zoom.us/docs/api-reference/zoom-api/methods/#operation/meetingCreate
	createMeetingRequest struct {
		Topic     string          `json:"topic"`
		Type      int             `json:"type"`
		StartTime string          `json:"start_time"`
		Duration  int             `json:"duration"`
		Timezone  string          `json:"timezone,omitempty"`
		Agenda    string          `json:"agenda,omitempty"`
		Password  string          `json:"password,omitempty"`
		Settings  meetingSettings `json:"settings"`
	}

	meetingResponse struct {
		ID      int64  `json:"id"`
		Topic   string `json:"topic"`
		JoinURL string `json:"join_url"`
	}

	apiError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
)

// APIError is returned for any non-2xx Zoom response.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zoom: status %d, code %d: %s", e.StatusCode, e.Code, e.Message)
}

// Client creates meetings through a Server-to-Server OAuth app.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ lesson.MeetingProvider = (*Client)(nil)

// Configured reports whether the Zoom credentials are set.
func Configured(conf core.ZoomConfig) bool {
	return conf.AccountID != "" && conf.ClientID != "" && conf.ClientSecret != ""
}

// NewClient returns a Client whose access tokens are fetched and refreshed with the account_credentials grant.
// ctx is only used for token requests; pass a context carrying an oauth2.HTTPClient to customize them.
func NewClient(ctx context.Context, conf core.ZoomConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		TokenURL:     conf.TokenURL,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {conf.AccountID},
		},
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = requestTimeout

	return &Client{
		baseURL: strings.TrimRight(conf.APIBaseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) CreateMeeting(ctx context.Context, req lesson.MeetingRequest) (lesson.MeetingResource, error) {
	body := createMeetingRequest{
		Topic:     truncate(req.Topic, maxTopicLen),
		Type:      scheduledMeeting,
		StartTime: req.StartsAt.UTC().Format(time.RFC3339),
		Duration:  req.DurationMinutes,
		Timezone:  req.Timezone,
		Agenda:    truncate(req.Agenda, maxAgendaLen),
		Password:  req.Options.Passcode,
		Settings: meetingSettings{
			HostVideo:        req.Options.HostVideo,
			ParticipantVideo: req.Options.ParticipantVideo,
			WaitingRoom:      req.Options.WaitingRoom,
			Audio:            req.Options.Audio,
			AutoRecording:    req.Options.AutoRecording,
		},
	}

	var meeting meetingResponse
	if err := c.do(ctx, http.MethodPost, "/users/me/meetings", body, &meeting); err != nil {
		return lesson.MeetingResource{}, errors.Wrap(err, "creating meeting")
	}
	return lesson.MeetingResource{
		Provider:   lesson.ProviderZoom,
		ExternalID: strconv.FormatInt(meeting.ID, 10),
		Name:       meeting.Topic,
		JoinURL:    meeting.JoinURL,
	}, nil
}

func (c *Client) DeleteMeeting(ctx context.Context, meetingID string) error {
	err := c.do(ctx, http.MethodDelete, "/meetings/"+url.PathEscape(meetingID), nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return errors.Wrapf(err, "deleting meeting %s", meetingID)
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
	req.Header.Set("Accept", "application/json")
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
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: res.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding response")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
