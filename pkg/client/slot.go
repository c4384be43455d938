package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"slotter/pkg/model"
)

type SlotClient struct {
	httpClient *HttpClient
}

func NewSlotClient(baseURL string, governor *Governor) *SlotClient {
	return &SlotClient{
		httpClient: NewHttpClient(baseURL).WithGovernor(governor),
	}
}

type CreateSlotRequest struct {
	WorkshopID string    `json:"workshop_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

func (c *SlotClient) Create(req CreateSlotRequest) (*Response, error) {
	return c.httpClient.POST("/api/v1/slots", req)
}

func (c *SlotClient) Delete(id string) (*Response, error) {
	return c.httpClient.DELETE("/api/v1/slots/id/" + url.PathEscape(id))
}

func (c *SlotClient) ListAvailable(workshopID string, from, to time.Time) (*Response, error) {
	q := url.Values{}
	q.Set("workshop_id", workshopID)
	if !from.IsZero() {
		q.Set("from", from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		q.Set("to", to.Format(time.RFC3339))
	}
	return c.httpClient.GET("/api/v1/slots?" + q.Encode())
}

func (c *SlotClient) Suggestions(workshopID string, requestedStart time.Time, durationMin int) (*Response, error) {
	q := url.Values{}
	q.Set("workshop_id", workshopID)
	q.Set("requested_start", requestedStart.Format(time.RFC3339))
	q.Set("duration_min", fmt.Sprintf("%d", durationMin))
	return c.httpClient.GET("/api/v1/slots/suggestions?" + q.Encode())
}

func (c *SlotClient) DecodeSlots(resp *Response) ([]*model.Slot, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode slot wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var slots []*model.Slot
	if err := json.Unmarshal(wrapper.Data, &slots); err != nil {
		return nil, fmt.Errorf("could not decode slot list:\n%+v\n%s", resp.ToString(), err)
	}
	return slots, nil
}
