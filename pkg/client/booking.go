package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"slotter/pkg/model"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string, governor *Governor) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL).WithGovernor(governor),
	}
}

type CreateBookingRequest struct {
	SlotID    string             `json:"slot_id"`
	ServiceID string             `json:"service_id"`
	Customer  model.CustomerInfo `json:"customer"`
}

// Create reserves a slot. The idempotency key makes concurrent identical
// submissions collapse into one reservation attempt.
func (c *BookingClient) Create(req CreateBookingRequest, idempotencyKey string) (*Response, error) {
	if idempotencyKey != "" {
		return c.httpClient.POSTIdempotent("/api/v1/bookings", req, idempotencyKey)
	}
	return c.httpClient.POST("/api/v1/bookings", req)
}

func (c *BookingClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/bookings/id/" + url.PathEscape(id))
}

func (c *BookingClient) UpdateStatus(id, status string) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id) + "/status"
	return c.httpClient.PATCH(path, map[string]string{"status": status})
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var booking model.Booking
	if err := json.Unmarshal(wrapper.Data, &booking); err != nil {
		return nil, fmt.Errorf("could not decode booking json:\n%+v\n%s", resp.ToString(), err)
	}
	return &booking, nil
}
