package client

import (
	"context"
	"net/url"

	"studiobook/pkg/model"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL, token string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL, token),
	}
}

func (c *BookingClient) BookClass(ctx context.Context, req model.BookClassRequest) (*model.BookingResult, error) {
	return c.result(c.httpClient.POST(ctx, "/api/v1/bookings/classes", req))
}

func (c *BookingClient) BookTrainerSession(ctx context.Context, req model.BookTrainerSessionRequest) (*model.BookingResult, error) {
	return c.result(c.httpClient.POST(ctx, "/api/v1/bookings/trainer-sessions", req))
}

func (c *BookingClient) Cancel(ctx context.Context, id string, req model.CancelBookingRequest) (*model.BookingResult, error) {
	return c.result(c.httpClient.POST(ctx, "/api/v1/bookings/id/"+url.PathEscape(id)+"/cancel", req))
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := resp.DecodeData(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) UserBookings(ctx context.Context, userID string, scope model.BookingScope) ([]*model.Booking, error) {
	path := "/api/v1/users/" + url.PathEscape(userID) + "/bookings"
	if scope != "" {
		path += "?" + url.Values{"scope": {string(scope)}}.Encode()
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	var bookings []*model.Booking
	if err := resp.DecodeData(&bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *BookingClient) UpdateCapacity(ctx context.Context, occurrenceID string, capacity int) (*model.Occurrence, error) {
	resp, err := c.httpClient.PATCH(ctx, "/api/v1/occurrences/id/"+url.PathEscape(occurrenceID)+"/capacity",
		model.UpdateCapacityRequest{MaxCapacity: capacity})
	if err != nil {
		return nil, err
	}
	var occ model.Occurrence
	if err := resp.DecodeData(&occ); err != nil {
		return nil, err
	}
	return &occ, nil
}

func (c *BookingClient) result(resp *Response, err error) (*model.BookingResult, error) {
	if err != nil {
		return nil, err
	}
	var result model.BookingResult
	if err := resp.DecodeData(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
