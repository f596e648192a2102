package client

import (
	"context"
	"fmt"
	"net/url"

	"classbook/pkg/model"
	"classbook/pkg/pricing"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseUrl string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

// As returns a client acting for identity.
func (c *BookingClient) As(identity *model.Identity) *BookingClient {
	return &BookingClient{httpClient: c.httpClient.As(identity)}
}

// AdmissionRequest is the body of POST /lessons/id/:id/admissions.
type AdmissionRequest struct {
	Attendees     []model.Attendee    `json:"attendees"`
	PaymentMethod model.PaymentMethod `json:"payment_method,omitempty"`
}

type AdmissionResult struct {
	Success     bool               `json:"success"`
	Bookings    []*model.Booking   `json:"bookings"`
	Transaction *model.Transaction `json:"transaction"`
	Pricing     *pricing.Result    `json:"pricing"`
}

func (c *BookingClient) Admit(ctx context.Context, lessonID string, req AdmissionRequest, idempotencyKey string) (*Response, error) {
	path := lessonPath(lessonID) + "/admissions"
	if idempotencyKey == "" {
		return c.httpClient.POST(ctx, path, req)
	}
	return c.httpClient.POSTWithHeaders(ctx, path, req, map[string]string{"Idempotency-Key": idempotencyKey})
}

func (c *BookingClient) CheckIn(ctx context.Context, lessonID string) (*Response, error) {
	return c.httpClient.POST(ctx, lessonPath(lessonID)+"/check-in", nil)
}

func (c *BookingClient) Cancel(ctx context.Context, lessonID string) (*Response, error) {
	return c.httpClient.POST(ctx, lessonPath(lessonID)+"/cancel", nil)
}

func (c *BookingClient) JoinWaitlist(ctx context.Context, lessonID string) (*Response, error) {
	return c.httpClient.POST(ctx, lessonPath(lessonID)+"/waitlist", nil)
}

func (c *BookingClient) LeaveWaitlist(ctx context.Context, lessonID string) (*Response, error) {
	return c.httpClient.DELETE(ctx, lessonPath(lessonID)+"/waitlist")
}

func (c *BookingClient) ListByLesson(ctx context.Context, lessonID string, limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("%s/bookings?limit=%d&offset=%d", lessonPath(lessonID), limit, offset)
	return c.httpClient.GET(ctx, path)
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, bookingPath(id))
}

func (c *BookingClient) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) (*Response, error) {
	return c.httpClient.PATCH(ctx, bookingPath(id), model.BookingStatusUpdate{Status: status})
}

func (c *BookingClient) Delete(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, bookingPath(id))
}

func (c *BookingClient) DecodeAdmission(resp *Response) (*AdmissionResult, error) {
	return decodeData[AdmissionResult](resp, "admission")
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	return decodeData[model.Booking](resp, "booking")
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	return decodePage[model.Booking](resp, "booking")
}

func bookingPath(id string) string {
	return "/api/v1/bookings/id/" + url.PathEscape(id)
}

func lessonPath(id string) string {
	return "/api/v1/lessons/id/" + url.PathEscape(id)
}
