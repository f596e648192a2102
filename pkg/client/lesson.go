package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"classbook/pkg/model"
	"classbook/pkg/pricing"
)

type LessonClient struct {
	httpClient *HttpClient
}

func NewLessonClient(baseUrl string) *LessonClient {
	return &LessonClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

type Availability struct {
	LessonID          string                    `json:"lesson_id"`
	Places            int                       `json:"places"`
	ConfirmedCount    int                       `json:"confirmed_count"`
	RemainingCapacity int                       `json:"remaining_capacity"`
	BookingStatus     model.LessonBookingStatus `json:"booking_status"`
}

func (c *LessonClient) CreateClassOption(ctx context.Context, option *model.ClassOption) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/class-options", option)
}

func (c *LessonClient) GetClassOption(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/class-options/id/"+url.PathEscape(id))
}

func (c *LessonClient) Create(ctx context.Context, lesson *model.Lesson) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/lessons", lesson)
}

func (c *LessonClient) GetAll(ctx context.Context, limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/api/v1/lessons?limit=%d&offset=%d", limit, offset))
}

func (c *LessonClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, lessonPath(id))
}

func (c *LessonClient) Delete(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, lessonPath(id))
}

func (c *LessonClient) Availability(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, lessonPath(id)+"/availability")
}

func (c *LessonClient) Quote(ctx context.Context, id string, quantity int, trial bool) (*Response, error) {
	q := url.Values{}
	q.Set("quantity", strconv.Itoa(quantity))
	q.Set("trial", strconv.FormatBool(trial))
	return c.httpClient.GET(ctx, lessonPath(id)+"/quote?"+q.Encode())
}

func (c *LessonClient) DecodeClassOption(resp *Response) (*model.ClassOption, error) {
	return decodeData[model.ClassOption](resp, "class option")
}

func (c *LessonClient) DecodeLesson(resp *Response) (*model.Lesson, error) {
	return decodeData[model.Lesson](resp, "lesson")
}

func (c *LessonClient) DecodeLessons(resp *Response) ([]*model.Lesson, *Metadata, error) {
	return decodePage[model.Lesson](resp, "lesson")
}

func (c *LessonClient) DecodeAvailability(resp *Response) (*Availability, error) {
	return decodeData[Availability](resp, "availability")
}

func (c *LessonClient) DecodeQuote(resp *Response) (*pricing.Result, error) {
	return decodeData[pricing.Result](resp, "quote")
}
