package attendanceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

type APIClient struct {
	logger     *slog.Logger
	httpClient http.Client
	baseURL    string
}

func NewAPIClient(logger *slog.Logger, baseURL string) *APIClient {
	return &APIClient{
		logger: logger,
		httpClient: http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ListAttendance returns the full roster in backend order.
func (c *APIClient) ListAttendance(ctx context.Context) ([]*AttendanceRecord, error) {
	records := []*AttendanceRecord{}
	if err := c.do(ctx, http.MethodGet, "/bsdata/attendance", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *APIClient) ListStudents(ctx context.Context) ([]string, error) {
	students := []string{}
	if err := c.do(ctx, http.MethodGet, "/bplot/students", nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

type GetPlotInput struct {
	Student   string
	ChartType ChartType
}

func (c *APIClient) GetPlot(ctx context.Context, input GetPlotInput) (*PlotResponse, error) {
	path := fmt.Sprintf("/bplot/plot/%s/%s", url.PathEscape(input.Student), url.PathEscape(string(input.ChartType)))
	response := &PlotResponse{}
	if err := c.do(ctx, http.MethodGet, path, nil, response); err != nil {
		return nil, err
	}
	return response, nil
}

type RecognizeInput struct {
	// Image is a base64 encoded JPEG without the data URI prefix.
	Image string `json:"image"`
}

type RecognizeResponse struct {
	RecognizedFaces []RecognizedFace `json:"recognized_faces"`
	Message         string           `json:"message,omitempty"`
}

func (c *APIClient) Recognize(ctx context.Context, input RecognizeInput) (*RecognizeResponse, error) {
	response := &RecognizeResponse{}
	if err := c.do(ctx, http.MethodPost, "/recognize", input, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *APIClient) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "backend request", "method", request.Method, "url", request.URL.String())

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w: %s", method, path, ErrUnexpectedStatus, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
