// Package recognition is a client of the external face identification service.
// The service keeps face encodings under an opaque reference (the student's roll number)
// and answers identification requests with the matching reference, if any.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/student"
)

const (
	identifyPath = "/identify"
	registerPath = "/register"

	photoField = "photo"
	refField   = "student_id"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  core.Logger
}

var (
	_ attendance.Identifier = (*Client)(nil)
	_ student.FaceRegistrar = (*Client)(nil)
)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	timeout := conf.Recognition.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: conf.Recognition.URL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type response struct {
	Success   bool    `json:"success"`
	StudentID *string `json:"student_id"`
	Error     string  `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, fields map[string]string, photo io.Reader, filename string) (int, response, error) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return 0, response{}, errors.Wrap(err, "writing form field")
		}
	}
	if filename == "" {
		filename = "photo.jpg"
	}
	part, err := w.CreateFormFile(photoField, filename)
	if err != nil {
		return 0, response{}, errors.Wrap(err, "creating photo part")
	}
	if _, err = io.Copy(part, photo); err != nil {
		return 0, response{}, errors.Wrap(err, "copying photo")
	}
	if err = w.Close(); err != nil {
		return 0, response{}, errors.Wrap(err, "closing form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return 0, response{}, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Error(fmt.Sprintf("recognition %s: %v", path, err), err)
		return 0, response{}, core.ErrUpstreamUnavailable
	}
	defer func() { _ = res.Body.Close() }()

	data, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, response{}, core.ErrUpstreamUnavailable
	}
	var resp response
	if len(data) > 0 {
		if err = json.Unmarshal(data, &resp); err != nil && res.StatusCode < http.StatusBadRequest {
			c.logger.Error(fmt.Sprintf("recognition %s: decoding response: %v", path, err), err)
			return res.StatusCode, response{}, core.ErrUpstreamUnavailable
		}
	}
	if res.StatusCode >= http.StatusInternalServerError {
		c.logger.Error(fmt.Sprintf("recognition %s - status: %d - body: %s", path, res.StatusCode, data))
		return res.StatusCode, resp, core.ErrUpstreamUnavailable
	}
	return res.StatusCode, resp, nil
}

// Identify returns the reference registered for the face on photo.
// A photo without a recognisable face is reported as no match.
func (c *Client) Identify(ctx context.Context, photo io.Reader, filename string) (string, bool, error) {
	status, resp, err := c.post(ctx, identifyPath, nil, photo, filename)
	if err != nil {
		return "", false, err
	}
	if status >= http.StatusBadRequest || !resp.Success || resp.StudentID == nil || *resp.StudentID == "" {
		return "", false, nil
	}
	return *resp.StudentID, true, nil
}

// Register enrolls the face on photo under ref.
func (c *Client) Register(ctx context.Context, ref string, photo io.Reader, filename string) error {
	status, resp, err := c.post(ctx, registerPath, map[string]string{refField: ref}, photo, filename)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		msg := resp.Error
		if msg == "" {
			msg = "face registration rejected"
		}
		return core.NewArgumentError(photoField, msg)
	}
	return nil
}
