// Package gateway is the console's client of the content REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core/content"
)

type (
	Client struct {
		baseURL string
		http    *http.Client
	}

	Option func(*Client)
)

// WithHTTPClient replaces the default client. Its jar (if any) holds the session cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.Wrap(err, "parsing API url")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating cookie jar")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends in as JSON and decodes a 2xx body into out (when not nil).
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s: encoding request", op)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "%s: building request", op)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejected(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(respBody, out); err != nil {
		return &MalformedResponseError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	in := map[string]string{"username": username, "password": password}
	return c.do(ctx, "login", http.MethodPost, "/api/login", in, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/logout", nil, nil)
}

// FetchHierarchy returns every subject with its sections and topics.
func (c *Client) FetchHierarchy(ctx context.Context) ([]content.Subject, error) {
	var resp struct {
		Subjects *[]content.Subject `json:"subjects"`
	}
	if err := c.do(ctx, opFetchSubjects, http.MethodGet, "/api/subjects", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Subjects == nil {
		return nil, &MalformedResponseError{Op: opFetchSubjects, Err: errors.New(`missing "subjects"`)}
	}
	return *resp.Subjects, nil
}

// subjects

func (c *Client) CreateSubject(ctx context.Context, name, description string) (content.Subject, error) {
	var subj content.Subject
	in := content.NewSubject{Name: name, Description: description}
	err := c.do(ctx, "create subject", http.MethodPost, "/api/subjects", in, &subj)
	return subj, err
}

func (c *Client) UpdateSubject(ctx context.Context, id int, name, description string) error {
	in := content.NewSubject{Name: name, Description: description}
	return c.do(ctx, "update subject", http.MethodPut, fmt.Sprintf("/api/subjects/%d", id), in, nil)
}

// CheckSubject reports whether the subject owns sections.
func (c *Client) CheckSubject(ctx context.Context, id int) (bool, error) {
	var resp struct {
		HasSections bool `json:"hasSections"`
	}
	err := c.do(ctx, "check subject", http.MethodGet, fmt.Sprintf("/api/subjects/%d/check", id), nil, &resp)
	return resp.HasSections, err
}

// DeleteSubject deletes the subject unless it owns sections, in which case no DELETE is issued.
func (c *Client) DeleteSubject(ctx context.Context, id int) error {
	hasSections, err := c.CheckSubject(ctx, id)
	if err != nil {
		return err
	}
	if hasSections {
		return ErrSubjectHasSections
	}
	return c.RemoveSubject(ctx, id)
}

// RemoveSubject issues the DELETE without checking for sections first.
// Callers that already ran CheckSubject use it; the server still refuses a subject with sections.
func (c *Client) RemoveSubject(ctx context.Context, id int) error {
	return c.do(ctx, "delete subject", http.MethodDelete, fmt.Sprintf("/api/subjects/%d", id), nil, nil)
}

// sections

func (c *Client) CreateSection(ctx context.Context, subjectID int, name string) (content.Section, error) {
	var sect content.Section
	in := content.NewSection{Name: name}
	err := c.do(ctx, "create section", http.MethodPost, fmt.Sprintf("/api/subjects/%d/sections", subjectID), in, &sect)
	return sect, err
}

func (c *Client) UpdateSection(ctx context.Context, id int, name string) error {
	in := content.NewSection{Name: name}
	return c.do(ctx, "update section", http.MethodPut, fmt.Sprintf("/api/sections/%d", id), in, nil)
}

// CheckSection reports whether the section owns topics.
func (c *Client) CheckSection(ctx context.Context, id int) (bool, error) {
	var resp struct {
		HasTopics bool `json:"hasTopics"`
	}
	err := c.do(ctx, "check section", http.MethodGet, fmt.Sprintf("/api/sections/%d/check", id), nil, &resp)
	return resp.HasTopics, err
}

// DeleteSection deletes the section unless it owns topics, in which case no DELETE is issued.
func (c *Client) DeleteSection(ctx context.Context, id int) error {
	hasTopics, err := c.CheckSection(ctx, id)
	if err != nil {
		return err
	}
	if hasTopics {
		return ErrSectionHasTopics
	}
	return c.RemoveSection(ctx, id)
}

// RemoveSection issues the DELETE without checking for topics first.
func (c *Client) RemoveSection(ctx context.Context, id int) error {
	return c.do(ctx, "delete section", http.MethodDelete, fmt.Sprintf("/api/sections/%d", id), nil, nil)
}

// topics

func (c *Client) CreateTopic(ctx context.Context, sectionID int, name, text, code string) (content.Topic, error) {
	var topic content.Topic
	in := content.NewTopic{Name: name, Text: text, Code: code}
	err := c.do(ctx, "create topic", http.MethodPost, fmt.Sprintf("/api/sections/%d/topics", sectionID), in, &topic)
	return topic, err
}

func (c *Client) UpdateTopic(ctx context.Context, id int, name, text, code string) error {
	in := content.NewTopic{Name: name, Text: text, Code: code}
	return c.do(ctx, "update topic", http.MethodPut, fmt.Sprintf("/api/topics/%d", id), in, nil)
}

func (c *Client) DeleteTopic(ctx context.Context, id int) error {
	return c.do(ctx, "delete topic", http.MethodDelete, fmt.Sprintf("/api/topics/%d", id), nil, nil)
}
