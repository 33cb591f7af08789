package api

import (
	"context"
	"io"
	"net/http"

	"github.com/kizuna-social/backend/pkg/xcontext"
)

type Client interface {
	Header(name, value string) Client
	Query(query Parameter) Client
	GET(ctx context.Context, opts ...Opt) (*Response, error)
}

// New creates a client calling the absolute url.
func New(url string) Client {
	return &defaultClient{url: url, headers: make(http.Header)}
}

type Opt interface {
	Do(*http.Request)
}

type defaultClient struct {
	method  string
	url     string
	headers http.Header
	query   Parameter
}

func (c *defaultClient) Header(name, value string) Client {
	c.headers.Set(name, value)
	return c
}

func (c *defaultClient) Query(query Parameter) Client {
	c.query = query
	return c
}

func (c *defaultClient) GET(ctx context.Context, opts ...Opt) (*Response, error) {
	c.method = http.MethodGet
	return c.call(ctx, opts...)
}

// call sends the request once. Retrying is up to the caller.
func (c *defaultClient) call(ctx context.Context, opts ...Opt) (*Response, error) {
	url := c.url
	if len(c.query) > 0 {
		url = url + "?" + c.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, c.method, url, nil)
	if err != nil {
		return nil, err
	}

	for h, values := range c.headers {
		for _, v := range values {
			req.Header.Add(h, v)
		}
	}

	for _, opt := range opts {
		opt.Do(req)
	}

	result, err := xcontext.HTTPClient(ctx).Do(req)
	if err != nil {
		xcontext.Logger(ctx).Warnf("An error occurred when calling to %s: %v", c.url, err)
		return nil, err
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		xcontext.Logger(ctx).Warnf("An error occurred when reading body of %s: %v", c.url, err)
		return nil, err
	}

	response := &Response{
		Code:    result.StatusCode,
		Status:  result.Status,
		Header:  result.Header,
		RawBody: body,
	}

	if len(body) == 0 {
		response.Body = JSON{}
	} else if b, err := bytesToJSON(body); err == nil {
		response.Body = b
	}

	return response, nil
}
