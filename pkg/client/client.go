// Package client talks to a jsonmeta node over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/apiServer"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// ErrNotFound is returned when the node has no record at an address.
var ErrNotFound = errors.New("client: not found")

// TransactionError is a transaction the node rejected.
type TransactionError struct {
	Response apiServer.ErrorResponse
}

func (e *TransactionError) Error() string {
	if e.Response.Code != nil {
		return fmt.Sprintf("%s (program error %d)", e.Response.Error, *e.Response.Code)
	}
	return e.Response.Error
}

// ProgramCode returns the program error code, if the failure had one.
func (e *TransactionError) ProgramCode() (uint32, bool) {
	if e.Response.Code == nil {
		return 0, false
	}
	return *e.Response.Code, true
}

// StatusError is any other non-success response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client with a 30 second timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithToken sends token in the X-Auth-Token header.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base url %q needs scheme and host", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit sends a signed transaction and returns the execution receipt.
func (c *Client) Submit(ctx context.Context, tx *ledger.Transaction) (apiServer.SubmitResponse, error) {
	raw, err := tx.Encode()
	if err != nil {
		return apiServer.SubmitResponse{}, err
	}
	body := apiServer.SubmitRequest{Transaction: base64.StdEncoding.EncodeToString(raw)}

	var resp apiServer.SubmitResponse
	err = c.do(ctx, http.MethodPost, "/transactions", body, &resp)
	return resp, err
}

// Airdrop credits lamports to addr and returns the resulting account.
func (c *Client) Airdrop(ctx context.Context, addr ledger.Address, lamports uint64) (apiServer.AccountResponse, error) {
	body := apiServer.AirdropRequest{Address: addr.String(), Lamports: lamports}
	var resp apiServer.AccountResponse
	err := c.do(ctx, http.MethodPost, "/airdrop", body, &resp)
	return resp, err
}

func (c *Client) Account(ctx context.Context, addr ledger.Address) (apiServer.AccountResponse, error) {
	var resp apiServer.AccountResponse
	err := c.do(ctx, http.MethodGet, "/accounts/"+addr.String(), nil, &resp)
	return resp, err
}

// JSON returns the value and metadata of the record at addr.
func (c *Client) JSON(ctx context.Context, addr ledger.Address) (apiServer.RecordResponse, error) {
	var resp apiServer.RecordResponse
	err := c.do(ctx, http.MethodGet, "/json/"+addr.String(), nil, &resp)
	return resp, err
}

// Snapshot streams the node's account snapshot into w.
func (c *Client) Snapshot(ctx context.Context, w io.Writer) error {
	res, err := c.send(ctx, http.MethodGet, "/snapshot", nil, "")
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := checkStatus(res); err != nil {
		return err
	}
	_, err = io.Copy(w, res.Body)
	return err
}

// Restore uploads a snapshot that replaces the node's accounts.
func (c *Client) Restore(ctx context.Context, r io.Reader) error {
	res, err := c.send(ctx, http.MethodPut, "/snapshot", r, "application/x-xz")
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return checkStatus(res)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	res, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnprocessableEntity {
		var txErr TransactionError
		if err := json.NewDecoder(res.Body).Decode(&txErr.Response); err != nil {
			return fmt.Errorf("client: decode error response: %w", err)
		}
		return &txErr
	}
	if err := checkStatus(res); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	return res, nil
}

func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &StatusError{Status: res.StatusCode, Body: strings.TrimSpace(string(msg))}
}
