package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/certhub/internal/logging"
)

// Client talks to the certhub HTTP API. It keeps the bearer token of the
// current session; it is not safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  logging.Logger
}

func New(baseURL string, timeout time.Duration, logger logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("module", "api"),
	}
}

func (c *Client) SetToken(token string) { c.token = token }
func (c *Client) Token() string         { return c.token }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// send performs req and returns the response when the status is 2xx.
// The caller closes the body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug(req.Context(), "request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.logger.Debug(req.Context(), "request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency", time.Since(start),
		"request_id", resp.Header.Get("X-Request-ID"),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeError(resp)
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return &Error{Status: resp.StatusCode, Kind: body.Kind, Message: body.Error}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// doMultipart posts a "file" part plus plain form fields.
func (c *Client) doMultipart(ctx context.Context, path, filename string, data []byte, fields map[string]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) SendVerification(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/send_verification", map[string]string{"email": email}, nil)
}

func (c *Client) VerifyCode(ctx context.Context, email, code string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/verify_code", map[string]string{"email": email, "code": code}, nil)
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*Session, error) {
	var s Session
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", in, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

// Login signs in and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	in := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", in, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

// UploadTemplate registers a background image; layout is the raw JSON
// layout and may be empty for the default.
func (c *Client) UploadTemplate(ctx context.Context, filename string, image, layout []byte) (*Template, error) {
	var out struct {
		Template Template `json:"template"`
	}
	err := c.doMultipart(ctx, "/university/template/upload", filename, image, map[string]string{"layout": string(layout)}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Template, nil
}

func (c *Client) Templates(ctx context.Context) (map[string]Template, error) {
	var out struct {
		Templates map[string]Template `json:"templates"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/university/templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// Issue uploads a CSV batch, optionally bound to a template.
func (c *Client) Issue(ctx context.Context, filename string, csv []byte, templateID string) ([]IssuedRow, error) {
	var out struct {
		Rows []IssuedRow `json:"rows"`
	}
	err := c.doMultipart(ctx, "/university/upload", filename, csv, map[string]string{"template_id": templateID}, &out)
	if err != nil {
		return nil, err
	}
	return out.Rows, nil
}

func (c *Client) Certificates(ctx context.Context) ([]Certificate, error) {
	return c.certificates(ctx, "/university/certificates")
}

// HolderCertificates lists certificates for email, or for the signed-in
// holder when email is empty.
func (c *Client) HolderCertificates(ctx context.Context, email string) ([]Certificate, error) {
	path := "/student/certificates"
	if email != "" {
		path += "?email=" + url.QueryEscape(email)
	}
	return c.certificates(ctx, path)
}

func (c *Client) certificates(ctx context.Context, path string) ([]Certificate, error) {
	var out struct {
		Certificates []Certificate `json:"certificates"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Certificates, nil
}

// Download fetches the rendered certificate artifact.
func (c *Client) Download(ctx context.Context, certID int64) (*Artifact, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/certificates/"+strconv.FormatInt(certID, 10), nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	a := &Artifact{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		a.Filename = params["filename"]
	}
	if a.Filename == "" {
		a.Filename = fmt.Sprintf("certificate_%d", certID)
	}
	return a, nil
}

// Resend re-queues the certificate mail and returns the recipient.
func (c *Client) Resend(ctx context.Context, certID int64) (string, error) {
	var out struct {
		EmailedTo string `json:"emailed_to"`
	}
	path := "/certificates/" + strconv.FormatInt(certID, 10) + "/resend"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return "", err
	}
	return out.EmailedTo, nil
}

func (c *Client) Verify(ctx context.Context, identifier string) (*Verification, error) {
	var v Verification
	if err := c.doJSON(ctx, http.MethodPost, "/blockchain/verify", map[string]string{"student_id": identifier}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) VerifyToken(ctx context.Context, token string) (*Verification, error) {
	var v Verification
	if err := c.doJSON(ctx, http.MethodPost, "/verify_token", map[string]string{"token": token}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/employer/search?q="+url.QueryEscape(query), nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) GenerateQR(ctx context.Context, identifier string) (*QRCode, error) {
	var q QRCode
	if err := c.doJSON(ctx, http.MethodPost, "/generate_qr", map[string]string{"student_id": identifier}, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) ClearAll(ctx context.Context) (*ClearResult, error) {
	var out struct {
		Deleted ClearResult `json:"deleted"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/university/clear-all", nil, &out); err != nil {
		return nil, err
	}
	return &out.Deleted, nil
}

// IsUnavailable reports whether err means the server was unreachable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
