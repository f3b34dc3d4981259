package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chesscoach/internal/client/display"
)

// Client talks to the coach API and echoes every exchange to the terminal
type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// chat waits on the coach webhook
			Timeout: 45 * time.Second,
		},
		Out: display.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

// APIError carries the server's error body
type APIError struct {
	Status int
	ErrorResponse
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, status %d)", e.ErrorResponse.Error, e.Code, e.Status)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (c *Client) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Client) send(method, path string, body any) (*http.Response, []byte, error) {
	var (
		bodyReader io.Reader
		bodyStr    string
	)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		bodyReader = bytes.NewReader(data)
		bodyStr = string(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	c.printf("\n%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if bodyStr != "" {
		if c.Verbose {
			c.printf("%sRequest Body:%s\n%s\n", display.Cyan, display.Reset, indent([]byte(bodyStr)))
		} else if !strings.Contains(bodyStr, `"password"`) {
			c.printf("%s%s%s\n", display.Blue, bodyStr, display.Reset)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.printf("%s[ERROR] %s%s\n", display.Red, err.Error(), display.Reset)
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	c.printf("%s[%d %s]%s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode), display.Reset)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.ErrorResponse); err != nil {
			c.printf("%s%s%s\n", display.Red, string(respBody), display.Reset)
		} else if apiErr.Details != "" {
			c.printf("%sDetails: %s%s\n", display.Red, apiErr.Details, display.Reset)
		}
		return resp, respBody, apiErr
	}
	return resp, respBody, nil
}

func (c *Client) doRequest(method, path string, body, result any) error {
	resp, respBody, err := c.send(method, path, body)
	if err != nil {
		return err
	}

	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	if c.Verbose && len(respBody) > 0 && isJSON {
		c.printf("%sResponse Body:%s\n%s\n", display.Cyan, display.Reset, indent(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			c.printf("%sResponse parse error: %s%s\n", display.Red, err.Error(), display.Reset)
			return err
		}
	}
	return nil
}

func indent(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest("GET", "/health", nil, &resp)
	return &resp, err
}

// Auth

func (c *Client) Register(username, password, email string) (*AuthResponse, error) {
	req := &RegisterRequest{Username: username, Password: password, Email: email}
	var resp AuthResponse
	err := c.doRequest("POST", "/api/v1/auth/register", req, &resp)
	return &resp, err
}

func (c *Client) Login(identifier, password string) (*AuthResponse, error) {
	req := &LoginRequest{Identifier: identifier, Password: password}
	var resp AuthResponse
	err := c.doRequest("POST", "/api/v1/auth/login", req, &resp)
	return &resp, err
}

// Logout revokes the current token's session, or every session when all is set
func (c *Client) Logout(all bool) error {
	path := "/api/v1/auth/logout"
	if all {
		path += "?all=true"
	}
	return c.doRequest("POST", path, nil, nil)
}

func (c *Client) GetCurrentUser() (*UserResponse, error) {
	var resp UserResponse
	err := c.doRequest("GET", "/api/v1/auth/me", nil, &resp)
	return &resp, err
}

// Trainings

func trainingPath(id string, parts ...string) string {
	p := "/api/v1/trainings/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) CreateTraining(daily bool) (*TrainingResponse, error) {
	var resp TrainingResponse
	err := c.doRequest("POST", "/api/v1/trainings", &CreateTrainingRequest{Daily: daily}, &resp)
	return &resp, err
}

func (c *Client) GetTraining(id string) (*TrainingResponse, error) {
	var resp TrainingResponse
	err := c.doRequest("GET", trainingPath(id), nil, &resp)
	return &resp, err
}

func (c *Client) DeleteTraining(id string) error {
	return c.doRequest("DELETE", trainingPath(id), nil, nil)
}

func (c *Client) MakeMove(id, move string) (*MoveResponse, error) {
	var resp MoveResponse
	err := c.doRequest("POST", trainingPath(id, "moves"), &MoveRequest{Move: move}, &resp)
	return &resp, err
}

// Action runs one of the body-less navigation routes: reset, next, skip or daily
func (c *Client) Action(id, action string) (*TrainingResponse, error) {
	var resp TrainingResponse
	err := c.doRequest("POST", trainingPath(id, action), nil, &resp)
	return &resp, err
}

func (c *Client) GotoPuzzle(id string, index int) (*TrainingResponse, error) {
	var resp TrainingResponse
	err := c.doRequest("POST", trainingPath(id, "goto"), &GotoRequest{Index: index}, &resp)
	return &resp, err
}

func (c *Client) Hint(id string) (*HintResponse, error) {
	var resp HintResponse
	err := c.doRequest("GET", trainingPath(id, "hint"), nil, &resp)
	return &resp, err
}

func (c *Client) GetBoard(id string) (*BoardResponse, error) {
	var resp BoardResponse
	err := c.doRequest("GET", trainingPath(id, "board"), nil, &resp)
	return &resp, err
}

// BoardImage downloads the rendered PNG; query holds optional size,
// orientation and coords parameters
func (c *Client) BoardImage(id string, query url.Values) ([]byte, error) {
	path := trainingPath(id, "board.png")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	_, body, err := c.send("GET", path, nil)
	return body, err
}

func (c *Client) Chat(id, message string) (*ChatResponse, error) {
	var resp ChatResponse
	err := c.doRequest("POST", trainingPath(id, "chat"), &ChatRequest{Message: message}, &resp)
	return &resp, err
}

// Account

func (c *Client) GetBilling() (*BillingResponse, error) {
	var resp BillingResponse
	err := c.doRequest("GET", "/api/v1/billing", nil, &resp)
	return &resp, err
}

func (c *Client) Checkout() (*CheckoutResponse, error) {
	var resp CheckoutResponse
	err := c.doRequest("GET", "/api/v1/billing/checkout", nil, &resp)
	return &resp, err
}

func (c *Client) CompleteCheckout(reference string) (*BillingResponse, error) {
	var resp BillingResponse
	err := c.doRequest("POST", "/api/v1/billing/complete", &CheckoutCompleteRequest{Reference: reference}, &resp)
	return &resp, err
}

func (c *Client) GetProfile() (*ProfileResponse, error) {
	var resp ProfileResponse
	err := c.doRequest("GET", "/api/v1/profile", nil, &resp)
	return &resp, err
}

func (c *Client) UpdateProfile(firstName, lastName string) (*ProfileResponse, error) {
	var resp ProfileResponse
	err := c.doRequest("PUT", "/api/v1/profile", &ProfileRequest{FirstName: firstName, LastName: lastName}, &resp)
	return &resp, err
}

func (c *Client) GetStats() (*StatsResponse, error) {
	var resp StatsResponse
	err := c.doRequest("GET", "/api/v1/stats", nil, &resp)
	return &resp, err
}

// RawRequest sends an arbitrary request; body is sent as JSON when it parses
func (c *Client) RawRequest(method, path, body string) error {
	var bodyData any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &bodyData); err != nil {
			bodyData = body
		}
	}
	return c.doRequest(method, path, bodyData, nil)
}
