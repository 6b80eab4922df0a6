// Package zaim is a minimal client for the Zaim household-accounting API.
// Requests are signed with OAuth 1.0a.
package zaim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"

	"github.com/dghubble/oauth1"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.zaim.net"

const (
	paymentPath    = "/v2/home/money/payment"
	genrePath      = "/v2/home/genre"
	categoryPath   = "/v2/home/category"
	accountPath    = "/v2/home/account"
	verifyUserPath = "/v2/home/user/verify"

	// maxErrorBody bounds how much of a failed response is kept in errors.
	maxErrorBody = 512
)

// Options configures a Client.
type Options struct {
	ConsumerKey    string
	ConsumerSecret string
	Tokens         Tokens
	BaseURL        string
	Timeout        time.Duration
	// HTTPClient is the unsigned base client; requests are signed on top of its transport.
	HTTPClient *http.Client
	// RequestsPerMinute paces every API call; zero disables pacing.
	RequestsPerMinute int
	Logger            logging.Logger
}

// Client talks to the Zaim API on behalf of one authorized user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logging.Logger
}

// NewClient builds a signed client. Consumer credentials and access tokens are required.
func NewClient(opts Options) (*Client, error) {
	if opts.ConsumerKey == "" || opts.ConsumerSecret == "" {
		return nil, &apperrors.ConfigurationError{
			Setting: "zaim.consumer_key",
			Reason:  "ZAIM_CONSUMER_ID and ZAIM_CONSUMER_SECRET must be set",
		}
	}
	if err := opts.Tokens.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	config := oauth1.NewConfig(opts.ConsumerKey, opts.ConsumerSecret)
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	httpClient := config.Client(ctx, oauth1.NewToken(opts.Tokens.AccessToken, opts.Tokens.AccessTokenSecret))
	httpClient.Timeout = opts.Timeout
	if httpClient.Timeout == 0 {
		httpClient.Timeout = base.Timeout
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// PaymentForm encodes a payment record as the form accepted by the payment endpoint.
func PaymentForm(record models.PaymentRecord) url.Values {
	categoryID := record.CategoryID
	if categoryID == 0 {
		categoryID = models.FallbackCategoryID
	}

	form := url.Values{}
	form.Set("mapping", "1")
	form.Set("amount", strconv.FormatInt(record.Amount, 10))
	form.Set("date", record.Date)
	form.Set("genre_id", strconv.Itoa(record.GenreID))
	form.Set("category_id", strconv.Itoa(categoryID))
	form.Set("place", record.Place)
	form.Set("name", record.Name)
	if record.Comment != "" {
		form.Set("comment", record.Comment)
	}
	if record.FromAccountID != nil {
		form.Set("from_account_id", strconv.Itoa(*record.FromAccountID))
	}
	return form
}

// CreatePayment registers a payment and returns the created entry.
// Any status other than 200 is a SubmissionError.
func (c *Client) CreatePayment(ctx context.Context, record models.PaymentRecord) (*PaymentResult, error) {
	form := PaymentForm(record)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+paymentPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &apperrors.SubmissionError{MessageID: record.MessageID, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := c.wait(ctx); err != nil {
		return nil, &apperrors.SubmissionError{MessageID: record.MessageID, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.SubmissionError{MessageID: record.MessageID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.SubmissionError{MessageID: record.MessageID, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apperrors.SubmissionError{
			MessageID:  record.MessageID,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
		}
	}

	var result PaymentResult
	if err := json.Unmarshal(body, &result); err != nil {
		// The payment exists; only the echo is unreadable.
		c.logger.WithError(err).Warn("Unreadable payment response",
			logging.F(logging.FieldMessageID, record.MessageID))
	}

	c.logger.Debug("Payment created",
		logging.F(logging.FieldMessageID, record.MessageID),
		logging.F(logging.FieldAmount, record.Amount),
		logging.F("money_id", result.Money.ID))
	return &result, nil
}

// SubmitPayment registers a payment, discarding the response body.
func (c *Client) SubmitPayment(ctx context.Context, record models.PaymentRecord) error {
	_, err := c.CreatePayment(ctx, record)
	return err
}

// Genres lists the user's genres.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var resp genresResponse
	if err := c.getJSON(ctx, genrePath, url.Values{"mapping": {"1"}}, &resp); err != nil {
		return nil, fmt.Errorf("error getting genres: %w", err)
	}
	return resp.Genres, nil
}

// Categories lists the user's categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp categoriesResponse
	if err := c.getJSON(ctx, categoryPath, url.Values{"mapping": {"1"}}, &resp); err != nil {
		return nil, fmt.Errorf("error getting categories: %w", err)
	}
	return resp.Categories, nil
}

// Accounts lists the user's accounts.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var resp accountsResponse
	if err := c.getJSON(ctx, accountPath, url.Values{"mapping": {"1"}}, &resp); err != nil {
		return nil, fmt.Errorf("error getting accounts: %w", err)
	}
	return resp.Accounts, nil
}

// VerifyUser returns the user the access token belongs to.
func (c *Client) VerifyUser(ctx context.Context) (*User, error) {
	var resp verifyResponse
	if err := c.getJSON(ctx, verifyUserPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("error getting user verification: %w", err)
	}
	return &resp.Me, nil
}

// StatusError is returned by read endpoints on a non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}
	return json.Unmarshal(body, out)
}

// wait blocks until the limiter allows another request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
