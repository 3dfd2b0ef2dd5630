// Package relay submits meta-transactions to the relay service and tracks their tasks.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/speedrun-hq/safe-relay-runner/pkg/encoder"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/metrics"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// ClientConfig holds the endpoints and credentials of the relay service
type ClientConfig struct {
	RelayURL          string
	StatusURL         string
	APIKey            string
	ChainID           int64
	MultiSendCallOnly common.Address
	HTTPClient        *http.Client
}

// Client submits meta-transactions to the relay service
type Client struct {
	relayURL   string
	statusURL  string
	apiKey     string
	chainID    int64
	multiSend  common.Address
	httpClient *http.Client
	logger     logger.Logger
}

// errorResponse is the body the relay service returns on failures
type errorResponse struct {
	Message string `json:"message"`
}

type taskStatusResponse struct {
	Task models.TaskStatus `json:"task"`
}

// NewClient creates a new relay client
func NewClient(cfg ClientConfig, log logger.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = createHTTPClient()
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	return &Client{
		relayURL:   strings.TrimRight(cfg.RelayURL, "/"),
		statusURL:  strings.TrimRight(cfg.StatusURL, "/"),
		apiKey:     cfg.APIKey,
		chainID:    cfg.ChainID,
		multiSend:  cfg.MultiSendCallOnly,
		httpClient: httpClient,
		logger:     log,
	}
}

// Submit relays intents as a single meta-transaction.
// Several intents are batched through MultiSendCallOnly.
func (c *Client) Submit(ctx context.Context, intents []models.TransactionIntent, opts models.RelaySubmissionOptions) (models.RelayTask, error) {
	if len(intents) == 0 {
		return models.RelayTask{}, &models.EncodingError{Method: "submit", Err: fmt.Errorf("no transactions to relay")}
	}

	for i, intent := range intents {
		if intent.Operation() != models.OperationCall {
			return models.RelayTask{}, &models.EncodingError{
				Method: "submit",
				Err:    fmt.Errorf("transaction %d: relay cannot perform a %s", i, intent.Operation()),
			}
		}
		if intent.Value().Sign() != 0 {
			return models.RelayTask{}, &models.EncodingError{
				Method: "submit",
				Err:    fmt.Errorf("transaction %d: relay cannot attach value", i),
			}
		}
	}

	intent := intents[0]
	if len(intents) > 1 {
		batch, err := encoder.BuildMultiSendIntent(c.multiSend, intents, models.OperationCall)
		if err != nil {
			return models.RelayTask{}, err
		}
		intent = batch
	}

	return c.SubmitCall(ctx, intent.Destination(), intent.CallData(), opts)
}

// SubmitCall relays a sponsored call of data on target. Exactly one request is made.
// The targets relayed here hold no relay fee logic, so unsponsored calls are rejected before any request.
func (c *Client) SubmitCall(ctx context.Context, target common.Address, data []byte, opts models.RelaySubmissionOptions) (models.RelayTask, error) {
	if !opts.Sponsored {
		return models.RelayTask{}, &models.RelayError{Op: "submit", Err: models.ErrUnsponsoredRelay}
	}

	chainID := strconv.FormatInt(c.chainID, 10)
	mode := modeSponsored
	payload := sponsoredCallRequest{
		ChainID:       chainID,
		Target:        target.Hex(),
		Data:          hexutil.Encode(data),
		SponsorAPIKey: c.apiKey,
	}

	var task models.RelayTask
	if err := c.do(ctx, http.MethodPost, c.relayURL+SponsoredCallEndpoint, payload, &task); err != nil {
		metrics.RelaySubmissions.WithLabelValues(chainID, mode, "failed").Inc()
		return models.RelayTask{}, &models.RelayError{Op: "submit", StatusCode: statusCodeOf(err), Err: err}
	}
	if task.TaskID == "" {
		metrics.RelaySubmissions.WithLabelValues(chainID, mode, "failed").Inc()
		return models.RelayTask{}, &models.RelayError{Op: "submit", Err: fmt.Errorf("response has no task id")}
	}

	metrics.RelaySubmissions.WithLabelValues(chainID, mode, "success").Inc()
	c.logger.DebugWithTask(task.TaskID, "Submitted %s call to %s", mode, target.Hex())

	return task, nil
}

// TaskStatus fetches the current status of a relay task
func (c *Client) TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error) {
	var resp taskStatusResponse
	if err := c.do(ctx, http.MethodGet, c.statusURL+TaskStatusEndpoint+taskID, nil, &resp); err != nil {
		return models.TaskStatus{}, &models.RelayError{Op: "status", StatusCode: statusCodeOf(err), Err: err}
	}
	return resp.Task, nil
}

// statusError is returned for non-2xx responses
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return e.message
}

func statusCodeOf(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.code
	}
	return 0
}

// do performs one request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, method, url string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(bodyBytes))
		var errResp errorResponse
		if json.Unmarshal(bodyBytes, &errResp) == nil && errResp.Message != "" {
			message = errResp.Message
		}
		return &statusError{code: resp.StatusCode, message: message}
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %v, body: %s", err, string(bodyBytes))
	}
	return nil
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
