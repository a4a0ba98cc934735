package quantum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// QiskitConfig holds IBM Qiskit Runtime API configuration
type QiskitConfig struct {
	// IBM Cloud API Key
	APIKey string

	// IBM Cloud CRN (Cloud Resource Name)
	CRN string

	// Base URL for IBM Quantum API
	BaseURL string

	// Backend name (e.g., "ibmq_qasm_simulator", "ibm_kyoto")
	BackendName string

	// PollInterval between job status checks
	PollInterval time.Duration

	// HTTP client with timeout
	HTTPClient *http.Client
}

// QiskitClient handles IBM Qiskit Runtime API interactions
type QiskitClient struct {
	config *QiskitConfig

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// QiskitJob represents a quantum job
type QiskitJob struct {
	ID        string    `json:"id"`
	Backend   string    `json:"backend"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created"`
}

// QiskitResult represents job execution results
type QiskitResult struct {
	Counts        map[string]int `json:"counts"`
	Memory        []string       `json:"memory"`
	Success       bool           `json:"success"`
	StatusMsg     string         `json:"status"`
	JobID         string         `json:"job_id"`
	ExecutionTime float64        `json:"execution_time"`
}

// QiskitCircuit represents an OpenQASM circuit submission
type QiskitCircuit struct {
	QASM    string `json:"qasm"`
	Shots   int    `json:"shots"`
	Backend string `json:"backend"`
	Memory  bool   `json:"memory"`
}

// IBM Quantum API endpoints
const (
	DefaultQiskitURL     = "https://api.quantum-computing.ibm.com"
	DefaultQiskitBackend = "ibmq_qasm_simulator"
	TokenEndpoint        = "/api/auth/login"
	JobsEndpoint         = "/api/Network/ibm-q/Groups/open/Projects/main/Jobs"
)

// cancelTimeout bounds the cancel request sent for an abandoned job
const cancelTimeout = 10 * time.Second

// Job status constants
const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

// NewQiskitClient creates a new Qiskit API client. Authentication happens
// lazily on the first request.
func NewQiskitClient(config *QiskitConfig) (*QiskitClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("IBM Cloud API key is required")
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultQiskitURL
	}

	if config.BackendName == "" {
		config.BackendName = DefaultQiskitBackend
	}

	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 60 * time.Second,
		}
	}

	return &QiskitClient{config: config}, nil
}

// authenticate obtains an access token from IBM Cloud
func (c *QiskitClient) authenticate(ctx context.Context) error {
	var result struct {
		TTL         int    `json:"ttl"`
		AccessToken string `json:"access_token"`
	}

	payload := map[string]string{"apiToken": c.config.APIKey}
	if err := c.do(ctx, http.MethodPost, TokenEndpoint, payload, "", &result); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	c.accessToken = result.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(result.TTL) * time.Second)

	return nil
}

// token returns a valid access token, refreshing it when close to expiry
func (c *QiskitClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken == "" || time.Now().After(c.tokenExpiry.Add(-5*time.Minute)) {
		if err := c.authenticate(ctx); err != nil {
			return "", err
		}
	}
	return c.accessToken, nil
}

func (c *QiskitClient) do(ctx context.Context, method, path string, payload any, token string, out any) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return err
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.config.CRN != "" {
		req.Header.Set("Service-CRN", c.config.CRN)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s (status: %d)", method, path, string(respBody), resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SubmitJob submits a quantum circuit for execution
func (c *QiskitClient) SubmitJob(ctx context.Context, circuit *QiskitCircuit) (*QiskitJob, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var job QiskitJob
	if err := c.do(ctx, http.MethodPost, JobsEndpoint, circuit, token, &job); err != nil {
		return nil, fmt.Errorf("job submission failed: %w", err)
	}

	return &job, nil
}

// GetJobStatus retrieves the status of a quantum job
func (c *QiskitClient) GetJobStatus(ctx context.Context, jobID string) (*QiskitJob, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var job QiskitJob
	if err := c.do(ctx, http.MethodGet, JobsEndpoint+"/"+jobID, nil, token, &job); err != nil {
		return nil, fmt.Errorf("get job status failed: %w", err)
	}

	return &job, nil
}

// WaitForJob polls until the job reaches a terminal state
func (c *QiskitClient) WaitForJob(ctx context.Context, jobID string, maxWaitTime time.Duration) (*QiskitJob, error) {
	ctx, cancel := context.WithTimeout(ctx, maxWaitTime)
	defer cancel()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("job %s: %w", jobID, ctx.Err())

		case <-ticker.C:
			job, err := c.GetJobStatus(ctx, jobID)
			if err != nil {
				return nil, err
			}

			switch job.Status {
			case JobStatusCompleted:
				return job, nil
			case JobStatusFailed:
				return job, fmt.Errorf("job %s failed", jobID)
			case JobStatusCancelled:
				return job, fmt.Errorf("job %s was cancelled", jobID)
			}
		}
	}
}

// GetJobResult retrieves the results of a completed job
func (c *QiskitClient) GetJobResult(ctx context.Context, jobID string) (*QiskitResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var result QiskitResult
	if err := c.do(ctx, http.MethodGet, JobsEndpoint+"/"+jobID+"/results", nil, token, &result); err != nil {
		return nil, fmt.Errorf("get job result failed: %w", err)
	}

	return &result, nil
}

// CancelJob cancels a running or queued job
func (c *QiskitClient) CancelJob(ctx context.Context, jobID string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	if err := c.do(ctx, http.MethodPost, JobsEndpoint+"/"+jobID+"/cancel", nil, token, nil); err != nil {
		return fmt.Errorf("cancel job failed: %w", err)
	}
	return nil
}

// ExecuteCircuitSync submits a circuit, waits for it and fetches the result
func (c *QiskitClient) ExecuteCircuitSync(ctx context.Context, circuit *QiskitCircuit, maxWaitTime time.Duration) (*QiskitResult, error) {
	circuit.Memory = true

	job, err := c.SubmitJob(ctx, circuit)
	if err != nil {
		return nil, err
	}

	completedJob, err := c.WaitForJob(ctx, job.ID, maxWaitTime)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// the caller gave up, do not leave the job queued on the device
			cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
			defer cancel()
			if cancelErr := c.CancelJob(cancelCtx, job.ID); cancelErr != nil {
				return nil, fmt.Errorf("job execution failed: %w (%v)", err, cancelErr)
			}
		}
		return nil, fmt.Errorf("job execution failed: %w", err)
	}

	result, err := c.GetJobResult(ctx, completedJob.ID)
	if err != nil {
		return nil, fmt.Errorf("result retrieval failed: %w", err)
	}
	if result.JobID == "" {
		result.JobID = completedJob.ID
	}

	return result, nil
}
