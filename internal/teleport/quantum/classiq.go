package quantum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CircuitGenerator produces the teleportation circuit for one bit
type CircuitGenerator interface {
	Generate(ctx context.Context, bit Bit) (*Circuit, error)
}

// ManualGenerator builds circuits locally with the QASM builder
type ManualGenerator struct{}

// Generate builds the fixed teleportation circuit
func (ManualGenerator) Generate(_ context.Context, bit Bit) (*Circuit, error) {
	return BuildTeleportationCircuit(bit)
}

// DefaultClassiqURL is the ClassIQ platform API root
const DefaultClassiqURL = "https://platform.classiq.io/api/v1"

// ClassiqConfig configures the remote circuit generator
type ClassiqConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ClassiqGenerator asks the ClassIQ API to synthesize the circuit and falls
// back to the manual builder on any failure
type ClassiqGenerator struct {
	config   ClassiqConfig
	fallback ManualGenerator
	logger   zerolog.Logger
}

type classiqRequest struct {
	Protocol  string `json:"protocol"`
	Bit       int    `json:"bit"`
	NumQubits int    `json:"num_qubits"`
	Format    string `json:"format"`
}

type classiqResponse struct {
	QASM      string `json:"qasm"`
	CircuitID string `json:"circuit_id"`
}

// NewClassiqGenerator creates the generator. An empty API key is allowed;
// every call then takes the manual path.
func NewClassiqGenerator(config ClassiqConfig, logger zerolog.Logger) *ClassiqGenerator {
	if config.BaseURL == "" {
		config.BaseURL = DefaultClassiqURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	return &ClassiqGenerator{
		config: config,
		logger: logger.With().Str("component", "classiq").Logger(),
	}
}

// Generate returns a ClassIQ circuit when possible, the manual one otherwise.
// Only an invalid bit is reported as an error.
func (g *ClassiqGenerator) Generate(ctx context.Context, bit Bit) (*Circuit, error) {
	if !bit.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBit, int(bit))
	}

	if g.config.APIKey == "" {
		g.logger.Debug().Msg("ClassIQ API key not configured, using manual circuit")
		return g.fallback.Generate(ctx, bit)
	}

	circuit, err := g.fetch(ctx, bit)
	if err != nil {
		g.logger.Warn().Err(err).Int("bit", int(bit)).Msg("ClassIQ generation failed, falling back to manual circuit")
		return g.fallback.Generate(ctx, bit)
	}

	return circuit, nil
}

func (g *ClassiqGenerator) fetch(ctx context.Context, bit Bit) (*Circuit, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(classiqRequest{
		Protocol:  "teleportation",
		Bit:       int(bit),
		NumQubits: TeleportQubits,
		Format:    "qasm",
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(g.config.BaseURL, "/") + "/circuits/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("circuit generation failed: %s (status: %d)", string(body), resp.StatusCode)
	}

	var out classiqResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding circuit response: %w", err)
	}
	if strings.TrimSpace(out.QASM) == "" {
		return nil, fmt.Errorf("circuit response has no program")
	}

	return newCircuit(bit, out.QASM, SourceClassiq, nil)
}
