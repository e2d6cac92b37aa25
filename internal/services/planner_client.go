package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/types"
)

// GeneratedTask is one task row as proposed by the planner. The planner's
// per-task cost is treated downstream as a unit price for quantity 1.
type GeneratedTask struct {
  TaskName          string  `json:"task_name"`
  EstimatedDuration int     `json:"estimated_duration"`
  EstimatedCost     float64 `json:"estimated_cost"`
}

type GeneratedPhase struct {
  PhaseName         string          `json:"phase_name"`
  EstimatedDuration int             `json:"estimated_duration"`
  EstimatedCost     float64         `json:"estimated_cost"`
  Tasks             []GeneratedTask `json:"tasks"`
}

// PlannerClient is the generative planner consumed by the ingestion
// pipeline. Failures and empty results surface as ErrUpstreamGeneration.
type PlannerClient interface {
  GeneratePlan(ctx context.Context, project *types.Project) ([]GeneratedPhase, error)
}

type plannerClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  httpClient *http.Client

  maxRetries int
}

func NewPlannerClient(log *logger.Logger) (PlannerClient, error) {
  apiKey := os.Getenv("OPENAI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing OPENAI_API_KEY")
  }

  baseURL := os.Getenv("OPENAI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://api.openai.com"
  }

  model := os.Getenv("OPENAI_MODEL")
  if model == "" {
    model = "gpt-5.2"
  }

  timeoutSec := 180
  if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 4
  if v := os.Getenv("OPENAI_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &plannerClient{
    log:        log.With("service", "PlannerClient"),
    baseURL:    baseURL,
    apiKey:     apiKey,
    model:      model,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type plannerHTTPError struct {
  StatusCode int
  Body       string
}

func (e *plannerHTTPError) Error() string {
  return fmt.Sprintf("planner http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  if code >= 500 && code <= 599 {
    return true
  }
  return false
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
    return true
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() {
      return true
    }
  }
  var httpErr *plannerHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

func (c *plannerClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if body != nil {
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
      return nil, nil, err
    }
  }

  req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &plannerHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *plannerClient) do(ctx context.Context, method, path string, body any, out any) error {
  // exponential backoff: 1s, 2s, 4s, 8s (cap ~10s)
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, method, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("planner decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }
    if attempt == c.maxRetries {
      return err
    }

    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }
    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("Planner request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

type responsesRequest struct {
  Model string `json:"model"`
  Input []struct {
    Role    string `json:"role"`
    Content string `json:"content"`
  } `json:"input"`
  Text struct {
    Format map[string]any `json:"format"`
  } `json:"text"`
  Temperature float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
  Output []struct {
    Type    string `json:"type"`
    Role    string `json:"role,omitempty"`
    Content []struct {
      Type string `json:"type"`
      Text string `json:"text,omitempty"`
    } `json:"content,omitempty"`
  } `json:"output"`
  Refusal string `json:"refusal,omitempty"`
}

var planSchema = map[string]any{
  "type": "object",
  "properties": map[string]any{
    "phases": map[string]any{
      "type": "array",
      "items": map[string]any{
        "type": "object",
        "properties": map[string]any{
          "phase_name":         map[string]any{"type": "string"},
          "estimated_duration": map[string]any{"type": "integer", "minimum": 0},
          "estimated_cost":     map[string]any{"type": "number", "minimum": 0},
          "tasks": map[string]any{
            "type": "array",
            "items": map[string]any{
              "type": "object",
              "properties": map[string]any{
                "task_name":          map[string]any{"type": "string"},
                "estimated_duration": map[string]any{"type": "integer", "minimum": 0},
                "estimated_cost":     map[string]any{"type": "number", "minimum": 0},
              },
              "required":             []string{"task_name", "estimated_duration", "estimated_cost"},
              "additionalProperties": false,
            },
          },
        },
        "required":             []string{"phase_name", "estimated_duration", "estimated_cost", "tasks"},
        "additionalProperties": false,
      },
    },
  },
  "required":             []string{"phases"},
  "additionalProperties": false,
}

func plannerUserPrompt(p *types.Project) string {
  var b strings.Builder
  fmt.Fprintf(&b, "Project: %s (%s)\n", p.Name, p.Type)
  if p.Location != "" {
    fmt.Fprintf(&b, "Location: %s\n", p.Location)
  }
  fmt.Fprintf(&b, "Total budget: %.0f %s\n", p.TotalBudget, p.Currency)
  if p.Description != "" {
    fmt.Fprintf(&b, "Description: %s\n", p.Description)
  }
  if p.FunctionalRequirements != "" {
    fmt.Fprintf(&b, "Functional requirements: %s\n", p.FunctionalRequirements)
  }
  if p.AestheticRequirements != "" {
    fmt.Fprintf(&b, "Aesthetic requirements: %s\n", p.AestheticRequirements)
  }
  b.WriteString("\nReturn the ordered construction phases for this project. Costs are in the project currency; durations are working days. Include per-phase tasks when the phase decomposes naturally.")
  return b.String()
}

func (c *plannerClient) GeneratePlan(ctx context.Context, project *types.Project) ([]GeneratedPhase, error) {
  if project == nil {
    return nil, apperr.Validationf("project", "required")
  }

  req := responsesRequest{
    Model: c.model,
    Input: []struct {
      Role    string `json:"role"`
      Content string `json:"content"`
    }{
      {Role: "system", Content: "You are a construction planning estimator. You decompose a construction project into ordered phases with realistic cost and duration estimates."},
      {Role: "user", Content: plannerUserPrompt(project)},
    },
    Temperature: 0.2,
  }
  req.Text.Format = map[string]any{
    "type":   "json_schema",
    "name":   "construction_plan",
    "schema": planSchema,
    "strict": true,
  }

  var resp responsesResponse
  if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
    return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamGeneration, err)
  }
  if resp.Refusal != "" {
    return nil, fmt.Errorf("%w: model refused: %s", apperr.ErrUpstreamGeneration, resp.Refusal)
  }

  var jsonText string
  for _, item := range resp.Output {
    if item.Type == "message" && item.Role == "assistant" {
      for _, part := range item.Content {
        if part.Type == "output_text" && part.Text != "" {
          jsonText += part.Text
        }
      }
    }
  }
  if jsonText == "" {
    return nil, fmt.Errorf("%w: no output_text found in response", apperr.ErrUpstreamGeneration)
  }

  var payload struct {
    Phases []GeneratedPhase `json:"phases"`
  }
  if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
    return nil, fmt.Errorf("%w: failed to parse plan JSON: %v; text=%s", apperr.ErrUpstreamGeneration, err, jsonText)
  }
  if len(payload.Phases) == 0 {
    return nil, fmt.Errorf("%w: planner returned no phases", apperr.ErrUpstreamGeneration)
  }
  return payload.Phases, nil
}
