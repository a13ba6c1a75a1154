package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"credlens/internal/logging"
)

// =============================================================================
// LOCAL LLM INTENT CLIENT
// =============================================================================

// LLMClient classifies questions with a local Ollama model. Everything about
// it is best effort: any failure falls through to the next classifier in the
// chain.
type LLMClient struct {
	host   string
	model  string
	client *http.Client
}

// NewLLMClient creates an Ollama-backed intent classifier.
func NewLLMClient(host, model string) *LLMClient {
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	if model == "" {
		model = "llama3.1:8b-instruct"
	}
	return &LLMClient{
		host:  host,
		model: model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

const llmSystemPrompt = "You classify a user question into one of the allowed intents. " +
	`Respond with strict JSON: {"intent": string, "params": object}. ` +
	"Never include commentary. If unsure, choose 'overall_quality_score'."

// llmAnswer is the JSON shape the model is asked to produce.
type llmAnswer struct {
	Intent string         `json:"intent"`
	Params map[string]any `json:"params"`
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// ClassifyIntent asks the model to pick an intent. Returns an error for any
// transport, parse, or out-of-set answer so the caller can degrade.
func (c *LLMClient) ClassifyIntent(ctx context.Context, question string) (Intent, Params, error) {
	timer := logging.StartTimer(logging.CategoryNLU, "LLMClient.ClassifyIntent")
	defer timer.Stop()

	schema := map[string]any{
		"intents": AllIntents(),
		"params":  map[string][]string{string(IntentFilterByExpirationWindow): {"days"}},
	}
	schemaJSON, _ := json.Marshal(schema)
	prompt := fmt.Sprintf("System: %s\n\nUser: Question: %s\nSchema: %s\n\nReturn ONLY valid JSON.",
		llmSystemPrompt, question, schemaJSON)

	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": 0.0},
	})
	if err != nil {
		return "", Params{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", Params{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", Params{}, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", Params{}, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", Params{}, fmt.Errorf("failed to decode response: %w", err)
	}

	answer, err := extractJSON(gen.Response)
	if err != nil {
		return "", Params{}, err
	}

	intent := Intent(answer.Intent)
	if !intent.Valid() {
		return "", Params{}, fmt.Errorf("model returned unknown intent %q", answer.Intent)
	}

	params := Params{}
	if days, ok := answer.Params["days"]; ok {
		if f, ok := days.(float64); ok && f > 0 {
			params.Days = int(f)
		}
	}
	if intent == IntentFilterByExpirationWindow && params.Days == 0 {
		params.Days = DefaultExpiryWindowDays
	}

	logging.NLUDebug("LLM classified %q as %s (days=%d)", question, intent, params.Days)
	return intent, params, nil
}

// extractJSON pulls a JSON object out of arbitrary model output. Handles
// code fences and surrounding prose by falling back to the outermost braces.
func extractJSON(text string) (*llmAnswer, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "`") {
		text = strings.Trim(text, "`\n ")
		if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
			text = strings.TrimLeft(text[4:], " \n")
		}
	}

	var answer llmAnswer
	if err := json.Unmarshal([]byte(text), &answer); err == nil {
		return &answer, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &answer); err == nil {
			return &answer, nil
		}
	}
	return nil, fmt.Errorf("no JSON object in model output")
}
