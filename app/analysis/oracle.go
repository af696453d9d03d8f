package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/podmatch/podcache/app/podcast"
)

const fitPrompt = `You are a podcast booking strategist. A consumer wants to appear as a guest on podcasts, and your job is to judge how a specific podcast fits them and to prepare pitch material.

Consumer name: %s
Consumer bio:
%s

Podcast:
%s

Respond with a JSON object with exactly these fields:
1. "clean_description" (string): The podcast description rewritten as 2-3 clean sentences, free of sponsor reads, episode listings, and promotional filler.
2. "fit_reasons" (array of strings): 2-4 concrete reasons this podcast is or is not a good fit for the consumer. Be specific about audience overlap.
3. "pitch_angles" (array of objects with "title" and "description"): 2-3 episode topic ideas the consumer could pitch to this show, grounded in the consumer's bio and the show's themes.

Return ONLY the JSON object, no other text.`

// Verdict is the structured output of one oracle call.
type Verdict struct {
	CleanDescription string               `json:"clean_description"`
	FitReasons       []string             `json:"fit_reasons"`
	PitchAngles      []podcast.PitchAngle `json:"pitch_angles"`
}

// Oracle scores consumer/podcast pairs with an LLM over raw HTTP.
type Oracle struct {
	client   *http.Client
	provider string // "openai" or "anthropic"
	model    string
	apiKey   string
	baseURL  string
}

func NewOracle(provider, model, apiKey, baseURL string) *Oracle {
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}
	return &Oracle{
		client:   &http.Client{Timeout: 60 * time.Second},
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
	}
}

// Configured reports whether the oracle has credentials to call its
// provider. An unconfigured oracle is a per-invocation error for modes
// that need analysis, not a startup failure.
func (o *Oracle) Configured() bool {
	return o.apiKey != ""
}

// Score evaluates one consumer/podcast pair. siteContent is optional
// extracted text from the podcast's website, appended to the prompt
// when present.
func (o *Oracle) Score(ctx context.Context, consumerName, consumerBio string, snap *podcast.Snapshot, siteContent string) (*Verdict, error) {
	prompt := fmt.Sprintf(fitPrompt, consumerName, consumerBio, describePodcast(snap))
	if siteContent != "" {
		prompt += "\n\nPodcast website content:\n" + siteContent
	}

	var raw string
	var err error

	switch o.provider {
	case "anthropic":
		raw, err = o.callAnthropic(ctx, prompt)
	default:
		raw, err = o.callOpenAI(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return nil, err
	}

	return verdict, nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseVerdict extracts the first JSON object from the model output.
// Models wrap answers in markdown fences or prose often enough that a
// strict json.Unmarshal of the whole response is not workable.
func parseVerdict(raw string) (*Verdict, error) {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in oracle response: %s", truncate(raw, 200))
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(match), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse oracle response: %w", err)
	}

	if verdict.CleanDescription == "" && len(verdict.FitReasons) == 0 && len(verdict.PitchAngles) == 0 {
		return nil, fmt.Errorf("oracle response carried no usable fields")
	}

	return &verdict, nil
}

// describePodcast renders the snapshot fields the oracle should see.
// Empty fields are omitted to keep the prompt compact.
func describePodcast(snap *podcast.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Name: %s\n", snap.Name)
	if snap.Publisher != "" {
		fmt.Fprintf(&b, "Publisher: %s\n", snap.Publisher)
	}
	if len(snap.Hosts) > 0 {
		fmt.Fprintf(&b, "Hosts: %s\n", strings.Join(snap.Hosts, ", "))
	}
	if len(snap.Categories) > 0 {
		names := make([]string, 0, len(snap.Categories))
		for _, c := range snap.Categories {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(names, ", "))
	}
	if snap.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", snap.Language)
	}
	if snap.EpisodeCount > 0 {
		fmt.Fprintf(&b, "Episodes: %d\n", snap.EpisodeCount)
	}
	if snap.AudienceSize > 0 {
		fmt.Fprintf(&b, "Audience size: %d\n", snap.AudienceSize)
	}
	if snap.Description != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", truncate(snap.Description, 1500))
	}

	return b.String()
}

func (o *Oracle) callOpenAI(ctx context.Context, prompt string) (string, error) {
	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	payload := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.2,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("openai status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (o *Oracle) callAnthropic(ctx context.Context, prompt string) (string, error) {
	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	payload := map[string]any{
		"model":      o.model,
		"max_tokens": 2048,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", o.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode anthropic response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content returned")
	}
	return result.Content[0].Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
