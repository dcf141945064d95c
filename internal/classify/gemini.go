package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for classification.
const DefaultModelName = "gemini-2.5-flash"

// GeminiClassifier classifies transactions with Gemini. The system prompt is
// built once from the taxonomy; every response is validated against the
// closed category set before it is accepted.
type GeminiClassifier struct {
	client    *genai.Client
	modelName string
	tax       *taxonomy.Taxonomy
	system    string
}

// NewGeminiClassifier creates a classifier bound to the given taxonomy.
// Credentials are resolved by the genai client from the environment.
func NewGeminiClassifier(ctx context.Context, tax *taxonomy.Taxonomy, modelName string) (*GeminiClassifier, error) {
	if modelName == "" {
		modelName = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClassifier: create genai client: %w", err)
	}

	return &GeminiClassifier{
		client:    client,
		modelName: modelName,
		tax:       tax,
		system:    buildSystemPrompt(tax),
	}, nil
}

// Classify sends one transaction to the model and parses the strict-JSON
// answer. A category outside the closed set is a contract violation and is
// returned as an error; the dispatcher downgrades it to Unclassified.
func (c *GeminiClassifier) Classify(ctx context.Context, req Request) (Result, error) {
	userPrompt := fmt.Sprintf(
		"Classify the following bank transaction:\n\n"+
			"Description: %s\n"+
			"Direction: %s (CREDIT = money in, DEBIT = money out)\n"+
			"Amount: %.2f\n",
		req.Description, req.Direction, req.Amount)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: c.system + "\n\n" + userPrompt},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return Result{}, fmt.Errorf("GeminiClassifier: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return Result{}, fmt.Errorf("GeminiClassifier: empty response from model")
	}

	return c.parseResponse(rawText)
}

func (c *GeminiClassifier) parseResponse(raw string) (Result, error) {
	clean := cleanModelJSON(raw)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return Result{}, fmt.Errorf("GeminiClassifier: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	category, err := getStringField(parsed, "category", true)
	if err != nil {
		return Result{}, fmt.Errorf("GeminiClassifier: %w", err)
	}
	explanation, err := getStringField(parsed, "explanation", false)
	if err != nil {
		return Result{}, fmt.Errorf("GeminiClassifier: %w", err)
	}

	category = strings.TrimSpace(category)
	if !c.tax.Valid(category) {
		return Result{}, fmt.Errorf("GeminiClassifier: category %q is outside the allowed set", category)
	}

	return Result{Category: category, Explanation: explanation}, nil
}

func buildSystemPrompt(tax *taxonomy.Taxonomy) string {
	var b strings.Builder

	b.WriteString("You are a financial analyst specialized in classifying bank transactions.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Classify the transaction into exactly ONE of the allowed categories.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing text).\n")
	b.WriteString("- Output a single JSON object with these fields:\n")
	b.WriteString("  - \"category\": string, EXACTLY one of the allowed categories below (case-sensitive)\n")
	b.WriteString("  - \"explanation\": string, one short sentence justifying the choice\n\n")

	b.WriteString("Allowed categories:\n")
	for _, label := range tax.Labels() {
		b.WriteString("  - " + label + "\n")
	}

	b.WriteString("\nRules:\n")
	b.WriteString(fmt.Sprintf("- If you are unsure, use category %q.\n", taxonomy.Other))
	b.WriteString("- Never invent a category outside the list.\n")
	b.WriteString("- Return ONLY valid raw JSON.\n")
	b.WriteString("- Do NOT wrap the response in code fences.\n")
	b.WriteString("- Do NOT use ```json or any Markdown.\n")
	b.WriteString("- Output must begin with \"{\" and end with \"}\".\n")

	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' if junk remains.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

var _ Classifier = (*GeminiClassifier)(nil)

// requestInput converts a transaction into a classifier request.
func requestInput(tx domain.Transaction) Request {
	return Request{
		Description: tx.Description,
		Direction:   tx.Direction,
		Amount:      tx.Amount,
	}
}
