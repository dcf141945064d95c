// Package classify dispatches transactions the rule engine could not resolve
// to an external classification capability, under a hard concurrency ceiling,
// and merges results back by transaction identifier.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-classifier/internal/domain"
)

// Request is the payload sent to the external classifier for one transaction.
type Request struct {
	Description string
	Direction   domain.Direction
	Amount      float64
}

// Result is the classifier's answer: a category from the closed taxonomy set
// plus a free-text explanation.
type Result struct {
	Category    string
	Explanation string
}

// Classifier is the external classification capability. Implementations must
// be safe for concurrent use; the dispatcher bounds how many calls are in
// flight at once.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}

// getStringField extracts a string field from untyped model JSON.
func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}
