package agent

import (
	"encoding/json"
	"strings"
)

// planScanLimit bounds how far past the first brace the extractor scans.
const planScanLimit = 10000

// ExtractPlan recovers a Plan from raw model output. It first tries the
// trimmed text as a whole JSON object, then falls back to scanning from the
// first '{' with a naive brace-depth count. Output that yields no JSON
// object, or an object that is neither a tool action nor a final answer,
// returns nil.
func ExtractPlan(output string) *Plan {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}

	if plan := decodePlan(trimmed); plan != nil {
		return plan
	}

	start := strings.IndexByte(trimmed, '{')
	if start < 0 {
		return nil
	}

	depth := 0
	limit := start + planScanLimit
	if limit > len(trimmed) {
		limit = len(trimmed)
	}
	for i := start; i < limit; i++ {
		switch trimmed[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return decodePlan(trimmed[start : i+1])
			}
		}
	}
	return nil
}

// decodePlan parses candidate text into a Plan. Only JSON objects qualify;
// the object must either be {"action":"tool","tool_name":...,"args":...} or
// carry a "final" key.
func decodePlan(candidate string) *Plan {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil
	}

	if action, _ := obj["action"].(string); action == "tool" {
		name, _ := obj["tool_name"].(string)
		if name == "" {
			return nil
		}
		return &Plan{Kind: PlanToolCall, ToolName: name, RawArgs: obj["args"]}
	}

	if final, ok := obj["final"]; ok {
		text, isString := final.(string)
		if !isString {
			data, err := json.Marshal(final)
			if err != nil {
				return nil
			}
			text = string(data)
		}
		return &Plan{Kind: PlanFinal, Final: text}
	}

	return nil
}
