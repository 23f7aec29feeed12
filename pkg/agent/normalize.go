package agent

import (
	"encoding/json"
	"fmt"

	"github.com/harun/assigny/pkg/scheduling"
)

// Normalize coerces whatever argument shape the model produced into the
// canonical shape the named tool expects. It is total and idempotent:
// any input maps to a valid argument map, and normalizing an already
// canonical map returns it unchanged.
func Normalize(toolName string, rawArgs any) map[string]any {
	args, isMap := rawArgs.(map[string]any)

	switch toolName {
	case scheduling.ToolResolveDate:
		if isMap {
			for _, key := range []string{"text", "date_string", "date", "query"} {
				if v, ok := args[key]; ok {
					return map[string]any{"text": stringify(v)}
				}
			}
		}
		return map[string]any{"text": stringify(rawArgs)}

	case scheduling.ToolSQLRead:
		if isMap {
			out := map[string]any{}
			if v, ok := args["sql"]; ok {
				out["sql"] = stringify(v)
			} else if v, ok := args["query"]; ok {
				out["sql"] = stringify(v)
			}
			if _, ok := out["sql"]; ok {
				if v, ok := args["params"]; ok {
					out["params"] = v
				}
				if v, ok := args["row_limit"]; ok {
					out["row_limit"] = v
				}
				return out
			}
		}
		return map[string]any{"sql": stringify(rawArgs)}

	case scheduling.ToolCheckAvailability, scheduling.ToolAppointmentStats,
		scheduling.ToolListAppointments, scheduling.ToolPatientsByReason:
		return map[string]any{"query": remapQueryKeys(toolName, wrapMap(args, isMap, rawArgs, "query"))}

	case scheduling.ToolBookAppointment, scheduling.ToolRegisterPatient,
		scheduling.ToolCancelAppointments:
		return map[string]any{"data": wrapMap(args, isMap, rawArgs, "data")}

	default:
		if isMap {
			return args
		}
		return map[string]any{"query": map[string]any{"raw": stringify(rawArgs)}}
	}
}

// wrapMap extracts the inner map for {query:...} / {data:...} shaped tools.
// An already-wrapped map passes through its inner value; a bare map is the
// inner value itself; anything else is stringified under "raw".
func wrapMap(args map[string]any, isMap bool, rawArgs any, key string) map[string]any {
	if !isMap {
		return map[string]any{"raw": stringify(rawArgs)}
	}
	if inner, ok := args[key].(map[string]any); ok {
		return inner
	}
	return args
}

// remapQueryKeys applies the per-tool key aliases the model tends to use.
func remapQueryKeys(toolName string, query map[string]any) map[string]any {
	switch toolName {
	case scheduling.ToolAppointmentStats:
		return renameKey(query, "date", "for_date")
	case scheduling.ToolPatientsByReason:
		return renameKey(query, "condition_like", "reason_like")
	default:
		return query
	}
}

func renameKey(m map[string]any, from, to string) map[string]any {
	v, ok := m[from]
	if !ok {
		return m
	}
	if _, exists := m[to]; exists {
		out := make(map[string]any, len(m))
		for k, val := range m {
			if k != from {
				out[k] = val
			}
		}
		return out
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		if k == from {
			continue
		}
		out[k] = val
	}
	out[to] = v
	return out
}

// stringify renders any value as a string. Strings pass through; everything
// else round-trips through JSON, falling back to fmt on marshal failure.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", v)
}
