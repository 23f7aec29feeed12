package toolbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Handler executes one tool. The returned map is marshaled into the tool's
// JSON response; domain failures should be reported as {"error": ...} entries
// rather than Go errors. A returned error is a backend failure and surfaces
// as a transport error to the caller.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Definition binds a descriptor to its handler.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Registry is an in-process tool backend. It validates arguments against each
// tool's JSON schema before dispatching to the handler.
type Registry struct {
	tools   map[string]*Definition
	schemas map[string]*gojsonschema.Schema
	timeout time.Duration
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry. Calls are bounded by timeout; zero
// means 30 seconds.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Registry{
		tools:   make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
		timeout: timeout,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	var schema *gojsonschema.Schema
	if def.InputSchema != nil {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema))
		if err != nil {
			return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.tools[def.Name] = &def
	r.schemas[def.Name] = schema

	log.Debug().Str("tool", def.Name).Msg("Tool registered")
	return nil
}

// Descriptors returns the catalog sorted by tool name.
func (r *Registry) Descriptors() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, ToolDescriptor{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// call validates and dispatches a tool invocation.
func (r *Registry) call(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	r.mu.RLock()
	def := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if def == nil {
		return ToolResult{}, fmt.Errorf("tool not found: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}

	// Schema rejects are the tool's own {"error"} response, not a transport
	// failure: the formatter renders them as text.
	if schema != nil {
		result, err := schema.Validate(gojsonschema.NewGoLoader(args))
		if err != nil {
			return ToolResult{}, fmt.Errorf("schema validation for %s: %w", name, err)
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				msgs = append(msgs, e.String())
			}
			return errorResult(fmt.Sprintf("invalid arguments: %s", strings.Join(msgs, "; "))), nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := def.Handler(callCtx, args)
	if err != nil {
		log.Error().
			Str("tool", name).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("Tool execution failed")
		return ToolResult{}, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to marshal result for %s: %w", name, err)
	}

	log.Debug().
		Str("tool", name).
		Dur("duration", time.Since(start)).
		Msg("Tool executed")

	return ToolResult{Content: string(data)}, nil
}

func errorResult(msg string) ToolResult {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return ToolResult{Content: string(data)}
}

// Open returns a fresh client session over the registry. Sessions are
// request-scoped; nothing about their lifetime is shared across requests.
func (r *Registry) Open(ctx context.Context) (Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return &registrySession{registry: r}, nil
}

type registrySession struct {
	registry *Registry
	closed   bool
	mu       sync.Mutex
}

func (s *registrySession) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.registry.Descriptors(), nil
}

func (s *registrySession) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	if err := s.check(); err != nil {
		return ToolResult{}, err
	}
	return s.registry.call(ctx, name, args)
}

func (s *registrySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *registrySession) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("backend session is closed")
	}
	return nil
}
