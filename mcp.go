package plansmith

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPSource lists tools from an MCP server and converts them into
// ToolDescriptors for the planner's allow-list snapshot. It is a
// descriptor source only: executing the tools it describes remains the
// caller's responsibility.
type MCPSource struct {
	// For local MCP server
	path    string
	args    []string
	envVars []string

	// For remote MCP server
	baseURL string
	headers map[string]string

	client     *client.Client
	initResult *mcp.InitializeResult

	initMutex sync.Mutex
}

// MCPStdioOption is the option for a local MCP executable server via stdio.
type MCPStdioOption func(*MCPSource)

// WithEnvVars appends environment variables passed to the MCP executable.
func WithEnvVars(envVars []string) MCPStdioOption {
	return func(m *MCPSource) {
		m.envVars = append(m.envVars, envVars...)
	}
}

// MCPSSEOption is the option for a remote MCP server via HTTP SSE.
type MCPSSEOption func(*MCPSource)

// WithHeaders replaces the HTTP headers sent to the MCP server.
func WithHeaders(headers map[string]string) MCPSSEOption {
	return func(m *MCPSource) {
		m.headers = headers
	}
}

// NewMCPStdio creates a descriptor source backed by a local MCP executable.
func NewMCPStdio(path string, args []string, options ...MCPStdioOption) *MCPSource {
	m := &MCPSource{
		path: path,
		args: args,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// NewMCPSSE creates a descriptor source backed by a remote MCP server.
func NewMCPSSE(baseURL string, options ...MCPSSEOption) *MCPSource {
	m := &MCPSource{
		baseURL: baseURL,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (c *MCPSource) start(ctx context.Context) error {
	c.initMutex.Lock()
	defer c.initMutex.Unlock()

	if c.initResult != nil {
		return nil
	}

	var tp transport.Interface
	if c.path != "" {
		tp = transport.NewStdio(c.path, c.envVars, c.args...)
	}

	if c.baseURL != "" {
		sse, err := transport.NewSSE(c.baseURL, transport.WithHeaders(c.headers))
		if err != nil {
			return goerr.Wrap(err, "failed to create SSE transport")
		}
		tp = sse
	}

	if tp == nil {
		return goerr.New("no transport")
	}

	c.client = client.NewClient(tp)

	if err := c.client.Start(ctx); err != nil {
		return goerr.Wrap(err, "failed to start MCP client")
	}

	var initRequest mcp.InitializeRequest
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "plansmith",
		Version: "0.0.1",
	}

	resp, err := c.client.Initialize(ctx, initRequest)
	if err != nil {
		return goerr.Wrap(err, "failed to initialize MCP client")
	}
	c.initResult = resp

	return nil
}

// Descriptors connects to the server when needed and returns the tool
// descriptors it advertises. The result is a plain slice: callers put it
// into a ToolSet snapshot per planning call.
func (c *MCPSource) Descriptors(ctx context.Context) ([]*ToolDescriptor, error) {
	if err := c.start(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tools")
	}

	descriptors := make([]*ToolDescriptor, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		d, err := toolToDescriptor(tool)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

// Close shuts down the underlying MCP client.
func (c *MCPSource) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close MCP client")
	}
	return nil
}

func valueOrEmpty[T any](v any) T {
	var empty T
	if v == nil {
		return empty
	}
	if v, ok := v.(T); ok {
		return v
	}
	return empty
}

func toolToDescriptor(tool mcp.Tool) (*ToolDescriptor, error) {
	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	parameters := make([]*Parameter, 0, len(names))
	for _, name := range names {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			return nil, goerr.Wrap(ErrInvalidTool, "invalid MCP property",
				goerr.V("tool", tool.Name), goerr.V("property", name))
		}

		param, err := propertyToParameter(name, prop)
		if err != nil {
			return nil, err
		}
		param.Required = required[name]
		parameters = append(parameters, param)
	}

	return &ToolDescriptor{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters:  parameters,
	}, nil
}

func propertyToParameter(name string, prop map[string]any) (*Parameter, error) {
	var properties map[string]*Parameter
	var items *Parameter
	propType := valueOrEmpty[string](prop["type"])

	if propType == "object" {
		properties = map[string]*Parameter{}
		for k, v := range valueOrEmpty[map[string]any](prop["properties"]) {
			nested, ok := v.(map[string]any)
			if !ok {
				return nil, goerr.Wrap(ErrInvalidTool, "invalid nested MCP property", goerr.V("property", k))
			}
			objParam, err := propertyToParameter(k, nested)
			if err != nil {
				return nil, err
			}
			properties[k] = objParam
		}
	}

	if propType == "array" {
		itemsProp, ok := prop["items"].(map[string]any)
		if !ok {
			return nil, goerr.Wrap(ErrInvalidTool, "array MCP property has no items", goerr.V("property", name))
		}
		v, err := propertyToParameter(name, itemsProp)
		if err != nil {
			return nil, err
		}
		items = v
	}

	var enum []string
	for _, v := range valueOrEmpty[[]any](prop["enum"]) {
		if s, ok := v.(string); ok {
			enum = append(enum, s)
		}
	}

	return &Parameter{
		Name:        name,
		Type:        ParameterType(propType),
		Description: valueOrEmpty[string](prop["description"]),
		Enum:        enum,
		Properties:  properties,
		Items:       items,
	}, nil
}
