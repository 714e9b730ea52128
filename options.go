package llmgate

// ResponseFormat selects the shape of the model output.
type ResponseFormat string

const (
	// ResponseFormatText is free-form text (default).
	ResponseFormatText ResponseFormat = ""
	// ResponseFormatJSON asks the model for a single JSON object.
	ResponseFormatJSON ResponseFormat = "json_object"
)

// Options contains configuration for a chat request.
type Options struct {
	// Model is a model reference, either "provider:model" or a bare model name.
	Model          string
	MaxTokens      int
	Temperature    *float64
	Tools          []Tool
	ToolChoice     ToolChoice
	ResponseFormat ResponseFormat
	// User identifies the end user for per-user usage accounting.
	User string
}

// Option is a functional option for configuring chat requests.
type Option func(*Options)

// WithModel sets the model to use for the request.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature (0.0 to 2.0).
func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = &t
	}
}

// WithTools makes the given tools available to the model.
func WithTools(tools []Tool) Option {
	return func(o *Options) {
		o.Tools = tools
	}
}

// WithToolChoice controls whether and how the model uses tools.
func WithToolChoice(choice ToolChoice) Option {
	return func(o *Options) {
		o.ToolChoice = choice
	}
}

// WithJSONMode requests a JSON object response.
func WithJSONMode() Option {
	return func(o *Options) {
		o.ResponseFormat = ResponseFormatJSON
	}
}

// WithUser tags the request with an end-user id.
func WithUser(user string) Option {
	return func(o *Options) {
		o.User = user
	}
}

// ApplyOptions applies functional options to an Options struct.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
