package rocrate

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// config holds crate construction settings, populated by Options.
type config struct {
	logger         *slog.Logger
	httpClient     *http.Client
	genPreview     bool
	exclude        []string
	converter      WorkflowConverter
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a Crate at construction time.
type Option func(*config)

// WithLogger sets the structured logger used for load and write
// diagnostics. The default discards nothing: it is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient sets the client used to fetch and validate remote
// sources. The default is http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithGenPreview makes the crate generate an HTML preview page when
// written, replacing any preview file found in a source tree.
func WithGenPreview(gen bool) Option {
	return func(c *config) { c.genPreview = gen }
}

// WithExclude sets base names skipped when walking a source tree, in
// addition to the metadata and preview descriptors.
func WithExclude(names ...string) Option {
	return func(c *config) { c.exclude = append(c.exclude, names...) }
}

// WithWorkflowConverter installs the hook used by AddWorkflow to derive a
// CWL description from a workflow in another language.
func WithWorkflowConverter(conv WorkflowConverter) Option {
	return func(c *config) { c.converter = conv }
}

// WithTracerProvider enables tracing of write and stream operations.
// Without it no spans are produced.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithMeterProvider enables metrics for write and stream operations.
// Without it no instruments are registered.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = mp }
}

func newConfig(opts []Option) config {
	cfg := config{
		logger:     slog.Default(),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// fileOptions holds per-entity settings for file and directory entities.
type fileOptions struct {
	properties  Properties
	fetchRemote bool
	validateURL bool
	recordSize  bool
}

// FileOption configures a file or directory entity at creation time.
type FileOption func(*fileOptions)

// WithProperties seeds the entity with additional JSON-LD properties.
func WithProperties(props Properties) FileOption {
	return func(o *fileOptions) { o.properties = props }
}

// WithFetchRemote makes a URL-sourced entity download its content on
// write, using the URL's base name as the entity identifier.
func WithFetchRemote(fetch bool) FileOption {
	return func(o *fileOptions) { o.fetchRemote = fetch }
}

// WithValidateURL makes a URL-sourced entity contact the server on write
// and record response metadata (contentSize, encodingFormat, and for
// references left remote, sdDatePublished).
func WithValidateURL(validate bool) FileOption {
	return func(o *fileOptions) { o.validateURL = validate }
}

// WithRecordSize makes a file entity record its payload size as
// contentSize after a successful write or stream.
func WithRecordSize(record bool) FileOption {
	return func(o *fileOptions) { o.recordSize = record }
}

func newFileOptions(opts []FileOption) fileOptions {
	var cfg fileOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
