// Package transfer submits a manifest to the converter and interprets the
// reply. A Client runs at most one conversion at a time.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mdpress/internal/artifact"
	"mdpress/internal/errors"
	"mdpress/internal/log"
	"mdpress/pkg/types"
)

// State is a step of the conversion lifecycle.
type State int32

const (
	Idle State = iota
	Validating
	Packaging
	Submitting
	Succeeded
	Failed
)

var stateNames = [...]string{"idle", "validating", "packaging", "submitting", "succeeded", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DefaultFieldName is the multipart part name every file is sent under.
const DefaultFieldName = "files"

// EntryField names the optional form field carrying the main document.
const EntryField = "entry_md"

// Options configures a Client.
type Options struct {
	// Endpoint is the converter URL receiving the POST.
	Endpoint string
	// HTTPClient defaults to a zero http.Client.
	HTTPClient *http.Client
	// Timeout bounds the whole round trip. Zero means no limit beyond ctx.
	Timeout time.Duration
	// FieldName defaults to DefaultFieldName.
	FieldName string
	// EntryDocument, when set, is sent as the entry_md field.
	EntryDocument string
	// DefaultName is used when the response names no file.
	DefaultName string
	// MaxArtifactBytes defaults to DefaultMaxArtifactBytes.
	MaxArtifactBytes int64
	Logger      *log.Logger
	// OnState observes every state change. It runs on the converting
	// goroutine and must not call Convert.
	OnState func(State)
}

// Client performs conversions.
type Client struct {
	opts  Options
	http  *http.Client
	busy  atomic.Bool
	state atomic.Int32
}

// New validates opts and creates a Client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewConfigError("invalid converter endpoint", opts.Endpoint, errors.InvalidConfig, err)
	}
	if opts.FieldName == "" {
		opts.FieldName = DefaultFieldName
	}
	if opts.DefaultName == "" {
		opts.DefaultName = types.DefaultArtifactName
	}
	if opts.MaxArtifactBytes <= 0 {
		opts.MaxArtifactBytes = DefaultMaxArtifactBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{opts: opts, http: hc}, nil
}

// Busy reports whether a conversion is in flight. Callers use it to disable
// their trigger.
func (c *Client) Busy() bool {
	return c.busy.Load()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

// Convert validates m, sends it as one multipart request and returns the
// converter's artifact. Failures are *errors.TransferError values of kind
// EmptySelection, NoMarkdownFiles, PackagingError, RemoteError or
// NetworkError. Calling Convert while another conversion runs fails
// immediately with ErrBusy and leaves the running one alone.
func (c *Client) Convert(ctx context.Context, m types.Manifest) (*types.Artifact, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, errors.ErrBusy
	}
	defer func() {
		c.setState(Idle)
		c.busy.Store(false)
	}()

	if _, ok := log.RequestID(ctx); !ok {
		ctx = log.ContextWithRequestID(ctx, uuid.New().String())
	}
	logger := c.opts.Logger.WithContext(ctx).With(log.F("entries", m.Len()))

	a, err := c.convert(ctx, m, logger)
	if err != nil {
		c.setState(Failed)
		logger.WithError(err).Warn("conversion failed")
		return nil, err
	}
	c.setState(Succeeded)
	logger.With(log.F("filename", a.Filename), log.F("bytes", len(a.Data))).Info("conversion succeeded")
	return a, nil
}

func (c *Client) convert(ctx context.Context, m types.Manifest, logger *log.Logger) (*types.Artifact, error) {
	c.setState(Validating)
	if err := Validate(m); err != nil {
		return nil, err
	}

	c.setState(Packaging)
	body, contentType, err := c.pack(ctx, m)
	if err != nil {
		return nil, err
	}
	logger.With(log.F("bytes", body.Len())).Debug("manifest packaged")

	c.setState(Submitting)
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	return c.submit(ctx, body, contentType)
}

// Validate checks that m may be submitted.
func Validate(m types.Manifest) error {
	if m.Len() == 0 {
		return errors.ErrEmptySelection
	}
	if !m.HasMarkdown() {
		return errors.ErrNoMarkdownFiles
	}
	return nil
}

func (c *Client) submit(ctx context.Context, body *bytes.Buffer, contentType string) (*types.Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, body)
	if err != nil {
		return nil, errors.NewTransferError(errors.NetworkError, err.Error(), 0, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/pdf, application/json;q=0.9, */*;q=0.1")
	if id, ok := log.RequestID(ctx); ok {
		req.Header.Set("X-Request-Id", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()
	return interpret(resp, c.opts.DefaultName, c.opts.MaxArtifactBytes)
}

// interpret turns a response into an artifact or a RemoteError. An artifact
// larger than limit is a RemoteError rather than a truncated document.
func interpret(resp *http.Response, fallback string, limit int64) (*types.Artifact, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _, err := readBody(resp, maxErrorBody)
		if err != nil {
			return nil, networkError(err)
		}
		return nil, errors.NewTransferError(errors.RemoteError, remoteDetail(resp, data), resp.StatusCode, nil)
	}

	data, over, err := readBody(resp, limit)
	if err != nil {
		return nil, networkError(err)
	}
	if over {
		return nil, tooLarge(resp, limit)
	}
	return artifact.Resolve(resp, data, fallback), nil
}
