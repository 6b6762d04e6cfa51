// Package payload implements the lazy, single-parse, single-serialize body
// abstraction described for one HTTP message side. A Payload is created once
// per Message Context and discarded with it; no transform may retain a
// reference to its contents past its own Apply call.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrPayloadAccessViolation is returned when a transform misuses the payload:
// calling GetJson on a non-JSON body, GetBuffer on a streaming body, or
// GetPipeReader where no reader exists.
var ErrPayloadAccessViolation = errors.New("payload: access violation")

type state int32

const (
	stateUnread state = iota
	stateBufferedOnly
	stateParsed
	stateDirtyJSON
	stateDirtyBuffer
	stateReplacedStream
)

type parseState int32

const (
	parseUnstarted parseState = iota
	parseInProgress
	parseDone
)

// jsonPrefixes and streamingPrefixes classify a content type. Matching is
// case-insensitive and ignores any parameters (e.g. "; charset=utf-8").
var jsonPrefixes = []string{
	"application/json",
	"application/graphql",
	"application/ndjson",
}

var streamingPrefixes = []string{
	"application/octet-stream",
	"multipart/",
	"application/grpc",
	"application/protobuf",
	"application/vnd.google.protobuf",
}

// Payload is the shared, mutable body of one Message Context. It is safe for
// concurrent first-parse (see ensureParsed) but JSON mutation through
// SetJson is only legal from one transform at a time; the executor's
// sequential mode is what actually guarantees that in practice.
type Payload struct {
	contentType string
	isJSON      bool
	isStreaming bool
	hasBody     bool

	mu      sync.Mutex
	reader  io.ReadCloser
	buffer  []byte
	drained bool
	state   state

	parseState int32
	jsonTree   any
	parseErr   error

	replacedStream io.ReadCloser
}

// NewFromReader builds a Payload over the host's incoming byte stream. The
// body is drained lazily on first access.
func NewFromReader(contentType string, r io.ReadCloser) *Payload {
	p := newPayload(contentType)
	p.hasBody = r != nil
	p.reader = r
	return p
}

// NewFromBuffer builds a Payload over bytes the host already read in full
// (e.g. a captured response body).
func NewFromBuffer(contentType string, b []byte) *Payload {
	p := newPayload(contentType)
	p.hasBody = len(b) > 0
	p.buffer = b
	p.drained = true
	if p.hasBody {
		p.state = stateBufferedOnly
	}
	return p
}

func newPayload(contentType string) *Payload {
	base, _, _ := mime.ParseMediaType(contentType)
	if base == "" {
		base = strings.ToLower(strings.TrimSpace(contentType))
		if idx := strings.IndexByte(base, ';'); idx >= 0 {
			base = strings.TrimSpace(base[:idx])
		}
	}
	return &Payload{
		contentType: contentType,
		isJSON:      hasAnyPrefix(base, jsonPrefixes),
		isStreaming: hasAnyPrefix(base, streamingPrefixes),
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// HasBody reports whether the message carries a body at all.
func (p *Payload) HasBody() bool { return p.hasBody }

// IsJson reports whether the content type classifies as JSON.
func (p *Payload) IsJson() bool { return p.isJSON }

// IsStreaming reports whether the content type classifies as streaming.
func (p *Payload) IsStreaming() bool { return p.isStreaming }

// ContentType returns the original, unclassified content type header value.
func (p *Payload) ContentType() string { return p.contentType }

// GetJson returns the single cached parse result, parsing on first call.
func (p *Payload) GetJson() (any, error) {
	if !p.isJSON {
		return nil, fmt.Errorf("%w: GetJson called on non-JSON payload (content-type=%q)", ErrPayloadAccessViolation, p.contentType)
	}
	p.ensureParsed()
	return p.jsonTree, p.parseErr
}

// GetBuffer returns the raw bytes, buffering through the pipe on first call.
func (p *Payload) GetBuffer() ([]byte, error) {
	if p.isStreaming {
		return nil, fmt.Errorf("%w: GetBuffer called on streaming payload (content-type=%q)", ErrPayloadAccessViolation, p.contentType)
	}
	if err := p.drain(); err != nil {
		return nil, err
	}
	return p.buffer, nil
}

// SetJson replaces the cached tree, clears cached bytes, and marks the
// payload JSON-dirty so Flush re-serializes it.
func (p *Payload) SetJson(node any) error {
	if !p.isJSON {
		return fmt.Errorf("%w: SetJson called on non-JSON payload (content-type=%q)", ErrPayloadAccessViolation, p.contentType)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jsonTree = node
	p.parseErr = nil
	atomic.StoreInt32(&p.parseState, int32(parseDone))
	p.buffer = nil
	p.state = stateDirtyJSON
	return nil
}

// SetBuffer replaces the bytes, clears the cached tree, and marks the
// payload buffer-dirty. A later GetJson on the same instance reparses the
// new bytes rather than returning a stale tree.
func (p *Payload) SetBuffer(b []byte) error {
	if p.isStreaming {
		return fmt.Errorf("%w: SetBuffer called on streaming payload (content-type=%q)", ErrPayloadAccessViolation, p.contentType)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer = b
	p.drained = true
	p.jsonTree = nil
	p.parseErr = nil
	atomic.StoreInt32(&p.parseState, int32(parseUnstarted))
	p.state = stateDirtyBuffer
	return nil
}

// GetPipeReader returns the underlying reader; it is the only body-access
// method a streaming transform may call.
func (p *Payload) GetPipeReader() (io.Reader, error) {
	if !p.isStreaming {
		return nil, fmt.Errorf("%w: GetPipeReader called on buffered payload (content-type=%q)", ErrPayloadAccessViolation, p.contentType)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.replacedStream != nil {
		return p.replacedStream, nil
	}
	if p.reader == nil {
		return nil, fmt.Errorf("%w: no reader available on this payload", ErrPayloadAccessViolation)
	}
	return p.reader, nil
}

// ReplaceStream substitutes an alternative stream to be flushed at exit.
func (p *Payload) ReplaceStream(stream io.ReadCloser) error {
	if !p.isStreaming {
		return fmt.Errorf("%w: ReplaceStream called on buffered payload (content-type=%q)", ErrPayloadAccessViolation, p.contentType)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replacedStream = stream
	p.state = stateReplacedStream
	return nil
}

// Flush renders the payload to wire bytes. It is called exactly once, by
// the host, after every transform in the side's entry list has run.
// Priority: replaced stream > dirty JSON (re-serialized) > dirty buffer >
// cached buffer > drain-once. A clean, unparsed body is never re-serialized.
func (p *Payload) Flush() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.replacedStream != nil {
		b, err := io.ReadAll(p.replacedStream)
		p.replacedStream.Close()
		return b, err
	}

	if p.state == stateDirtyJSON {
		b, err := json.Marshal(p.jsonTree)
		if err != nil {
			return nil, fmt.Errorf("payload: failed to serialize JSON tree: %w", err)
		}
		return b, nil
	}

	if p.state == stateDirtyBuffer {
		return p.buffer, nil
	}

	if p.drained {
		return p.buffer, nil
	}

	if err := p.drainLocked(); err != nil {
		return nil, err
	}
	return p.buffer, nil
}

// FlushStream is the streaming-side equivalent of Flush: it returns the
// stream the host should copy to the wire (the replacement if one was set,
// otherwise the original reader passed through untouched).
func (p *Payload) FlushStream() (io.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.replacedStream != nil {
		return p.replacedStream, nil
	}
	if p.reader != nil {
		return p.reader, nil
	}
	return bytes.NewReader(nil), nil
}

func (p *Payload) drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drainLocked()
}

func (p *Payload) drainLocked() error {
	if p.drained {
		return nil
	}
	if p.reader == nil {
		p.drained = true
		return nil
	}
	b, err := io.ReadAll(p.reader)
	p.reader.Close()
	if err != nil {
		return fmt.Errorf("payload: failed to drain body: %w", err)
	}
	p.buffer = b
	p.drained = true
	if p.state == stateUnread {
		p.state = stateBufferedOnly
	}
	return nil
}

// ensureParsed implements the lock-free first-parse race described in the
// design: an atomic state word with Unstarted/InProgress/Done values. The
// first caller to observe Unstarted transitions to InProgress, parses, and
// publishes the result before moving to Done; every other caller
// cooperatively yields until Done is visible. In the dominant sequential
// pipeline configuration this reduces to a single uncontended load.
func (p *Payload) ensureParsed() {
	for {
		switch parseState(atomic.LoadInt32(&p.parseState)) {
		case parseDone:
			return
		case parseUnstarted:
			if atomic.CompareAndSwapInt32(&p.parseState, int32(parseUnstarted), int32(parseInProgress)) {
				p.doParse()
				atomic.StoreInt32(&p.parseState, int32(parseDone))
				return
			}
		default:
			runtime.Gosched()
		}
	}
}

func (p *Payload) doParse() {
	b, err := p.GetBuffer()
	if err != nil {
		p.parseErr = err
		return
	}
	if len(b) == 0 {
		p.jsonTree = nil
		return
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		p.parseErr = fmt.Errorf("payload: failed to parse JSON body: %w", err)
		return
	}
	p.mu.Lock()
	p.jsonTree = tree
	if p.state == stateUnread || p.state == stateBufferedOnly {
		p.state = stateParsed
	}
	p.mu.Unlock()
}
