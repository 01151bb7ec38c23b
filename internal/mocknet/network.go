package mocknet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/nao1215/overlaysurvey/internal/node"
)

// ErrUnknownPath is returned for a request to a path the network has no
// response for.
var ErrUnknownPath = errors.New("mock network has no response for path")

// Request is one recorded call to the network.
type Request struct {
	Path  string
	Query url.Values
}

// Network is a scripted node.Transport.
//
// Fixed responses are served per path. Survey results are served from a
// queue: each /getsurveyresult request pops the next entry, and the last
// entry repeats once the queue is exhausted.
type Network struct {
	mu sync.Mutex

	responses map[string][]byte
	results   [][]byte
	next      int

	// failures maps a path to the error every request to it returns.
	failures map[string]error

	requests []Request
}

var _ node.Transport = (*Network)(nil)

// New creates a network that answers nothing.
func New() *Network {
	return &Network{
		responses: make(map[string][]byte),
		failures:  make(map[string]error),
	}
}

// Handle sets the raw body returned for path.
func (n *Network) Handle(path string, body []byte) *Network {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responses[path] = body
	return n
}

// HandleJSON sets the body returned for path to the JSON encoding of v.
func (n *Network) HandleJSON(path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode response for %s: %w", path, err)
	}
	n.Handle(path, body)
	return nil
}

// Fail makes every request to path return err.
func (n *Network) Fail(path string, err error) *Network {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures[path] = err
	return n
}

// QueueSurveyResult appends a raw /getsurveyresult body to the queue.
func (n *Network) QueueSurveyResult(body []byte) *Network {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, body)
	return n
}

// QueueSurveyResultJSON appends the JSON encoding of v to the queue.
func (n *Network) QueueSurveyResultJSON(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode survey result: %w", err)
	}
	n.QueueSurveyResult(body)
	return nil
}

// Get implements node.Transport.
func (n *Network) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.requests = append(n.requests, Request{Path: path, Query: cloneValues(query)})

	if err, ok := n.failures[path]; ok {
		return nil, err
	}

	if path == node.PathSurveyResult && len(n.results) > 0 {
		body := n.results[n.next]
		if n.next < len(n.results)-1 {
			n.next++
		}
		return body, nil
	}

	body, ok := n.responses[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	return body, nil
}

// Requests returns every request received so far, in order.
func (n *Network) Requests() []Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Request, len(n.requests))
	copy(out, n.requests)
	return out
}

// RequestsTo returns the recorded requests for path.
func (n *Network) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range n.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// SurveyedIDs returns the node ids of all /surveytopology requests in order.
func (n *Network) SurveyedIDs() []string {
	var ids []string
	for _, r := range n.RequestsTo(node.PathSurveyTopology) {
		ids = append(ids, r.Query.Get("node"))
	}
	return ids
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
