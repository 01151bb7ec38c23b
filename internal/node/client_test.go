package node

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/nao1215/overlaysurvey/internal/model"
)

// stubTransport answers each path with a fixed body and records queries.
type stubTransport struct {
	bodies  map[string]string
	err     error
	queries map[string]url.Values
}

func (s *stubTransport) Get(_ context.Context, path string, query url.Values) ([]byte, error) {
	if s.queries == nil {
		s.queries = make(map[string]url.Values)
	}
	s.queries[path] = query
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.bodies[path]), nil
}

// TestClientIdentity tests reading the self id and version.
func TestClientIdentity(t *testing.T) {
	t.Parallel()

	t.Run("reads id and build", func(t *testing.T) {
		t.Parallel()

		st := &stubTransport{bodies: map[string]string{
			PathSCP:  `{"you":"GSELF","scp":{}}`,
			PathInfo: `{"info":{"build":"stellar-core 20.1.0","state":"Synced!"}}`,
		}}
		id, version, err := NewClient(st).Identity(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "GSELF" || version != "stellar-core 20.1.0" {
			t.Errorf("Identity() = %q, %q", id, version)
		}
		if q := st.queries[PathSCP]; q.Get("limit") != "0" || q.Get("fullkeys") != "true" {
			t.Errorf("unexpected /scp query %v", q)
		}
	})

	t.Run("empty build is accepted", func(t *testing.T) {
		t.Parallel()

		bodies := map[string]string{PathSCP: `{"you":"GSELF"}`, PathInfo: `{"info":{"build":""}}`}
		id, version, err := NewClient(&stubTransport{bodies: bodies}).Identity(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "GSELF" || version != "" {
			t.Errorf("Identity() = %q, %q", id, version)
		}
	})

	tests := []struct {
		name   string
		bodies map[string]string
	}{
		{name: "missing you", bodies: map[string]string{PathSCP: `{}`, PathInfo: `{"info":{"build":"v"}}`}},
		{name: "missing info", bodies: map[string]string{PathSCP: `{"you":"G"}`, PathInfo: `{}`}},
		{name: "missing build", bodies: map[string]string{PathSCP: `{"you":"G"}`, PathInfo: `{"info":{}}`}},
		{name: "null build", bodies: map[string]string{PathSCP: `{"you":"G"}`, PathInfo: `{"info":{"build":null}}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := NewClient(&stubTransport{bodies: tt.bodies}).Identity(context.Background())
			if !errors.Is(err, model.ErrProtocol) {
				t.Errorf("expected protocol error, got %v", err)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		_, _, err := NewClient(&stubTransport{bodies: map[string]string{PathSCP: `<html>`}}).Identity(context.Background())
		if err == nil {
			t.Fatal("expected decode error")
		}
		if errors.Is(err, model.ErrProtocol) {
			t.Error("decode failure should not be a protocol error")
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("connection refused")
		_, _, err := NewClient(&stubTransport{err: boom}).Identity(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped transport error, got %v", err)
		}
	})
}

// TestClientPeers tests the authenticated peer listing.
func TestClientPeers(t *testing.T) {
	t.Parallel()

	t.Run("null lists are empty", func(t *testing.T) {
		t.Parallel()

		st := &stubTransport{bodies: map[string]string{
			PathPeers: `{"authenticated_peers":{"inbound":null,"outbound":[{"id":"GB"}]}}`,
		}}
		peers, err := NewClient(st).Peers(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(peers.Inbound) != 0 || len(peers.Outbound) != 1 || peers.Outbound[0].ID != "GB" {
			t.Errorf("unexpected peers %+v", peers)
		}
		if st.queries[PathPeers].Get("fullkeys") != "true" {
			t.Error("expected fullkeys=true")
		}
	})

	t.Run("missing authenticated_peers", func(t *testing.T) {
		t.Parallel()

		st := &stubTransport{bodies: map[string]string{PathPeers: `{"pending_peers":{}}`}}
		_, err := NewClient(st).Peers(context.Background())

		var perr *model.ProtocolError
		if !errors.As(err, &perr) {
			t.Fatalf("expected ProtocolError, got %v", err)
		}
		if perr.Endpoint != PathPeers {
			t.Errorf("Endpoint = %q", perr.Endpoint)
		}
	})
}

// TestClientSurvey tests the survey request, result and stop calls.
func TestClientSurvey(t *testing.T) {
	t.Parallel()

	t.Run("survey topology ignores body", func(t *testing.T) {
		t.Parallel()

		st := &stubTransport{bodies: map[string]string{PathSurveyTopology: `not json`}}
		if err := NewClient(st).SurveyTopology(context.Background(), "GX", 25); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		q := st.queries[PathSurveyTopology]
		if q.Get("node") != "GX" || q.Get("duration") != "25" {
			t.Errorf("unexpected query %v", q)
		}
	})

	t.Run("stop survey ignores body", func(t *testing.T) {
		t.Parallel()

		if err := NewClient(&stubTransport{}).StopSurvey(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("survey topology transport failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("reset")
		err := NewClient(&stubTransport{err: boom}).SurveyTopology(context.Background(), "GX", 1)
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})

	t.Run("survey result decodes", func(t *testing.T) {
		t.Parallel()

		st := &stubTransport{bodies: map[string]string{
			PathSurveyResult: `{"surveyInProgress":false,"topology":{"GA":null}}`,
		}}
		res, err := NewClient(st).SurveyResult(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Done() {
			t.Error("expected survey to be done")
		}
		if _, ok := res.Topology["GA"]; !ok {
			t.Error("expected GA entry")
		}
	})

	t.Run("survey result malformed", func(t *testing.T) {
		t.Parallel()

		st := &stubTransport{bodies: map[string]string{PathSurveyResult: `{"topology":`}}
		if _, err := NewClient(st).SurveyResult(context.Background()); err == nil {
			t.Error("expected decode error")
		}
	})
}
