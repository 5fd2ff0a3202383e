package httpapi

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/cybroplc/abus-gateway/pkg/config"
	"github.com/cybroplc/abus-gateway/pkg/rw"
)

// Metrics is the subset of *metrics.Registry this package reports into.
type Metrics interface {
	ReportSCGIRequest()
}

// Server is the gateway's single client-facing HTTP listener: SCGI-style
// reads/writes on "/", and a WebSocket upgrade on the same route for
// socket-event push. Grounded on
// original_source/.../scgi_server/local/input_output/scgi/scgi_server.py's
// ScgiServer, restructured around net/http the way the teacher's
// pkg/gateway/http/server.go wires its own ServeMux (kept: the single
// catch-all route and plain request/response shape for queries, the
// WebSocket route being the one handler that hijacks its connection; not kept: that
// file's log/slog logging, which breaks from the rest of the teacher's
// logrus convention used throughout pkg/push, pkg/socket and pkg/metrics).
type Server struct {
	log *log.Entry

	orchestrator          *rw.Orchestrator
	aliases               config.AliasConfig
	hub                   *Hub
	metrics               Metrics
	accessToken           string
	replyWithDescriptions bool

	mux *http.ServeMux
}

// NewServer builds a Server ready to Handler() into an http.Server.
func NewServer(orchestrator *rw.Orchestrator, aliases config.AliasConfig, hub *Hub, metrics Metrics, accessToken string, replyWithDescriptions bool) *Server {
	s := &Server{
		log:                   log.WithField("component", "httpapi"),
		orchestrator:          orchestrator,
		aliases:               aliases,
		hub:                   hub,
		metrics:               metrics,
		accessToken:           accessToken,
		replyWithDescriptions: replyWithDescriptions,
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/", s.handleRoot)
	return s
}

// Handler exposes the Server as an http.Handler, for embedding into an
// *http.Server (TLS or not) by the caller.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/favicon.ico" {
		http.NotFound(w, r)
		return
	}

	if isWebSocketUpgrade(r) {
		s.handleWebSocket(w, r)
		return
	}

	s.handleQuery(w, r)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.accessToken != "" && checkAuth(r, s.accessToken) != authOK {
		s.log.Error("unauthorized: access token mismatch")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.hub.Serve(w, r); err != nil {
		s.log.Debugf("websocket handshake failed: %v", err)
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	defer s.metrics.ReportSCGIRequest()

	if s.accessToken != "" {
		switch checkAuth(r, s.accessToken) {
		case authMismatch:
			s.log.Error("unauthorized: access token mismatch")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		case authMalformed:
			s.log.Debug("bad request: malformed Authorization header")
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}

	parsed := ParseQuery(r.URL.RawQuery, s.aliases)

	responses, err := s.orchestrator.Process(r.Context(), parsed.Reads, parsed.Writes, nil)
	if err != nil {
		s.log.Errorf("bad request: %v", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	rawAliasNames := make(map[string]bool, len(parsed.Errors))
	allResponses := make([]rw.Response, 0, len(responses)+len(parsed.Errors))
	allResponses = append(allResponses, responses...)
	for _, e := range parsed.Errors {
		if e.RawAlias {
			rawAliasNames[e.Response.Name] = true
		}
		allResponses = append(allResponses, e.Response)
	}

	xmlDoc, err := BuildXML(allResponses, rawAliasNames, s.aliases, s.replyWithDescriptions)
	if err != nil {
		s.log.Errorf("internal server error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Content-Type", "text/xml")
	header.Set("Connection", "close")
	w.Write(xmlDoc)
}

// ListenAndServe starts the HTTP listener, blocking until ctx is canceled
// or the listener fails. TLS, when enabled, is the caller's concern: pass
// an *http.Server already configured with TLSConfig and call ListenAndServeTLS
// directly against s.Handler() instead.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
