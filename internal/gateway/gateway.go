package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/switchboard-simulator/internal/exchange"
	"github.com/signalsfoundry/switchboard-simulator/internal/logging"
	"github.com/signalsfoundry/switchboard-simulator/model"
)

const tracerName = "github.com/signalsfoundry/switchboard-simulator/internal/gateway"

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Gateway is the wire front door for the presentation layer: a WebSocket
// carrying inbound operator actions and the outbound event stream, plus
// plain HTTP endpoints for the score and recent call history.
type Gateway struct {
	log     logging.Logger
	session *exchange.Session

	mu   sync.Mutex
	subs map[string]chan outbound
}

// New constructs a gateway. Bind must be called before serving.
func New(log logging.Logger) *Gateway {
	if log == nil {
		log = logging.Noop()
	}
	return &Gateway{
		log:  log,
		subs: make(map[string]chan outbound),
	}
}

// Bind attaches the session whose actions and events this gateway carries.
func (g *Gateway) Bind(session *exchange.Session) {
	g.session = session
}

// Routes registers the gateway's HTTP surface on the given mux.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", g.handleWS)
	mux.HandleFunc("/score", g.handleScore)
	mux.HandleFunc("/calls/recent", g.handleRecentCalls)
}

// inbound is an operator action sent by the presentation layer.
type inbound struct {
	Type    string `json:"type"`
	Console string `json:"console,omitempty"`
	End     string `json:"end,omitempty"`
	Line    string `json:"line,omitempty"`
}

// outbound is a core event forwarded to the presentation layer.
type outbound struct {
	Type      string              `json:"type"`
	Line      string              `json:"line,omitempty"`
	On        *bool               `json:"on,omitempty"`
	Speaker   string              `json:"speaker,omitempty"`
	Text      string              `json:"text,omitempty"`
	Console   string              `json:"console,omitempty"`
	End       string              `json:"end,omitempty"`
	Indicator string              `json:"indicator,omitempty"`
	Seconds   *int                `json:"seconds,omitempty"`
	Record    *model.CallRecord   `json:"record,omitempty"`
	Summary   *model.ScoreSummary `json:"summary,omitempty"`
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	if g.session == nil {
		http.Error(w, "no session bound", http.StatusServiceUnavailable)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	connID := uuid.NewString()
	log := g.log.With(logging.String("conn_id", connID))

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.Warn(ctx, "ws set read deadline failed", logging.String("error", err.Error()))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := g.subscribe(connID)
	defer g.unsubscribe(connID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	g.push(writeCh, outbound{Type: "subscribed"})
	log.Info(ctx, "operator connected")

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			log.Info(context.Background(), "operator disconnected")
			return
		}
		g.dispatch(ctx, writeCh, in)
	}
}

// dispatch routes one inbound action into the session, recording a span per
// action so operator behaviour shows up in traces.
func (g *Gateway) dispatch(ctx context.Context, writeCh chan outbound, in inbound) {
	action := strings.ToLower(strings.TrimSpace(in.Type))
	if action == "" {
		g.push(writeCh, outbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		return
	}

	tracer := otel.Tracer(tracerName)
	_, span := tracer.Start(ctx, "Gateway/"+action,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("console_id", in.Console),
			attribute.String("line", in.Line),
			attribute.String("end", in.End),
		),
	)
	defer span.End()

	switch action {
	case "ping":
		g.push(writeCh, outbound{Type: "pong"})
	case "grab":
		g.session.ConsoleGrab(in.Console, parseEnd(in.End))
	case "move":
		if in.Line == "" {
			g.session.ConsoleMove(in.Console, nil)
			return
		}
		id, err := model.ParseLineID(in.Line)
		if err != nil {
			g.push(writeCh, outbound{Type: "error", Code: "invalid_argument", Message: err.Error()})
			return
		}
		g.session.ConsoleMove(in.Console, &id)
	case "release":
		g.session.ConsoleRelease(in.Console)
	case "unplug":
		g.session.ConsoleUnplug(in.Console, parseEnd(in.End))
	case "ring":
		g.session.ConsoleRing(in.Console)
	case "toggle_monitor":
		g.session.ConsoleToggleMonitor(in.Console)
	default:
		g.push(writeCh, outbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + action})
	}
}

func parseEnd(s string) exchange.CableEndKind {
	if strings.EqualFold(strings.TrimSpace(s), "destination") {
		return exchange.DestinationEnd
	}
	return exchange.SourceEnd
}

func (g *Gateway) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if g.session == nil {
		http.Error(w, "no session bound", http.StatusServiceUnavailable)
		return
	}
	summary, ended := g.session.Summary()
	writeJSON(w, map[string]any{
		"ended":   ended,
		"summary": summary,
	})
}

func (g *Gateway) handleRecentCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if g.session == nil {
		http.Error(w, "no session bound", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{
		"calls": g.session.RecentCalls(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ---- subscriber plumbing ----

func (g *Gateway) subscribe(id string) chan outbound {
	ch := make(chan outbound, 64)
	g.mu.Lock()
	g.subs[id] = ch
	g.mu.Unlock()
	return ch
}

func (g *Gateway) unsubscribe(id string) {
	g.mu.Lock()
	delete(g.subs, id)
	g.mu.Unlock()
}

// broadcast fans an event out to every connected client without blocking
// the core: a slow consumer loses its oldest event instead of stalling the
// session.
func (g *Gateway) broadcast(out outbound) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ch := range g.subs {
		g.push(ch, out)
	}
}

func (g *Gateway) push(ch chan outbound, out outbound) {
	select {
	case ch <- out:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- out:
	default:
	}
}
