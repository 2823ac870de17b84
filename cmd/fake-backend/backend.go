// ABOUTME: Request handling and canned agent behavior for the fake backend.
// ABOUTME: Keyword intent detection, substring listing search, per-client histories.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/nimesha-dev/vmarket/internal/protocol"
	"github.com/nimesha-dev/vmarket/internal/query"
)

const welcomeText = "Connected to Vehicle Market Price Agent. Ask me about vehicle prices in Sri Lanka!"

// backend holds the canned inventory and per-client conversation histories.
type backend struct {
	logger     *slog.Logger
	thinkDelay time.Duration
	listings   []protocol.VehicleListing

	mu        sync.Mutex
	histories map[string][]protocol.HistoryEntry
}

func newBackend(logger *slog.Logger, thinkDelay time.Duration) *backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &backend{
		logger:     logger,
		thinkDelay: thinkDelay,
		listings:   cannedListings(),
		histories:  make(map[string][]protocol.HistoryEntry),
	}
}

// outboundFrame is the server-side frame shape; zero-value fields are
// omitted so typing frames stay minimal.
type outboundFrame struct {
	Type       string                    `json:"type"`
	Message    string                    `json:"message,omitempty"`
	Vehicles   []protocol.VehicleListing `json:"vehicles,omitempty"`
	Comparison *protocol.Comparison      `json:"comparison,omitempty"`
	Intent     string                    `json:"intent,omitempty"`
}

func (b *backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, query.Health{
		Status:  "healthy",
		Message: "Vehicle Market Price Agent API is running",
	})
}

func (b *backend) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	reply := b.reply(req.Query)
	writeJSON(w, http.StatusOK, query.Result{
		Response:   reply.text,
		Vehicles:   reply.vehicles,
		Comparison: protocol.Comparison{Summary: reply.comparison},
		Intent:     reply.intent,
	})
}

func (b *backend) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	b.logger.Info("client connected", "client_id", clientID, "remote", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		b.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "session ended")

	ctx := r.Context()

	if err := b.writeFrame(ctx, ws, outboundFrame{Type: "system", Message: welcomeText}); err != nil {
		return
	}

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			b.logger.Info("client disconnected", "client_id", clientID)
			return
		}

		var inbound struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &inbound); err != nil {
			continue
		}
		userQuery := strings.TrimSpace(inbound.Message)
		if userQuery == "" {
			continue
		}

		if err := b.writeFrame(ctx, ws, outboundFrame{Type: "typing", Message: "Agent is thinking..."}); err != nil {
			return
		}
		if b.thinkDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.thinkDelay):
			}
		}

		// "!fail" simulates an upstream data-source failure.
		if strings.Contains(userQuery, "!fail") {
			frame := outboundFrame{
				Type:    "error",
				Message: "Error processing query: upstream data source unavailable",
			}
			if err := b.writeFrame(ctx, ws, frame); err != nil {
				return
			}
			continue
		}

		reply := b.reply(userQuery)
		b.appendHistory(clientID, userQuery, reply.text)

		frame := outboundFrame{
			Type:     "response",
			Message:  reply.text,
			Vehicles: reply.vehicles,
			Intent:   reply.intent,
		}
		if len(reply.comparison) > 0 {
			frame.Comparison = &protocol.Comparison{Summary: reply.comparison}
		}
		if err := b.writeFrame(ctx, ws, frame); err != nil {
			return
		}
	}
}

func (b *backend) writeFrame(ctx context.Context, ws *websocket.Conn, frame outboundFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		b.logger.Debug("websocket write failed", "error", err)
		return err
	}
	return nil
}

func (b *backend) appendHistory(clientID, userQuery, response string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.histories[clientID] = append(b.histories[clientID],
		protocol.HistoryEntry{Role: "user", Content: userQuery},
		protocol.HistoryEntry{Role: "assistant", Content: response},
	)
}

// agentReply is one computed answer.
type agentReply struct {
	text       string
	vehicles   []protocol.VehicleListing
	comparison map[string]protocol.ModelStats
	intent     string
}

// reply runs the canned stand-in for the real agent pipeline.
func (b *backend) reply(userQuery string) agentReply {
	q := strings.ToLower(userQuery)

	switch {
	case containsAny(q, "compare", " vs ", "versus", "difference between", "which is better"):
		return b.compareReply(q)
	case containsAny(q, "price", "cost", "how much"):
		return b.searchReply(q, "price_check")
	default:
		return b.searchReply(q, "general")
	}
}

func (b *backend) searchReply(q, intent string) agentReply {
	matches := b.search(q)
	if len(matches) == 0 {
		return agentReply{
			text:   "I couldn't find any matching listings right now. Try a model name like \"Toyota Aqua\" or \"Honda Fit\".",
			intent: intent,
		}
	}
	return agentReply{
		text:     fmt.Sprintf("Found %d listings matching your query.", len(matches)),
		vehicles: matches,
		intent:   intent,
	}
}

func (b *backend) compareReply(q string) agentReply {
	summary := make(map[string]protocol.ModelStats)
	for _, model := range []string{"Toyota Aqua", "Honda Fit", "Suzuki Wagon R", "Toyota Prius", "Honda Vezel"} {
		if !strings.Contains(q, strings.ToLower(model)) {
			continue
		}
		matches := b.searchModel(strings.ToLower(model))
		if len(matches) == 0 {
			continue
		}
		summary[model] = stats(matches)
	}

	if len(summary) < 2 {
		return agentReply{
			text:   "Tell me which two models to compare, e.g. \"compare Toyota Aqua vs Honda Fit\".",
			intent: "comparison",
		}
	}
	return agentReply{
		text:       fmt.Sprintf("Price comparison across %d models:", len(summary)),
		comparison: summary,
		intent:     "comparison",
	}
}

// searchModel matches the whole model phrase so "toyota aqua" does not pick
// up every Toyota.
func (b *backend) searchModel(model string) []protocol.VehicleListing {
	var matches []protocol.VehicleListing
	for _, l := range b.listings {
		if strings.Contains(strings.ToLower(l.Title), model) {
			matches = append(matches, l)
		}
	}
	return matches
}

// search matches query words against listing titles.
func (b *backend) search(q string) []protocol.VehicleListing {
	var matches []protocol.VehicleListing
	for _, l := range b.listings {
		title := strings.ToLower(l.Title)
		matched := false
		for _, word := range strings.Fields(q) {
			if len(word) >= 3 && strings.Contains(title, word) {
				matched = true
				break
			}
		}
		if matched {
			matches = append(matches, l)
		}
		if len(matches) == 5 {
			break
		}
	}
	return matches
}

func stats(listings []protocol.VehicleListing) protocol.ModelStats {
	s := protocol.ModelStats{Count: len(listings)}
	sources := make(map[string]struct{})
	for i, l := range listings {
		if i == 0 || l.Price < s.MinPrice {
			s.MinPrice = l.Price
		}
		if l.Price > s.MaxPrice {
			s.MaxPrice = l.Price
		}
		s.AvgPrice += l.Price
		sources[l.Source] = struct{}{}
	}
	s.AvgPrice /= float64(len(listings))
	for src := range sources {
		s.Sources = append(s.Sources, src)
	}
	return s
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cannedListings() []protocol.VehicleListing {
	return []protocol.VehicleListing{
		{Title: "Toyota Aqua S Grade 2017", Price: 9_850_000, Year: 2017, Make: "Toyota", Model: "Aqua", Mileage: "78,000 km", Location: "Colombo", Source: "Ikman", URL: "https://ikman.example/aqua-2017"},
		{Title: "Toyota Aqua G 2015", Price: 8_400_000, Year: 2015, Make: "Toyota", Model: "Aqua", Mileage: "103,000 km", Location: "Gampaha", Source: "PatPat", URL: "https://patpat.example/aqua-2015"},
		{Title: "Honda Fit GP5 2015", Price: 9_200_000, Year: 2015, Make: "Honda", Model: "Fit", Mileage: "95,000 km", Location: "Kandy", Source: "Riyasewana", URL: "https://riyasewana.example/fit-gp5"},
		{Title: "Honda Fit GP1 2012", Price: 7_100_000, Year: 2012, Make: "Honda", Model: "Fit", Mileage: "128,000 km", Location: "Kurunegala", Source: "Ikman"},
		{Title: "Suzuki Wagon R FX 2018", Price: 6_950_000, Year: 2018, Make: "Suzuki", Model: "Wagon R", Mileage: "54,000 km", Location: "Colombo", Source: "PatPat"},
		{Title: "Toyota Prius 3rd Gen 2016", Price: 12_500_000, Year: 2016, Make: "Toyota", Model: "Prius", Mileage: "88,000 km", Location: "Negombo", Source: "Ikman"},
		{Title: "Honda Vezel Z Grade 2016", Price: 13_900_000, Year: 2016, Make: "Honda", Model: "Vezel", Mileage: "71,000 km", Location: "Colombo", Source: "Riyasewana"},
		{Title: "Suzuki Alto LXI 2019", Price: 4_850_000, Year: 2019, Make: "Suzuki", Model: "Alto", Mileage: "39,000 km", Location: "Matara", Source: "Ikman"},
	}
}
