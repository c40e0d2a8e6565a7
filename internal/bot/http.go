package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookPath is where Telegram delivers updates in webhook mode
const WebhookPath = "/telegram-webhook"

// HTTPServer serves the health endpoints and, in webhook mode, Telegram updates
type HTTPServer struct {
	bot         *Bot
	webhookMode bool

	// ctx bounds the handling of webhook updates, which outlives the HTTP request
	ctx context.Context
	wg  sync.WaitGroup
}

// NewHTTPServer creates the HTTP handlers for the bot
func NewHTTPServer(ctx context.Context, bot *Bot, webhookMode bool) *HTTPServer {
	return &HTTPServer{
		bot:         bot,
		webhookMode: webhookMode,
		ctx:         ctx,
	}
}

// RegisterRoutes registers the bot routes on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/", hs.handleRoot)
	if hs.webhookMode {
		mux.HandleFunc(WebhookPath, hs.handleWebhook)
	}
}

// Wait blocks until every webhook update in flight has been handled
func (hs *HTTPServer) Wait() {
	hs.wg.Wait()
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (hs *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	mode := "polling"
	if hs.webhookMode {
		mode = "webhook"
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Price bot is running (mode: %s, pending questions: %d)", mode, hs.bot.Pending())
}

func (hs *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		hs.bot.logger.Warn("Error decoding webhook update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Process update in background to respond quickly to Telegram
	hs.wg.Add(1)
	go func() {
		defer hs.wg.Done()
		hs.bot.HandleUpdate(hs.ctx, update)
	}()

	w.WriteHeader(http.StatusOK)
}
