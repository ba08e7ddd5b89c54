// Package server implements a reference metering service: the verifying
// counterpart of the client package. It keeps balances in memory, which is
// enough to pin the protocol contract and back integration tests; durable
// storage is a deployment concern.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/get402/get402-go/address"
	"github.com/get402/get402-go/api"
	"github.com/get402/get402-go/auth"
)

// nonceCacheSize bounds the replay cache. An envelope nonce older than the
// cache window could in principle be replayed; servers wanting a hard
// guarantee persist nonces instead.
const nonceCacheSize = 8192

// Option is an option configuring the server.
type Option func(cfg *srvConfig) error

type srvConfig struct {
	domain         string
	network        string
	payoutScript   string
	pricePerCredit uint64
	paymentURL     string
	logger         *slog.Logger
}

// WithDomain configures the domain envelopes must be bound to.
func WithDomain(domain string) Option {
	return func(cfg *srvConfig) error {
		cfg.domain = domain
		return nil
	}
}

// WithNetwork configures the network tag placed in payment instructions.
func WithNetwork(network string) Option {
	return func(cfg *srvConfig) error {
		cfg.network = network
		return nil
	}
}

// WithPayoutScript configures the on-chain script payments are directed to.
func WithPayoutScript(script string) Option {
	return func(cfg *srvConfig) error {
		cfg.payoutScript = script
		return nil
	}
}

// WithPricePerCredit configures the quoted amount, in the smallest currency
// unit, for one credit.
func WithPricePerCredit(price uint64) Option {
	return func(cfg *srvConfig) error {
		if price == 0 {
			return fmt.Errorf("price per credit must be positive")
		}
		cfg.pricePerCredit = price
		return nil
	}
}

// WithPaymentURL configures the absolute payment submission endpoint placed
// in payment instructions. When unset the URL is derived from the incoming
// request host.
func WithPaymentURL(u string) Option {
	return func(cfg *srvConfig) error {
		cfg.paymentURL = u
		return nil
	}
}

// WithLogger configures the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *srvConfig) error {
		cfg.logger = l
		return nil
	}
}

// Server is an in-memory metering service.
type Server struct {
	ledger *Ledger
	nonces *lru.Cache[string, struct{}]
	router chi.Router
	log    *slog.Logger
	srvConfig
}

func New(options ...Option) (*Server, error) {
	cfg := srvConfig{
		domain:         auth.DefaultDomain,
		network:        "bitcoin",
		pricePerCredit: 100,
	}
	for _, opt := range options {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	nonces, err := lru.New[string, struct{}](nonceCacheSize)
	if err != nil {
		return nil, err
	}

	s := &Server{
		ledger:    NewLedger(),
		nonces:    nonces,
		log:       cfg.logger,
		srvConfig: cfg,
	}

	r := chi.NewRouter()
	r.Get("/apps/{app}/clients/{client}", s.handleBalance)
	r.Get("/apps/{app}/clients/{client}/buy-credits/{credits}", s.handleBuyCredits)
	r.Post("/apps/{app}/clients/{client}/calls", s.handleCharge)
	r.Post("/payments", s.handlePayment)
	s.router = r

	return s, nil
}

// Ledger exposes the balance store, mainly so tests and demos can seed it.
func (s *Server) Ledger() *Ledger {
	return s.ledger
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	app := address.Address(chi.URLParam(r, "app"))
	client := address.Address(chi.URLParam(r, "client"))
	writeJSON(w, http.StatusOK, api.BalanceResponse{
		AppID:    app.String(),
		ClientID: client.String(),
		Balance:  s.ledger.Balance(app, client),
	})
}

func (s *Server) handleBuyCredits(w http.ResponseWriter, r *http.Request) {
	app := address.Address(chi.URLParam(r, "app"))
	client := address.Address(chi.URLParam(r, "client"))
	credits, err := strconv.ParseUint(chi.URLParam(r, "credits"), 10, 64)
	if err != nil || credits == 0 || credits > s.maxQuotable() {
		http.Error(w, "invalid credit quantity", http.StatusBadRequest)
		return
	}
	s.log.Info("quoting credit purchase", "app", app, "client", client, "credits", credits)
	writeJSON(w, http.StatusOK, s.paymentRequired(r, app, client, credits))
}

func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	app := address.Address(chi.URLParam(r, "app"))
	client := address.Address(chi.URLParam(r, "client"))

	if err := s.authorize(r, client); err != nil {
		s.log.Warn("rejecting charge", "app", app, "client", client, "cause", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var usage map[string]uint64
	if err := json.NewDecoder(r.Body).Decode(&usage); err != nil {
		http.Error(w, "invalid usage body", http.StatusBadRequest)
		return
	}
	var total uint64
	for _, quantity := range usage {
		if total+quantity < total {
			http.Error(w, "usage total overflows", http.StatusBadRequest)
			return
		}
		total += quantity
	}
	// a shortfall quote for this total must not wrap either
	if total > s.maxQuotable() {
		http.Error(w, "usage total exceeds quotable credits", http.StatusBadRequest)
		return
	}

	balance, shortfall := s.ledger.Charge(app, client, total)
	if shortfall > 0 {
		s.log.Info("charge declined", "app", app, "client", client, "credits", total, "shortfall", shortfall)
		writeJSON(w, http.StatusPaymentRequired, s.paymentRequired(r, app, client, shortfall))
		return
	}

	s.log.Info("charge accepted", "app", app, "client", client, "credits", total, "balance", balance)
	writeJSON(w, http.StatusOK, api.ChargeReceipt{
		AppID:    app.String(),
		ClientID: client.String(),
		Balance:  balance,
	})
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	var payment api.Payment
	if err := json.NewDecoder(r.Body).Decode(&payment); err != nil {
		http.Error(w, "invalid payment body", http.StatusBadRequest)
		return
	}
	if payment.RawTx == "" || payment.Credits == 0 {
		http.Error(w, "missing transaction or credit quantity", http.StatusBadRequest)
		return
	}
	app := address.Address(payment.AppID)
	client := address.Address(payment.ClientID)
	balance := s.ledger.Credit(app, client, payment.Credits)
	s.log.Info("payment accepted", "app", app, "client", client, "credits", payment.Credits, "balance", balance)
	writeJSON(w, http.StatusOK, api.BalanceResponse{
		AppID:    payment.AppID,
		ClientID: payment.ClientID,
		Balance:  balance,
	})
}

// authorize validates the envelope on an authenticated request: all three
// headers present, domain bound to this service, nonce never seen before,
// and a signature that recovers to the identifier the request claims to act
// as.
func (s *Server) authorize(r *http.Request, client address.Address) error {
	env, err := auth.FromHeader(r.Header)
	if err != nil {
		return err
	}
	msg, err := env.ParseMessage()
	if err != nil {
		return err
	}
	if msg.Domain != s.domain {
		return fmt.Errorf("envelope bound to foreign domain %q", msg.Domain)
	}
	if msg.Nonce == "" {
		return fmt.Errorf("envelope carries no nonce")
	}
	if err := auth.Verify(env); err != nil {
		return err
	}
	if env.Identifier != client {
		return fmt.Errorf("envelope identifier %s does not match client %s", env.Identifier, client)
	}
	// record the nonce only once the envelope proved authentic, so garbage
	// requests cannot burn a nonce a legitimate envelope still carries
	if seen, _ := s.nonces.ContainsOrAdd(msg.Nonce, struct{}{}); seen {
		return fmt.Errorf("nonce replayed")
	}
	return nil
}

// maxQuotable is the largest credit quantity whose quoted amount fits in a
// uint64. pricePerCredit is always positive.
func (s *Server) maxQuotable() uint64 {
	return math.MaxUint64 / s.pricePerCredit
}

func (s *Server) paymentRequired(r *http.Request, app, client address.Address, credits uint64) api.PaymentRequired {
	paymentURL := s.paymentURL
	if paymentURL == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		paymentURL = fmt.Sprintf("%s://%s/payments", scheme, r.Host)
	}
	return api.PaymentRequired{
		Outputs: []api.Output{
			{Script: s.payoutScript, Amount: credits * s.pricePerCredit},
		},
		Network:    s.network,
		Memo:       fmt.Sprintf("%d credits for client %s of app %s", credits, client, app),
		PaymentURL: paymentURL,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
