package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"money/internal/controller"
	"money/internal/core"
	"money/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady reports ready once the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{"templates": "ok"}

	if s.pinger == nil {
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.pinger.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{"entries": s.listCache.Size(), "status": "ok"}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients(), "status": "ok"}

	writeJSON(r.Context(), w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.ctrl.Stats()
	revision := s.ctrl.Revision()
	s.mu.Unlock()

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheStats := s.listCache.Stats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Total number of 5xx responses", traceMetrics.ServerErrors)
	metric("transactions_added_total", "counter", "Transactions added since start", atomic.LoadInt64(&s.appMetrics.transactionsAdded))
	metric("transactions_removed_total", "counter", "Transactions removed since start", atomic.LoadInt64(&s.appMetrics.transactionsRemoved))
	metric("ledger_transactions", "gauge", "Transactions in the ledger", stats.Count)
	metric("ledger_balance", "gauge", "Current balance", stats.Balance.String())
	metric("ledger_revision", "gauge", "Current ledger revision", revision)
	metric("cache_hits_total", "counter", "Total cache hits", cacheStats.Hits)
	metric("cache_misses_total", "counter", "Total cache misses", cacheStats.Misses)
	metric("cache_entries", "gauge", "Current cache entries", cacheStats.Size)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Total probe requests blocked", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctrl.View()
	list, err := s.transactionList(r.Context(), v)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	page, err := s.renderer.RenderPage(v, list)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	NewHTMXResponse().BodyHTML(page).Write(w)
}

func (s *Server) handleOpenModal(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(r.PathValue("kind"))
	if err != nil {
		BadRequestError("Invalid transaction type").Write(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ctrl.OpenModal(kind)
	s.writeModal(w, r, http.StatusOK, n)
}

func (s *Server) handleCancelModal(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ctrl.Cancel()
	s.writeModal(w, r, http.StatusOK, n)
}

// handleSubmit validates the modal form. Validation failures re-render
// the open modal with 422; success closes it and refreshes the balance
// and list out of band.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	form := controller.Form{Amount: p.Get("amount"), Description: p.Get("description")}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl.State() != controller.ModalOpen {
		n := s.ctrl.Submit(r.Context(), form)
		s.writeModal(w, r, http.StatusConflict, n)
		return
	}

	before := s.ctrl.Revision()
	n := s.ctrl.Submit(r.Context(), form)
	if s.ctrl.Revision() == before {
		s.writeModal(w, r, http.StatusUnprocessableEntity, n)
		return
	}
	s.countAdded()

	v := s.ctrl.View()
	modal, err := s.renderer.RenderModal(v)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	refresh, err := s.refresh(r.Context(), v)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	NewHTMXResponse().
		Notify(n, s.ctrl.Remaining(n)).
		TriggerLedgerChanged(v.Revision).
		BodyHTML(concat(modal, refresh)).
		Write(w)
}

// handleDelete removes a transaction once the client has confirmed the
// prompt. Unconfirmed requests change nothing and return 204.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		BadRequestError("Invalid transaction id").Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	confirmed := p.Bool("confirmed")

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.ctrl.Revision()
	n := s.ctrl.Delete(r.Context(), id, controller.ConfirmFunc(func(string) bool { return confirmed }))
	switch {
	case n.Empty():
		w.WriteHeader(http.StatusNoContent)
		return
	case s.ctrl.Revision() == before:
		NewHTMXResponse().Status(http.StatusNotFound).Notify(n, s.ctrl.Remaining(n)).Write(w)
		return
	}
	s.countRemoved()
	s.writeSection(w, r, n, true)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	f, err := core.ParseFilter(r.PathValue("filter"))
	if err != nil {
		BadRequestError("Invalid filter").Write(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ctrl.SetFilter(f)
	s.writeSection(w, r, n, false)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ctrl.ToggleTheme(r.Context())
	NewHTMXResponse().
		Notify(n, s.ctrl.Remaining(n)).
		TriggerThemeChanged(s.ctrl.Theme()).
		Write(w)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ctrl.Save(r.Context())
	status := http.StatusOK
	if n.Level == controller.LevelError {
		status = http.StatusInternalServerError
	}
	NewHTMXResponse().Status(status).Notify(n, s.ctrl.Remaining(n)).Write(w)
}

// handleLoad replaces the in-memory ledger with the stored one. On failure
// the current ledger stays and only the notification is sent.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ctrl.Load(r.Context())
	if n.Level == controller.LevelError {
		NewHTMXResponse().Status(http.StatusInternalServerError).Notify(n, s.ctrl.Remaining(n)).Write(w)
		return
	}
	s.writeSection(w, r, n, true)
}

func (s *Server) handleBalancePartial(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.renderer.RenderBalanceFragment(s.ctrl.View(), false)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	NewHTMXResponse().BodyHTML(out).Write(w)
}

// handleTransactionsPartial renders the list for ?filter= without
// changing the active filter. No filter means the active one.
func (s *Server) handleTransactionsPartial(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctrl.View()
	if q := r.URL.Query().Get("filter"); q != "" {
		f, err := core.ParseFilter(q)
		if err != nil {
			BadRequestError("Invalid filter").Write(w)
			return
		}
		v.Filter = f
	}
	list, err := s.transactionList(r.Context(), v)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	NewHTMXResponse().BodyHTML([]byte(list)).Write(w)
}

func (s *Server) handleNotificationPartial(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.renderer.RenderNotification(s.ctrl.View())
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	NewHTMXResponse().BodyHTML(out).Write(w)
}

type statsResponse struct {
	Balance          core.Money  `json:"balance"`
	TotalIncome      core.Money  `json:"totalIncome"`
	TotalExpenses    core.Money  `json:"totalExpenses"`
	TransactionCount int         `json:"transactionCount"`
	Currency         string      `json:"currency"`
	Theme            core.Theme  `json:"theme"`
	Filter           core.Filter `json:"filter"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.ctrl.Stats()
	resp := statsResponse{
		Balance:          st.Balance,
		TotalIncome:      st.TotalIncome,
		TotalExpenses:    st.TotalExpenses,
		TransactionCount: st.Count,
		Currency:         s.ctrl.Currency(),
		Theme:            s.ctrl.Theme(),
		Filter:           s.ctrl.Filter(),
	}
	s.mu.Unlock()

	writeJSON(r.Context(), w, http.StatusOK, resp)
}

// writeModal renders the modal container contents. Callers hold s.mu.
func (s *Server) writeModal(w http.ResponseWriter, r *http.Request, status int, n controller.Notification) {
	out, err := s.renderer.RenderModal(s.ctrl.View())
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	NewHTMXResponse().Status(status).Notify(n, s.ctrl.Remaining(n)).BodyHTML(out).Write(w)
}

// writeSection renders the transactions section as the main target, plus
// the balance out of band when withBalance is set. Callers hold s.mu.
func (s *Server) writeSection(w http.ResponseWriter, r *http.Request, n controller.Notification, withBalance bool) {
	v := s.ctrl.View()
	list, err := s.transactionList(r.Context(), v)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	section, err := s.renderer.RenderSection(v, list, false)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	b := NewHTMXResponse().Notify(n, s.ctrl.Remaining(n))
	if withBalance {
		balance, err := s.renderer.RenderBalanceFragment(v, true)
		if err != nil {
			s.renderFailed(w, r, err)
			return
		}
		section = concat(section, balance)
		b.TriggerLedgerChanged(v.Revision)
	}
	b.BodyHTML(section).Write(w)
}

// refresh renders the balance and section out of band. Callers hold s.mu.
func (s *Server) refresh(ctx context.Context, v controller.View) ([]byte, error) {
	list, err := s.transactionList(ctx, v)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderRefresh(v, list)
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender, nil)
	InternalServerError("Something went wrong, please reload the page").Write(w)
}
