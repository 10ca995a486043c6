package main

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/listprice/internal/calculator"
	"github.com/Simplici0/listprice/internal/pricing"
	"github.com/Simplici0/listprice/internal/setup"
)

type quickEstimateResponse struct {
	ListingPrice   string `json:"listingPrice"`
	ProcessingFee  string `json:"processingFee"`
	TransactionFee string `json:"transactionFee"`
	Fees           string `json:"fees"`
	QCReturn       string `json:"qcReturn"`
}

type saveResponse struct {
	Key     string          `json:"key"`
	Name    string          `json:"name"`
	Updated bool            `json:"updated"`
	Session calculator.View `json:"session"`
}

type setupListItem struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	TimeStamp int64  `json:"timeStamp"`
	SavedAt   string `json:"savedAt"`
	Age       string `json:"age"`
}

// handlePrice resolves a form without touching the shared session.
func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session := calculator.NewSession()
	err := session.Update(req.toForm())
	s.metrics.RecordPriceResolution(string(session.Status()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session.View())
}

func (s *server) handleQuickEstimate(w http.ResponseWriter, r *http.Request) {
	var req quickEstimateRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	res := s.session.QuickEstimate(req.ListingPrice)
	s.mu.Unlock()
	s.metrics.RecordQuickEstimate()

	writeJSON(w, http.StatusOK, quickEstimateResponse{
		ListingPrice:   formatMoney(req.ListingPrice.Float()),
		ProcessingFee:  formatMoney(res.ProcessingFee),
		TransactionFee: formatMoney(res.TransactionFee),
		Fees:           formatMoney(res.Fees),
		QCReturn:       formatMoney(res.Return),
	})
}

func (s *server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	view := s.session.View()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, view)
}

// handleSessionUpdate replaces the form. An infeasible fee configuration is
// an input state the user can fix, so it is reported in the view with 200.
func (s *server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	err := s.session.Update(req.toForm())
	view := s.session.View()
	s.mu.Unlock()

	s.metrics.RecordPriceResolution(string(view.Status))
	if err != nil && !errors.Is(err, pricing.ErrInfeasibleFeeConfiguration) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.session.Clear()
	view := s.session.View()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.store.Save(r.Context(), s.session.Snapshot(req.Name))
	s.metrics.RecordSetupOperation("save", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.session.SetName(res.Name)
	s.logger.Info("setup saved", "key", res.Key, "updated", res.Updated, "requestId", requestIDFrom(r.Context()))

	status := http.StatusCreated
	if res.Updated {
		status = http.StatusOK
	}
	writeJSON(w, status, saveResponse{
		Key:     res.Key,
		Name:    res.Name,
		Updated: res.Updated,
		Session: s.session.View(),
	})
}

func (s *server) handleSessionLoad(w http.ResponseWriter, r *http.Request) {
	s.applySetup(w, r, "load", (*calculator.Session).Load)
}

func (s *server) handleSessionAppend(w http.ResponseWriter, r *http.Request) {
	s.applySetup(w, r, "append", (*calculator.Session).Append)
}

// applySetup reads the setup named in the URL and hands it to apply.
func (s *server) applySetup(w http.ResponseWriter, r *http.Request, op string, apply func(*calculator.Session, setup.ProductSetup) error) {
	key, err := keyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.store.Load(r.Context(), key)
	s.metrics.RecordSetupOperation(op, err)
	if err != nil {
		if errors.Is(err, setup.ErrCorruptRecord) {
			s.logger.Warn("corrupt setup record", "key", key, "error", err)
		}
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	err = apply(s.session, p)
	view := s.session.View()
	s.mu.Unlock()

	s.metrics.RecordPriceResolution(string(view.Status))
	if err != nil && !errors.Is(err, pricing.ErrInfeasibleFeeConfiguration) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleSetupsList(w http.ResponseWriter, r *http.Request) {
	if s.store.Status() == setup.Unavailable {
		s.writeError(w, r, setup.ErrStorageUnavailable)
		return
	}

	entries, err := s.store.List(r.Context())
	s.metrics.RecordSetupOperation("list", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now()
	items := make([]setupListItem, 0, len(entries))
	for _, e := range entries {
		savedAt := time.UnixMilli(e.TimeStamp).UTC()
		items = append(items, setupListItem{
			Key:       e.Key,
			Name:      e.Name,
			TimeStamp: e.TimeStamp,
			SavedAt:   savedAt.Format(time.RFC3339),
			Age:       setup.FormatAge(e.TimeStamp, now),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleSetupGet(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.store.Load(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleSetupDelete(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.store.Delete(r.Context(), key)
	s.metrics.RecordSetupOperation("delete", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(pricing.Round2(v), 'f', 2, 64)
}

// keyParam returns the decoded {key} URL parameter. Setup keys may hold any
// character of the setup name, including '/' and '%'. chi matches against the
// raw path whenever the request carries such escapes, so the parameter is
// still escaped exactly when RawPath is set.
func keyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return key, nil
	}
	decoded, err := url.PathUnescape(key)
	if err != nil {
		return "", &apiError{
			Code:    codeBadRequest,
			Message: "setup key is not a valid escaped path segment",
			status:  http.StatusBadRequest,
		}
	}
	return decoded, nil
}
