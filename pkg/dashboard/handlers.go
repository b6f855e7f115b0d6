package dashboard

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/report"
)

// Summary is the body of /api/summary.
type Summary struct {
	Total    int         `json:"total"`
	Filtered int         `json:"filtered"`
	KPIs     report.KPIs `json:"kpis"`
}

// CustomerPage is the body of /api/customers.
type CustomerPage struct {
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	Filtered int        `json:"filtered"`
	Limit    int        `json:"limit"`
}

// load returns the filtered customers or writes the error response.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Snapshot, []report.Customer, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return nil, nil, false
	}
	snap, err := h.store.Snapshot()
	if err != nil {
		h.logger.WithError(err).Error("Scored file unavailable")
		writeError(w, http.StatusServiceUnavailable, "data_unavailable", err.Error())
		return nil, nil, false
	}
	return snap, f.Apply(snap.Customers), true
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	snap, cs, ok := h.load(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, Summary{
		Total:    len(snap.Customers),
		Filtered: len(cs),
		KPIs:     report.ComputeKPIs(cs),
	})
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	snap, cs, ok := h.load(w, r)
	if !ok {
		return
	}
	page := CustomerPage{Columns: snap.Header, Rows: make([][]string, 0, min(limit, len(cs))), Filtered: len(cs), Limit: limit}
	for _, c := range cs {
		if len(page.Rows) == limit {
			break
		}
		page.Rows = append(page.Rows, c.Row)
	}
	writeSuccess(w, http.StatusOK, page)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > MaxLimit {
		n = MaxLimit
	}
	return n, nil
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	snap, cs, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="churn_segments_filtered.csv"`)
	cw := csv.NewWriter(w)
	if err := cw.Write(snap.Header); err != nil {
		h.logger.WithError(err).Warn("Export aborted")
		return
	}
	for _, c := range cs {
		if err := cw.Write(c.Row); err != nil {
			h.logger.WithError(err).Warn("Export aborted")
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.WithError(err).WithField("rows", len(cs)).Warn("Export failed")
	}
}
