// Package exchange — выгрузка и загрузка Excel (.xlsx).
package exchange

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/EgorLis/retail-pos/internal/transport/web/logx"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	v1 "github.com/EgorLis/retail-pos/internal/transport/web/v1"
	"go.uber.org/zap"
)

const (
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout    = "2006-01-02"
	maxImportSize = 10 << 20
)

type Handler struct {
	Log       *zap.Logger
	Clients   *service.Clients
	Purchases *service.Purchases
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ExportPurchases: ?branch=&from=YYYY-MM-DD&to=YYYY-MM-DD&client=
func (h *Handler) ExportPurchases(w http.ResponseWriter, r *http.Request) {
	const op = "exchange.export_purchases"
	reqID := mw.RequestIDFromCtx(r.Context())
	q := r.URL.Query()

	f := service.ExportFilter{
		BranchID: strings.TrimSpace(q.Get("branch")),
		Client:   strings.TrimSpace(q.Get("client")),
	}
	var err error
	if f.From, err = parseDate(q.Get("from")); err == nil {
		f.To, err = parseDate(q.Get("to"))
	}
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad date", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	var buf bytes.Buffer
	n, err := h.Purchases.ExportXLSX(r.Context(), f, &buf)
	if err != nil {
		logx.Error(h.Log, reqID, op, "export failed", err, "branch", f.BranchID)
		v1.WriteDomainError(w, r, err)
		return
	}

	name := "transactions"
	if f.BranchID != "" {
		name += "_" + f.BranchID
	}
	logx.Info(h.Log, reqID, op, "ok", "purchases", n, "bytes", buf.Len())
	h.writeFile(w, name, &buf)
}

func (h *Handler) ExportClients(w http.ResponseWriter, r *http.Request) {
	const op = "exchange.export_clients"
	reqID := mw.RequestIDFromCtx(r.Context())

	var buf bytes.Buffer
	n, err := h.Clients.ExportXLSX(r.Context(), &buf)
	if err != nil {
		logx.Error(h.Log, reqID, op, "export failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "clients", n, "bytes", buf.Len())
	h.writeFile(w, "clients", &buf)
}

// ImportClients — multipart, поле file. Ошибка в любой строке отменяет весь импорт.
func (h *Handler) ImportClients(w http.ResponseWriter, r *http.Request) {
	const op = "exchange.import_clients"
	reqID := mw.RequestIDFromCtx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		err = fmt.Errorf("%w: multipart field \"file\" is required: %v", domain.ErrBadParams, err)
		logx.Error(h.Log, reqID, op, "no file", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	defer file.Close()

	added, err := h.Clients.ImportXLSX(r.Context(), file)
	if err != nil {
		logx.Error(h.Log, reqID, op, "import failed", err, "file", hdr.Filename)
		v1.WriteDomainError(w, r, err)
		return
	}

	total := 0
	for _, n := range added {
		total += n
	}
	logx.Info(h.Log, reqID, op, "ok", "file", hdr.Filename, "branches", len(added), "added", total)
	v1.WriteOKMessage(w, r, fmt.Sprintf("imported %d clients", total), map[string]any{
		"addedCount": total,
		"branches":   added,
	})
}

func (h *Handler) writeFile(w http.ResponseWriter, name string, buf *bytes.Buffer) {
	filename := fmt.Sprintf("%s_%s.xlsx", name, h.now().Format(dateLayout))
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrBadParams, raw)
	}
	return t, nil
}
