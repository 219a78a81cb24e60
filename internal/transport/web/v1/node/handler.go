package node

import (
	"net/http"

	v1 "github.com/EgorLis/retail-pos/internal/transport/web/v1"
)

// Handler отдаёт клиенту идентификатор узла: магазин по нему понимает, чей он.
type Handler struct {
	NodeID string
}

func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	v1.WriteOKData(w, r, map[string]string{"shopId": h.NodeID})
}
