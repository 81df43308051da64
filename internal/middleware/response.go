package middleware

import (
	"net/http"

	"github.com/NgouanKoffi/fullmargin-live/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteRaw(w, status, data)
}
