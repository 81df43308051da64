package handler

import (
	"net/http"

	"github.com/NgouanKoffi/fullmargin-live/internal/httputil"
)

func writeData(w http.ResponseWriter, status int, data any) {
	httputil.WriteData(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}
