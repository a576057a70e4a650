// internal/handlers/qr.go
package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// JoinQRHandler serves a PNG QR code encoding the join link for a room code,
// so a host can get four friends seated from one screen.
// GET /join/qr?room=CODE
func JoinQRHandler(logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := r.URL.Query().Get("room")
		if room == "" {
			http.Error(w, "missing room parameter", http.StatusBadRequest)
			return
		}

		base := os.Getenv("JOIN_BASE_URL")
		if base == "" {
			base = "http://localhost:8080"
		}
		link := fmt.Sprintf("%s/?room=%s", base, url.QueryEscape(room))

		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			logger.Errorf("qr encode for room %q: %v", room, err)
			http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(png); err != nil {
			logger.Warnf("qr write: %v", err)
		}
	}
}
