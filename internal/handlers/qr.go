package handlers

import (
	"net/http"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/aaronzipp/avalon-alone/internal/render"
)

const qrSize = 256

// HandleQRCode renders a QR code pointing at the game. A caller holding a
// seat token gets a code that carries it, so they can hand off to a phone.
func (ctx *Context) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}

	link := strings.TrimRight(ctx.PublicURL, "/") + "/games/" + url.PathEscape(g.Code)
	if token := seatToken(r); token != "" {
		if _, member := g.SeatForToken(token); member {
			link += "?token=" + url.QueryEscape(token)
		}
	}

	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		ctx.logger().Error("encode qr code", "code", g.Code, "error", err)
		render.Error(w, http.StatusInternalServerError, "internal", "could not render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
