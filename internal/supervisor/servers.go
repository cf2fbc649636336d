package supervisor

import (
	"net/http"

	"github.com/arobi/forgesim/internal/livefeed"
)

func serveLivefeed(addr string, hub *livefeed.Hub) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)
	srv := &http.Server{Addr: addr, Handler: mux}
	_ = srv.ListenAndServe()
}
