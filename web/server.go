package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// StartServer serves the conversion UI: scene and clip uploads, export
// and import downloads, previews and a websocket progress feed. Static
// frontend files come from webPath.
func StartServer(addr string, webPath string) error {
	r := mux.NewRouter()
	r.HandleFunc("/json/scene", HandlerJsonScene)
	r.HandleFunc("/json/clip", HandlerJsonClip)
	r.HandleFunc("/json/config", HandlerJsonConfig)
	r.HandleFunc("/json/encodings", HandlerJsonEncodings)
	r.HandleFunc("/action/encoding/{name}", HandlerActionEncoding)
	r.HandleFunc("/upload/scene", HandlerUploadScene)
	r.HandleFunc("/upload/clip", HandlerUploadClip)
	r.HandleFunc("/upload/config", HandlerUploadConfig)
	r.HandleFunc("/dump/clip", HandlerDumpClip)
	r.HandleFunc("/dump/scene", HandlerDumpScene)
	r.HandleFunc("/dump/preview.glb", HandlerDumpGLTF)
	r.HandleFunc("/dump/preview.fbx", HandlerDumpFBX)
	r.HandleFunc("/ws", HandlerWebsocket)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
