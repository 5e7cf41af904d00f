package web

import (
	"bytes"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/animbridge/animfile"
	"github.com/mogaika/animbridge/config"
	"github.com/mogaika/animbridge/convert"
	"github.com/mogaika/animbridge/fbxexport"
	"github.com/mogaika/animbridge/gltfexport"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/status"
	"github.com/mogaika/animbridge/utils"
	"github.com/mogaika/animbridge/webutils"
)

// Session state: the scene and clip currently loaded into the UI. One
// user at a time is the expected deployment, the lock just keeps
// concurrent requests from corrupting the pair.
var (
	stateLock     sync.Mutex
	currentScene  *scene.FileHost
	currentClip   *animfile.Clip
	currentConfig = config.Default()
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func newConverter() (*convert.Converter, error) {
	return convert.NewConverter(currentConfig, utils.Logger{Writer: os.Stdout})
}

type sceneSummary struct {
	Fps        float64       `json:"fps"`
	FrameStart int           `json:"frameStart"`
	FrameEnd   int           `json:"frameEnd"`
	Nodes      []nodeSummary `json:"nodes"`
}

type nodeSummary struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
	Deform bool   `json:"deform"`
	Keys   int    `json:"keys"`
}

func HandlerJsonScene(w http.ResponseWriter, r *http.Request) {
	stateLock.Lock()
	defer stateLock.Unlock()
	if currentScene == nil {
		webutils.WriteError(w, errors.Errorf("No scene loaded"))
		return
	}
	s := sceneSummary{
		Fps:        currentScene.Fps,
		FrameStart: currentScene.FrameStart,
		FrameEnd:   currentScene.FrameEnd,
		Nodes:      make([]nodeSummary, 0, len(currentScene.Nodes)),
	}
	for _, n := range currentScene.Nodes {
		s.Nodes = append(s.Nodes, nodeSummary{
			Name:   n.Name,
			Parent: n.Parent,
			Deform: n.Deform,
			Keys:   len(n.Keys),
		})
	}
	webutils.WriteJson(w, &s)
}

func HandlerJsonClip(w http.ResponseWriter, r *http.Request) {
	stateLock.Lock()
	defer stateLock.Unlock()
	if currentClip == nil {
		webutils.WriteError(w, errors.Errorf("No clip loaded"))
		return
	}
	webutils.WriteJson(w, currentClip)
}

func HandlerJsonConfig(w http.ResponseWriter, r *http.Request) {
	stateLock.Lock()
	defer stateLock.Unlock()
	webutils.WriteJson(w, &currentConfig)
}

func HandlerJsonEncodings(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, config.ListEncodings())
}

func HandlerActionEncoding(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := config.SetEncoding(name); err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.Info("Clip encoding switched to %q", name)
	webutils.WriteJson(w, name)
}

func HandlerUploadScene(w http.ResponseWriter, r *http.Request) {
	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	h, err := scene.LoadFileHost(bytes.NewReader(data))
	if err != nil {
		status.Error("Scene load failed: %v", err)
		webutils.WriteError(w, err)
		return
	}
	stateLock.Lock()
	currentScene = h
	stateLock.Unlock()
	status.Info("Scene loaded: %d nodes", len(h.Nodes))
	webutils.WriteJson(w, len(h.Nodes))
}

func HandlerUploadClip(w http.ResponseWriter, r *http.Request) {
	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	text, err := config.DecodeLegacyText(data)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	clip, err := animfile.Parse(bytes.NewReader(text))
	if err != nil {
		status.Error("Clip parse failed: %v", err)
		webutils.WriteError(w, err)
		return
	}
	stateLock.Lock()
	currentClip = clip
	stateLock.Unlock()
	status.Info("Clip loaded: %d curves, frames %d..%d", len(clip.Curves), clip.StartTime, clip.EndTime)
	webutils.WriteJson(w, len(clip.Curves))
}

func HandlerUploadConfig(w http.ResponseWriter, r *http.Request) {
	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	cfg, err := config.Load(bytes.NewReader(data))
	if err != nil {
		status.Error("Preset load failed: %v", err)
		webutils.WriteError(w, err)
		return
	}
	stateLock.Lock()
	currentConfig = cfg
	stateLock.Unlock()
	status.Info("Conversion preset loaded")
	webutils.WriteJson(w, &cfg)
}

// HandlerDumpClip exports the loaded scene and serves the clip file.
func HandlerDumpClip(w http.ResponseWriter, r *http.Request) {
	stateLock.Lock()
	defer stateLock.Unlock()
	if currentScene == nil {
		webutils.WriteError(w, errors.Errorf("No scene loaded"))
		return
	}
	c, err := newConverter()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.Progress(0, "Export started")
	clip, err := c.Export(currentScene)
	if err != nil {
		status.Error("Export failed: %v", err)
		webutils.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := clip.Write(&buf); err != nil {
		webutils.WriteError(w, err)
		return
	}
	out, err := config.EncodeLegacyText(buf.Bytes())
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	currentClip = clip
	status.Progress(1, "Export finished: %d curves", len(clip.Curves))
	webutils.WriteFile(w, bytes.NewReader(out), "export.anim")
}

// HandlerDumpScene imports the loaded clip onto the loaded scene and
// serves the updated scene description.
func HandlerDumpScene(w http.ResponseWriter, r *http.Request) {
	stateLock.Lock()
	defer stateLock.Unlock()
	if currentScene == nil || currentClip == nil {
		webutils.WriteError(w, errors.Errorf("Need both a scene and a clip loaded"))
		return
	}
	c, err := newConverter()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.Progress(0, "Import started")
	if err := c.Import(currentScene, currentClip); err != nil {
		status.Error("Import failed: %v", err)
		webutils.WriteError(w, err)
		return
	}
	status.Progress(1, "Import finished")
	webutils.WriteYamlFile(w, currentScene, "scene")
}

func HandlerDumpGLTF(w http.ResponseWriter, r *http.Request) {
	stateLock.Lock()
	defer stateLock.Unlock()
	if currentScene == nil {
		webutils.WriteError(w, errors.Errorf("No scene loaded"))
		return
	}
	var buf bytes.Buffer
	if err := gltfexport.Export(&buf, currentScene, "preview"); err != nil {
		status.Error("Preview export failed: %v", err)
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, "preview.glb")
}

func HandlerDumpFBX(w http.ResponseWriter, r *http.Request) {
	stateLock.Lock()
	defer stateLock.Unlock()
	if currentScene == nil {
		webutils.WriteError(w, errors.Errorf("No scene loaded"))
		return
	}
	var buf bytes.Buffer
	if err := fbxexport.Export(&buf, currentScene, "preview"); err != nil {
		status.Error("Preview export failed: %v", err)
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, "preview.fbx")
}

func HandlerWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.NewClient(conn)
}
