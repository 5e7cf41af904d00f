package main

import (
	"bytes"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mogaika/animbridge/animfile"
	"github.com/mogaika/animbridge/config"
	"github.com/mogaika/animbridge/convert"
	"github.com/mogaika/animbridge/fbxexport"
	"github.com/mogaika/animbridge/gltfexport"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/utils"
	"github.com/mogaika/animbridge/web"
)

func loadScene(path string) *scene.FileHost {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	h, err := scene.LoadFileHost(f)
	if err != nil {
		log.Fatal(err)
	}
	return h
}

func newConverter(cfg config.Config) *convert.Converter {
	c, err := convert.NewConverter(cfg, utils.Logger{Writer: os.Stdout})
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func runExport(cfg config.Config, scenePath, outPath string) {
	h := loadScene(scenePath)
	clip, err := newConverter(cfg).Export(h)
	if err != nil {
		log.Fatal(err)
	}

	var buf bytes.Buffer
	if err := clip.Write(&buf); err != nil {
		log.Fatal(err)
	}
	data, err := config.EncodeLegacyText(buf.Bytes())
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		log.Fatal(err)
	}
	log.Printf("[main] Exported %d curves to %v", len(clip.Curves), outPath)
}

func runImport(cfg config.Config, scenePath, clipPath, outPath string) {
	h := loadScene(scenePath)

	raw, err := os.ReadFile(clipPath)
	if err != nil {
		log.Fatal(err)
	}
	text, err := config.DecodeLegacyText(raw)
	if err != nil {
		log.Fatal(err)
	}
	clip, err := animfile.Parse(bytes.NewReader(text))
	if err != nil {
		log.Fatal(err)
	}

	if err := newConverter(cfg).Import(h, clip); err != nil {
		log.Fatal(err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()
	if err := h.Save(out); err != nil {
		log.Fatal(err)
	}
	log.Printf("[main] Imported %d curves into %v", len(clip.Curves), outPath)
}

func runPreview(scenePath, previewPath string) {
	h := loadScene(scenePath)
	name := strings.TrimSuffix(filepath.Base(previewPath), filepath.Ext(previewPath))

	out, err := os.Create(previewPath)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	switch filepath.Ext(previewPath) {
	case ".glb":
		err = gltfexport.Export(out, h, name)
	case ".fbx":
		err = fbxexport.Export(out, h, name)
	default:
		log.Fatalf("Unknown preview format %q, want .glb or .fbx", filepath.Ext(previewPath))
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("[main] Preview written to %v", previewPath)
}

func main() {
	var addr, scenePath, clipPath, outPath, presetPath, encoding, previewPath, webPath string
	var verbose bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&scenePath, "scene", "", "Path to scene yaml")
	flag.StringVar(&clipPath, "clip", "", "Path to clip file to import onto -scene")
	flag.StringVar(&outPath, "out", "", "Output path (.anim clip for export, scene yaml for import)")
	flag.StringVar(&presetPath, "preset", "", "Path to conversion preset yaml")
	flag.StringVar(&encoding, "encoding", "", "Text encoding of legacy clip files")
	flag.StringVar(&previewPath, "preview", "", "Write a .glb or .fbx preview of -scene")
	flag.StringVar(&webPath, "web", "web", "Path to frontend files for server mode")
	flag.BoolVar(&verbose, "v", false, "Verbose conversion trace")
	flag.Parse()

	cfg := config.Default()
	if presetPath != "" {
		f, err := os.Open(presetPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg, err = config.Load(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}
	if verbose {
		cfg.Verbose = true
	}

	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			log.Fatal(err)
		}
	}

	switch {
	case clipPath != "" && scenePath != "" && outPath != "":
		runImport(cfg, scenePath, clipPath, outPath)
	case previewPath != "" && scenePath != "":
		runPreview(scenePath, previewPath)
	case scenePath != "" && outPath != "":
		runExport(cfg, scenePath, outPath)
	case scenePath == "" && clipPath == "":
		if err := web.StartServer(addr, webPath); err != nil {
			log.Fatal(err)
		}
	default:
		flag.PrintDefaults()
	}
}
