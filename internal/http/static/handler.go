package static

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
)

func NewFilesystemHandler(path string) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.Dir(path)))
}

//go:embed files/*
var embedFS embed.FS

func NewEmbedHandler() http.Handler {
	files, err := fs.Sub(embedFS, "files")
	if err != nil {
		log.Fatal(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(files)))
}
