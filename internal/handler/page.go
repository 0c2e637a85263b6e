package handler

import (
	"net/http"

	"github.com/kdduha/caption-generator/web"
)

func Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(web.Index)
}

func Static() http.Handler {
	return http.StripPrefix("/static/", http.FileServerFS(web.Static()))
}
