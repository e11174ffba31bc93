package routes

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/render"
	"github.com/mlopez/surveyforge/app"
	"github.com/mlopez/surveyforge/httpx"
	"github.com/mlopez/surveyforge/log"
)

const maxUploadSize = 5 << 20 // 5 MiB

// UploadFile stores a multipart image under the upload dir and returns the
// public URL it will be served from.
func UploadFile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "upload.parse_form", "file too large or malformed request")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "upload.form_file", "missing file field")
			return
		}
		defer file.Close()

		if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "upload.content_type", "only image uploads are accepted")
			return
		}

		name := newId() + strings.ToLower(filepath.Ext(header.Filename))
		dst, err := os.Create(filepath.Join(app.UploadDir, name))
		if err != nil {
			httpx.LogInternalError(w, r, "upload.create", err)
			return
		}
		defer dst.Close()

		_, err = io.Copy(dst, file)
		if err != nil {
			httpx.LogInternalError(w, r, "upload.copy", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"url":      "/files/" + name,
			"filename": header.Filename,
		})
	}
}

func ServeUploads(app app.App) http.Handler {
	return http.StripPrefix("/files", http.FileServer(http.Dir(app.UploadDir)))
}
