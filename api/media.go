package api

import (
	"errors"
	"net/http"
	"path"
	"strings"
)

const maxUploadBytes = 20 << 20

var mediaExts = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
}

// uploadMedia accepts a direct multipart upload and answers the public
// URL the post should reference.
func (a *API) uploadMedia(w http.ResponseWriter, r *http.Request) {
	type response struct {
		URL string `json:"url"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not parse upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, ok := mediaExts[contentType]
	if !ok {
		// Fall back to the filename extension for clients that do not
		// set a part content type.
		ext = strings.ToLower(path.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".mp4":
		default:
			a.respondError(w, http.StatusUnsupportedMediaType, errors.New("unsupported media type"), "Unsupported media type")
			return
		}
	}

	url, err := a.Blob.Put(r.Context(), ext, contentType, file)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not store media")
		return
	}

	a.respond(w, http.StatusCreated, response{URL: url})
}
