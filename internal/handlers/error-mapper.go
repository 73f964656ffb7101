package handlers

import (
	"errors"
	"net/http"

	"github.com/Brownie44l1/mood-api/internal/model"
)

var (
	ErrNoFilePart     = errors.New("no file part")
	ErrNoSelectedFile = errors.New("no selected file")
	ErrFileTooLarge   = errors.New("file too large")
)

const msgModelNotLoaded = "Model not loaded"

// writeError maps err to a status code and JSON error body. Decode and
// inference failures fall through to 500 with the error's own message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrModelUnavailable):
		writeJSON(w, http.StatusInternalServerError, errorBody(msgModelNotLoaded))

	case errors.Is(err, ErrNoFilePart):
		writeJSON(w, http.StatusBadRequest, errorBody("No file part"))

	case errors.Is(err, ErrNoSelectedFile):
		writeJSON(w, http.StatusBadRequest, errorBody("No selected file"))

	case errors.Is(err, ErrFileTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("File too large"))

	default:
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
