package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Brownie44l1/mood-api/internal/model"
	"github.com/Brownie44l1/mood-api/internal/preprocess"
	log "github.com/sirupsen/logrus"
)

const fileField = "file"

type PredictionResponse struct {
	Score float64 `json:"score"`
}

type Options struct {
	Activation     model.Activation
	MaxUploadBytes int64
	StaticDir      string
}

type Handler struct {
	model        model.Handle
	preprocessor *preprocess.Preprocessor
	opts         Options
}

func NewHandler(h model.Handle, p *preprocess.Preprocessor, opts Options) *Handler {
	if opts.Activation == "" {
		opts.Activation = model.ActivationNone
	}
	return &Handler{
		model:        h,
		preprocessor: p,
		opts:         opts,
	}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Model API is running"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.model.Available() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  msgModelNotLoaded,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	predictor, err := h.model.Predictor()
	if err != nil {
		writeError(w, err)
		return
	}

	upload, err := h.readUpload(w, r)
	if err != nil {
		if errors.Is(err, ErrNoFilePart) || errors.Is(err, ErrNoSelectedFile) {
			log.Warn(err.Error())
		}
		writeError(w, err)
		return
	}

	log.WithFields(log.Fields{
		"filename": upload.filename,
		"size":     len(upload.data),
	}).Debug("Received file")

	tensor, err := h.preprocessor.Tensor(bytes.NewReader(upload.data))
	if err != nil {
		log.Errorf("Error preprocessing image: %v", err)
		writeError(w, err)
		return
	}

	score, err := model.Score(r.Context(), predictor, tensor, h.opts.Activation)
	if err != nil {
		log.Errorf("Error during prediction: %v", err)
		writeError(w, err)
		return
	}

	log.WithField("filename", upload.filename).Infof("Prediction score: %v", score)
	writeJSON(w, http.StatusOK, PredictionResponse{Score: score})
}

type upload struct {
	filename string
	data     []byte
}

// readUpload streams the multipart body and returns the first part named
// "file" that carries a filename parameter. Parts without a filename
// parameter are form values, not files.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	if h.opts.MaxUploadBytes > 0 {
		if r.ContentLength > h.opts.MaxUploadBytes {
			return nil, ErrFileTooLarge
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, ErrNoFilePart
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, ErrNoFilePart
		}
		if err != nil {
			return nil, uploadReadError(err)
		}

		filename, isFile := partFilename(part)
		if part.FormName() != fileField || !isFile {
			part.Close()
			continue
		}
		if filename == "" {
			part.Close()
			return nil, ErrNoSelectedFile
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, uploadReadError(err)
		}
		return &upload{filename: filename, data: data}, nil
	}
}

func partFilename(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	return name, ok
}

func uploadReadError(err error) error {
	var maxErr *http.MaxBytesError
	// multipart does not always wrap the underlying read error.
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return ErrFileTooLarge
	}
	return fmt.Errorf("%w: %v", ErrNoFilePart, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}
