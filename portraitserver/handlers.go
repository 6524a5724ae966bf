package portraitserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type uploadResponse struct {
	Success     bool       `json:"success"`
	URL         string     `json:"url"`
	CharacterID string     `json:"characterId"`
	Size        int64      `json:"size"`
	Dimensions  dimensions `json:"dimensions"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, msgNotFound)
}

type uploadOptions struct {
	maxBodyBytes int64
	trustProxy   bool
}

// uploadPortrait validates a data-URI upload, normalizes it to a square
// JPEG and stores it as the character's only portrait.
func uploadPortrait(store PortraitStore, logger *zap.Logger, opts uploadOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if opts.maxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, opts.maxBodyBytes)
		}

		upload, err := parseUploadRequest(r.Body)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		portrait, err := normalizePortrait(upload.ImageData)
		if err != nil {
			if errors.Is(err, ErrInvalidImage) {
				writeError(w, r, logger, badRequest(msgInvalidImageData, err))
			} else {
				writeError(w, r, logger, internalError(msgSaveImage, err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		stored, err := store.Save(ctx, upload.CharacterID, portrait)
		if err != nil {
			writeError(w, r, logger, storeError(err))
			return
		}

		logger.Info("portrait stored",
			zap.String("character_id", stored.CharacterID),
			zap.String("character_name", upload.CharacterName),
			zap.String("source_type", upload.ImageType),
			zap.String("file", stored.Filename),
			zap.Int64("size", stored.Size),
			zap.String("request_id", requestID(r.Context())),
		)

		respondJSON(w, http.StatusOK, uploadResponse{
			Success:     true,
			URL:         requestScheme(r, opts.trustProxy) + "://" + r.Host + stored.PublicPath,
			CharacterID: stored.CharacterID,
			Size:        stored.Size,
			Dimensions:  dimensions{Width: PortraitSize, Height: PortraitSize},
		})
	}
}

// portraitReader streams stored portraits from /uploads/portraits/{id}/{file}.
func portraitReader(store PortraitStore, logger *zap.Logger) http.HandlerFunc {
	const prefix = "/uploads/" + portraitsDir + "/"
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			respondError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
			return
		}

		characterID, filename, ok := splitPortraitPath(strings.TrimPrefix(r.URL.Path, prefix))
		if !ok || !strings.HasPrefix(r.URL.Path, prefix) {
			respondError(w, http.StatusNotFound, msgPortraitNotFound)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		body, size, err := store.Open(ctx, characterID, filename)
		if err != nil {
			if errors.Is(err, ErrPortraitNotFound) {
				respondError(w, http.StatusNotFound, msgPortraitNotFound)
				return
			}
			writeError(w, r, logger, internalError(msgReadPortrait, err))
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, body); err != nil {
			logger.Warn("stream portrait", zap.String("file", filename), zap.Error(err))
		}
	}
}

// splitPortraitPath accepts "{id}/{file}" or "{file}" (empty id) where the
// id is already in sanitized form and the file is a portrait name.
func splitPortraitPath(rest string) (characterID, filename string, ok bool) {
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		filename = parts[0]
	case 2:
		characterID, filename = parts[0], parts[1]
	default:
		return "", "", false
	}
	if sanitizeCharacterID(characterID) != characterID || !isPortraitFile(filename) {
		return "", "", false
	}
	return characterID, filename, true
}

func requestScheme(r *http.Request, trustProxy bool) string {
	if r.TLS != nil {
		return "https"
	}
	if trustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// writeError logs the cause and sends the public message of an *apiError;
// anything else becomes a 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = internalError(msgInternal, err)
	}

	fields := []zap.Field{
		zap.Int("status", apiErr.Status),
		zap.String("request_id", requestID(r.Context())),
		zap.Error(err),
	}
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error(apiErr.Message, fields...)
	} else {
		logger.Debug(apiErr.Message, fields...)
	}
	respondError(w, apiErr.Status, apiErr.Message)
}
