// Package api exposes the reply, translation and pronunciation services over
// HTTP.
//
//	POST /v1/reply          {"message", "conversationId"?}          -> {"reply"}
//	POST /v1/translate      {"text", "sourceLang", "targetLang"}    -> translation JSON
//	POST /v1/pronunciation  multipart: referenceText + audio file  -> assessment JSON
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/pkg/types"
)

const (
	// DefaultMaxJSONBytes caps the JSON request bodies.
	DefaultMaxJSONBytes = 1 << 20

	// DefaultMaxUploadBytes caps a pronunciation upload.
	DefaultMaxUploadBytes = 25 << 20

	// multipartMemory is kept in memory before parts spill to disk.
	multipartMemory = 8 << 20
)

// Replier produces conversational replies. It never fails.
type Replier interface {
	Reply(ctx context.Context, conversationID, message string) string
}

// Translator translates text with IPA and audio.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (*types.TranslationResult, error)
}

// Assessor scores recorded speech against a reference sentence.
type Assessor interface {
	Assess(ctx context.Context, referenceText string, audio io.Reader) (*types.PronunciationResult, error)
}

// Option configures a [Server].
type Option func(*Server)

// WithMaxUploadBytes caps pronunciation uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithAssessor enables /v1/pronunciation. Without it the endpoint answers
// 503.
func WithAssessor(a Assessor) Option {
	return func(s *Server) { s.assessor = a }
}

// Server holds the HTTP handlers.
type Server struct {
	replier    Replier
	translator Translator
	assessor   Assessor
	maxUpload  int64
}

// New creates a Server.
func New(replier Replier, translator Translator, opts ...Option) *Server {
	s := &Server{replier: replier, translator: translator, maxUpload: DefaultMaxUploadBytes}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/reply", s.handleReply)
	mux.HandleFunc("POST /v1/translate", s.handleTranslate)
	mux.HandleFunc("POST /v1/pronunciation", s.handlePronunciation)
}

type replyRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}
	reply := s.replier.Reply(r.Context(), req.ConversationID, req.Message)
	writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

type translateResponse struct {
	Translated      string  `json:"translated"`
	SourceIPA       *string `json:"sourceIpa"`
	IPA             *string `json:"ipa"`
	OriginalAudio   string  `json:"originalAudio"`
	TranslatedAudio string  `json:"translatedAudio"`
	Degraded        bool    `json:"degraded"`
	DegradedChunks  []int   `json:"degradedChunks,omitempty"`
	AudioDegraded   bool    `json:"audioDegraded,omitempty"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.translator.Translate(r.Context(), req.Text, req.SourceLang, req.TargetLang)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, types.ErrInvalidArgument):
			status = http.StatusBadRequest
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
		observe.Logger(r.Context()).Warn("api: translate failed", "status", status, "err", err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{
		Translated:      res.Translated,
		SourceIPA:       res.SourceIPA,
		IPA:             res.TargetIPA,
		OriginalAudio:   res.OriginalAudio,
		TranslatedAudio: res.TranslatedAudio,
		Degraded:        res.Degraded,
		DegradedChunks:  res.DegradedChunks,
		AudioDegraded:   res.AudioDegraded,
	})
}

type pronunciationResponse struct {
	Success            bool    `json:"success"`
	Transcription      string  `json:"transcription"`
	DurationSeconds    float64 `json:"duration_seconds"`
	JobID              string  `json:"aai_id"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}

type pronunciationFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (s *Server) handlePronunciation(w http.ResponseWriter, r *http.Request) {
	if s.assessor == nil {
		writePronunciationError(w, http.StatusServiceUnavailable, "Pronunciation assessment is not configured.", errors.New("no transcription provider"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writePronunciationError(w, status, "Could not read the upload.", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	reference := r.FormValue("referenceText")
	if reference == "" {
		reference = r.FormValue("reference_text")
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writePronunciationError(w, http.StatusBadRequest, "An audio file is required.", err)
		return
	}
	defer file.Close()

	res, err := s.assessor.Assess(r.Context(), reference, file)
	if err != nil {
		status, msg := classifyAssessError(err)
		observe.Logger(r.Context()).Warn("api: pronunciation assessment failed", "status", status, "err", err)
		writePronunciationError(w, status, msg, err)
		return
	}
	writeJSON(w, http.StatusOK, pronunciationResponse{
		Success:            true,
		Transcription:      res.Transcription,
		DurationSeconds:    res.DurationSeconds,
		JobID:              res.JobID,
		AccuracyPercentage: res.AccuracyPercentage,
	})
}

func classifyAssessError(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest, "Reference text and audio are required."
	case errors.Is(err, types.ErrTranscriptionFailed):
		return http.StatusUnprocessableEntity, "The recording could not be transcribed."
	case errors.Is(err, types.ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Transcription took too long."
	default:
		return http.StatusBadGateway, "The transcription service is unavailable."
	}
}

func writePronunciationError(w http.ResponseWriter, status int, msg string, err error) {
	writeJSON(w, status, pronunciationFailure{Success: false, Message: msg, Error: err.Error()})
}

// decodeJSON reads a bounded JSON body into v, answering 400 itself on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, DefaultMaxJSONBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
