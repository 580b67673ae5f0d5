package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/jobdesc"
	"github.com/spigell/hr-matcher/internal/recruit"
	"go.uber.org/zap"
)

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	jobText := r.FormValue("jd_text")
	jobFiles := r.MultipartForm.File["jd_file"]
	resumes := r.MultipartForm.File["resumes"]

	if jobText == "" && len(jobFiles) == 0 {
		respondError(w, http.StatusBadRequest, "Provide jd_text or jd_file")
		return
	}
	if len(resumes) == 0 {
		respondError(w, http.StatusBadRequest, "Provide at least one resume")
		return
	}

	log := s.logger.With(zap.String("request_id", requestID(r)))
	log.Info("match request received", zap.Int("resumes", len(resumes)))

	if len(resumes) > s.opts.MaxCandidates {
		log.Warn("too many resumes, extra files are not read",
			zap.Int("limit", s.opts.MaxCandidates),
			zap.Int("ignored", len(resumes)-s.opts.MaxCandidates),
		)
		resumes = resumes[:s.opts.MaxCandidates]
	}

	if len(jobFiles) > 0 {
		text, err := s.readUpload(r, jobFiles[0])
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		jobText = text
		log.Info("job description extracted", zap.String("filename", jobFiles[0].Filename), zap.Int("length", len(jobText)))
	}

	candidates := make([]ai.Candidate, 0, len(resumes))
	for _, header := range resumes {
		text, err := s.readUpload(r, header)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Debug("resume extracted", zap.String("filename", header.Filename), zap.Int("length", len(text)))
		candidates = append(candidates, ai.Candidate{Filename: header.Filename, Text: text})
	}

	result, err := s.matcher.Match(r.Context(), jobText, candidates)
	if err != nil {
		if errors.Is(err, recruit.ErrEmptyJobDescription) {
			respondError(w, http.StatusBadRequest, "Job description has no readable text")
			return
		}
		log.Error("match failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to process: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) readUpload(r *http.Request, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", errors.New("cannot open upload " + header.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", errors.New("cannot read upload " + header.Filename)
	}

	return s.extractor.Text(r.Context(), data, header.Filename), nil
}

func (s *Server) handleGenerateJD(w http.ResponseWriter, r *http.Request) {
	var req jobdesc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	text, err := s.writer.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, jobdesc.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("job description generation failed", zap.String("request_id", requestID(r)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to generate JD: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"jd_text": text})
}
