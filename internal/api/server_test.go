package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/extract"
	"github.com/spigell/hr-matcher/internal/jobdesc"
	"github.com/spigell/hr-matcher/internal/recruit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubMatcher struct {
	jobText    string
	candidates []ai.Candidate
	err        error
}

func (s *stubMatcher) Match(_ context.Context, jobText string, candidates []ai.Candidate) (*recruit.Result, error) {
	s.jobText = jobText
	s.candidates = candidates
	if s.err != nil {
		return nil, s.err
	}

	result := &recruit.Result{JobText: jobText, BestIndex: 0, RequiredSkills: []string{}}
	for _, c := range candidates {
		result.Candidates = append(result.Candidates, recruit.CandidateResult{
			MatchRecord: ai.MatchRecord{Filename: c.Filename, Score: 75, MissingSkills: []string{}, Remarks: "ok"},
			IsSelected:  true,
		})
	}
	return result, nil
}

type stubWriter struct {
	text string
	err  error
	last jobdesc.Request
}

func (s *stubWriter) Generate(_ context.Context, req jobdesc.Request) (string, error) {
	s.last = req
	if err := req.Validate(); err != nil {
		return "", err
	}
	return s.text, s.err
}

type upload struct {
	field    string
	filename string
	body     string
}

func multipartRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/match", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestServer(matcher *stubMatcher, writer *stubWriter, logger *zap.Logger) *Server {
	return NewServer(Deps{
		Matcher:   matcher,
		Writer:    writer,
		Extractor: extract.New(zap.NewNop()),
		Logger:    logger,
	}, Options{})
}

type countingExtractor struct {
	files []string
}

func (c *countingExtractor) Text(_ context.Context, data []byte, filename string) string {
	c.files = append(c.files, filename)
	return string(data)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubMatcher{}, &stubWriter{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMatchWithJobText(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	matcher := &stubMatcher{}
	srv := newTestServer(matcher, &stubWriter{}, zap.New(core))

	req := multipartRequest(t, map[string]string{"jd_text": "Go developer"},
		upload{field: "resumes", filename: "alice.txt", body: "Go, Docker"},
		upload{field: "resumes", filename: "bob.md", body: "Python"},
	)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if matcher.jobText != "Go developer" || len(matcher.candidates) != 2 {
		t.Fatalf("unexpected matcher input: %q %+v", matcher.jobText, matcher.candidates)
	}
	if matcher.candidates[0].Text != "Go, Docker" {
		t.Fatalf("expected extracted resume text, got %q", matcher.candidates[0].Text)
	}

	body := decodeBody(t, rec)
	if body["jd_text"] != "Go developer" || body["best_index"] != float64(0) {
		t.Fatalf("unexpected body: %v", body)
	}
	candidates := body["candidates"].([]any)
	first := candidates[0].(map[string]any)
	if first["filename"] != "alice.txt" || first["is_selected"] != true {
		t.Fatalf("unexpected candidate: %v", first)
	}

	entries := observed.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusOK) || fields["request_id"] == "" {
		t.Fatalf("unexpected request log fields: %v", fields)
	}
}

func TestMatchJobFileOverridesText(t *testing.T) {
	matcher := &stubMatcher{}
	srv := newTestServer(matcher, &stubWriter{}, nil)

	req := multipartRequest(t, map[string]string{"jd_text": "ignored"},
		upload{field: "jd_file", filename: "job.txt", body: "  Rust engineer  "},
		upload{field: "resumes", filename: "alice.txt", body: "Rust"},
	)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if matcher.jobText != "Rust engineer" {
		t.Fatalf("expected job text from file, got %q", matcher.jobText)
	}
}

func TestMatchReadsOnlyCappedResumes(t *testing.T) {
	matcher := &stubMatcher{}
	extractor := &countingExtractor{}
	srv := NewServer(Deps{Matcher: matcher, Writer: &stubWriter{}, Extractor: extractor}, Options{MaxCandidates: 2})

	req := multipartRequest(t, map[string]string{"jd_text": "Go engineer"},
		upload{field: "resumes", filename: "a.doc", body: "Go"},
		upload{field: "resumes", filename: "b.doc", body: "Go"},
		upload{field: "resumes", filename: "c.doc", body: "Go"},
	)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(extractor.files) != 2 || extractor.files[0] != "a.doc" || extractor.files[1] != "b.doc" {
		t.Fatalf("expected only the first two resumes to be read, got %v", extractor.files)
	}
	if len(matcher.candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(matcher.candidates))
	}
}

func TestMatchBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		err    error
		detail string
	}{
		{
			name: "no job description",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, nil, upload{field: "resumes", filename: "a.txt", body: "x"})
			},
			detail: "Provide jd_text or jd_file",
		},
		{
			name: "no resumes",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"jd_text": "Go developer"})
			},
			detail: "Provide at least one resume",
		},
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader("{}"))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
		},
		{
			name: "unreadable job file",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, nil,
					upload{field: "jd_file", filename: "job.pdf", body: "%PDF-broken"},
					upload{field: "resumes", filename: "a.txt", body: "x"},
				)
			},
			err:    recruit.ErrEmptyJobDescription,
			detail: "Job description has no readable text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubMatcher{err: tt.err}, &stubWriter{}, nil)

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, tt.req(t))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if tt.detail != "" {
				if body := decodeBody(t, rec); body["detail"] != tt.detail {
					t.Fatalf("unexpected detail: %v", body["detail"])
				}
			}
		})
	}
}

func TestMatchServiceFailure(t *testing.T) {
	srv := newTestServer(&stubMatcher{err: errors.New("intake broke")}, &stubWriter{}, nil)

	req := multipartRequest(t, map[string]string{"jd_text": "Go"}, upload{field: "resumes", filename: "a.txt", body: "x"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGenerateJD(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		writer *stubWriter
		status int
	}{
		{
			name:   "ok",
			body:   `{"job_title": "Data Engineer", "years_experience": 3, "must_have_skills": "python, sql", "company_name": "Acme"}`,
			writer: &stubWriter{text: "# Data Engineer"},
			status: http.StatusOK,
		},
		{
			name:   "invalid json",
			body:   `{"job_title":`,
			writer: &stubWriter{},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing title",
			body:   `{"years_experience": 3}`,
			writer: &stubWriter{},
			status: http.StatusBadRequest,
		},
		{
			name:   "generator failure",
			body:   `{"job_title": "Data Engineer"}`,
			writer: &stubWriter{err: errors.New("quota")},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubMatcher{}, tt.writer, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/generate_jd", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK {
				if body := decodeBody(t, rec); body["jd_text"] != "# Data Engineer" {
					t.Fatalf("unexpected body: %v", body)
				}
				if got := tt.writer.last.Skills(); len(got) != 2 || got[1] != "sql" {
					t.Fatalf("unexpected decoded skills: %v", got)
				}
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := NewServer(Deps{Matcher: &stubMatcher{}, Writer: &stubWriter{}, Extractor: extract.New(nil)}, Options{
		AllowedOrigins: []string{"http://localhost:5173"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/match", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
