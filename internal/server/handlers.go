package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/julianshen/docgen/internal/archive"
	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/pipeline"
	"github.com/julianshen/docgen/internal/source"
)

const (
	zipContentType     = "application/x-zip-compressed"
	errExpiredDownload = "Invalid or expired download ID"
)

// generateRequest is the body of the generate endpoints. The same fields
// are accepted as multipart form values, where the archive may instead be
// uploaded as the zip_file part.
type generateRequest struct {
	InputType string `json:"input_type"`
	InputData string `json:"input_data"`
	Branch    string `json:"branch"`

	archive []byte
}

// zipRequest is the JSON body of POST /download-zip.
type zipRequest struct {
	ModifiedFiles map[string]string `json:"modified_files"`
	Readme        string            `json:"readme"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeZip(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", zipContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mt, "multipart/")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeGenerate(w http.ResponseWriter, r *http.Request) (generateRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodySize)

	var req generateRequest
	if !isMultipart(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("decode request: %w", err)
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(s.cfg.MaxBodySize); err != nil {
		return req, fmt.Errorf("parse form: %w", err)
	}
	req.InputType = r.FormValue("input_type")
	req.InputData = r.FormValue("input_data")
	req.Branch = r.FormValue("branch")

	file, _, err := r.FormFile("zip_file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return req, fmt.Errorf("read zip_file: %w", err)
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return req, fmt.Errorf("read zip_file: %w", err)
		}
		req.archive = data
	}
	return req, nil
}

// input maps the request onto a run input. Repository references may name
// their forge as the input type.
func (g generateRequest) input() (docgen.Input, error) {
	switch strings.ToLower(strings.TrimSpace(g.InputType)) {
	case "zip":
		data := g.archive
		if data == nil && g.InputData != "" {
			decoded, err := base64.StdEncoding.DecodeString(g.InputData)
			if err != nil {
				return docgen.Input{}, &docgen.ConfigError{Field: "input_data", Reason: "archive is not valid base64"}
			}
			data = decoded
		}
		return docgen.Input{Kind: docgen.KindArchive, Archive: data}, nil
	case "repo", "github", "gitlab", "url":
		return docgen.Input{Kind: docgen.KindRepo, RepoURL: g.InputData, Branch: g.Branch}, nil
	default:
		return docgen.Input{Kind: docgen.InputKind(g.InputType)}, nil
	}
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, prefs pipeline.Preferences, download bool) (*docgen.Result, bool) {
	req, err := s.decodeGenerate(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	in, err := req.input()
	if err == nil {
		var res *docgen.Result
		res, err = s.cfg.Run(r.Context(), docgen.Request{Input: in, Preferences: prefs, Download: download})
		if err == nil {
			return res, true
		}
	}

	var cfgErr *docgen.ConfigError
	if errors.As(err, &cfgErr) {
		writeError(w, http.StatusBadRequest, cfgErr.Error())
		return nil, false
	}
	s.cfg.Logger.Error("generation failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
	return nil, false
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.generate(w, r, pipeline.PreviewPreferences(), false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGenerateAndDownload(w http.ResponseWriter, r *http.Request) {
	res, ok := s.generate(w, r, pipeline.FullPreferences(), true)
	if !ok {
		return
	}
	res.DownloadURL = "/download-zip/" + res.Token
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotFound, errExpiredDownload)
		return
	}
	data, ok := s.cfg.Store.Take(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errExpiredDownload)
		return
	}
	writeZip(w, "docgen_output.zip", data)
}

// handleBuildZip zips caller-provided files directly, without a run.
func (s *Server) handleBuildZip(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodySize)

	var req zipRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(s.cfg.MaxBodySize); err != nil {
			writeError(w, http.StatusBadRequest, "parse form: "+err.Error())
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("modified_files_json")), &req.ModifiedFiles); err != nil {
			writeError(w, http.StatusBadRequest, "decode modified_files_json: "+err.Error())
			return
		}
		req.Readme = r.FormValue("readme")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}

	data, err := archive.Build(req.ModifiedFiles, req.Readme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeZip(w, "modified_code.zip", data)
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	repo := strings.TrimSpace(r.URL.Query().Get("repo"))
	if repo == "" {
		writeError(w, http.StatusBadRequest, "missing repo parameter")
		return
	}
	if s.cfg.Branches == nil {
		writeError(w, http.StatusNotImplemented, "branch listing is not configured")
		return
	}
	branches, err := s.cfg.Branches.Branches(r.Context(), repo)
	if errors.Is(err, source.ErrInvalidRepoURL) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.cfg.Logger.Warn("branch listing failed", "repo", repo, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"branches": branches})
}
