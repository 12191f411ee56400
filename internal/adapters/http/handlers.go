package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/brief-service/internal/core/domain"
)

const (
	multipartOverheadBytes = 64 << 10
	multipartMemoryBytes   = 8 << 20
)

type uploadAccepted struct {
	OK    bool   `json:"ok"`
	JobID string `json:"jobId"`
}

type jobResult struct {
	OK    bool     `json:"ok"`
	Error string   `json:"error,omitempty"`
	Job   *jobView `json:"job"`
}

type statusResponse struct {
	OK bool `json:"ok"`
	jobView
}

type chatResponse struct {
	OK     bool   `json:"ok"`
	Answer string `json:"answer"`
}

type workerRunResponse struct {
	OK        bool     `json:"ok"`
	Processed bool     `json:"processed"`
	Error     string   `json:"error,omitempty"`
	Job       *jobView `json:"job,omitempty"`
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeClientError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var mode string
	if err := runtime.BindQueryParameter("form", true, false, "mode", r.URL.Query(), &mode); err != nil {
		writeClientError(w, http.StatusBadRequest, err.Error())
		return
	}

	upload, err := rt.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if strings.EqualFold(mode, "sync") {
		rt.recordUpload("sync", upload)
		job, err := rt.intake.UploadAndProcess(r.Context(), upload)
		if job != nil {
			annotateJob(r, job.ID)
		}
		if err != nil {
			writeJobFailure(w, r, job, err)
			return
		}
		writeJSON(w, http.StatusOK, jobResult{OK: true, Job: newJobView(job)})
		return
	}

	rt.recordUpload("async", upload)
	job, err := rt.intake.Upload(r.Context(), upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	annotateJob(r, job.ID)
	writeJSON(w, http.StatusAccepted, uploadAccepted{OK: true, JobID: job.ID})
}

func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (domain.Upload, error) {
	limit := rt.cfg.MaxUploadBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverheadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		if isBodyTooLarge(err) {
			return domain.Upload{}, tooLarge(limit)
		}
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("multipart field 'file' is required"))
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("multipart field 'file' is required"))
	}
	defer file.Close()
	if limit > 0 && header.Size > limit {
		return domain.Upload{}, tooLarge(limit)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("read file: %w", err))
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return domain.Upload{Filename: header.Filename, MimeType: mimeType, Data: data}, nil
}

func tooLarge(limit int64) error {
	return domain.WrapError(domain.ErrPayloadTooLarge, "upload", fmt.Errorf("file exceeds %d bytes", limit))
}

func (rt *Router) recordUpload(mode string, upload domain.Upload) {
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, mode, int64(len(upload.Data)))
	}
}

func (rt *Router) getJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeClientError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var jobID string
	if err := runtime.BindQueryParameter("form", true, true, "jobId", r.URL.Query(), &jobID); err != nil {
		writeClientError(w, http.StatusBadRequest, err.Error())
		return
	}

	annotateJob(r, jobID)

	job, err := rt.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{OK: true, jobView: *newJobView(job)})
}

func (rt *Router) askAboutBrief(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeClientError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			writeClientError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeClientError(w, http.StatusBadRequest, "invalid json")
		return
	}

	annotateJob(r, req.BriefID)

	source := "inline"
	if strings.TrimSpace(req.Brief) == "" && strings.TrimSpace(req.BriefID) != "" {
		source = "brief_id"
	}

	answer, err := rt.chat.Ask(r.Context(), req)
	if err != nil {
		rt.recordChat(source, "error")
		writeError(w, r, err)
		return
	}
	rt.recordChat(source, "ok")
	if rt.metrics != nil {
		rt.metrics.RecordTokenUsage(serviceName, "chat", answer.Model, answer.PromptTokens, answer.CompletionTokens)
	}
	writeJSON(w, http.StatusOK, chatResponse{OK: true, Answer: answer.Answer})
}

func (rt *Router) recordChat(source, status string) {
	if rt.metrics != nil {
		rt.metrics.RecordChat(serviceName, source, status)
	}
}

func (rt *Router) runWorker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeClientError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	job, err := rt.worker.ProcessNext(r.Context())
	if job != nil {
		annotateJob(r, job.ID)
	}
	if err != nil {
		if job == nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, mapErrorToHTTPStatus(err), workerRunResponse{
			OK:        false,
			Processed: true,
			Error:     err.Error(),
			Job:       newJobView(job),
		})
		return
	}
	if job == nil {
		writeJSON(w, http.StatusOK, workerRunResponse{OK: true, Processed: false})
		return
	}
	writeJSON(w, http.StatusOK, workerRunResponse{OK: true, Processed: true, Job: newJobView(job)})
}

// writeJobFailure reports a processing error together with the job it left
// behind, if any.
func writeJobFailure(w http.ResponseWriter, r *http.Request, job *domain.Job, err error) {
	if job == nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, mapErrorToHTTPStatus(err), jobResult{OK: false, Error: err.Error(), Job: newJobView(job)})
}
