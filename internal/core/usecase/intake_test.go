package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/brief-service/internal/core/domain"
)

type intakeBlobFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *intakeBlobFake) Put(_ context.Context, key string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.savedKey = key
	f.savedBody = string(data)
	return key, nil
}

func (f *intakeBlobFake) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (f *intakeBlobFake) PublicURL(string) (string, bool) { return "", false }

type intakeEventsFake struct {
	jobID string
	err   error
}

func (f *intakeEventsFake) PublishJobCreated(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.jobID = jobID
	return nil
}

func (f *intakeEventsFake) SubscribeJobCreated(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type pageCounterFake struct {
	pages int
	err   error
	calls int
}

func (f *pageCounterFake) PageCount([]byte) (int, error) {
	f.calls++
	return f.pages, f.err
}

type workerByIDFake struct {
	processedID string
}

func (f *workerByIDFake) ProcessNext(context.Context) (*domain.Job, error) { return nil, nil }

func (f *workerByIDFake) ProcessByID(_ context.Context, jobID string) (*domain.Job, error) {
	f.processedID = jobID
	return &domain.Job{ID: jobID, Status: domain.JobStatusDone, Brief: "Facts: x"}, nil
}

func TestIntakeUploadSuccess(t *testing.T) {
	repo := newMemoryRepo()
	blobs := &intakeBlobFake{}
	events := &intakeEventsFake{}
	uc := NewIntakeUseCase(repo, blobs, events, nil, nil)

	job, err := uc.Upload(context.Background(), domain.Upload{
		Filename: "judgment 1.pdf",
		MimeType: "application/pdf",
		Data:     []byte("hello"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected job id")
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("expected status pending, got %s", job.Status)
	}
	stored, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("expected job row before return: %v", err)
	}
	if stored.Status != domain.JobStatusPending {
		t.Fatalf("expected stored status pending, got %s", stored.Status)
	}
	if events.jobID != job.ID {
		t.Fatalf("expected published job id %s, got %s", job.ID, events.jobID)
	}
	if !strings.HasPrefix(blobs.savedKey, job.ID+"_") || !strings.HasSuffix(blobs.savedKey, "_judgment_1.pdf") {
		t.Fatalf("expected id-prefixed sanitized key, got %s", blobs.savedKey)
	}
	if blobs.savedBody != "hello" {
		t.Fatalf("expected saved body hello, got %s", blobs.savedBody)
	}
	if job.SizeBytes != 5 {
		t.Fatalf("expected size 5, got %d", job.SizeBytes)
	}
}

func TestIntakeUploadRejectsEmptyFile(t *testing.T) {
	repo := newMemoryRepo()
	blobs := &intakeBlobFake{}
	uc := NewIntakeUseCase(repo, blobs, nil, nil, nil)

	_, err := uc.Upload(context.Background(), domain.Upload{Filename: "empty.pdf"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if blobs.savedKey != "" {
		t.Fatalf("expected no blob write, got %s", blobs.savedKey)
	}
	if repo.count() != 0 {
		t.Fatalf("expected no job rows, got %d", repo.count())
	}
}

func TestIntakeUploadStorageErrorIsDistinct(t *testing.T) {
	repo := newMemoryRepo()
	uc := NewIntakeUseCase(repo, &intakeBlobFake{err: errors.New("disk full")}, nil, nil, nil)

	_, err := uc.Upload(context.Background(), domain.Upload{Filename: "a.pdf", Data: []byte("x")})
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if repo.count() != 0 {
		t.Fatalf("expected no job rows, got %d", repo.count())
	}
}

func TestIntakeUploadMetadataError(t *testing.T) {
	repo := newMemoryRepo()
	repo.createErr = errors.New("db down")
	blobs := &intakeBlobFake{}
	uc := NewIntakeUseCase(repo, blobs, nil, nil, nil)

	_, err := uc.Upload(context.Background(), domain.Upload{Filename: "a.pdf", Data: []byte("x")})
	if err == nil || !strings.Contains(err.Error(), "create job metadata") {
		t.Fatalf("expected metadata error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("metadata failure must not be reported as storage failure: %v", err)
	}
	if blobs.savedKey == "" {
		t.Fatalf("expected blob to be written before metadata insert")
	}
}

func TestIntakeUploadIgnoresPublishError(t *testing.T) {
	repo := newMemoryRepo()
	uc := NewIntakeUseCase(repo, &intakeBlobFake{}, &intakeEventsFake{err: errors.New("nats down")}, nil, nil)

	job, err := uc.Upload(context.Background(), domain.Upload{Filename: "a.pdf", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("expected pending job, got %s", job.Status)
	}
}

func TestIntakeUploadCountsPDFPages(t *testing.T) {
	pages := &pageCounterFake{pages: 2}
	uc := NewIntakeUseCase(newMemoryRepo(), &intakeBlobFake{}, nil, pages, nil)

	job, err := uc.Upload(context.Background(), domain.Upload{Filename: "a.PDF", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if job.PageCount == nil || *job.PageCount != 2 {
		t.Fatalf("expected page count 2, got %v", job.PageCount)
	}

	job, err = uc.Upload(context.Background(), domain.Upload{Filename: "a.docx", Data: []byte("PK")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if job.PageCount != nil || pages.calls != 1 {
		t.Fatalf("expected page counting only for pdf, got %v after %d calls", job.PageCount, pages.calls)
	}
}

func TestIntakeUploadAndProcessRunsWorkerOnNewJob(t *testing.T) {
	worker := &workerByIDFake{}
	uc := NewIntakeUseCase(newMemoryRepo(), &intakeBlobFake{}, nil, nil, worker)

	job, err := uc.UploadAndProcess(context.Background(), domain.Upload{Filename: "a.pdf", Data: []byte("x")})
	if err != nil {
		t.Fatalf("UploadAndProcess() error = %v", err)
	}
	if worker.processedID == "" || worker.processedID != job.ID {
		t.Fatalf("expected worker to process %s, got %s", job.ID, worker.processedID)
	}
	if job.Status != domain.JobStatusDone {
		t.Fatalf("expected done, got %s", job.Status)
	}
}

// claimingEvents hands every published job straight to a worker, like a
// subscriber that is faster than the publishing request.
type claimingEvents struct {
	worker    *WorkerUseCase
	published []string
}

func (f *claimingEvents) PublishJobCreated(ctx context.Context, jobID string) error {
	f.published = append(f.published, jobID)
	_, err := f.worker.ProcessNext(ctx)
	return err
}

func (f *claimingEvents) SubscribeJobCreated(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

// preemptedWorker lets another consumer claim the job before processing it.
type preemptedWorker struct {
	repo   *memoryRepo
	worker *WorkerUseCase
}

func (f *preemptedWorker) ProcessNext(ctx context.Context) (*domain.Job, error) {
	return f.worker.ProcessNext(ctx)
}

func (f *preemptedWorker) ProcessByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if _, err := f.repo.ClaimByID(ctx, jobID); err != nil {
		return nil, err
	}
	return f.worker.ProcessByID(ctx, jobID)
}

func TestIntakeUploadAndProcessDoesNotPublish(t *testing.T) {
	repo := newMemoryRepo()
	completer := &completerFake{text: sampleBrief}
	worker := newTestWorker(repo, &extractorFake{text: "The judgment text."}, completer, &observerFake{})
	events := &claimingEvents{worker: worker}
	uc := NewIntakeUseCase(repo, &intakeBlobFake{}, events, nil, worker)

	job, err := uc.UploadAndProcess(context.Background(), domain.Upload{Filename: "a.pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("UploadAndProcess() error = %v", err)
	}
	if job.Status != domain.JobStatusDone || job.Brief != sampleBrief {
		t.Fatalf("expected done job with brief, got %+v", job)
	}
	if len(events.published) != 0 {
		t.Fatalf("synchronous upload must not publish, got %v", events.published)
	}
	if completer.calls() != 1 {
		t.Fatalf("expected one completion, got %d", completer.calls())
	}

	async, err := uc.Upload(context.Background(), domain.Upload{Filename: "b.pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(events.published) != 1 || events.published[0] != async.ID {
		t.Fatalf("expected async upload to publish %s, got %v", async.ID, events.published)
	}
}

func TestIntakeUploadAndProcessReturnsJobOnConflict(t *testing.T) {
	repo := newMemoryRepo()
	worker := newTestWorker(repo, &extractorFake{text: "The judgment text."}, &completerFake{text: sampleBrief}, &observerFake{})
	uc := NewIntakeUseCase(repo, &intakeBlobFake{}, nil, nil, &preemptedWorker{repo: repo, worker: worker})

	job, err := uc.UploadAndProcess(context.Background(), domain.Upload{Filename: "a.pdf", Data: []byte("%PDF")})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if job == nil || job.ID == "" {
		t.Fatalf("expected created job alongside the error, got %+v", job)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("expected current status processing, got %s", job.Status)
	}
	if repo.count() != 1 {
		t.Fatalf("expected one job row, got %d", repo.count())
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report 1.pdf":      "report_1.pdf",
		"../../etc/passwd":  "passwd",
		`C:\docs\case.docx`: "case.docx",
		"résumé.pdf":        "r_sum_.pdf",
		"":                  "document.bin",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
