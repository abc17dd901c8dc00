package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/logger"
	"alfredoptarigan/hiresense/internal/scoring"
	"alfredoptarigan/hiresense/internal/session"
)

// UploadOutcome lists the resumes a batch upload accepted and skipped.
type UploadOutcome struct {
	Uploaded []session.Resume
	Failed   []FailedFile
}

// SessionService runs the interactive workflow on the shared session:
// upload a job description and resumes, match, inspect and export.
type SessionService interface {
	SetJobDescriptionText(text string) (*session.JobDescription, error)
	SetJobDescriptionFile(file *multipart.FileHeader) (*session.JobDescription, error)
	UploadResumes(files []*multipart.FileHeader) (*UploadOutcome, error)
	Match(ctx context.Context) (*MatchOutcome, error)
	Reset() int
	Accept(filename string) (string, error)
	Insights(ctx context.Context, filename string) (*scoring.SkillMatchResult, error)
	Analytics() (*scoring.Summary, error)
	Report(ctx context.Context) ([]ReportRow, error)
	ResumeFile(filename string) (session.Resume, error)
	Snapshot() session.Snapshot
}

// sessionService serializes the transitions that touch stored files under
// opMu. Scoring runs outside it and relies on the store generation.
type sessionService struct {
	opMu        sync.Mutex
	store       *session.Store
	storage     StorageService
	extractor   TextExtractor
	matcher     MatcherService
	maxFileSize int64
	log         *zap.Logger
}

func NewSessionService(
	store *session.Store,
	storage StorageService,
	extractor TextExtractor,
	matcher MatcherService,
	maxFileSize int64,
	log *zap.Logger,
) SessionService {
	return &sessionService{
		store:       store,
		storage:     storage,
		extractor:   extractor,
		matcher:     matcher,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

func (s *sessionService) SetJobDescriptionText(text string) (*session.JobDescription, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, missing(NeedJobDescription)
	}

	jd := session.JobDescription{Source: "text", Content: text}
	s.opMu.Lock()
	s.store.ReplaceJobDescription(jd)
	s.opMu.Unlock()
	s.log.Info("📝 Job description set", zap.String("preview", logger.Truncate(text, 80)))
	return &jd, nil
}

// SetJobDescriptionFile extracts the job description from an upload
// without keeping the file.
func (s *sessionService) SetJobDescriptionFile(file *multipart.FileHeader) (*session.JobDescription, error) {
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: file too large, max size is %d bytes", ErrExtractionFailure, s.maxFileSize)
	}

	format, err := DetectFormat(file.Header.Get("Content-Type"), file.Filename)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	text, err := s.extractor.Extract(src, file.Size, format)
	if err != nil {
		return nil, err
	}

	jd := session.JobDescription{
		Source:   string(format),
		Filename: filepath.Base(file.Filename),
		Content:  text,
	}
	s.opMu.Lock()
	s.store.ReplaceJobDescription(jd)
	s.opMu.Unlock()
	s.log.Info("📝 Job description uploaded", zap.String("filename", jd.Filename), zap.Int("chars", len(text)))
	return &jd, nil
}

// UploadResumes stores and extracts each file. Files that fail are skipped
// and reported. When at least one succeeds the session's resume list is
// replaced and the previous files are removed.
func (s *sessionService) UploadResumes(files []*multipart.FileHeader) (*UploadOutcome, error) {
	if len(files) == 0 {
		return nil, missing(NeedResumes)
	}

	outcome := &UploadOutcome{}
	seen := make(map[string]struct{}, len(files))

	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if _, dup := seen[name]; dup {
			outcome.Failed = append(outcome.Failed, FailedFile{Filename: name, Reason: "duplicate filename in upload"})
			continue
		}

		resume, err := s.storeResume(fh)
		if err != nil {
			s.log.Warn("⚠️  Resume skipped", zap.String("filename", name), zap.Error(err))
			outcome.Failed = append(outcome.Failed, FailedFile{Filename: name, Reason: uploadFailureReason(err)})
			continue
		}
		seen[name] = struct{}{}
		outcome.Uploaded = append(outcome.Uploaded, *resume)
	}

	if len(outcome.Uploaded) == 0 {
		return outcome, fmt.Errorf("%w: none of the %d files could be read", ErrExtractionFailure, len(files))
	}

	s.opMu.Lock()
	previous := s.store.ReplaceResumes(outcome.Uploaded)
	s.removeFiles(previous)
	s.opMu.Unlock()

	s.log.Info("📥 Resumes uploaded",
		zap.Int("uploaded", len(outcome.Uploaded)),
		zap.Int("failed", len(outcome.Failed)),
	)
	return outcome, nil
}

func (s *sessionService) storeResume(fh *multipart.FileHeader) (*session.Resume, error) {
	if s.maxFileSize > 0 && fh.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: file too large", ErrExtractionFailure)
	}

	stored, err := s.storage.SaveFile(fh, "resume")
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.ExtractFile(stored.Path, stored.Format)
	if err != nil {
		if delErr := s.storage.DeleteFile(stored.Path); delErr != nil {
			s.log.Warn("⚠️  Failed to remove unreadable upload", zap.String("path", stored.Path), zap.Error(delErr))
		}
		return nil, err
	}

	return &session.Resume{
		Filename:    stored.OriginalName,
		Content:     text,
		Path:        stored.Path,
		ContentType: stored.Format.ContentType(),
	}, nil
}

func uploadFailureReason(err error) string {
	if errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrExtractionFailure) {
		return err.Error()
	}
	return "failed to store file"
}

// Match scores the session and writes the results back. If the session
// changed while scoring, nothing is written and session.ErrStale is
// returned.
func (s *sessionService) Match(ctx context.Context) (*MatchOutcome, error) {
	snap := s.store.Snapshot()
	if snap.JobDescription == nil {
		return nil, missing(NeedJobDescription)
	}

	outcome, err := s.matcher.MatchAll(ctx, snap.JobDescription.Content, CandidatesFrom(snap.Resumes))
	if err != nil {
		return nil, err
	}

	if err := s.store.ApplyResults(snap.Generation, outcome.Ranked); err != nil {
		return nil, err
	}
	return outcome, nil
}

// Reset clears the session and deletes its stored files. It returns how
// many resumes were dropped.
func (s *sessionService) Reset() int {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	removed := s.store.Clear()
	s.removeFiles(removed)
	s.log.Info("🧹 Session reset", zap.Int("resumes", len(removed)))
	return len(removed)
}

// Accept moves a resume's file to the accepted folder and drops it from
// the session.
func (s *sessionService) Accept(filename string) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	r, ok := s.store.Resume(filename)
	if !ok {
		return "", session.ErrResumeNotFound
	}

	dest, err := s.storage.MoveToAccepted(r.Path, r.Filename)
	if err != nil {
		return "", err
	}

	if _, err := s.store.RemoveResume(filename); err != nil {
		s.log.Warn("⚠️  Accepted resume already left the session", zap.String("filename", filename))
	}
	s.log.Info("✅ Resume accepted", zap.String("filename", filename), zap.String("path", dest))
	return dest, nil
}

func (s *sessionService) Insights(ctx context.Context, filename string) (*scoring.SkillMatchResult, error) {
	snap := s.store.Snapshot()
	if snap.JobDescription == nil {
		return nil, missing(NeedJobDescription)
	}

	r, ok := s.store.Resume(filename)
	if !ok {
		return nil, session.ErrResumeNotFound
	}
	return s.matcher.Insights(ctx, snap.JobDescription.Content, r.Content)
}

func (s *sessionService) Analytics() (*scoring.Summary, error) {
	return s.matcher.Analytics(s.store.Snapshot())
}

func (s *sessionService) Report(ctx context.Context) ([]ReportRow, error) {
	snap := s.store.Snapshot()
	if snap.JobDescription == nil {
		return nil, missing(NeedJobDescription)
	}
	return s.matcher.Report(ctx, snap.JobDescription.Content, CandidatesFrom(snap.Resumes))
}

func (s *sessionService) ResumeFile(filename string) (session.Resume, error) {
	r, ok := s.store.Resume(filename)
	if !ok {
		return session.Resume{}, session.ErrResumeNotFound
	}
	return r, nil
}

func (s *sessionService) Snapshot() session.Snapshot {
	return s.store.Snapshot()
}

func (s *sessionService) removeFiles(resumes []session.Resume) {
	for _, r := range resumes {
		if r.Path == "" {
			continue
		}
		if err := s.storage.DeleteFile(r.Path); err != nil {
			s.log.Warn("⚠️  Failed to delete resume file", zap.String("path", r.Path), zap.Error(err))
		}
	}
}
