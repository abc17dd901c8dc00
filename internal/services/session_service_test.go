package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/session"
)

type sessionFixture struct {
	svc      SessionService
	uploads  string
	accepted string
}

func newSessionFixture(t *testing.T) sessionFixture {
	t.Helper()
	storage, uploads, accepted := newTestStorage(t)
	store := session.NewStore()
	matcher := newTestMatcherService(nil, nil, MatcherOptions{})

	return sessionFixture{
		svc:      NewSessionService(store, storage, NewTextExtractor(), matcher, 1<<20, zap.NewNop()),
		uploads:  uploads,
		accepted: accepted,
	}
}

func (f sessionFixture) uploadedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.uploads)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestSession_SetJobDescriptionText(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.SetJobDescriptionText("   ")
	assert.ErrorIs(t, err, ErrPrerequisiteMissing)

	jd, err := f.svc.SetJobDescriptionText("  " + testJD + "\n")
	require.NoError(t, err)
	assert.Equal(t, "text", jd.Source)
	assert.Equal(t, testJD, f.svc.Snapshot().JobDescription.Content)
}

func TestSession_SetJobDescriptionFile(t *testing.T) {
	f := newSessionFixture(t)

	fh := fileHeaders(t, "file", upload{name: "jd.docx", contentType: ContentTypeDOCX, body: docxBytes(t, "Python and SQL")})[0]
	jd, err := f.svc.SetJobDescriptionFile(fh)
	require.NoError(t, err)
	assert.Equal(t, "docx", jd.Source)
	assert.Equal(t, "jd.docx", jd.Filename)
	assert.Equal(t, "Python and SQL", jd.Content)
	assert.Empty(t, f.uploadedFiles(t))

	fh = fileHeaders(t, "file", upload{name: "jd.png", contentType: "image/png", body: []byte{1}})[0]
	_, err = f.svc.SetJobDescriptionFile(fh)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSession_UploadResumesPartialFailure(t *testing.T) {
	f := newSessionFixture(t)

	outcome, err := f.svc.UploadResumes(fileHeaders(t, "files",
		txtUpload("alice.txt", "Python and AWS"),
		txtUpload("empty.txt", "   "),
		upload{name: "photo.png", contentType: "image/png", body: []byte{1}},
		txtUpload("alice.txt", "second copy"),
	))
	require.NoError(t, err)

	require.Len(t, outcome.Uploaded, 1)
	assert.Equal(t, "alice.txt", outcome.Uploaded[0].Filename)

	var failed []string
	for _, ff := range outcome.Failed {
		failed = append(failed, ff.Filename)
	}
	assert.Equal(t, []string{"empty.txt", "photo.png", "alice.txt"}, failed)
	assert.Equal(t, "duplicate filename in upload", outcome.Failed[2].Reason)

	// only the readable upload stays on disk
	assert.Len(t, f.uploadedFiles(t), 1)
}

func TestSession_UploadResumesReplacesPrevious(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.UploadResumes(fileHeaders(t, "files", txtUpload("old.txt", "Python")))
	require.NoError(t, err)
	_, err = f.svc.UploadResumes(fileHeaders(t, "files", txtUpload("new.txt", "SQL")))
	require.NoError(t, err)

	snap := f.svc.Snapshot()
	require.Len(t, snap.Resumes, 1)
	assert.Equal(t, "new.txt", snap.Resumes[0].Filename)
	assert.Len(t, f.uploadedFiles(t), 1)
}

func TestSession_UploadResumesAllFail(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.UploadResumes(fileHeaders(t, "files", txtUpload("keep.txt", "Python")))
	require.NoError(t, err)

	outcome, err := f.svc.UploadResumes(fileHeaders(t, "files", txtUpload("blank.txt", "")))
	assert.ErrorIs(t, err, ErrExtractionFailure)
	require.NotNil(t, outcome)
	assert.Len(t, outcome.Failed, 1)

	snap := f.svc.Snapshot()
	require.Len(t, snap.Resumes, 1)
	assert.Equal(t, "keep.txt", snap.Resumes[0].Filename)

	_, err = f.svc.UploadResumes(nil)
	assert.ErrorIs(t, err, ErrPrerequisiteMissing)
}

func TestSession_MatchWritesScores(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Match(context.Background())
	var pe *PrerequisiteError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, NeedJobDescription, pe.Missing)

	_, err = f.svc.SetJobDescriptionText(testJD)
	require.NoError(t, err)

	_, err = f.svc.Match(context.Background())
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, NeedResumes, pe.Missing)

	_, err = f.svc.UploadResumes(fileHeaders(t, "files",
		txtUpload("weak.txt", "Gardening and landscaping"),
		txtUpload("strong.txt", "golang golang Python SQL AWS"),
	))
	require.NoError(t, err)

	_, err = f.svc.Analytics()
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, NeedMatchResults, pe.Missing)

	outcome, err := f.svc.Match(context.Background())
	require.NoError(t, err)
	require.Len(t, outcome.Ranked, 2)
	assert.Equal(t, "strong.txt", outcome.Ranked[0].Filename)

	snap := f.svc.Snapshot()
	assert.Equal(t, "weak.txt", snap.Resumes[0].Filename)
	for _, r := range snap.Resumes {
		assert.True(t, r.Scored(), r.Filename)
	}

	summary, err := f.svc.Analytics()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalCandidates)

	rows, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "strong.txt", rows[0].Filename)
}

func TestSession_Insights(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.SetJobDescriptionText(testJD)
	require.NoError(t, err)
	_, err = f.svc.UploadResumes(fileHeaders(t, "files", txtUpload("alice.txt", "Python developer on AWS")))
	require.NoError(t, err)

	res, err := f.svc.Insights(context.Background(), "alice.txt")
	require.NoError(t, err)
	assert.Contains(t, res.MatchedSkills, "python")
	assert.Contains(t, res.MissingSkills, "sql")

	_, err = f.svc.Insights(context.Background(), "bob.txt")
	assert.ErrorIs(t, err, session.ErrResumeNotFound)
}

func TestSession_AcceptMovesFile(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.UploadResumes(fileHeaders(t, "files",
		txtUpload("alice.txt", "Python"),
		txtUpload("bob.txt", "SQL"),
	))
	require.NoError(t, err)

	dest, err := f.svc.Accept("alice.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.accepted, "alice.txt"), dest)
	assert.FileExists(t, dest)

	snap := f.svc.Snapshot()
	require.Len(t, snap.Resumes, 1)
	assert.Equal(t, "bob.txt", snap.Resumes[0].Filename)

	_, err = f.svc.Accept("alice.txt")
	assert.ErrorIs(t, err, session.ErrResumeNotFound)
}

func TestSession_AcceptRacingUploadKeepsFilesConsistent(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newSessionFixture(t)
		_, err := f.svc.UploadResumes(fileHeaders(t, "files", txtUpload("alice.txt", "Python")))
		require.NoError(t, err)

		replacement := fileHeaders(t, "files", txtUpload("alice.txt", "Python and SQL"))

		var wg sync.WaitGroup
		var acceptErr, uploadErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, acceptErr = f.svc.Accept("alice.txt")
		}()
		go func() {
			defer wg.Done()
			_, uploadErr = f.svc.UploadResumes(replacement)
		}()
		wg.Wait()

		require.NoError(t, acceptErr)
		require.NoError(t, uploadErr)

		accepted, err := os.ReadDir(f.accepted)
		require.NoError(t, err)
		assert.Len(t, accepted, 1)

		// every resume left in the session still has its file, and no
		// upload is orphaned
		snap := f.svc.Snapshot()
		for _, r := range snap.Resumes {
			assert.FileExists(t, r.Path)
		}
		assert.Len(t, f.uploadedFiles(t), len(snap.Resumes))
	}
}

func TestSession_ResetDeletesFiles(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.SetJobDescriptionText(testJD)
	require.NoError(t, err)
	_, err = f.svc.UploadResumes(fileHeaders(t, "files", txtUpload("a.txt", "Python"), txtUpload("b.txt", "SQL")))
	require.NoError(t, err)

	assert.Equal(t, 2, f.svc.Reset())
	assert.Empty(t, f.uploadedFiles(t))

	snap := f.svc.Snapshot()
	assert.Nil(t, snap.JobDescription)
	assert.Empty(t, snap.Resumes)
	assert.Equal(t, 0, f.svc.Reset())
}

func TestSession_ResumeFile(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.UploadResumes(fileHeaders(t, "files", txtUpload("a.txt", "Python")))
	require.NoError(t, err)

	r, err := f.svc.ResumeFile("a.txt")
	require.NoError(t, err)
	assert.FileExists(t, r.Path)
	assert.Equal(t, FormatTXT.ContentType(), r.ContentType)

	_, err = f.svc.ResumeFile("zzz.txt")
	assert.ErrorIs(t, err, session.ErrResumeNotFound)
}

