package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/hiresense/internal/models"
	"alfredoptarigan/hiresense/internal/repositories"
	"alfredoptarigan/hiresense/internal/scoring"
	"alfredoptarigan/hiresense/internal/scoring/scoringtest"
	"alfredoptarigan/hiresense/internal/services"
	"alfredoptarigan/hiresense/internal/session"
)

const testJD = "Need a Python developer with SQL and AWS experience."

// inlineWorker runs enqueued jobs on the caller's goroutine.
type inlineWorker struct {
	runs services.MatchRunService
}

func (w inlineWorker) Start(context.Context) {}
func (w inlineWorker) Stop()                 {}
func (w inlineWorker) EnqueueJob(id uuid.UUID) {
	_ = w.runs.ProcessRun(context.Background(), id)
}

// wordEmbedder embeds text as presence over a fixed vocabulary.
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vocab := []string{"python", "sql", "aws"}
	vec := make([]float32, len(vocab))
	for i, w := range vocab {
		if bytes.Contains([]byte(text), []byte(w)) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	log := zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.MatchRun{}, &models.MatchRunResume{}))

	root := t.TempDir()
	storage := services.NewStorageService(filepath.Join(root, "uploads"), filepath.Join(root, "accepted"))
	require.NoError(t, storage.EnsureUploadDir())

	classifier := scoringtest.NewClassifier(&scoringtest.KeywordModel{Keywords: []string{"golang"}})
	skills := scoring.NewSkillMatcher(scoring.NewSkillExtractor(scoring.NewGazetteerTagger()))
	matcher := services.NewMatcherService(classifier, skills, services.MatcherOptions{MaxResumes: 5}, log)

	sessions := services.NewSessionService(session.NewStore(), storage, services.NewTextExtractor(), matcher, 1<<20, log)
	runRepo := repositories.NewMatchRunRepository(db)
	runs := services.NewMatchRunService(runRepo, matcher, 5, log)
	legacy := services.NewLegacySimilarityService(wordEmbedder{}, services.NewMemoryIndex(), log)

	return NewApp(Handlers{
		Session: NewSessionHandler(sessions, log),
		Reports: NewReportHandler(sessions, services.NewReportService(log), log),
		Runs:    NewMatchRunHandler(runRepo, runs, sessions, inlineWorker{runs: runs}, log),
		Legacy:  NewLegacyHandler(sessions, legacy, log),
	}, AppOptions{BodyLimit: 4 << 20}, log)
}

type formFile struct {
	field, name, contentType, body string
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	return decode[map[string]any](t, body)["error"].(string)
}

func seedSession(t *testing.T, app *fiber.App) {
	t.Helper()
	resp, _ := do(t, app, multipartRequest(t, "/upload-jd", map[string]string{"jd_text": testJD}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, multipartRequest(t, "/upload-resumes/", nil,
		formFile{"files", "weak.txt", "text/plain", "Gardening and landscaping"},
		formFile{"files", "strong.txt", "text/plain", "golang golang Python SQL AWS"},
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHealthAndRoot(t *testing.T) {
	app := newTestApp(t)

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[map[string]any](t, body)["status"])

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "POST /match/legacy")
}

func TestUploadJD(t *testing.T) {
	app := newTestApp(t)

	resp, body := do(t, app, multipartRequest(t, "/upload-jd", map[string]string{"jd_text": testJD}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	jd := decode[models.JobDescriptionResponse](t, body)
	assert.Equal(t, "text", jd.Source)
	assert.Equal(t, testJD, jd.Content)

	resp, body = do(t, app, multipartRequest(t, "/upload-jd", nil,
		formFile{"jd_upload", "jd.txt", "text/plain", "Kubernetes and Go"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jd.txt", decode[models.JobDescriptionResponse](t, body).Filename)

	resp, body = do(t, app, multipartRequest(t, "/upload-jd", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Either JD text or JD file must be provided.", errorMessage(t, body))

	resp, _ = do(t, app, multipartRequest(t, "/upload-jd", nil,
		formFile{"jd_upload", "jd.png", "image/png", "x"}))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, body = do(t, app, multipartRequest(t, "/upload-jd", nil,
		formFile{"jd_upload", "jd.txt", "text/plain", "   "}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Error extracting text from file", errorMessage(t, body))
}

func TestUploadResumes(t *testing.T) {
	app := newTestApp(t)

	resp, body := do(t, app, multipartRequest(t, "/upload-resumes/", nil,
		formFile{"files", "a.txt", "text/plain", "Python"},
		formFile{"files", "b.png", "image/png", "x"},
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[models.UploadResumesResponse](t, body)
	require.Len(t, out.Uploaded, 1)
	assert.Equal(t, "a.txt", out.Uploaded[0].Filename)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, "b.png", out.Failed[0].Filename)

	resp, body = do(t, app, multipartRequest(t, "/upload-resumes/", nil,
		formFile{"files", "blank.txt", "text/plain", ""}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out = decode[models.UploadResumesResponse](t, body)
	assert.Empty(t, out.Uploaded)
	assert.Len(t, out.Failed, 1)

	resp, _ = do(t, app, multipartRequest(t, "/upload-resumes/", map[string]string{"x": "y"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMatchFlow(t *testing.T) {
	app := newTestApp(t)

	resp, body := do(t, app, httptest.NewRequest(http.MethodPost, "/match/", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Job Description not uploaded.", errorMessage(t, body))

	seedSession(t, app)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, body), "Run the /match/ endpoint first")

	resp, body = do(t, app, httptest.NewRequest(http.MethodPost, "/match/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	match := decode[models.MatchResponse](t, body)
	require.Len(t, match.RankedResumes, 2)
	assert.Equal(t, "strong.txt", match.RankedResumes[0].Filename)
	assert.Equal(t, scoring.LabelFit, match.RankedResumes[0].Prediction)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[scoring.Summary](t, body)
	assert.Equal(t, 2, summary.TotalCandidates)
	assert.Len(t, summary.ScoreDistribution, 5)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/insights/strong.txt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	insights := decode[models.InsightsResponse](t, body)
	assert.Contains(t, insights.MatchedSkills, "python")
	assert.Empty(t, insights.MissingSkills)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/insights/nobody.txt", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Resume not found.", errorMessage(t, body))
}

func TestReports(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/reports/export-csv", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/reports/download-resumes-zip", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	seedSession(t, app)

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/reports/export-csv", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "resume_rankings_insights.csv")
	assert.Contains(t, string(body), "Rank,Resume Filename,Relevance Score (%),Matched Skills,Missing Skills")
	assert.Contains(t, string(body), "1,strong.txt,")

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/reports/export-excel", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "resume_rankings_insights.xlsx")
	assert.Equal(t, "PK", string(body[:2]))

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/reports/download-resumes-zip", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Equal(t, "PK", string(body[:2]))
}

func TestViewAcceptAndReset(t *testing.T) {
	app := newTestApp(t)
	seedSession(t, app)

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/resumes/weak.txt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Gardening and landscaping", string(body))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/resumes/ghost.txt", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, app, httptest.NewRequest(http.MethodPost, "/accept-resume/weak.txt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Resume 'weak.txt' has been accepted and moved.")

	resp, _ = do(t, app, httptest.NewRequest(http.MethodPost, "/accept-resume/weak.txt", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, app, httptest.NewRequest(http.MethodPost, "/reset/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode[map[string]any](t, body)["removed"])

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/resumes/strong.txt", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAsyncMatchRun(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/match/async", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	seedSession(t, app)

	resp, body := do(t, app, httptest.NewRequest(http.MethodPost, "/match/async", nil))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	created := decode[models.MatchRunCreatedResponse](t, body)
	assert.Equal(t, string(models.StatusQueued), created.Status)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/match/runs/"+created.ID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := decode[models.MatchRunResponse](t, body)
	assert.Equal(t, string(models.StatusCompleted), run.Status)
	require.NotNil(t, run.Result)
	require.Len(t, run.Result.RankedResumes, 2)
	assert.Equal(t, "strong.txt", run.Result.RankedResumes[0].Filename)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/match/runs", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), created.ID)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/match/runs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/match/runs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLegacyMatch(t *testing.T) {
	app := newTestApp(t)
	seedSession(t, app)

	resp, body := do(t, app, httptest.NewRequest(http.MethodPost, "/match/legacy", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[struct {
		RankedResumes []services.LegacyScore `json:"ranked_resumes"`
	}](t, body)
	require.Len(t, out.RankedResumes, 2)
	assert.Equal(t, "strong.txt", out.RankedResumes[0].Filename)
	assert.Equal(t, 100.0, out.RankedResumes[0].Score)
}
