package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"

	"resume-intel-go/internal/api/handler"
	"resume-intel-go/internal/config"
	"resume-intel-go/internal/processor"
	"resume-intel-go/internal/storage"
	"resume-intel-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService 记录调用参数并返回预设结果
type fakeService struct {
	mu sync.Mutex

	analyzeResp *processor.AnalyzeResponse
	analyzeErr  error
	gotMime     string
	gotJobID    string
	gotData     []byte

	submitErr error
	submitted []processor.SubmitRequest

	processed  []storage.ResumeUploadMessage
	processErr error

	analyses map[string]*processor.StoredAnalysis
	jobs     map[string]types.JobRequirement
	score    types.ATSScoreResult
	page     *processor.JobScorePage
	gotPage  [2]int
}

func newFakeService() *fakeService {
	return &fakeService{
		analyses: map[string]*processor.StoredAnalysis{},
		jobs:     map[string]types.JobRequirement{},
	}
}

func (f *fakeService) AnalyzeUpload(_ context.Context, data []byte, mimeType string, jobID string) (*processor.AnalyzeResponse, error) {
	f.gotData, f.gotMime, f.gotJobID = data, mimeType, jobID
	return f.analyzeResp, f.analyzeErr
}

func (f *fakeService) SubmitResume(_ context.Context, req processor.SubmitRequest) (*processor.SubmitResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return &processor.SubmitResult{SubmissionUUID: "sub-1", Status: "PENDING_ANALYSIS"}, nil
}

func (f *fakeService) ProcessAnalysisMessage(_ context.Context, msg storage.ResumeUploadMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, msg)
	return f.processErr
}

func (f *fakeService) GetAnalysis(_ context.Context, uuid string) (*processor.StoredAnalysis, error) {
	a, ok := f.analyses[uuid]
	if !ok {
		return nil, processor.ErrSubmissionNotFound
	}
	return a, nil
}

func (f *fakeService) ScoreSubmission(_ context.Context, uuid, jobID string) (types.ATSScoreResult, error) {
	if _, ok := f.jobs[jobID]; !ok {
		return types.NewZeroScoreResult(), fmt.Errorf("%w: %s", processor.ErrJobNotFound, jobID)
	}
	return f.score, nil
}

func (f *fakeService) SaveJob(_ context.Context, jobID string, job types.JobRequirement) (string, error) {
	if jobID == "" {
		jobID = "generated-job"
	}
	f.jobs[jobID] = job
	return jobID, nil
}

func (f *fakeService) GetJob(_ context.Context, jobID string) (types.JobRequirement, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return types.JobRequirement{}, processor.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeService) ListJobScores(_ context.Context, jobID string, cursor, size int) (*processor.JobScorePage, error) {
	f.gotPage = [2]int{cursor, size}
	return f.page, nil
}

type fakeHealth map[string]string

func (f fakeHealth) Ping(context.Context) map[string]string { return f }

func newTestServer(t *testing.T, svc *fakeService, opts ...handler.HandlerOption) *server.Hertz {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.MaxUploadSizeMB = 1
	h := handler.NewResumeHandler(cfg, svc, opts...)

	srv := server.New()
	api := srv.Group("/api/v1")
	api.POST("/resume/analyze", h.HandleAnalyze)
	api.POST("/resume/upload", h.HandleUpload)
	api.GET("/resume/:submission_uuid", h.HandleGetAnalysis)
	api.POST("/resume/:submission_uuid/score", h.HandleScore)
	api.POST("/jobs", h.HandleCreateJob)
	api.GET("/jobs/:job_id", h.HandleGetJob)
	api.GET("/jobs/:job_id/scores", h.HandleListJobScores)
	api.GET("/health", h.HandleHealth)
	return srv
}

// createMultipartForm 构造带 file 字段的 multipart 表单
func createMultipartForm(t *testing.T, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postForm(srv *server.Hertz, path string, body *bytes.Buffer, contentType string) *ut.ResponseRecorder {
	return ut.PerformRequest(srv.Engine, http.MethodPost, path,
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	)
}

func postJSON(srv *server.Hertz, path string, payload interface{}) *ut.ResponseRecorder {
	raw, _ := json.Marshal(payload)
	return ut.PerformRequest(srv.Engine, http.MethodPost, path,
		&ut.Body{Body: bytes.NewReader(raw), Len: len(raw)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
}

func TestHandleAnalyze(t *testing.T) {
	svc := newFakeService()
	parsed := types.NewEmptyParsedResume()
	parsed.ExtractedSkills = []string{"Go"}
	svc.analyzeResp = &processor.AnalyzeResponse{Parsed: parsed, Sections: []types.Section{}}
	srv := newTestServer(t, svc)

	body, ct := createMultipartForm(t, "cv.pdf", []byte("%PDF-1.4"), map[string]string{"job_id": "job-1"})
	resp := postForm(srv, "/api/v1/resume/analyze", body, ct)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var got processor.AnalyzeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, []string{"Go"}, got.Parsed.ExtractedSkills)
	assert.Equal(t, "application/pdf", svc.gotMime, "通用二进制类型应按扩展名推断")
	assert.Equal(t, "job-1", svc.gotJobID)
	assert.Equal(t, []byte("%PDF-1.4"), svc.gotData)
}

func TestHandleAnalyze_BadRequests(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc)

	body, ct := createMultipartForm(t, "", nil, map[string]string{"job_id": "x"})
	assert.Equal(t, http.StatusBadRequest, postForm(srv, "/api/v1/resume/analyze", body, ct).Code, "缺少文件应返回400")

	body, ct = createMultipartForm(t, "empty.pdf", []byte{}, nil)
	assert.Equal(t, http.StatusBadRequest, postForm(srv, "/api/v1/resume/analyze", body, ct).Code, "空文件应返回400")

	big := bytes.Repeat([]byte("a"), 1<<20+1)
	body, ct = createMultipartForm(t, "big.pdf", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, postForm(srv, "/api/v1/resume/analyze", body, ct).Code)
}

func TestHandleAnalyze_ServiceErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"岗位不存在", processor.ErrJobNotFound, http.StatusNotFound},
		{"岗位不合法", fmt.Errorf("%w: title", processor.ErrInvalidJobRequirement), http.StatusBadRequest},
		{"存储未初始化", processor.ErrStorageNotInit, http.StatusServiceUnavailable},
		{"内部错误", errors.New("boom"), http.StatusInternalServerError},
		{"超时", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFakeService()
			svc.analyzeErr = tc.err
			srv := newTestServer(t, svc)

			body, ct := createMultipartForm(t, "cv.pdf", []byte("x"), nil)
			resp := postForm(srv, "/api/v1/resume/analyze", body, ct)
			assert.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestHandleUpload(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc)

	body, ct := createMultipartForm(t, "cv.docx", []byte("PK..."), map[string]string{"target_job_id": "job-7"})
	resp := postForm(srv, "/api/v1/resume/upload", body, ct)
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	var got handler.UploadResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "sub-1", got.SubmissionUUID)

	require.Len(t, svc.submitted, 1)
	req := svc.submitted[0]
	assert.Equal(t, "cv.docx", req.OriginalFilename)
	assert.Equal(t, "job-7", req.TargetJobID)
	assert.Equal(t, "web_upload", req.SourceChannel, "未指定来源时使用默认值")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", req.MimeType)
}

func TestHandleUpload_Duplicate(t *testing.T) {
	svc := newFakeService()
	svc.submitErr = &processor.DuplicateFileError{ExistingSubmissionUUID: "first-uuid"}
	srv := newTestServer(t, svc)

	body, ct := createMultipartForm(t, "cv.pdf", []byte("x"), nil)
	resp := postForm(srv, "/api/v1/resume/upload", body, ct)
	require.Equal(t, http.StatusConflict, resp.Code)

	var got handler.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "first-uuid", got.ExistingSubmissionUUID)
}

func TestHandleGetAnalysis(t *testing.T) {
	svc := newFakeService()
	svc.analyses["sub-1"] = &processor.StoredAnalysis{SubmissionUUID: "sub-1", Status: "ANALYZED", Parsed: types.NewEmptyParsedResume()}
	srv := newTestServer(t, svc)

	resp := ut.PerformRequest(srv.Engine, http.MethodGet, "/api/v1/resume/sub-1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var got processor.StoredAnalysis
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "ANALYZED", got.Status)

	resp = ut.PerformRequest(srv.Engine, http.MethodGet, "/api/v1/resume/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleJobs(t *testing.T) {
	svc := newFakeService()
	srv := newTestServer(t, svc)

	resp := postJSON(srv, "/api/v1/jobs", handler.CreateJobRequest{
		Title:                   "Backend Engineer",
		RequiredSkills:          []string{"Go", "SQL"},
		ExperienceRequiredYears: 2,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created handler.JobResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "generated-job", created.JobID)

	resp = ut.PerformRequest(srv.Engine, http.MethodGet, "/api/v1/jobs/generated-job", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var fetched handler.JobResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fetched))
	assert.Equal(t, []string{"Go", "SQL"}, fetched.RequiredSkills)

	resp = ut.PerformRequest(srv.Engine, http.MethodGet, "/api/v1/jobs/absent", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleCreateJob_Validation(t *testing.T) {
	srv := newTestServer(t, newFakeService())

	cases := map[string]interface{}{
		"缺少标题": handler.CreateJobRequest{RequiredSkills: []string{"Go"}},
		"负经验":  handler.CreateJobRequest{Title: "Dev", ExperienceRequiredYears: -1},
		"空技能":  handler.CreateJobRequest{Title: "Dev", RequiredSkills: []string{""}},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, postJSON(srv, "/api/v1/jobs", payload).Code)
		})
	}

	raw := []byte("{not json")
	resp := ut.PerformRequest(srv.Engine, http.MethodPost, "/api/v1/jobs",
		&ut.Body{Body: bytes.NewReader(raw), Len: len(raw)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleScore(t *testing.T) {
	svc := newFakeService()
	svc.jobs["job-1"] = types.JobRequirement{Title: "Dev"}
	svc.score = types.ATSScoreResult{Score: 72, MatchedSkills: []string{"Go"}, MissingSkills: []string{}}
	srv := newTestServer(t, svc)

	resp := postJSON(srv, "/api/v1/resume/sub-1/score", handler.ScoreRequest{JobID: "job-1"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var got handler.ScoreResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, 72, got.Score)
	assert.Equal(t, "sub-1", got.SubmissionUUID)

	resp = ut.PerformRequest(srv.Engine, http.MethodPost, "/api/v1/resume/sub-1/score?job_id=job-1", nil)
	assert.Equal(t, http.StatusOK, resp.Code, "job_id 也可以通过查询参数传入")

	resp = ut.PerformRequest(srv.Engine, http.MethodPost, "/api/v1/resume/sub-1/score", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code, "缺少 job_id 应返回400")

	resp = postJSON(srv, "/api/v1/resume/sub-1/score", handler.ScoreRequest{JobID: "absent"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleListJobScores(t *testing.T) {
	svc := newFakeService()
	svc.page = &processor.JobScorePage{JobID: "job-1", Scores: []processor.JobScoreEntry{}}
	srv := newTestServer(t, svc)

	resp := ut.PerformRequest(srv.Engine, http.MethodGet, "/api/v1/jobs/job-1/scores?cursor=20&size=5", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, [2]int{20, 5}, svc.gotPage)

	ut.PerformRequest(srv.Engine, http.MethodGet, "/api/v1/jobs/job-1/scores?cursor=-3&size=1000", nil)
	assert.Equal(t, [2]int{0, 10}, svc.gotPage, "非法分页参数回退到默认值")
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, newFakeService())
	resp := ut.PerformRequest(srv.Engine, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	degraded := newTestServer(t, newFakeService(), handler.WithHealthChecker(fakeHealth{"mysql": "ok", "redis": "connection refused"}))
	resp = ut.PerformRequest(degraded.Engine, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "connection refused")
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "image/png", handler.DetectMimeType("image/png", "scan.jpg"), "声明的类型优先")
	assert.Equal(t, "image/jpeg", handler.DetectMimeType("application/octet-stream", "scan.JPG"))
	assert.Equal(t, "application/pdf", handler.DetectMimeType("", "cv.pdf"))
	assert.Equal(t, "application/octet-stream", handler.DetectMimeType("", "noext"))
}
