package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/exoshivam/smart-attendance/apps/api/echo"
	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/report"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
	"github.com/exoshivam/smart-attendance/core/testutil"
	logsvc "github.com/exoshivam/smart-attendance/services/logger"
	inmemdb "github.com/exoshivam/smart-attendance/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// faceService answers every identification with ref and records registrations.
type faceService struct {
	ref        string
	matched    bool
	err        error
	registered []string
}

func (f *faceService) Identify(_ context.Context, photo io.Reader, _ string) (string, bool, error) {
	_, _ = ioutil.ReadAll(photo)
	return f.ref, f.matched, f.err
}

func (f *faceService) Register(_ context.Context, ref string, photo io.Reader, _ string) error {
	_, _ = ioutil.ReadAll(photo)
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, ref)
	return nil
}

type fixture struct {
	conf        *core.Config
	app         *Server
	schoolRepo  school.Repository
	studentRepo student.Repository
	recordRepo  attendance.Repository
	faces       *faceService
}

func setup(t *testing.T) *fixture {
	conf := testutil.NewConfig()
	cal := testutil.NewCalendar()

	// set up DB & repos
	db := inmemdb.NewDB()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)
	recordRepo := inmemdb.NewAttendanceRepository(db)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	validate, translator := core.NewValidator()
	student.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	faces := new(faceService)
	schoolSvc := school.NewService(schoolRepo)
	studentSvc := student.NewService(studentRepo, schoolSvc, faces)
	attendanceSvc := attendance.NewService(recordRepo, studentSvc, attendance.Options{Calendar: cal, Identifier: faces})
	reportSvc := report.NewService(studentRepo, recordRepo, schoolSvc, report.Options{
		Calendar:      cal,
		MaxWindowDays: conf.Reporting.MaxWindowDays,
	})

	// set up server
	app := NewServer(&Options{
		Config:         conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		SchoolSvc:      schoolSvc,
		StudentSvc:     studentSvc,
		AttendanceSvc:  attendanceSvc,
		ReportSvc:      reportSvc,
	})
	t.Cleanup(func() { _ = app.Close() })

	return &fixture{
		conf:        conf,
		app:         app,
		schoolRepo:  schoolRepo,
		studentRepo: studentRepo,
		recordRepo:  recordRepo,
		faces:       faces,
	}
}

func (f *fixture) teacherToken(t *testing.T, schoolID string) string {
	return f.getToken(t, core.Actor{ID: "teacher-1", Name: "Teacher", Role: core.RoleTeacher, SchoolID: schoolID})
}

func (f *fixture) governmentToken(t *testing.T) string {
	return f.getToken(t, core.Actor{ID: "gov-1", Name: "Officer", Role: core.RoleGovernment})
}

func (f *fixture) getToken(t *testing.T, actor core.Actor) string {
	token, err := GenerateToken(f.conf, NewClaims(f.conf, actor))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (f *fixture) serve(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	f.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newPhotoRequest(t *testing.T, path, token string, photo []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if photo != nil {
		part, err := w.CreateFormFile("photo", "face.jpg")
		if err != nil {
			t.Fatalf("newPhotoRequest() failed: %v", err)
		}
		_, _ = part.Write(photo)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func testContext() context.Context { return context.Background() }
