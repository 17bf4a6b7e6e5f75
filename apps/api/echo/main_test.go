package echoapi_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	. "github.com/morris0411/ManavisGradesApp/apps/api/echo"
	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/academic"
	"github.com/morris0411/ManavisGradesApp/core/exam"
	"github.com/morris0411/ManavisGradesApp/core/student"
	"github.com/morris0411/ManavisGradesApp/core/user"
	"github.com/morris0411/ManavisGradesApp/services/metrics"
	"github.com/morris0411/ManavisGradesApp/storage/database/inmem"
	"github.com/morris0411/ManavisGradesApp/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type app struct {
	Server
	conf     *core.Config
	db       *inmemdb.DB
	usrRepo  user.Repository
	students student.Repository
}

func setup(t *testing.T) app {
	conf := &core.Config{
		TestMode:                 true,
		AppName:                  "ManavisGrades",
		SecretKey:                "test-secret",
		TimeZone:                 "Asia/Tokyo",
		CampusCode:               940,
		ResignGraduatedOnAbsence: true,
		Server:                   core.ServerConfig{JWTExpirationDelta: time.Hour},
	}
	logger := testutil.Logger()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	students := inmemdb.NewStudentRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// set up server
	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Metrics:    metricsvc.New("test"),
		UserSvc:    user.NewService(usrRepo),
		StudentSvc: student.NewService(db, students, logger, student.Options{ResignGraduatedOnAbsence: true}),
		ExamSvc: exam.NewService(db, inmemdb.NewExamRepository(db), inmemdb.NewMasterRepository(db), students,
			logger, exam.Options{CampusCode: conf.CampusCode}),
		AcademicSvc: academic.NewService(db, inmemdb.NewRolloverRepository(db), students, logger, conf.Location()),
		Validate:    validate,
		Translator:  translator,
	})
	return app{Server: srv, conf: conf, db: db, usrRepo: usrRepo, students: students}
}

// staffToken creates a staff account and returns a token for it.
func (a app) staffToken(t *testing.T, loginID string, isAdmin bool) string {
	return getToken(t, a.conf, testutil.CreateUser(t, a.usrRepo, loginID, "password", isAdmin))
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest posts content as the multipart file field; an empty field sends an empty form.
func newUploadRequest(t *testing.T, path, token, field string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		fw, err := w.CreateFormFile(field, "upload")
		if err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
		if _, err = fw.Write(content); err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
	} else if err := w.WriteField("note", "no file"); err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, srv http.Handler, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
