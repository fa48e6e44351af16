package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	. "github.com/trezcool/syllabus/apps/api/echo"
	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/storage/database/inmem"
)

const (
	adminUsername = "admin"
	adminPassword = "s3cr3t-pa55"
)

type testApp struct {
	server Server
	conf   *core.Config
	svc    content.Service
	token  string
}

func setup(t *testing.T) *testApp {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	conf := &core.Config{
		TestMode:        true,
		AppName:         "Syllabus",
		SecretKey:       "test-secret",
		SessionLifetime: time.Hour,
		Admin:           core.AdminConfig{Username: adminUsername, PasswordHash: string(hash)},
	}

	db, err := inmemdb.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc := content.NewService(inmemdb.NewContentRepository(db))

	server := NewServer("", make(chan os.Signal, 1), &Deps{Conf: conf, ContentSvc: svc})

	token, err := NewSessionToken(conf, adminUsername, time.Now())
	require.NoError(t, err)

	return &testApp{server: server, conf: conf, svc: svc, token: token}
}

// seed creates Go(Basics(Variables)) and an empty SQL subject.
func (app *testApp) seed(t *testing.T) (gopher content.Subject, basics content.Section, vars content.Topic, sql content.Subject) {
	ctx := context.Background()
	var err error
	gopher, err = app.svc.CreateSubject(ctx, content.NewSubject{Name: "Go", Description: "Gophers"})
	require.NoError(t, err)
	basics, err = app.svc.CreateSection(ctx, gopher.ID, content.NewSection{Name: "Basics"})
	require.NoError(t, err)
	vars, err = app.svc.CreateTopic(ctx, basics.ID, content.NewTopic{Name: "Variables", Text: "Use `var`.", Code: "var x = 1"})
	require.NoError(t, err)
	sql, err = app.svc.CreateSubject(ctx, content.NewSubject{Name: "SQL"})
	require.NoError(t, err)
	return gopher, basics, vars, sql
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
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
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
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	assert.True(t, ok, "failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
