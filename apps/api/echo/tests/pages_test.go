package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_pages(t *testing.T) {
	app := setup(t)
	app.seed(t)

	tests := []struct {
		name         string
		path         string
		token        string
		wantCode     int
		wantLocation string
		wantContains []string
	}{
		{
			name:         "index",
			path:         "/",
			wantCode:     http.StatusOK,
			wantContains: []string{`<a href="/subject/Go">Go</a>`, "Gophers", `<a href="/subject/SQL">SQL</a>`, "No description"},
		},
		{
			name:         "subject page",
			path:         "/subject/Go",
			wantCode:     http.StatusOK,
			wantContains: []string{"<h1>Go</h1>", "<h2>Basics</h2>", "<h3>Variables</h3>"},
		},
		{
			name:         "empty subject page",
			path:         "/subject/SQL",
			wantCode:     http.StatusOK,
			wantContains: []string{"No sections available"},
		},
		{
			name:         "unknown subject page",
			path:         "/subject/Cobol",
			wantCode:     http.StatusNotFound,
			wantContains: []string{"Subject not found"},
		},
		{
			name:         "stylesheet",
			path:         "/static/css/style.css",
			wantCode:     http.StatusOK,
			wantContains: []string{".chroma"},
		},
		{
			name:         "admin anonymous",
			path:         "/admin",
			wantCode:     http.StatusFound,
			wantLocation: "/login",
		},
		{
			name:         "dashboard anonymous",
			path:         "/admin/dashboard",
			wantCode:     http.StatusFound,
			wantLocation: "/login",
		},
		{
			name:         "admin",
			path:         "/admin",
			token:        app.token,
			wantCode:     http.StatusFound,
			wantLocation: "/admin/dashboard",
		},
		{
			name:     "dashboard",
			path:     "/admin/dashboard",
			token:    app.token,
			wantCode: http.StatusOK,
			wantContains: []string{
				`id="subjects-container"`,
				"Loading subjects...",
				`data-action="add-subject"`,
				adminUsername,
			},
		},
		{
			name:     "subjects tree",
			path:     "/admin/subjects?search=var",
			token:    app.token,
			wantCode: http.StatusOK,
			wantContains: []string{
				`data-entity="subject"`,
				`data-entity="section"`,
				`data-entity="topic"`,
				`value="var"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
			for _, s := range tt.wantContains {
				assert.Contains(t, rec.Body.String(), s)
			}
		})
	}
}
