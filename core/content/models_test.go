package content

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/syllabus/core"
)

func TestValidate(t *testing.T) {
	validate, trans := core.NewValidator()
	long := strings.Repeat("a", 101)

	tests := []struct {
		name    string
		run     func() error
		wantErr string
	}{
		{name: "blank subject", run: func() error { return (&NewSubject{Name: "   "}).Validate(validate) }, wantErr: "Subject name is required"},
		{name: "blank section", run: func() error { return (&NewSection{}).Validate(validate) }, wantErr: "Section name is required"},
		{name: "blank topic", run: func() error { return (&NewTopic{Code: "x"}).Validate(validate) }, wantErr: "Topic name is required"},
		{name: "long section", run: func() error { return (&NewSection{Name: long}).Validate(validate) }, wantErr: "name must be a maximum of 100 characters in length"},
		{name: "valid topic", run: func() error { return (&NewTopic{Name: "Loops"}).Validate(validate) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, core.TranslateValidationErrors(err, trans).Error())
		})
	}

	ns := NewSubject{Name: "  Math  ", Description: " d "}
	require.NoError(t, ns.Validate(validate))
	assert.Equal(t, "Math", ns.Name)
	assert.Equal(t, "d", ns.Description)

	nt := NewTopic{Name: "Loops", Code: "  for {\n\t}\n \n"}
	require.NoError(t, nt.Validate(validate))
	assert.Equal(t, "  for {\n\t}", nt.Code)
	assert.Equal(t, nt.Code, CleanCode(nt.Code))
}

func TestTopicLegacyUpdatedAt(t *testing.T) {
	raw := `{"id":3,"name":"Loops","details":{"text":"for","updated_at":"2024-01-02T03:04:05Z"}}`
	var topic Topic
	require.NoError(t, json.Unmarshal([]byte(raw), &topic))
	assert.Equal(t, 3, topic.ID)
	assert.Equal(t, "for", topic.Details.Text)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), topic.UpdatedAt.UTC())
}

func TestKeysAndWidths(t *testing.T) {
	assert.Equal(t, "7", Subject{ID: 7}.Key())
	assert.Equal(t, "temp_x", Subject{TempID: "temp_x"}.Key())
	assert.True(t, Subject{TempID: "temp_x"}.IsTransient())
	assert.Equal(t, "Section", KindSection.Title())

	tbl := Table{ColumnWidths: []string{"30%", ""}}
	assert.Equal(t, "30%", tbl.ColumnWidth(0))
	assert.Equal(t, "auto", tbl.ColumnWidth(1))
	assert.Equal(t, "auto", tbl.ColumnWidth(5))
}
