package vision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apperr"
)

func Test_ParseCandidates(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Candidate
		wantErr bool
	}{
		{
			name: "bare array",
			raw:  `[{"title":"Dune","row":1,"col":2}]`,
			want: []Candidate{{Title: "Dune", Row: 1, Col: 2}},
		},
		{
			name: "json fence",
			raw:  "```json\n[{\"title\":\"Dune\",\"row\":1,\"col\":2}]\n```",
			want: []Candidate{{Title: "Dune", Row: 1, Col: 2}},
		},
		{
			name: "plain fence",
			raw:  "```\n[{\"title\":\"1984\",\"row\":2,\"col\":1}]\n```",
			want: []Candidate{{Title: "1984", Row: 2, Col: 1}},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []Candidate{},
		},
		{
			name: "empty reply means nothing detected",
			raw:  "   ",
			want: []Candidate{},
		},
		{
			name: "junk entries are dropped not fatal",
			raw:  `[{"title":"Dune","row":1,"col":1},{"title":"","row":2,"col":1},"not an object",{"row":3,"col":1}]`,
			want: []Candidate{{Title: "Dune", Row: 1, Col: 1}},
		},
		{
			name:    "prose reply is a parse error",
			raw:     "I could not find any books in this image.",
			wantErr: true,
		},
		{
			name: "object reply counts as zero candidates",
			raw:  `{"books":[]}`,
			want: []Candidate{},
		},
		{
			name: "bare string reply counts as zero candidates",
			raw:  `"no books visible"`,
			want: []Candidate{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCandidates(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.CodeParse, apperr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func stubGemini(t *testing.T, status int, replyText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, ":generateContent")
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		reply := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"parts": []any{map[string]any{"text": replyText}},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
}

func Test_AnalyzeShelf_FencedReply(t *testing.T) {
	srv := stubGemini(t, http.StatusOK, "```json\n[{\"title\":\"Dune\",\"row\":1,\"col\":1}]\n```")
	defer srv.Close()

	c := NewClientWithBaseURL("key", "", srv.URL)
	got, err := c.AnalyzeShelf(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Title: "Dune", Row: 1, Col: 1}}, got)
}

func Test_AnalyzeShelf_APIErrorIsExternal(t *testing.T) {
	srv := stubGemini(t, http.StatusTooManyRequests, "")
	defer srv.Close()

	c := NewClientWithBaseURL("key", "", srv.URL)
	_, err := c.AnalyzeShelf(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeExternal, apperr.CodeOf(err))
}

func Test_AnalyzeShelf_EmptyImageRejected(t *testing.T) {
	c := NewClient("key", "")
	_, err := c.AnalyzeShelf(context.Background(), nil, "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}
