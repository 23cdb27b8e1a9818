package recognition

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/testutil"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	conf := &core.Config{Recognition: core.RecognitionConfig{URL: srv.URL}}
	return NewClient(conf, testutil.NopLogger{})
}

func TestClient_Identify(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantRef     string
		wantMatched bool
		wantErr     error
	}{
		{name: "match", status: http.StatusOK, body: `{"success": true, "student_id": "R-12"}`, wantRef: "R-12", wantMatched: true},
		{name: "no match", status: http.StatusOK, body: `{"success": false, "student_id": null}`},
		{name: "no face found", status: http.StatusBadRequest, body: `{"error": "No face found"}`},
		{name: "service failure", status: http.StatusInternalServerError, body: `oops`, wantErr: core.ErrUpstreamUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, identifyPath, r.URL.Path)
				file, header, err := r.FormFile(photoField)
				require.NoError(t, err)
				data, _ := ioutil.ReadAll(file)
				assert.Equal(t, "jpegbytes", string(data))
				assert.Equal(t, "face.jpg", header.Filename)

				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			ref, matched, err := client.Identify(context.Background(), strings.NewReader("jpegbytes"), "face.jpg")
			assert.Equal(t, tc.wantErr, err)
			assert.Equal(t, tc.wantRef, ref)
			assert.Equal(t, tc.wantMatched, matched)
		})
	}
}

func TestClient_Identify_unreachable(t *testing.T) {
	conf := &core.Config{Recognition: core.RecognitionConfig{URL: "http://127.0.0.1:1"}}
	client := NewClient(conf, testutil.NopLogger{})

	_, matched, err := client.Identify(context.Background(), strings.NewReader("x"), "x.jpg")
	assert.Equal(t, core.ErrUpstreamUnavailable, err)
	assert.False(t, matched)
}

func TestClient_Register(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, registerPath, r.URL.Path)
			assert.Equal(t, "R-12", r.FormValue(refField))
			_, _ = w.Write([]byte(`{"success": true, "student_id": "R-12"}`))
		})
		assert.NoError(t, client.Register(context.Background(), "R-12", strings.NewReader("x"), "x.jpg"))
	})

	t.Run("rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "No face found"}`))
		})
		err := client.Register(context.Background(), "R-12", strings.NewReader("x"), "x.jpg")
		require.Error(t, err)
		assert.True(t, core.IsArgumentError(err))
		assert.Contains(t, err.Error(), "No face found")
	})
}
