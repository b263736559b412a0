// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "testgen cli")
}

func TestRun_Unknown(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"bogus"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage")
}

func TestRun_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate-test-instructions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["images"]
		require.Len(t, files, 2)
		assert.Equal(t, "home.png", files[0].Filename)
		assert.Equal(t, "seats.png", files[1].Filename)
		f, err := files[1].Open()
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "seat-bytes", string(b))
		assert.Equal(t, "payments", r.FormValue("context"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"testInstructions": "Test Case 1: pick a seat"})
	}))
	defer srv.Close()
	t.Setenv("TESTGEN_API_URL", srv.URL)

	dir := t.TempDir()
	a := writeImage(t, dir, "home.png", "home-bytes")
	b := writeImage(t, dir, "seats.png", "seat-bytes")

	var stdout, stderr bytes.Buffer
	code := run([]string{"generate", "-context", "payments", a, b}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "Test Case 1: pick a seat\n", stdout.String())
}

func TestRun_Generate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
	}))
	defer srv.Close()
	t.Setenv("TESTGEN_API_URL", srv.URL)

	img := writeImage(t, t.TempDir(), "a.png", "x")
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"generate", img}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Internal server error")
}

func TestRun_Generate_NoImages(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"generate", "-context", "x"}, &stdout, &stderr))
}

func TestRun_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()
	t.Setenv("TESTGEN_API_URL", srv.URL)

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"health"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), `"status": "ok"`)
}
