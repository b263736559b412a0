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

package inference

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "testgen-service/pkg/errors"
)

func TestDecodeGeneratedText(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr error
	}{
		{name: "array", status: 200, body: `[{"generated_text":"a login screen"}]`, want: "a login screen"},
		{name: "array keeps first", status: 200, body: `[{"generated_text":"one"},{"generated_text":"two"}]`, want: "one"},
		{name: "empty text is valid", status: 200, body: `[{"generated_text":""}]`, want: ""},
		{name: "object", status: 200, body: `{"generated_text":"single"}`, want: "single"},
		{name: "empty array", status: 200, body: `[]`, wantErr: pkgerrors.ErrMalformedResponse},
		{name: "missing field", status: 200, body: `[{"label":"cat"}]`, wantErr: pkgerrors.ErrMalformedResponse},
		{name: "not json", status: 200, body: `hello`, wantErr: pkgerrors.ErrMalformedResponse},
		{name: "empty body", status: 200, body: ``, wantErr: pkgerrors.ErrMalformedResponse},
		{name: "object error", status: 200, body: `{"error":"Model is loading"}`, wantErr: pkgerrors.ErrUpstream},
		{name: "http error", status: 503, body: `{"error":"Model is currently loading","estimated_time":20}`, wantErr: pkgerrors.ErrUpstream},
		{name: "unauthorized", status: 401, body: `Unauthorized`, wantErr: pkgerrors.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGeneratedText(tt.status, []byte(tt.body))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeGeneratedText_ErrorMessage(t *testing.T) {
	_, err := DecodeGeneratedText(503, []byte(`{"error":"Model is currently loading"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "Model is currently loading")

	_, err = DecodeGeneratedText(500, []byte(strings.Repeat("x", 2000)))
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 700)
}

func TestLimiter_NilIsNoop(t *testing.T) {
	l := NewLimiter("caption", LimitConfig{})
	assert.Nil(t, l)
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestLimiter_MaxConcurrent(t *testing.T) {
	l := NewLimiter("caption", LimitConfig{MaxConcurrent: 1})
	require.NotNil(t, l)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}
