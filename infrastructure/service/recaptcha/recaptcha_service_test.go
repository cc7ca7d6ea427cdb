package recaptcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecaptchaService_Disabled(t *testing.T) {
	v := NewRecaptchaService(Config{Enabled: false}, nil)

	assert.False(t, v.IsEnabled())
	assert.NoError(t, v.Verify(context.Background(), ""))
}

func TestRecaptchaService_Verify(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		body    string
		wantErr error
	}{
		{"success", "good-token", `{"success": true, "hostname": "tripdesk.local"}`, nil},
		{"rejected", "bad-token", `{"success": false, "error-codes": ["invalid-input-response"]}`, ErrVerificationFailed},
		{"empty token", "  ", `{"success": true}`, ErrTokenRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSecret, gotToken string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				gotSecret = r.PostForm.Get("secret")
				gotToken = r.PostForm.Get("response")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			v := NewRecaptchaService(Config{
				SecretKey: "test-secret",
				Enabled:   true,
				Timeout:   time.Second,
				VerifyURL: server.URL,
			}, nil)
			assert.True(t, v.IsEnabled())

			err := v.Verify(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test-secret", gotSecret)
			assert.Equal(t, tt.token, gotToken)
		})
	}
}

func TestRecaptchaService_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	v := NewRecaptchaService(Config{SecretKey: "s", Enabled: true, VerifyURL: url}, nil)
	err := v.Verify(context.Background(), "token")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrVerificationFailed)
}
