package opsalert

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReturnsNilWithoutCredentials(t *testing.T) {
	require.Nil(t, New("", "C123", nil))
	require.Nil(t, New("xoxb-token", "", nil))
	require.NotNil(t, New("xoxb-token", "C123", nil))
}

func TestNilAlerterDropsAlertsWithoutPanicking(t *testing.T) {
	var alerter *Alerter
	alerter.IntegrityError("sess_1", "vote_1", io.ErrUnexpectedEOF)
	alerter.DrawReport(3, 2025, 2)
}

func TestPostSendsToConfiguredChannel(t *testing.T) {
	var gotChannel, gotText string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotChannel = r.Form.Get("channel")
		gotText = r.Form.Get("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1.2"}`))
	}))
	defer ts.Close()

	alerter := NewWithAPIURL("xoxb-token", "C123", ts.URL+"/", nil)
	require.NotNil(t, alerter)

	err := alerter.post(context.Background(), "tombola draw completed")
	require.NoError(t, err)
	require.Equal(t, "C123", gotChannel)
	require.Contains(t, gotText, "draw completed")
}

func TestPostSurfacesSlackErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer ts.Close()

	alerter := NewWithAPIURL("xoxb-token", "C404", ts.URL+"/", nil)
	err := alerter.post(context.Background(), "anyone home?")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "channel_not_found"))
}
