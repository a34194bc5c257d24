package telegram

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBotAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasSuffix(r.URL.Path, "/getMe") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if strings.Contains(r.URL.Path, "/botbad/") {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Market","username":"market_bot"}}`))
	}))
	defer srv.Close()

	endpoint := srv.URL + "/bot%s/%s"

	api, err := NewBotAPI(Options{Token: "123:abc", Endpoint: endpoint, Client: srv.Client()})
	require.NoError(t, err)
	assert.Equal(t, "market_bot", api.Self.UserName)

	_, err = NewBotAPI(Options{Token: "bad", Endpoint: endpoint, Client: srv.Client()})
	assert.Error(t, err)

	_, err = NewBotAPI(Options{})
	assert.Error(t, err)
}
