package provisioning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cwrk-planet/lobby-service/pkg/errs"

	"github.com/stretchr/testify/require"
)

func TestRiotClient_StubChain(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "secret", r.Header.Get("X-Riot-Token"))
		paths = append(paths, r.URL.Path)

		switch r.URL.Path {
		case "/lol/tournament-stub/v5/providers":
			var body providerRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "KR", body.Region)
			require.Equal(t, "https://cb.example/riot", body.URL)
			_, _ = w.Write([]byte("11"))
		case "/lol/tournament-stub/v5/tournaments":
			var body tournamentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, int64(11), body.ProviderID)
			require.Equal(t, "Friday scrims", body.Name)
			_, _ = w.Write([]byte("22"))
		case "/lol/tournament-stub/v5/codes":
			require.Equal(t, "1", r.URL.Query().Get("count"))
			require.Equal(t, "22", r.URL.Query().Get("tournamentId"))
			var spec MatchSpec
			require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
			require.Equal(t, DefaultMatchSpec().MapType, spec.MapType)
			require.Equal(t, 5, spec.TeamSize)
			_, _ = w.Write([]byte(`["KR-CODE-1"]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewRiotClient(RiotConfig{BaseURL: srv.URL + "/", APIKey: "secret", UseStub: true}, srv.Client())
	ctx := context.Background()

	pid, err := c.RegisterProvider(ctx, "https://cb.example/riot")
	require.NoError(t, err)
	require.Equal(t, int64(11), pid)

	tid, err := c.RegisterTournament(ctx, pid, "Friday scrims")
	require.NoError(t, err)
	require.Equal(t, int64(22), tid)

	got, err := c.IssueCodes(ctx, tid, DefaultMatchSpec())
	require.NoError(t, err)
	require.Equal(t, []string{"KR-CODE-1"}, got)
	require.Len(t, paths, 3)
}

func TestRiotClient_LivePathAndUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lol/tournament/v5/providers", r.URL.Path)
		http.Error(w, `{"status":{"message":"Forbidden"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewRiotClient(RiotConfig{BaseURL: srv.URL}, srv.Client())
	_, err := c.RegisterProvider(context.Background(), "cb")
	require.ErrorIs(t, err, errs.ErrUpstream)
	require.Contains(t, err.Error(), "403")
}

func TestClip_KeepsRuneBoundary(t *testing.T) {
	require.Equal(t, "short", clip("short", 256))

	// кириллица по 2 байта: 256-й байт приходится на середину руны
	body := "x" + strings.Repeat("ж", 200)
	got := clip(body, 256)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, "x"+strings.Repeat("ж", 127)+"…", got)
}

func TestRiotClient_ErrorBodyStaysValidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("x" + strings.Repeat("ошибка", 100)))
	}))
	defer srv.Close()

	c := NewRiotClient(RiotConfig{BaseURL: srv.URL, APIKey: "secret", UseStub: true}, srv.Client())
	_, err := c.RegisterProvider(context.Background(), "https://cb")
	require.ErrorIs(t, err, errs.ErrUpstream)
	require.True(t, utf8.ValidString(err.Error()))
}
