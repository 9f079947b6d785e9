package gridserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/gridlex/internal/session"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

func newTestServer(t *testing.T) (*httptest.Server, *AuthService) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sessions := session.NewStoreFromClient(client, "test:")
	grammars := NewGrammarRegistry(nil, nil)
	auth := NewAuthService("test-secret", time.Hour)
	svc := NewService(grammars, sessions, time.Hour, nil)
	stream := NewStreamHandler(sessions, grammars, time.Hour, nil)

	router := NewRouter(svc, auth, stream)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, auth
}

func authedRequest(t *testing.T, auth *AuthService, method, url string, body interface{}) *http.Request {
	t.Helper()
	token, err := auth.IssueToken("test-client")
	require.NoError(t, err)

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func compileBoolRequest() CompileRequest {
	return CompileRequest{
		Schema: json.RawMessage(`{"type": "boolean"}`),
		Vocabulary: []VocabEntry{
			{Text: "true", IDs: []vocabulary.TokenID{0}},
			{Text: "false", IDs: []vocabulary.TokenID{1}},
		},
		EOSTokenID: 9,
	}
}

func TestGridserver_HealthzIsUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGridserver_RejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/v1/grammars", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGridserver_CompileBeginAdvance(t *testing.T) {
	srv, auth := newTestServer(t)

	req := authedRequest(t, auth, http.MethodPost, srv.URL+"/v1/grammars", compileBoolRequest())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var compiled compileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&compiled))
	assert.NotEmpty(t, compiled.GrammarID)

	beginReq := authedRequest(t, auth, http.MethodPost, srv.URL+"/v1/sessions", beginSessionRequest{GrammarID: compiled.GrammarID})
	beginResp, err := http.DefaultClient.Do(beginReq)
	require.NoError(t, err)
	defer beginResp.Body.Close()
	require.Equal(t, http.StatusOK, beginResp.StatusCode)

	var sess sessionResponse
	require.NoError(t, json.NewDecoder(beginResp.Body).Decode(&sess))
	assert.NotEmpty(t, sess.SessionID)
	assert.False(t, sess.Finished)
	require.Len(t, sess.AllowedTokens, 2)

	advanceReq := authedRequest(t, auth, http.MethodPost,
		srv.URL+"/v1/sessions/"+sess.SessionID+"/advance",
		advanceRequest{TokenID: sess.AllowedTokens[0]})
	advanceResp, err := http.DefaultClient.Do(advanceReq)
	require.NoError(t, err)
	defer advanceResp.Body.Close()
	require.Equal(t, http.StatusOK, advanceResp.StatusCode)

	var advanced sessionResponse
	require.NoError(t, json.NewDecoder(advanceResp.Body).Decode(&advanced))
	assert.False(t, advanced.Finished, "a final state still owes the EOS token")
	require.Equal(t, []vocabulary.TokenID{9}, advanced.AllowedTokens)

	eosReq := authedRequest(t, auth, http.MethodPost,
		srv.URL+"/v1/sessions/"+sess.SessionID+"/advance",
		advanceRequest{TokenID: 9})
	eosResp, err := http.DefaultClient.Do(eosReq)
	require.NoError(t, err)
	defer eosResp.Body.Close()
	require.Equal(t, http.StatusOK, eosResp.StatusCode)

	var done sessionResponse
	require.NoError(t, json.NewDecoder(eosResp.Body).Decode(&done))
	assert.True(t, done.Finished)
}

func TestGridserver_StreamAdvance(t *testing.T) {
	srv, auth := newTestServer(t)

	req := authedRequest(t, auth, http.MethodPost, srv.URL+"/v1/grammars", compileBoolRequest())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var compiled compileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&compiled))
	resp.Body.Close()

	beginReq := authedRequest(t, auth, http.MethodPost, srv.URL+"/v1/sessions", beginSessionRequest{GrammarID: compiled.GrammarID})
	beginResp, err := http.DefaultClient.Do(beginReq)
	require.NoError(t, err)
	var sess sessionResponse
	require.NoError(t, json.NewDecoder(beginResp.Body).Decode(&sess))
	beginResp.Body.Close()

	token, err := auth.IssueToken("test-client")
	require.NoError(t, err)
	wsURL := "ws" + srv.URL[len("http"):] + "/v1/stream?token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(streamFrame{SessionID: sess.SessionID, TokenID: sess.AllowedTokens[0]}))

	var reply streamReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Empty(t, reply.Error)
	assert.False(t, reply.Finished)
	require.Equal(t, []vocabulary.TokenID{9}, reply.AllowedTokens)

	require.NoError(t, conn.WriteJSON(streamFrame{SessionID: sess.SessionID, TokenID: 9}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Empty(t, reply.Error)
	assert.True(t, reply.Finished)
}

func TestGridserver_UnknownGrammarRejected(t *testing.T) {
	srv, auth := newTestServer(t)
	req := authedRequest(t, auth, http.MethodPost, srv.URL+"/v1/sessions", beginSessionRequest{GrammarID: "does-not-exist"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
