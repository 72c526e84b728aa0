package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"time-nest/backend/testutil"
)

func newRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(env *testutil.TestEnv, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	env.Router.ServeHTTP(resp, req)
	return resp
}
