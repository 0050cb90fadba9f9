package ipchecker

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	checker, err := New("")
	require.NoError(t, err)
	assert.True(t, checker.IsTrustedSubnetEmpty())
	assert.False(t, checker.Check(net.ParseIP("127.0.0.1")))

	checker, err = New("10.0.0.0/8")
	require.NoError(t, err)
	assert.False(t, checker.IsTrustedSubnetEmpty())
	assert.True(t, checker.Check(net.ParseIP("10.1.2.3")))
	assert.False(t, checker.Check(net.ParseIP("192.168.0.1")))
	assert.False(t, checker.Check(nil))

	_, err = New("not-a-cidr")
	assert.Error(t, err)
}

func TestGetClientIP(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	type tTestCase struct {
		name       string
		realIP     string
		forwarded  string
		remoteAddr string
		expected   string
	}
	testCases := []tTestCase{
		{name: "x_real_ip", realIP: "10.0.0.1", forwarded: "10.0.0.2", remoteAddr: "10.0.0.3:1234", expected: "10.0.0.1"},
		{name: "x_forwarded_for", forwarded: "10.0.0.2, 172.16.0.1", remoteAddr: "10.0.0.3:1234", expected: "10.0.0.2"},
		{name: "remote_addr", remoteAddr: "10.0.0.3:1234", expected: "10.0.0.3"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/internal/stats", nil)
			request.RemoteAddr = testCase.remoteAddr
			if testCase.realIP != "" {
				request.Header.Set("X-Real-IP", testCase.realIP)
			}
			if testCase.forwarded != "" {
				request.Header.Set("X-Forwarded-For", testCase.forwarded)
			}

			ip, err := checker.GetClientIP(request)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, ip.String())
		})
	}
}

func TestTrustedOnly(t *testing.T) {
	type tTestCase struct {
		name           string
		subnet         string
		realIP         string
		expectedStatus int
	}
	testCases := []tTestCase{
		{name: "inside_subnet", subnet: "192.168.1.0/24", realIP: "192.168.1.10", expectedStatus: http.StatusOK},
		{name: "outside_subnet", subnet: "192.168.1.0/24", realIP: "192.168.2.10", expectedStatus: http.StatusForbidden},
		{name: "no_subnet_configured", subnet: "", realIP: "192.168.1.10", expectedStatus: http.StatusForbidden},
		{name: "unparsable_client_ip", subnet: "192.168.1.0/24", realIP: "", expectedStatus: http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			checker, err := New(testCase.subnet)
			require.NoError(t, err)

			handler := checker.TrustedOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			request := httptest.NewRequest(http.MethodGet, "/internal/stats", nil)
			request.RemoteAddr = "bad-remote-addr"
			if testCase.realIP != "" {
				request.Header.Set("X-Real-IP", testCase.realIP)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expectedStatus, recorder.Code)
		})
	}
}
