package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/bkmrk/internal/auth"
	"github.com/patric-chuzhbe/bkmrk/internal/authenticator"
	"github.com/patric-chuzhbe/bkmrk/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bkmrk/internal/db/storage"
	"github.com/patric-chuzhbe/bkmrk/internal/ipchecker"
	"github.com/patric-chuzhbe/bkmrk/internal/logger"
	"github.com/patric-chuzhbe/bkmrk/internal/mockstorage"
	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/service"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

const (
	testTrustedSubnet = "10.0.0.0/8"
	testPassword      = "secret"
)

var testSigningKey = []byte("router-test-signing-key")

type initTestOption func(*initTestOptions)

type initTestOptions struct {
	routerOptions  []InitOption
	storage        storage.Storage
	authMiddleware authenticator.Authenticator
}

// mockAuth attaches usr to every request without looking at any token.
type mockAuth struct {
	usr *user.User
}

func (m *mockAuth) AuthenticateUser(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if m.usr != nil {
			request = request.WithContext(auth.ContextWithUser(request.Context(), m.usr))
		}
		h.ServeHTTP(response, request)
	})
}

func withAuthenticator(authMiddleware authenticator.Authenticator) initTestOption {
	return func(testOptions *initTestOptions) {
		testOptions.authMiddleware = authMiddleware
	}
}

func withRouterOptions(options ...InitOption) initTestOption {
	return func(testOptions *initTestOptions) {
		testOptions.routerOptions = append(testOptions.routerOptions, options...)
	}
}

func withStorage(db storage.Storage) initTestOption {
	return func(testOptions *initTestOptions) {
		testOptions.storage = db
	}
}

func setupTestServer(t *testing.T, optionsProto ...initTestOption) *httptest.Server {
	t.Helper()

	options := &initTestOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	require.NoError(t, logger.Init("debug"))

	if options.storage == nil {
		db, err := memorystorage.New()
		require.NoError(t, err)
		options.storage = db
	}

	checker, err := ipchecker.New(testTrustedSubnet)
	require.NoError(t, err)

	theAuth := auth.New(options.storage, testSigningKey, time.Minute)
	svc := service.New(options.storage, theAuth, service.WithHashCost(bcrypt.MinCost))

	var authMiddleware authenticator.Authenticator = theAuth
	if options.authMiddleware != nil {
		authMiddleware = options.authMiddleware
	}

	server := httptest.NewServer(New(authMiddleware, checker, svc, options.routerOptions...))
	t.Cleanup(server.Close)

	return server
}

func newClient(server *httptest.Server) *resty.Client {
	return resty.New().SetBaseURL(server.URL)
}

func signupAndSignin(t *testing.T, client *resty.Client, email string) string {
	t.Helper()

	resp, err := client.R().
		SetBody(models.AuthRequest{Email: email, Password: testPassword}).
		Post("/auth/signup")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var signin models.SigninResponse
	resp, err = client.R().
		SetBody(models.AuthRequest{Email: email, Password: testPassword}).
		SetResult(&signin).
		Post("/auth/signin")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.NotEmpty(t, signin.AccessToken)

	return signin.AccessToken
}

func createBookmark(t *testing.T, client *resty.Client, token string, body string) models.Bookmark {
	t.Helper()

	var created models.Bookmark
	resp, err := client.R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&created).
		Post("/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode(), string(resp.Body()))

	return created
}

func TestPostAuthsignup(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)

	type tExpectedResponse struct {
		code        int
		errorField  string
		bodyLacks   []string
		bodyHasKeys []string
	}
	type tTestCase struct {
		name             string
		body             string
		expectedResponse tExpectedResponse
	}
	testCases := []tTestCase{
		{
			name: "positive",
			body: `{"email":"ann@x.com","password":"secret"}`,
			expectedResponse: tExpectedResponse{
				code:        http.StatusCreated,
				bodyLacks:   []string{"password", "hash", "secret"},
				bodyHasKeys: []string{"id", "email", "createdAt", "updatedAt"},
			},
		},
		{
			name: "duplicate_email",
			body: `{"email":"ann@x.com","password":"other"}`,
			expectedResponse: tExpectedResponse{
				code: http.StatusConflict,
			},
		},
		{
			name: "unknown_fields_are_ignored",
			body: `{"email":"bob@x.com","password":"secret","isAdmin":true}`,
			expectedResponse: tExpectedResponse{
				code:      http.StatusCreated,
				bodyLacks: []string{"isAdmin"},
			},
		},
		{
			name: "bad_email",
			body: `{"email":"bob","password":"secret"}`,
			expectedResponse: tExpectedResponse{
				code:       http.StatusBadRequest,
				errorField: "email",
			},
		},
		{
			name: "missing_password",
			body: `{"email":"carl@x.com"}`,
			expectedResponse: tExpectedResponse{
				code:       http.StatusBadRequest,
				errorField: "password",
			},
		},
		{
			name: "empty_body",
			body: ``,
			expectedResponse: tExpectedResponse{
				code: http.StatusBadRequest,
			},
		},
		{
			name: "malformed_body",
			body: `{"email":`,
			expectedResponse: tExpectedResponse{
				code: http.StatusBadRequest,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := client.R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post("/auth/signup")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectedResponse.code, resp.StatusCode(), string(resp.Body()))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(resp.Body(), &body))

			for _, key := range testCase.expectedResponse.bodyHasKeys {
				assert.Contains(t, body, key)
			}
			for _, fragment := range testCase.expectedResponse.bodyLacks {
				assert.NotContains(t, strings.ToLower(string(resp.Body())), strings.ToLower(fragment))
			}
			if testCase.expectedResponse.errorField != "" {
				var errorResponse models.ErrorResponse
				require.NoError(t, json.Unmarshal(resp.Body(), &errorResponse))
				assert.Contains(t, errorResponse.Details, testCase.expectedResponse.errorField)
			}
		})
	}
}

func TestPostAuthsignin(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)
	signupAndSignin(t, client, "ann@x.com")

	wrongPassword, err := client.R().
		SetBody(models.AuthRequest{Email: "ann@x.com", Password: "guess"}).
		Post("/auth/signin")
	require.NoError(t, err)

	unknownEmail, err := client.R().
		SetBody(models.AuthRequest{Email: "nobody@x.com", Password: testPassword}).
		Post("/auth/signin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, wrongPassword.StatusCode())
	assert.Equal(t, http.StatusForbidden, unknownEmail.StatusCode())
	assert.Equal(t, string(wrongPassword.Body()), string(unknownEmail.Body()))

	invalid, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"email":"ann@x.com"}`).
		Post("/auth/signin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, invalid.StatusCode())
}

func TestAuthGuard(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)
	token := signupAndSignin(t, client, "ann@x.com")

	userID, err := auth.New(nil, testSigningKey, time.Minute).GetUserIDFromToken(token)
	require.NoError(t, err)

	signedWith := func(key []byte, expiresAt time.Time) string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: userID,
		}).SignedString(key)
		require.NoError(t, err)
		return signed
	}

	type tTestCase struct {
		name          string
		authorization string
		expectedCode  int
	}
	testCases := []tTestCase{
		{
			name:          "valid_token",
			authorization: "Bearer " + token,
			expectedCode:  http.StatusOK,
		},
		{
			name:         "missing_header",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:          "token_without_scheme",
			authorization: token,
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "malformed_token",
			authorization: "Bearer not.a.token",
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "foreign_key",
			authorization: "Bearer " + signedWith([]byte("someone-else"), time.Now().Add(time.Minute)),
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "expired",
			authorization: "Bearer " + signedWith(testSigningKey, time.Now().Add(-time.Minute)),
			expectedCode:  http.StatusUnauthorized,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			for _, path := range []string{"/users/me", "/bookmarks"} {
				req := client.R()
				if testCase.authorization != "" {
					req.SetHeader("Authorization", testCase.authorization)
				}
				resp, err := req.Get(path)
				require.NoError(t, err)
				assert.Equal(t, testCase.expectedCode, resp.StatusCode(), path)
			}
		})
	}
}

func TestUsers(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)
	annToken := signupAndSignin(t, client, "ann@x.com")
	signupAndSignin(t, client, "bob@x.com")

	var me map[string]interface{}
	resp, err := client.R().SetAuthToken(annToken).SetResult(&me).Get("/users/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "ann@x.com", me["email"])
	assert.NotContains(t, me, "hash")
	assert.NotContains(t, me, "password")

	type tTestCase struct {
		name              string
		body              string
		expectedCode      int
		expectedFirstName interface{}
		expectedLastName  interface{}
		expectedEmail     string
	}
	testCases := []tTestCase{
		{
			name:              "first_name_only",
			body:              `{"firstName":"Ann"}`,
			expectedCode:      http.StatusOK,
			expectedFirstName: "Ann",
			expectedLastName:  nil,
			expectedEmail:     "ann@x.com",
		},
		{
			name:              "last_name_keeps_first_name",
			body:              `{"lastName":"Lee"}`,
			expectedCode:      http.StatusOK,
			expectedFirstName: "Ann",
			expectedLastName:  "Lee",
			expectedEmail:     "ann@x.com",
		},
		{
			name:              "empty_patch",
			body:              `{}`,
			expectedCode:      http.StatusOK,
			expectedFirstName: "Ann",
			expectedLastName:  "Lee",
			expectedEmail:     "ann@x.com",
		},
		{
			name:         "taken_email",
			body:         `{"email":"bob@x.com"}`,
			expectedCode: http.StatusConflict,
		},
		{
			name:         "invalid_email",
			body:         `{"email":"nope"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:              "new_email",
			body:              `{"email":"ann.lee@x.com"}`,
			expectedCode:      http.StatusOK,
			expectedFirstName: "Ann",
			expectedLastName:  "Lee",
			expectedEmail:     "ann.lee@x.com",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var edited map[string]interface{}
			resp, err := client.R().
				SetAuthToken(annToken).
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				SetResult(&edited).
				Patch("/users")
			require.NoError(t, err)
			require.Equal(t, testCase.expectedCode, resp.StatusCode(), string(resp.Body()))
			if testCase.expectedCode != http.StatusOK {
				return
			}

			assert.Equal(t, testCase.expectedFirstName, edited["firstName"])
			assert.Equal(t, testCase.expectedLastName, edited["lastName"])
			assert.Equal(t, testCase.expectedEmail, edited["email"])
			assert.NotContains(t, edited, "hash")
		})
	}
}

func TestBookmarksCRUD(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)
	token := signupAndSignin(t, client, "ann@x.com")

	var list []models.Bookmark
	resp, err := client.R().SetAuthToken(token).Get("/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `[]`, string(resp.Body()))

	created := createBookmark(t, client, token, `{"title":"Go","description":"The Go site","link":"https://go.dev"}`)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Go", created.Title)

	invalid, err := client.R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"description":"no title"}`).
		Post("/bookmarks")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, invalid.StatusCode())

	resp, err = client.R().SetAuthToken(token).SetResult(&list).Get("/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	var edited models.Bookmark
	resp, err = client.R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"title":"Go dev"}`).
		SetResult(&edited).
		Patch(fmt.Sprintf("/bookmarks/%d", created.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Go dev", edited.Title)
	assert.Equal(t, "https://go.dev", edited.Link)
	require.NotNil(t, edited.Description)
	assert.Equal(t, "The Go site", *edited.Description)

	emptyTitle, err := client.R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"title":""}`).
		Patch(fmt.Sprintf("/bookmarks/%d", created.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, emptyTitle.StatusCode())

	var fetched models.Bookmark
	resp, err = client.R().SetAuthToken(token).SetResult(&fetched).Get(fmt.Sprintf("/bookmarks/%d", created.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Go dev", fetched.Title)

	resp, err = client.R().SetAuthToken(token).Delete(fmt.Sprintf("/bookmarks/%d", created.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Empty(t, resp.Body())

	resp, err = client.R().SetAuthToken(token).Get(fmt.Sprintf("/bookmarks/%d", created.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "null", strings.TrimSpace(string(resp.Body())))
}

func TestBookmarkOwnership(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)
	ownerToken := signupAndSignin(t, client, "owner@x.com")
	strangerToken := signupAndSignin(t, client, "stranger@x.com")

	bookmark := createBookmark(t, client, ownerToken, `{"title":"Mine","link":"https://a.b"}`)
	foreignPath := "/bookmarks/" + strconv.FormatInt(bookmark.ID, 10)
	missingPath := "/bookmarks/99999"

	type tTestCase struct {
		name         string
		method       string
		path         string
		body         string
		expectedCode int
		expectedBody string
	}
	testCases := []tTestCase{
		{name: "get_foreign", method: http.MethodGet, path: foreignPath, expectedCode: http.StatusForbidden},
		{name: "patch_foreign", method: http.MethodPatch, path: foreignPath, body: `{"title":"Stolen"}`, expectedCode: http.StatusForbidden},
		{name: "delete_foreign", method: http.MethodDelete, path: foreignPath, expectedCode: http.StatusForbidden},
		{name: "get_missing", method: http.MethodGet, path: missingPath, expectedCode: http.StatusOK, expectedBody: "null"},
		{name: "patch_missing", method: http.MethodPatch, path: missingPath, body: `{"title":"x"}`, expectedCode: http.StatusNotFound},
		{name: "delete_missing", method: http.MethodDelete, path: missingPath, expectedCode: http.StatusNotFound},
		{name: "non_integer_id", method: http.MethodGet, path: "/bookmarks/abc", expectedCode: http.StatusBadRequest},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := client.R().SetAuthToken(strangerToken)
			if testCase.body != "" {
				req.SetHeader("Content-Type", "application/json").SetBody(testCase.body)
			}
			resp, err := req.Execute(testCase.method, testCase.path)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectedCode, resp.StatusCode(), string(resp.Body()))
			if testCase.expectedBody != "" {
				assert.Equal(t, testCase.expectedBody, strings.TrimSpace(string(resp.Body())))
			}
		})
	}

	var untouched models.Bookmark
	resp, err := client.R().SetAuthToken(ownerToken).SetResult(&untouched).Get(foreignPath)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Mine", untouched.Title)
}

func TestGzip(t *testing.T) {
	server := setupTestServer(t)
	token := signupAndSignin(t, newClient(server), "ann@x.com")

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte(`{"title":"Go","link":"https://go.dev"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	request, err := http.NewRequest(http.MethodPost, server.URL+"/bookmarks", &compressed)
	require.NoError(t, err)
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Content-Encoding", "gzip")
	request.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)

	var created models.Bookmark
	require.NoError(t, json.Unmarshal(plain, &created))
	assert.Equal(t, "Go", created.Title)
}

func TestRequestBodyMustBeOneJSONValue(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)
	token := signupAndSignin(t, client, "ann@x.com")

	type tTestCase struct {
		name           string
		body           string
		expectedStatus int
	}
	testCases := []tTestCase{
		{
			name:           "trailing_text",
			body:           `{"title":"Go","link":"https://go.dev"} trailing`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "two_objects",
			body:           `{"title":"Go","link":"https://go.dev"}{"title":"Chi","link":"https://go-chi.io"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "trailing_whitespace",
			body:           "{\"title\":\"Go\",\"link\":\"https://go.dev\"}\n\t ",
			expectedStatus: http.StatusCreated,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := client.R().
				SetAuthToken(token).
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post("/bookmarks")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectedStatus, resp.StatusCode())
		})
	}

	var list []models.Bookmark
	resp, err := client.R().SetAuthToken(token).SetResult(&list).Get("/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, list, 1)
}

func TestPatchBookmarkNullDescriptionKeepsValue(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)
	token := signupAndSignin(t, client, "ann@x.com")
	created := createBookmark(t, client, token, `{"title":"Go","description":"The Go site","link":"https://go.dev"}`)

	var edited models.Bookmark
	resp, err := client.R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"description":null,"title":"Go dev"}`).
		SetResult(&edited).
		Patch("/bookmarks/" + strconv.FormatInt(created.ID, 10))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	assert.Equal(t, "Go dev", edited.Title)
	require.NotNil(t, edited.Description)
	assert.Equal(t, "The Go site", *edited.Description)
}

func TestRequestBodyTooLarge(t *testing.T) {
	server := setupTestServer(t)
	token := signupAndSignin(t, newClient(server), "ann@x.com")

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte(`{"title":"` + strings.Repeat("a", 2*maxRequestBodyBytes) + `","link":"https://go.dev"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	request, err := http.NewRequest(http.MethodPost, server.URL+"/bookmarks", &compressed)
	require.NoError(t, err)
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Content-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "request body is too large", body.Error)
}

func TestGetInternalstats(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)
	token := signupAndSignin(t, client, "ann@x.com")
	createBookmark(t, client, token, `{"title":"Go","link":"https://go.dev"}`)

	type tTestCase struct {
		name         string
		realIP       string
		expectedCode int
	}
	testCases := []tTestCase{
		{name: "trusted", realIP: "10.1.2.3", expectedCode: http.StatusOK},
		{name: "untrusted", realIP: "192.168.1.1", expectedCode: http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var stats models.InternalStatsResponse
			resp, err := client.R().
				SetHeader("X-Real-IP", testCase.realIP).
				SetResult(&stats).
				Get("/internal/stats")
			require.NoError(t, err)
			require.Equal(t, testCase.expectedCode, resp.StatusCode())
			if testCase.expectedCode == http.StatusOK {
				assert.Equal(t, models.InternalStatsResponse{Users: 1, Bookmarks: 1}, stats)
			}
		})
	}
}

func TestGetPing(t *testing.T) {
	t.Run("storage_reachable", func(t *testing.T) {
		resp, err := newClient(setupTestServer(t)).R().Get("/ping")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
	})

	t.Run("storage_down", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("Ping", mock.Anything).Return(errors.New("connection refused"))

		resp, err := newClient(setupTestServer(t, withStorage(db))).R().Get("/ping")
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
		db.AssertExpectations(t)
	})
}

func TestStorageFailureIsInternalError(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("CreateUser", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

	resp, err := newClient(setupTestServer(t, withStorage(db))).R().
		SetBody(models.AuthRequest{Email: "ann@x.com", Password: testPassword}).
		Post("/auth/signup")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.NotContains(t, string(resp.Body()), "disk full")
}

func TestAuthRateLimit(t *testing.T) {
	server := setupTestServer(t, withRouterOptions(WithAuthRateLimit(2)))
	client := newClient(server)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := client.R().
			SetBody(models.AuthRequest{Email: "nobody@x.com", Password: testPassword}).
			Post("/auth/signin")
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode())
	}

	assert.Equal(t, []int{http.StatusForbidden, http.StatusForbidden, http.StatusTooManyRequests}, codes)

	resp, err := client.R().Get("/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestAuthRateLimitIgnoresForwardingHeaders(t *testing.T) {
	server := setupTestServer(t, withRouterOptions(WithAuthRateLimit(2)))
	client := newClient(server)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		resp, err := client.R().
			SetHeader("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1)).
			SetHeader("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1)).
			SetBody(models.AuthRequest{Email: "nobody@x.com", Password: testPassword}).
			Post("/auth/signin")
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode())
	}

	assert.Equal(t, []int{
		http.StatusForbidden,
		http.StatusForbidden,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestSecurityHeadersAndMetrics(t *testing.T) {
	server := setupTestServer(t)
	client := newClient(server)

	resp, err := client.R().Get("/ping")
	require.NoError(t, err)
	assert.Equal(t, "nosniff", resp.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header().Get("X-Frame-Options"))

	resp, err = client.R().Get("/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `bookmarks_http_requests_total{method="GET",route="/ping",status="200"}`)
}

func TestUnknownRoute(t *testing.T) {
	resp, err := newClient(setupTestServer(t)).R().Get("/nowhere")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestCustomAuthenticator(t *testing.T) {
	db, err := memorystorage.New()
	require.NoError(t, err)
	usr, err := db.CreateUser(context.Background(), &user.User{Email: "mock@x.com", Hash: "h"})
	require.NoError(t, err)

	type tTestCase struct {
		name           string
		authMiddleware *mockAuth
		expectedStatus int
		expectedEmail  string
	}
	testCases := []tTestCase{
		{
			name:           "user_attached",
			authMiddleware: &mockAuth{usr: usr},
			expectedStatus: http.StatusOK,
			expectedEmail:  "mock@x.com",
		},
		{
			name:           "no_user_attached",
			authMiddleware: &mockAuth{},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := setupTestServer(t, withStorage(db), withAuthenticator(testCase.authMiddleware))

			var me user.User
			resp, err := newClient(server).R().SetResult(&me).Get("/users/me")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectedStatus, resp.StatusCode())
			assert.Equal(t, testCase.expectedEmail, me.Email)
		})
	}
}
