package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/morris0411/ManavisGradesApp/apps/api/echo"
	"github.com/morris0411/ManavisGradesApp/tests"
)

func TestHealth(t *testing.T) {
	a := setup(t)

	req, rec := newRequest(http.MethodGet, "/health")
	a.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"status":"ok"}`)}, rec)

	req, rec = newRequest(http.MethodGet, "/metrics")
	a.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func Test_userApi_login(t *testing.T) {
	a := setup(t)
	usr := testutil.CreateUser(t, a.usrRepo, "tanaka", "password", false)

	badCreds := marchallObj(t, httpErr{Error: "ログインIDまたはパスワードが正しくありません"})
	tests := []httpTest{
		{
			name:     "no body",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "リクエストボディが必要です"}),
		},
		{
			name:     "missing password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"login_id": "tanaka"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "login_idとpasswordが必要です"}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"login_id": "tanaka", "password": "nope"}`),
			wantCode: http.StatusUnauthorized,
			wantData: badCreds,
		},
		{
			name:     "unknown login",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"login_id": "sato", "password": "password"}`),
			wantCode: http.StatusUnauthorized,
			wantData: badCreds,
		},
	}
	runHTTPTests(t, a, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/login", []byte(`{"login_id": " tanaka ", "password": "password"}`))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, usr.ID, resp.UserID)
		assert.Equal(t, "tanaka", resp.LoginID)

		claims := new(Claims)
		_, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(a.conf.SecretKey), nil
		})
		require.NoError(t, err)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, usr.ID, id)
		assert.False(t, claims.IsAdmin)

		// the issued token opens the protected routes
		req, rec = newAuthRequest(http.MethodGet, "/api/auth/verify", resp.AccessToken)
		a.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"valid":true}`)}, rec)
	})
}

func Test_userApi_me(t *testing.T) {
	a := setup(t)
	usr := testutil.CreateUser(t, a.usrRepo, "suzuki", "password", true)
	token := getToken(t, a.conf, usr)

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/api/auth/me",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "bad token",
			method:   http.MethodGet,
			path:     "/api/auth/me",
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name:     "valid token",
			method:   http.MethodGet,
			path:     "/api/auth/me",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, usr),
		},
	}
	runHTTPTests(t, a, tests)
}

func Test_userApi_register(t *testing.T) {
	a := setup(t)
	adminToken := a.staffToken(t, "admin", true)
	staffToken := a.staffToken(t, "staff", false)

	tests := []httpTest{
		{
			name:     "not admin",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     []byte(`{"login_id": "new.staff", "password": "secret1"}`),
			token:    staffToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "duplicate login",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     []byte(`{"login_id": "staff", "password": "secret1"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"login_id": "このログインIDは既に使用されています"}`),
		},
		{
			name:     "missing password",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     []byte(`{"login_id": "new.staff"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "this field is required"}`),
		},
	}
	runHTTPTests(t, a, tests)

	t.Run("created", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/auth/register", adminToken,
			[]byte(`{"login_id": "new.staff", "password": "secret1"}`))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp RegisterResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ユーザーが正常に登録されました", resp.Message)
		assert.Equal(t, "new.staff", resp.LoginID)

		usr, err := a.usrRepo.GetUserByLoginID(req.Context(), "new.staff")
		require.NoError(t, err)
		assert.Equal(t, resp.UserID, usr.ID)
		assert.NoError(t, usr.CheckPassword("secret1"))
	})
}
