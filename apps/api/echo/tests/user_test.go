package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/feria/apps/api/echo"
	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/user"
	"github.com/trezcool/feria/tests"
)

func Test_userApi_login(t *testing.T) {
	app := newTestApp(t)
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada", "ada@feria.test", "S3cret!pass", user.RoleJudge)

	t.Run("by username", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: " ADA ", Password: "S3cret!pass"})
		rec := app.do(newRequest(http.MethodPost, "/v1/users/login", body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res struct {
			Token string    `json:"token"`
			User  user.User `json:"user"`
		}
		unmarshal(t, rec, &res)
		assert.Equal(t, ada.ID, res.User.ID)
		assert.False(t, res.User.LastLogin.IsZero(), "login is recorded")

		claims := new(Claims)
		_, err := jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, ada.ID, claims.Subject)
		assert.Equal(t, user.RoleJudge, claims.Role)
	})

	tests := []httpTest{
		{
			name:     "by email",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "ada@feria.test", Password: "S3cret!pass"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "ada", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "grace", Password: "S3cret!pass"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_userApi_refreshToken(t *testing.T) {
	app := newTestApp(t)
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada", "", "", user.RoleJudge)

	expired := GetUserClaims(conf, ada, time.Now().Add(-conf.Server.JWTRefreshExpirationDelta-time.Hour).Unix())
	expiredToken, err := GenerateToken(conf, expired)
	require.NoError(t, err)

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/v1/users/token-refresh",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "refresh window over",
			method:   http.MethodPost,
			path:     "/v1/users/token-refresh",
			token:    expiredToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{
			name:     "ok",
			method:   http.MethodPost,
			path:     "/v1/users/token-refresh",
			token:    getToken(t, ada),
			wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_userApi_query(t *testing.T) {
	app := newTestApp(t)
	now := time.Now().UTC()

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@feria.test", "", user.RoleAdmin, now.Add(-4*time.Hour))
	ada := testutil.CreateUser(t, app.usrRepo, "Ada Lovelace", "ada", "ada@feria.test", "", user.RoleJudge, now.Add(-3*time.Hour))
	grace := testutil.CreateUser(t, app.usrRepo, "Grace Hopper", "grace", "", "", user.RoleJudge, now.Add(-2*time.Hour))
	marie := testutil.CreateUser(t, app.usrRepo, "Marie Curie", "marie", "", "", user.RoleTeacher, now.Add(-time.Hour))

	path := func(search, ordering string, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     path("", ""),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "judges are not allowed",
			method:   http.MethodGet,
			path:     path("", ""),
			token:    getToken(t, ada),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "all",
			method:   http.MethodGet,
			path:     path("", ""),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, admin, ada, grace, marie),
		},
		{
			name:     "search",
			method:   http.MethodGet,
			path:     path("hopper", ""),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, grace),
		},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     path("", "", user.RoleJudge),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, ada, grace),
		},
		{
			name:     "ordering",
			method:   http.MethodGet,
			path:     path("", "-username"),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, marie, grace, admin, ada),
		},
		{
			name:     "no match",
			method:   http.MethodGet,
			path:     path("nobody", ""),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_userApi_create(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@feria.test", "", user.RoleAdmin)

	newUser := func(uname, email, role, pwd string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "New " + uname,
			Username:        uname,
			Email:           email,
			Role:            role,
			Password:        pwd,
			PasswordConfirm: pwd,
		})
	}

	tests := []httpTest{
		{
			name:     "username taken",
			method:   http.MethodPost,
			path:     "/v1/users",
			body:     newUser("admin", "", user.RoleJudge, "Kx9!vmzq2"),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "a user with this username already exists"}`),
		},
		{
			name:     "invalid role",
			method:   http.MethodPost,
			path:     "/v1/users",
			body:     newUser("linus", "", "student", "Kx9!vmzq2"),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"role": "invalid role"}`),
		},
		{
			name:     "weak password",
			method:   http.MethodPost,
			path:     "/v1/users",
			body:     newUser("linus", "", user.RoleJudge, "12345678"),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "password cannot be entirely numeric"}`),
		},
	}
	runHTTPTests(t, app, tests)

	rec := app.do(newAuthRequest(http.MethodPost, "/v1/users", getToken(t, admin), newUser("Linus", "LINUS@feria.test", user.RoleJudge, "Kx9!vmzq2")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created user.User
	unmarshal(t, rec, &created)
	assert.Equal(t, "linus", created.Username)
	assert.Equal(t, "linus@feria.test", created.Email)
	assert.Equal(t, []string{}, created.AssignedProjects)

	usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: created.ID})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("Kx9!vmzq2"))
}

func Test_userApi_detail(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@feria.test", "", user.RoleAdmin)
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada", "ada@feria.test", "", user.RoleJudge)
	grace := testutil.CreateUser(t, app.usrRepo, "Grace", "grace", "", "", user.RoleJudge)

	adaToken := getToken(t, ada)

	tests := []httpTest{
		{
			name:     "own profile",
			method:   http.MethodGet,
			path:     "/v1/users/" + ada.ID,
			token:    adaToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ada),
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    adaToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ada),
		},
		{
			name:     "someone else's profile",
			method:   http.MethodGet,
			path:     "/v1/users/" + grace.ID,
			token:    adaToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "admin reads anyone",
			method:   http.MethodGet,
			path:     "/v1/users/" + grace.ID,
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, grace),
		},
		{
			name:     "non admin cannot change own role",
			method:   http.MethodPut,
			path:     "/v1/users/" + ada.ID,
			body:     []byte(`{"role": "admin"}`),
			token:    adaToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "admin cannot delete themselves",
			method:   http.MethodDelete,
			path:     "/v1/users/" + admin.ID,
			token:    getToken(t, admin),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	}
	runHTTPTests(t, app, tests)

	rec := app.do(newAuthRequest(http.MethodPut, "/v1/users/"+ada.ID, adaToken, []byte(`{"name": "Countess Lovelace"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated user.User
	unmarshal(t, rec, &updated)
	assert.Equal(t, "Countess Lovelace", updated.Name)
	assert.Equal(t, "ada", updated.Username)
}

func Test_userApi_destroyJudge(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "", "", user.RoleAdmin)
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada", "", "", user.RoleJudge)
	grace := testutil.CreateUser(t, app.usrRepo, "Grace", "grace", "", "", user.RoleJudge)
	proj := testutil.CreateProject(t, app.projRepo, "Volcano", "PRIMEROS", nil)

	rec := app.do(newAuthRequest(http.MethodPut, "/v1/projects/"+proj.ID+"/judges", getToken(t, admin),
		marchallObj(t, map[string][]string{"judge_ids": {ada.ID, grace.ID}})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testutil.CreateEvaluation(t, app.evalRepo, ada.ID, proj.ID, evaluation.Scores{Exposition: 20})
	testutil.CreateEvaluation(t, app.evalRepo, grace.ID, proj.ID, evaluation.Scores{Exposition: 25})

	rec = app.do(newAuthRequest(http.MethodDelete, "/v1/users/"+ada.ID, getToken(t, admin)))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	_, err := app.usrRepo.GetUser(ctx, user.GetFilter{ID: ada.ID})
	assert.Equal(t, user.ErrNotFound, err)

	p, err := app.projRepo.GetProject(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{grace.ID}, p.AssignedJudges)

	evals, err := app.evalRepo.QueryEvaluations(ctx, nil)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, grace.ID, evals[0].JudgeID)

	// a token of a deleted user is no longer accepted
	rec = app.do(newAuthRequest(http.MethodGet, "/v1/users/me", getToken(t, ada)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
