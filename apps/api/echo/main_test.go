package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/examhall/apps/api/echo"
	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
	"github.com/trezcool/examhall/core/exam"
	"github.com/trezcool/examhall/core/subscription"
	"github.com/trezcool/examhall/core/user"
	"github.com/trezcool/examhall/services/cache"
	"github.com/trezcool/examhall/services/email"
	"github.com/trezcool/examhall/services/identity"
	"github.com/trezcool/examhall/storage/database/inmem"
	"github.com/trezcool/examhall/tests"
)

var (
	// now is the frozen clock of the user service, so that provisioned users match their fixtures.
	now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	errMissingToken = httpErr{Error: "missing or malformed token"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

// flakyVerifier fails with err when set, and defers to the JWT verifier otherwise.
type flakyVerifier struct {
	*identitysvc.JWTVerifier
	err error
}

func (v *flakyVerifier) Verify(ctx context.Context, token string) (core.Identity, error) {
	if v.err != nil {
		return core.Identity{}, v.err
	}
	return v.JWTVerifier.Verify(ctx, token)
}

type testApp struct {
	server    *echoapi.Server
	verifier  *flakyVerifier
	usrRepo   user.Repository
	catRepo   catalog.Repository
	payRepo   subscription.Repository
	examRepo  exam.Repository
	mailSvc   *emailsvc.ConsoleServiceMock
	publisher *testutil.EventRecorder
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Examhall",
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://frontend.examhall.test",
		Identity:        core.IdentityConfig{Provider: "jwt", Issuer: "examhall"},
	}
	logger := testutil.NopLogger{}

	db := inmemdb.Open()
	app := &testApp{
		verifier:  &flakyVerifier{JWTVerifier: identitysvc.NewJWTVerifier(conf)},
		usrRepo:   inmemdb.NewUserRepository(db),
		catRepo:   inmemdb.NewCatalogRepository(db),
		payRepo:   inmemdb.NewPaymentRepository(db),
		examRepo:  inmemdb.NewExamRepository(db),
		mailSvc:   emailsvc.NewConsoleServiceMock(conf, logger),
		publisher: new(testutil.EventRecorder),
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	subscription.InitValidators(validate, translator)

	usrSvc := user.NewService(app.usrRepo, logger)
	catSvc := catalog.NewService(app.catRepo)
	subSvc := subscription.NewService(app.payRepo, usrSvc, app.mailSvc, app.publisher, logger)
	examSvc := exam.NewService(app.examRepo, catSvc, subSvc, cachesvc.NoopStatsCache{}, app.publisher, logger)

	app.server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Verifier:        app.verifier,
		UserSvc:         usrSvc,
		CatalogSvc:      catSvc,
		SubscriptionSvc: subSvc,
		ExamSvc:         examSvc,
		Validate:        validate,
		Translator:      translator,
	})

	user.NowFunc = func() time.Time { return now }
	t.Cleanup(func() {
		user.NowFunc = time.Now
		exam.NowFunc = time.Now
		subscription.NowFunc = time.Now
	})
	return app
}

// createUser creates a user that can authenticate; created at `now` so that login does not change it.
func (app *testApp) createUser(t *testing.T, name, email string, roles ...string) user.User {
	t.Helper()
	return testutil.CreateUser(t, app.usrRepo, name, email, roles, true, now)
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.verifier.IssueToken(core.Identity{Subject: usr.ExternalID, Email: usr.Email, Name: usr.Name}, time.Hour)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		assert.Empty(t, rec.Body.String())
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
