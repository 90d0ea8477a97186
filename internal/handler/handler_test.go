package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinelist/internal/config"
	"github.com/user/cinelist/internal/handler"
	"github.com/user/cinelist/internal/model"
	"github.com/user/cinelist/internal/repository"
	"github.com/user/cinelist/internal/router"
	"github.com/user/cinelist/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// envelope 统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

// recordingMailer 把发出的邮件写入通道，便于断言
type recordingMailer struct {
	sent chan string
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.sent <- to + "|" + body
	return nil
}

type testEnv struct {
	engine *gin.Engine
	repos  *repository.Repositories
	db     *gorm.DB
	cfg    *config.Config
	mail   *recordingMailer
}

// newTestEnv 搭建完整的 HTTP 测试环境：内存库 + 模拟目录 + 录制邮件
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(stubCatalog))
	t.Cleanup(upstream.Close)

	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	cfg := &config.Config{
		Env:                 "test",
		AppSecret:           "test-secret",
		JWTExpiry:           time.Hour,
		RecoveryExpiry:      30 * time.Minute,
		FrontendURL:         "http://frontend.local",
		TMDBAPIKey:          "test-key",
		TMDBBaseURL:         upstream.URL,
		TMDBTimeout:         2 * time.Second,
		AllowMainListRename: true,
	}

	repos := repository.NewRepositories(db)
	h := handler.NewHandler(repos, cfg)

	mail := &recordingMailer{sent: make(chan string, 4)}
	h.Mail = service.NewMailService(mail, cfg)

	engine := gin.New()
	router.RegisterRoutes(engine, h)

	return &testEnv{engine: engine, repos: repos, db: db, cfg: cfg, mail: mail}
}

// stubCatalog 模拟 TMDB：ID 999 不存在，其余电影返回固定详情
func stubCatalog(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/movie/999":
		w.WriteHeader(http.StatusNotFound)
	case path == "/search/movie", path == "/discover/movie", path == "/movie/popular":
		fmt.Fprint(w, `{"page":1,"results":[{"id":603,"title":"The Matrix","adult":false}],"total_pages":1,"total_results":1}`)
	case path == "/genre/movie/list":
		fmt.Fprint(w, `{"genres":[{"id":28,"name":"Action"}]}`)
	case path == "/configuration":
		fmt.Fprint(w, `{"images":{"secure_base_url":"https://image.tmdb.org/t/p/"}}`)
	case strings.HasSuffix(path, "/credits"):
		fmt.Fprint(w, `{"id":603,"cast":[{"name":"Keanu Reeves"}]}`)
	case strings.HasPrefix(path, "/movie/"):
		id := strings.TrimPrefix(path, "/movie/")
		fmt.Fprintf(w, `{"id":%s,"title":"Stub Movie %s","overview":"","release_date":"1999-03-31","vote_average":7.5,"runtime":120,"genres":[{"id":28,"name":"Action"}]}`, id, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// do 发送一个 JSON 请求并解析统一响应
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "响应不是统一结构: %s", rec.Body.String())
	return rec, env
}

// register 注册一个用户并返回会话令牌
func (e *testEnv) register(t *testing.T, name, email string) string {
	t.Helper()

	rec, env := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ana", "email": "ana@example.com", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID    int    `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "ana@example.com", auth.User.Email)

	// 重复注册同一邮箱
	rec, env = e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Outra", "email": "ana@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "邮箱已被注册", env.Message)

	// 登录成功
	rec, _ = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ana@example.com", "password": "secret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// 密码错误与邮箱不存在返回同一响应
	rec, env = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ana@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	wrongPassMsg := env.Message

	rec, env = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "nobody@example.com", "password": "secret",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, wrongPassMsg, env.Message)
}

func TestListsRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodGet, "/api/lists", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestListLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "Ana", "ana@example.com")

	// 注册后自带三个主列表
	rec, env := e.do(t, http.MethodGet, "/api/lists", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lists []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		IsMain bool   `json:"is_main"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &lists))
	require.Len(t, lists, 3)
	for _, l := range lists {
		assert.True(t, l.IsMain)
		assert.Len(t, l.ID, model.ListIDLength)
	}

	// 创建普通列表
	rec, env = e.do(t, http.MethodPost, "/api/lists", token, gin.H{"name": "Fim de semana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID     string `json:"id"`
		IsMain bool   `json:"is_main"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.False(t, created.IsMain)

	// 添加电影：先物化元数据再入列表
	rec, _ = e.do(t, http.MethodPost, "/api/lists/add_movie", token, gin.H{
		"list_id": created.ID, "tmdb_id": 603,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// 重复添加
	rec, env = e.do(t, http.MethodPost, "/api/lists/add_movie", token, gin.H{
		"list_id": created.ID, "tmdb_id": 603,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "电影已在列表中", env.Message)

	// 列表详情
	rec, env = e.do(t, http.MethodGet, "/api/lists/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Movies []struct {
			TMDBID int `json:"tmdb_id"`
		} `json:"movies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Len(t, detail.Movies, 1)
	assert.Equal(t, 603, detail.Movies[0].TMDBID)

	// 重命名
	rec, _ = e.do(t, http.MethodPut, "/api/lists/"+created.ID, token, gin.H{"name": "Novo nome"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// 移除电影
	rec, _ = e.do(t, http.MethodDelete, "/api/lists/"+created.ID+"/movies/603", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = e.do(t, http.MethodGet, "/api/lists/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Empty(t, detail.Movies)

	// 再移除一次：电影已不在列表中
	rec, _ = e.do(t, http.MethodDelete, "/api/lists/"+created.ID+"/movies/603", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 主列表不允许删除
	rec, env = e.do(t, http.MethodDelete, "/api/lists/"+lists[0].ID, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "主列表不允许删除", env.Message)

	// 普通列表可以删除
	rec, _ = e.do(t, http.MethodDelete, "/api/lists/"+created.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/lists/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOwnershipAndPublicShare(t *testing.T) {
	e := newTestEnv(t)
	anaToken := e.register(t, "Ana", "ana@example.com")
	biaToken := e.register(t, "Bia", "bia@example.com")

	_, env := e.do(t, http.MethodPost, "/api/lists", anaToken, gin.H{"name": "Favoritos da Ana"})
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// 他人访问：与不存在不可区分
	rec, _ := e.do(t, http.MethodGet, "/api/lists/"+created.ID, biaToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 公开分享入口：任何人持 ID 即可读取，无需登录
	rec, env = e.do(t, http.MethodGet, "/api/lists/public/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "Favoritos da Ana", detail.Name)
}

func TestAddMovieUpstreamNotFound(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "Ana", "ana@example.com")

	_, env := e.do(t, http.MethodPost, "/api/lists", token, gin.H{"name": "Fim de semana"})
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// 目录查无此片：操作整体失败，不留下悬空 ID
	rec, _ := e.do(t, http.MethodPost, "/api/lists/add_movie", token, gin.H{
		"list_id": created.ID, "tmdb_id": 999,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, env = e.do(t, http.MethodGet, "/api/lists/"+created.ID, token, nil)
	var detail struct {
		Movies []struct {
			TMDBID int `json:"tmdb_id"`
		} `json:"movies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Empty(t, detail.Movies)
}

// 并发向两个列表添加同一部未缓存的电影：都应成功，元数据只落一行
func TestAddMovieConcurrentMaterialization(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "Ana", "ana@example.com")

	ids := make([]string, 2)
	for i, name := range []string{"Lista A", "Lista B"} {
		_, env := e.do(t, http.MethodPost, "/api/lists", token, gin.H{"name": name})
		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &created))
		ids[i] = created.ID
	}

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, _ := e.do(t, http.MethodPost, "/api/lists/add_movie", token, gin.H{
				"list_id": ids[i], "tmdb_id": 550,
			})
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	assert.Equal(t, http.StatusCreated, codes[0])
	assert.Equal(t, http.StatusCreated, codes[1])

	var count int64
	require.NoError(t, e.db.Model(&model.Movie{}).Where("tmdb_id = ?", 550).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWatchedFlow(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "Ana", "ana@example.com")

	// 首次标记
	rec, _ := e.do(t, http.MethodPost, "/api/movie/watched", token, gin.H{
		"tmdb_id": 603, "watched_at": "2026-01-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// 重复标记：只更新日期
	rec, env := e.do(t, http.MethodPost, "/api/movie/watched", token, gin.H{
		"tmdb_id": 603, "watched_at": "2026-02-20",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "观影日期已更新", env.Message)

	rec, env = e.do(t, http.MethodGet, "/api/movie/watched", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Watched []struct {
			TMDBID    int    `json:"tmdb_id"`
			WatchedAt string `json:"watched_at"`
		} `json:"watched"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Len(t, body.Watched, 1)
	assert.Equal(t, "2026-02-20", body.Watched[0].WatchedAt)

	// 日期格式非法
	rec, _ = e.do(t, http.MethodPost, "/api/movie/watched", token, gin.H{
		"tmdb_id": 603, "watched_at": "20-02-2026",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 区间统计
	rec, env = e.do(t, http.MethodGet, "/api/movie/watched/count?start_date=2026-02-01&end_date=2026-02-28", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var counted struct {
		Count int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &counted))
	assert.EqualValues(t, 1, counted.Count)

	// 起止颠倒：按空区间处理
	rec, env = e.do(t, http.MethodGet, "/api/movie/watched/count?start_date=2026-03-01&end_date=2026-01-01", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &counted))
	assert.Zero(t, counted.Count)

	// 日期格式非法
	rec, _ = e.do(t, http.MethodGet, "/api/movie/watched/count?start_date=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 删除标记
	rec, _ = e.do(t, http.MethodDelete, "/api/movie/watched/603", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(t, http.MethodDelete, "/api/movie/watched/603", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryAndResetPassword(t *testing.T) {
	e := newTestEnv(t)
	sessionToken := e.register(t, "Ana", "ana@example.com")

	// 未注册邮箱（沿用既有对外行为）
	rec, _ := e.do(t, http.MethodPost, "/api/auth/recovery", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 已注册邮箱：响应成功，邮件异步送达
	rec, _ = e.do(t, http.MethodPost, "/api/auth/recovery", "", gin.H{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var mail string
	select {
	case mail = <-e.mail.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("找回密码邮件未送达")
	}
	assert.Contains(t, mail, "ana@example.com|")
	require.Contains(t, mail, e.cfg.FrontendURL+"/recovery/")

	idx := strings.LastIndex(mail, "/recovery/")
	recoveryToken := mail[idx+len("/recovery/"):]
	require.NotEmpty(t, recoveryToken)

	// 会话令牌不能用于重置密码
	rec, env := e.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{
		"token": sessionToken, "new_password": "newpass",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "令牌无效", env.Message)

	// 找回令牌可以
	rec, _ = e.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{
		"token": recoveryToken, "new_password": "newpass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// 新密码生效，旧密码失效
	rec, _ = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ana@example.com", "password": "newpass",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ana@example.com", "password": "secret",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTMDBProxy(t *testing.T) {
	e := newTestEnv(t)

	// 搜索缺少关键词
	rec, _ := e.do(t, http.MethodGet, "/api/tmdb/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := e.do(t, http.MethodGet, "/api/tmdb/search?query=matrix", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Results, 1)

	// 发现缺少类型
	rec, _ = e.do(t, http.MethodGet, "/api/tmdb/discover/movie", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/tmdb/discover/movie?with_genres=28", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/tmdb/genres", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/tmdb/config", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 详情走本地缓存物化
	rec, env = e.do(t, http.MethodGet, "/api/tmdb/movie/603", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.EqualValues(t, 603, details["id"])

	rec, _ = e.do(t, http.MethodGet, "/api/tmdb/movie/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/tmdb/movie/603/credits", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
