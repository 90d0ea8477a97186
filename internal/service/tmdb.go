package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/user/cinelist/internal/config"
	"github.com/user/cinelist/internal/model"
	"github.com/user/cinelist/internal/repository"
	"github.com/user/cinelist/internal/utils"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// 上游目录服务错误
var (
	ErrUpstreamNotFound    = errors.New("目录中不存在该电影")
	ErrUpstreamUnavailable = errors.New("目录服务不可用")
	ErrNotConfigured       = errors.New("未配置 TMDB API Key")
)

// defaultLanguage 本地缓存物化使用的语言
const defaultLanguage = "en-US"

// Page TMDB 分页结果
type Page struct {
	Page         int                      `json:"page"`
	Results      []map[string]interface{} `json:"results"`
	TotalPages   int                      `json:"total_pages"`
	TotalResults int                      `json:"total_results"`
}

// tmdbMovieDetails 电影详情响应
type tmdbMovieDetails struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	Runtime     int     `json:"runtime"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// TMDBService 读穿式电影元数据缓存 + 目录代理
type TMDBService struct {
	movieRepo *repository.MovieRepository
	config    *config.Config
	client    *utils.HTTPClient
	group     singleflight.Group

	// 目录字典类响应（类型列表、图片配置）变化极少，做小容量 TTL 缓存；
	// 搜索/发现等读路径不缓存
	dictCache *utils.TTLCache[map[string]interface{}]
}

func NewTMDBService(repo *repository.MovieRepository, cfg *config.Config) *TMDBService {
	return &TMDBService{
		movieRepo: repo,
		config:    cfg,
		client:    utils.NewHTTPClient(cfg.TMDBTimeout),
		dictCache: utils.NewTTLCache[map[string]interface{}](32, 12*time.Hour),
	}
}

// EnsureMovie 确保本地存在电影缓存行，不存在则从目录同步抓取后落库。
// 这是电影进入本地存储的唯一入口。命中后永不刷新，失败不缓存。
func (s *TMDBService) EnsureMovie(ctx context.Context, tmdbID int) (*model.Movie, error) {
	// 使用 singleflight 避免并发重复抓取同一部电影
	val, err, _ := s.group.Do(strconv.Itoa(tmdbID), func() (interface{}, error) {
		return s.ensureMovieInternal(ctx, tmdbID)
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.Movie), nil
}

func (s *TMDBService) ensureMovieInternal(ctx context.Context, tmdbID int) (*model.Movie, error) {
	movie, err := s.movieRepo.FindByID(tmdbID)
	if err != nil {
		return nil, err
	}
	if movie != nil {
		return movie, nil
	}

	var details tmdbMovieDetails
	if err := s.getJSON(ctx, fmt.Sprintf("/movie/%d", tmdbID), url.Values{"language": {defaultLanguage}}, &details); err != nil {
		return nil, err
	}
	if details.ID == 0 || details.Title == "" {
		return nil, fmt.Errorf("%w: 详情响应缺少必要字段", ErrUpstreamUnavailable)
	}

	movie = &model.Movie{
		TMDBID:     details.ID,
		Title:      details.Title,
		Overview:   details.Overview,
		PosterPath: details.PosterPath,
		Rating:     details.VoteAverage,
		Runtime:    details.Runtime,
		CreatedAt:  time.Now(),
	}
	for _, g := range details.Genres {
		movie.Genres = append(movie.Genres, g.Name)
	}
	if details.ReleaseDate != "" {
		if d, err := time.Parse("2006-01-02", details.ReleaseDate); err == nil {
			movie.ReleaseDate = &d
		} else {
			log.Printf("[TMDB] 无法解析上映日期 %q (TMDB ID: %d)", details.ReleaseDate, tmdbID)
		}
	}

	if err := s.movieRepo.Create(movie); err != nil {
		// 另一个请求（或进程）已经物化了同一部电影：当作命中，重读返回
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, rerr := s.movieRepo.FindByID(tmdbID)
			if rerr != nil {
				return nil, rerr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	return movie, nil
}

// MovieDetails 详情端点。默认语言走本地缓存（必要时物化），
// 其它语言直接透传目录；append_to_response 附加字段取不到时优雅降级。
func (s *TMDBService) MovieDetails(ctx context.Context, tmdbID int, appendTo, language string) (map[string]interface{}, error) {
	if language != "" && language != defaultLanguage {
		params := url.Values{"language": {language}}
		if appendTo != "" {
			params.Set("append_to_response", appendTo)
		}
		var result map[string]interface{}
		if err := s.getJSON(ctx, fmt.Sprintf("/movie/%d", tmdbID), params, &result); err != nil {
			return nil, err
		}
		return result, nil
	}

	movie, err := s.EnsureMovie(ctx, tmdbID)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"id":           movie.TMDBID,
		"title":        movie.Title,
		"overview":     movie.Overview,
		"poster_path":  movie.PosterPath,
		"release_date": nil,
		"vote_average": movie.Rating,
		"genres":       []string(movie.Genres),
		"runtime":      movie.Runtime,
	}
	if movie.ReleaseDate != nil {
		result["release_date"] = movie.ReleaseDate.Format("2006-01-02")
	}

	if appendTo != "" {
		params := url.Values{
			"language":           {defaultLanguage},
			"append_to_response": {appendTo},
		}
		var extras map[string]interface{}
		if err := s.getJSON(ctx, fmt.Sprintf("/movie/%d", tmdbID), params, &extras); err != nil {
			log.Printf("[TMDB] 附加字段获取失败 (TMDB ID: %d): %v", tmdbID, err)
		} else {
			if runtime, ok := extras["runtime"]; ok {
				result["runtime"] = runtime
			}
			for _, key := range splitAppend(appendTo) {
				if v, ok := extras[key]; ok {
					result[key] = v
				}
			}
		}
	}

	return result, nil
}

// Popular 热门电影（按流行度排序的发现查询）
func (s *TMDBService) Popular(ctx context.Context, page, language string) (*Page, error) {
	params := url.Values{
		"language":      {orDefault(language)},
		"sort_by":       {"popularity.desc"},
		"page":          {orPage(page)},
		"include_adult": {"false"},
	}
	return s.getPage(ctx, "/discover/movie", params)
}

// Search 按关键词搜索
func (s *TMDBService) Search(ctx context.Context, query, page, language string) (*Page, error) {
	params := url.Values{
		"language":      {orDefault(language)},
		"query":         {query},
		"page":          {orPage(page)},
		"include_adult": {"false"},
	}
	return s.getPage(ctx, "/search/movie", params)
}

// Discover 按类型发现电影
func (s *TMDBService) Discover(ctx context.Context, genreID, page, language string) (*Page, error) {
	params := url.Values{
		"language":      {orDefault(language)},
		"with_genres":   {genreID},
		"page":          {orPage(page)},
		"include_adult": {"false"},
	}
	return s.getPage(ctx, "/discover/movie", params)
}

// Recommendations 相似推荐
func (s *TMDBService) Recommendations(ctx context.Context, tmdbID int, page, language string) (*Page, error) {
	params := url.Values{
		"language":      {orDefault(language)},
		"page":          {orPage(page)},
		"include_adult": {"false"},
	}
	return s.getPage(ctx, fmt.Sprintf("/movie/%d/recommendations", tmdbID), params)
}

// Credits 演职员表（透传）
func (s *TMDBService) Credits(ctx context.Context, tmdbID int, language string) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := s.getJSON(ctx, fmt.Sprintf("/movie/%d/credits", tmdbID), url.Values{"language": {orDefault(language)}}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Genres 电影类型字典（带缓存）
func (s *TMDBService) Genres(ctx context.Context, language string) (map[string]interface{}, error) {
	return s.getDict(ctx, "/genre/movie/list", url.Values{"language": {orDefault(language)}})
}

// Configuration 目录图片配置（带缓存）
func (s *TMDBService) Configuration(ctx context.Context) (map[string]interface{}, error) {
	return s.getDict(ctx, "/configuration", url.Values{})
}

// Health 探测目录是否可达
func (s *TMDBService) Health(ctx context.Context) error {
	var result map[string]interface{}
	return s.getJSON(ctx, "/movie/popular", url.Values{"language": {defaultLanguage}}, &result)
}

// getDict 字典类请求：先查 TTL 缓存，未命中再透传
func (s *TMDBService) getDict(ctx context.Context, path string, params url.Values) (map[string]interface{}, error) {
	key := path + "?" + params.Encode()
	if cached, ok := s.dictCache.Get(key); ok {
		return cached, nil
	}

	var result map[string]interface{}
	if err := s.getJSON(ctx, path, params, &result); err != nil {
		return nil, err
	}
	s.dictCache.Set(key, result)
	return result, nil
}

// getPage 分页请求并做成人内容二次过滤。上游自己也有过滤开关，
// 这里是内容筛选层面的兜底，不是安全边界。
func (s *TMDBService) getPage(ctx context.Context, path string, params url.Values) (*Page, error) {
	var page Page
	if err := s.getJSON(ctx, path, params, &page); err != nil {
		return nil, err
	}

	filtered := make([]map[string]interface{}, 0, len(page.Results))
	for _, item := range page.Results {
		if adult, _ := item["adult"].(bool); adult {
			continue
		}
		filtered = append(filtered, item)
	}
	page.Results = filtered
	page.TotalResults = len(filtered)

	return &page, nil
}

// getJSON 发送目录请求并翻译错误：404 → ErrUpstreamNotFound，
// 其它失败（超时、传输错误、5xx）→ ErrUpstreamUnavailable
func (s *TMDBService) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	if s.config.TMDBAPIKey == "" {
		return ErrNotConfigured
	}
	params.Set("api_key", s.config.TMDBAPIKey)

	fullURL := s.config.TMDBBaseURL + path + "?" + params.Encode()
	if err := s.client.GetJSON(ctx, fullURL, target); err != nil {
		var statusErr *utils.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == 404 {
			return ErrUpstreamNotFound
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

func orDefault(language string) string {
	if language == "" {
		return defaultLanguage
	}
	return language
}

func orPage(page string) string {
	if page == "" {
		return "1"
	}
	return page
}

func splitAppend(appendTo string) []string {
	var keys []string
	for _, key := range strings.Split(appendTo, ",") {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
