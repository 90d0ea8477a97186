package handler

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/cinelist/internal/config"
	"github.com/user/cinelist/internal/repository"
	"github.com/user/cinelist/internal/service"
)

// Handler HTTP 处理器
type Handler struct {
	Repos  *repository.Repositories
	Config *config.Config
	TMDB   *service.TMDBService
	Mail   *service.MailService
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	registerValidations()

	tmdb := service.NewTMDBService(repos.Movie, cfg)
	mail := service.NewMailService(service.NewSMTPMailer(cfg), cfg)

	return &Handler{
		Repos:  repos,
		Config: cfg,
		TMDB:   tmdb,
		Mail:   mail,
	}
}

// registerValidations 注册自定义校验规则
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// watcheddate: YYYY-MM-DD 格式的日期
		v.RegisterValidation("watcheddate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		})
	}
}
