package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nao1215/projecthub/internal/project"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidations はginのバインディングにカスタムルールを登録する。
// バリデータはプロセス全体で共有されるため一度だけ登録する。
func registerValidations() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerErr = v.RegisterValidation("project_status", func(fl validator.FieldLevel) bool {
			return project.Status(fl.Field().String()).Valid()
		})
	})
	return registerErr
}
