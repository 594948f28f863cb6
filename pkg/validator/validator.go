package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	mu     sync.RWMutex
	chains = map[string]struct{}{}
)

// Init 注册自定义校验规则到 gin 的 binding 引擎
// supportedChains: "chain" 标签允许的链名
func Init(supportedChains []string) error {
	mu.Lock()
	chains = make(map[string]struct{}, len(supportedChains))
	for _, c := range supportedChains {
		chains[c] = struct{}{}
	}
	mu.Unlock()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("binding engine 不是 go-playground/validator")
	}
	return Register(v)
}

// Register 在给定的 validator 实例上注册自定义标签
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("chain", validateChain); err != nil {
		return err
	}
	return v.RegisterValidation("positive_decimal", validatePositiveDecimal)
}

func validateChain(fl validator.FieldLevel) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := chains[fl.Field().String()]
	return ok
}

func validatePositiveDecimal(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive()
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var errMsgs []string
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()
			param := e.Param()

			switch tag {
			case "required":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
			case "min":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 长度至少为 %s", field, param))
			case "max":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 长度不能超过 %s", field, param))
			case "oneof":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 [%s] 之一", field, param))
			case "chain":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 不是支持的链", field))
			case "positive_decimal":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是大于 0 的数字", field))
			default:
				errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, tag))
			}
		}
		return strings.Join(errMsgs, "; ")
	}
	return "请求参数错误"
}
