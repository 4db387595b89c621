package providers

import (
	"strings"
	"sync"
	"tlsync/internal/structures"

	"github.com/gookit/validate"
)

var registerOnce sync.Once

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	registerOnce.Do(func() {
		validate.AddValidator("unixPath", func(val interface{}) bool {
			s, ok := val.(string)
			return ok && strings.HasPrefix(s, "/") && !strings.Contains(s, "\x00")
		})
	})
	return &CnfValidator{conf: conf}
}

func (v *CnfValidator) Validate() error {
	vd := validate.Struct(v.conf)
	vd.StopOnError = false
	if !vd.Validate() {
		return vd.Errors.OneError()
	}
	return nil
}
