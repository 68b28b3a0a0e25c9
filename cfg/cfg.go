package cfg

import (
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// LoadFile 读取配置文件并解析到 object，依次完成格式解析、字段转换、默认值填充和校验
func LoadFile(path string, object any) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	return Load(data, format, object)
}

func Load(data []byte, format Format, object any) error {
	tree, err := Decode(data, format)
	if err != nil {
		return err
	}

	if err := NewNode(tree).ConvertTo(object); err != nil {
		return errors.WithMessage(err, "failed to convert config")
	}

	return Validate(object)
}

// Validate 使用 validate tag 校验结构体，非结构体直接通过
func Validate(object any) error {
	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	if err := validate.Struct(rv.Interface()); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
