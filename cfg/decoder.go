package cfg

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Format 配置文件格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatINI  Format = "ini"
)

// FormatOf 根据文件扩展名推断格式
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".ini":
		return FormatINI, nil
	default:
		return "", errors.Errorf("unsupported config file extension: %q", filepath.Ext(path))
	}
}

// Decode 把原始数据解析为 map[string]any / []any 组成的树
func Decode(data []byte, format Format) (any, error) {
	switch format {
	case FormatJSON:
		var result any
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&result); err != nil {
			return nil, errors.Wrap(err, "failed to decode JSON")
		}
		return normalize(result), nil
	case FormatYAML:
		var result any
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, errors.Wrap(err, "failed to decode YAML")
		}
		return normalize(result), nil
	case FormatTOML:
		var result map[string]any
		if err := toml.Unmarshal(data, &result); err != nil {
			return nil, errors.Wrap(err, "failed to decode TOML")
		}
		return normalize(result), nil
	case FormatINI:
		return decodeINI(data)
	default:
		return nil, errors.Errorf("unsupported format: %s", format)
	}
}

// decodeINI 默认分区的键放在顶层，其余分区作为子节点，分区名中的点号表示多级嵌套
func decodeINI(data []byte) (any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode INI")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		node := result
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				child, ok := node[part].(map[string]any)
				if !ok {
					child = map[string]any{}
					node[part] = child
				}
				node = child
			}
		}
		for _, key := range section.Keys() {
			node[key.Name()] = iniValue(key.Value())
		}
	}
	return result, nil
}

// iniValue INI 中的值都是字符串，这里尽量还原为数字和布尔值
func iniValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// normalize 统一 map 的键类型，并把 json.Number 转换为 int64 或 float64
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[toString(k)] = normalize(item)
		}
		return m
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	case []map[string]any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = normalize(item)
		}
		return items
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	default:
		return v
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return strings.Trim(string(b), `"`)
}
