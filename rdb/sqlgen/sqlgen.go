package sqlgen

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hatlonely/liteorm/rdb/model"
	"github.com/hatlonely/liteorm/rdb/query"
	"github.com/pkg/errors"
)

// Quote 把表名、列名或索引名包在双引号中，名字中的双引号转义为两个双引号
// 名字本身保持不变，order、group 这类关键字也可以作为表名或列名
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Create create table "<name>" ("id" integer primary key, "<col>" <type>, ...);
func Create(d *model.Descriptor) Statement {
	defs := []string{Quote(model.ColumnID) + " integer primary key"}
	for _, attr := range d.Attributes {
		if attr.Name == model.ColumnID {
			continue
		}
		defs = append(defs, fmt.Sprintf("%s %s", Quote(attr.Name), attr.SQLType()))
	}
	return Statement{SQL: fmt.Sprintf("create table %s (%s);", Quote(d.Table), strings.Join(defs, ", "))}
}

func AddColumn(table, column, sqlType string) Statement {
	return Statement{SQL: fmt.Sprintf("alter table %s add column %s %s;", Quote(table), Quote(column), sqlType)}
}

func CreateIndex(d *model.Descriptor, column string) Statement {
	return Statement{SQL: fmt.Sprintf("create index %s on %s (%s);", Quote(d.IndexName(column)), Quote(d.Table), Quote(column))}
}

func DropIndex(name string) Statement {
	return Statement{SQL: fmt.Sprintf("drop index %s;", Quote(name))}
}

func Drop(d *model.Descriptor) Statement {
	return Statement{SQL: fmt.Sprintf("drop table %s;", Quote(d.Table))}
}

// Insert 列和值按属性声明顺序一一对应，id 由数据库自增分配
func Insert(d *model.Descriptor, record any, codec model.Codec) (Statement, error) {
	rv, err := recordValue(d, record)
	if err != nil {
		return Statement{}, err
	}

	var columns, placeholders []string
	var args []any
	for _, attr := range d.Attributes {
		if attr.Name == model.ColumnID {
			continue
		}
		v, err := model.Encode(rv, attr, codec)
		if err != nil {
			return Statement{}, err
		}
		columns = append(columns, Quote(attr.Name))
		placeholders = append(placeholders, "?")
		args = append(args, v)
	}
	if len(columns) == 0 {
		return Statement{}, errors.Wrapf(model.ErrNoPersistableAttributes, "insert into %s", d.Table)
	}

	return Statement{
		SQL:  fmt.Sprintf("insert into %s (%s) values (%s);", Quote(d.Table), strings.Join(columns, ", "), strings.Join(placeholders, ", ")),
		Args: args,
	}, nil
}

// Update set 子句包含所有非 null 的属性，id 和 createdAt 除外
// opts 中的投影列限定 set 子句的范围，条件追加为 where 子句
func Update(d *model.Descriptor, record any, codec model.Codec, opts *query.Options) (Statement, error) {
	if err := opts.Err(); err != nil {
		return Statement{}, err
	}
	rv, err := recordValue(d, record)
	if err != nil {
		return Statement{}, err
	}

	selected := model.Projection(opts.Columns())
	var sets []string
	var args []any
	for _, attr := range d.Attributes {
		if attr.Name == model.ColumnID || attr.Name == model.ColumnCreatedAt {
			continue
		}
		if selected != nil && !selected[attr.Name] {
			continue
		}
		if model.IsNull(rv, attr) {
			continue
		}
		v, err := model.Encode(rv, attr, codec)
		if err != nil {
			return Statement{}, err
		}
		sets = append(sets, Quote(attr.Name)+" = ?")
		args = append(args, v)
	}
	if len(sets) == 0 {
		return Statement{}, errors.Wrapf(model.ErrNoPersistableAttributes, "update %s", d.Table)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "update %s set %s", Quote(d.Table), strings.Join(sets, ", "))
	args = appendWhere(&buf, opts, args)
	buf.WriteString(";")
	return Statement{SQL: buf.String(), Args: args}, nil
}

func Delete(table string, opts *query.Options) (Statement, error) {
	if err := opts.Err(); err != nil {
		return Statement{}, err
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "delete from %s", Quote(table))
	args := appendWhere(&buf, opts, nil)
	buf.WriteString(";")
	return Statement{SQL: buf.String(), Args: args}, nil
}

// Query select <cols> from "<table>" [where] [group by] [order by] [limit] [offset];
// 子句顺序固定，未设置的子句不出现，投影、分组和排序列是调用方给出的表达式，原样输出
func Query(table string, opts *query.Options) (Statement, error) {
	if err := opts.Err(); err != nil {
		return Statement{}, err
	}

	columns := "*"
	if len(opts.Columns()) > 0 {
		columns = strings.Join(opts.Columns(), ", ")
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "select %s from %s", columns, Quote(table))
	args := appendWhere(&buf, opts, nil)

	if groups := opts.Groups(); len(groups) > 0 {
		fmt.Fprintf(&buf, " group by %s", strings.Join(groups, ", "))
	}
	if orders := opts.Orders(); len(orders) > 0 {
		parts := make([]string, 0, len(orders))
		for _, order := range orders {
			parts = append(parts, order.String())
		}
		fmt.Fprintf(&buf, " order by %s", strings.Join(parts, ", "))
	}

	limit, hasLimit, offset, hasOffset := opts.Paging()
	if hasLimit {
		fmt.Fprintf(&buf, " limit %d", limit)
	} else if hasOffset {
		// SQLite 的 offset 必须跟在 limit 之后，-1 表示不限制
		buf.WriteString(" limit -1")
	}
	if hasOffset {
		fmt.Fprintf(&buf, " offset %d", offset)
	}
	buf.WriteString(";")
	return Statement{SQL: buf.String(), Args: args}, nil
}

func appendWhere(buf *strings.Builder, opts *query.Options, args []any) []any {
	predicate, values := opts.Predicate()
	if predicate == "" {
		return args
	}
	fmt.Fprintf(buf, " where %s", predicate)
	return append(args, values...)
}

func recordValue(d *model.Descriptor, record any) (reflect.Value, error) {
	rv := reflect.ValueOf(record)
	if !rv.IsValid() {
		return reflect.Value{}, errors.Wrap(model.ErrInvalidRecordType, "nil record")
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, errors.Wrap(model.ErrInvalidRecordType, "nil record")
		}
		rv = rv.Elem()
	}
	if rv.Type() != d.Type {
		return reflect.Value{}, errors.Wrapf(model.ErrInvalidRecordType, "expected %v, got %v", d.Type, rv.Type())
	}
	return rv, nil
}
