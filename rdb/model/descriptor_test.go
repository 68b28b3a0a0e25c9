package model

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type Profile struct {
	City string `json:"city"`
	Zip  int    `json:"zip"`
}

type User struct {
	Model
	UID    int64    `rdb:"uid,index"`
	Name   string   `rdb:"name"`
	Age    int      `rdb:"age"`
	VIP    bool     `rdb:"vip"`
	Score  float64  `rdb:"score"`
	Labels []string `rdb:"labels,json"`
	Cache  string   `rdb:"-"`
	hidden string
}

type Member struct {
	User
	Level int8 `rdb:"level,index"`
}

type Nullable struct {
	Model
	Nick    *string  `rdb:"nick"`
	Rank    *int32   `rdb:"rank"`
	Active  *bool    `rdb:"active"`
	Ratio   *float32 `rdb:"ratio"`
	Profile *Profile `rdb:"profile,json"`
}

type Unsupported struct {
	Model
	Count uint `rdb:"count"`
}

type NoID struct {
	Name string `rdb:"name"`
}

type Duplicate struct {
	Model
	A string `rdb:"name"`
	B string `rdb:"name"`
}

func TestDescribe(t *testing.T) {
	Convey("测试 Describe 方法", t, func() {
		Convey("解析属性顺序和类型", func() {
			d, err := Of[User]()
			So(err, ShouldBeNil)
			So(d.Table, ShouldEqual, "user")
			So(d.Columns(), ShouldResemble, []string{"id", "createdAt", "updatedAt", "uid", "name", "age", "vip", "score", "labels"})
			So(d.Indexes, ShouldResemble, []string{"uid"})

			types := map[string]string{}
			for _, a := range d.Attributes {
				types[a.Name] = a.SQLType()
			}
			So(types, ShouldResemble, map[string]string{
				"id":        "integer",
				"createdAt": "integer",
				"updatedAt": "integer",
				"uid":       "integer",
				"name":      "text",
				"age":       "integer",
				"vip":       "blob",
				"score":     "real",
				"labels":    "text",
			})

			labels, ok := d.Attribute("labels")
			So(ok, ShouldBeTrue)
			So(labels.JSON, ShouldBeTrue)
			So(labels.Kind, ShouldEqual, KindJSON)

			_, ok = d.Attribute("Cache")
			So(ok, ShouldBeFalse)
			_, ok = d.Attribute("hidden")
			So(ok, ShouldBeFalse)
		})

		Convey("嵌入的父类型属性被继承", func() {
			d, err := Describe(&Member{})
			So(err, ShouldBeNil)
			So(d.Table, ShouldEqual, "member")
			So(d.Columns(), ShouldResemble, []string{"id", "createdAt", "updatedAt", "uid", "name", "age", "vip", "score", "labels", "level"})
			So(d.Indexes, ShouldResemble, []string{"uid", "level"})
			So(d.IndexName("level"), ShouldEqual, "idx_member_level")
		})

		Convey("指针字段可以为 null", func() {
			d, err := Describe(reflect.TypeOf(Nullable{}))
			So(err, ShouldBeNil)
			rank, _ := d.Attribute("rank")
			So(rank.Nullable, ShouldBeTrue)
			So(rank.Kind, ShouldEqual, KindInt32)
			profile, _ := d.Attribute("profile")
			So(profile.SQLType(), ShouldEqual, "text")
		})

		Convey("同一类型只解析一次", func() {
			d1, _ := Of[User]()
			d2, _ := Describe(User{})
			So(d1, ShouldEqual, d2)
		})

		Convey("不支持的属性类型", func() {
			_, err := Of[Unsupported]()
			So(errors.Is(err, ErrUnsupportedAttributeType), ShouldBeTrue)
		})

		Convey("缺少主键", func() {
			_, err := Of[NoID]()
			So(errors.Is(err, ErrMissingPrimaryKey), ShouldBeTrue)
		})

		Convey("重复的列名", func() {
			_, err := Of[Duplicate]()
			So(errors.Is(err, ErrDuplicateAttribute), ShouldBeTrue)
		})

		Convey("非结构体类型", func() {
			_, err := Describe(42)
			So(errors.Is(err, ErrInvalidRecordType), ShouldBeTrue)
			_, err = Describe(nil)
			So(errors.Is(err, ErrInvalidRecordType), ShouldBeTrue)
		})
	})
}

func TestParseTag(t *testing.T) {
	Convey("测试 parseTag 方法", t, func() {
		name, flags := parseTag("Name", "")
		So(name, ShouldEqual, "Name")
		So(flags, ShouldResemble, tagFlags{})

		name, flags = parseTag("Labels", ",json, index")
		So(name, ShouldEqual, "Labels")
		So(flags, ShouldResemble, tagFlags{json: true, index: true})

		_, flags = parseTag("Cache", "-")
		So(flags.ignore, ShouldBeTrue)

		_, flags = parseTag("Cache", "cache,ignore")
		So(flags.ignore, ShouldBeTrue)
	})
}
