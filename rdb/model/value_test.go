package model

import (
	"reflect"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEncode(t *testing.T) {
	Convey("测试 Encode 方法", t, func() {
		d, _ := Of[User]()
		codec := NewJSONCodec()
		user := &User{UID: 7, Name: "o'neil", Age: 18, VIP: true, Score: 1.5, Labels: []string{"a", "b"}}
		rv := reflect.ValueOf(user)

		encode := func(name string) any {
			attr, _ := d.Attribute(name)
			v, err := Encode(rv, attr, codec)
			So(err, ShouldBeNil)
			return v
		}

		So(encode("uid"), ShouldEqual, int64(7))
		So(encode("name"), ShouldEqual, "o'neil")
		So(encode("age"), ShouldEqual, int64(18))
		So(encode("vip"), ShouldEqual, int64(1))
		So(encode("score"), ShouldEqual, 1.5)
		So(encode("labels"), ShouldEqual, `["a","b"]`)

		user.Labels = nil
		So(encode("labels"), ShouldBeNil)

		Convey("null 指针", func() {
			nd, _ := Of[Nullable]()
			n := &Nullable{}
			for _, attr := range nd.Attributes[3:] {
				v, err := Encode(reflect.ValueOf(n), attr, codec)
				So(err, ShouldBeNil)
				So(v, ShouldBeNil)
				So(IsNull(reflect.ValueOf(n), attr), ShouldBeTrue)
			}
		})

		Convey("msgpack 编码", func() {
			attr, _ := d.Attribute("labels")
			user.Labels = []string{"x"}
			v, err := Encode(rv, attr, NewMsgpackCodec())
			So(err, ShouldBeNil)
			data, ok := v.([]byte)
			So(ok, ShouldBeTrue)

			var decoded User
			So(Decode(data, reflect.ValueOf(&decoded), attr, NewMsgpackCodec()), ShouldBeNil)
			So(decoded.Labels, ShouldResemble, []string{"x"})
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("测试 Decode 方法", t, func() {
		codec := NewJSONCodec()

		Convey("按属性类别解码", func() {
			d, _ := Of[User]()
			var user User
			rv := reflect.ValueOf(&user)
			cells := map[string]any{
				"uid":    int64(9),
				"name":   []byte("bob"),
				"age":    int64(30),
				"vip":    int64(1),
				"score":  float64(2.5),
				"labels": `["x","y"]`,
			}
			for name, cell := range cells {
				attr, _ := d.Attribute(name)
				So(Decode(cell, rv, attr, codec), ShouldBeNil)
			}
			So(user.UID, ShouldEqual, 9)
			So(user.Name, ShouldEqual, "bob")
			So(user.Age, ShouldEqual, 30)
			So(user.VIP, ShouldBeTrue)
			So(user.Score, ShouldEqual, 2.5)
			So(user.Labels, ShouldResemble, []string{"x", "y"})
		})

		Convey("指针字段和嵌套 json", func() {
			d, _ := Of[Nullable]()
			var n Nullable
			rv := reflect.ValueOf(&n)
			for name, cell := range map[string]any{
				"nick":    "nick",
				"rank":    int64(3),
				"active":  int64(0),
				"ratio":   float64(0.5),
				"profile": `{"city":"x","zip":100}`,
			} {
				attr, _ := d.Attribute(name)
				So(Decode(cell, rv, attr, codec), ShouldBeNil)
			}
			So(*n.Nick, ShouldEqual, "nick")
			So(*n.Rank, ShouldEqual, 3)
			So(*n.Active, ShouldBeFalse)
			So(*n.Ratio, ShouldEqual, 0.5)
			So(n.Profile, ShouldResemble, &Profile{City: "x", Zip: 100})

			attr, _ := d.Attribute("nick")
			var empty Nullable
			So(Decode(nil, reflect.ValueOf(&empty), attr, codec), ShouldBeNil)
			So(empty.Nick, ShouldBeNil)
		})

		Convey("整数溢出", func() {
			d, _ := Of[Member]()
			attr, _ := d.Attribute("level")
			var m Member
			So(Decode(int64(300), reflect.ValueOf(&m), attr, codec), ShouldNotBeNil)
		})

		Convey("非法的 json", func() {
			d, _ := Of[User]()
			attr, _ := d.Attribute("labels")
			var user User
			So(Decode("not json", reflect.ValueOf(&user), attr, codec), ShouldNotBeNil)
		})
	})
}

func TestDecodeRow(t *testing.T) {
	Convey("测试 DecodeRow 方法", t, func() {
		d, _ := Of[User]()
		codec := NewJSONCodec()

		Convey("解码全部属性", func() {
			columns := []string{"id", "createdAt", "updatedAt", "uid", "name", "age", "vip", "score", "labels"}
			cells := []any{int64(1), int64(100), int64(200), int64(5), "alice", int64(20), int64(0), 3.5, nil}
			rv, err := d.DecodeRow(columns, cells, nil, codec)
			So(err, ShouldBeNil)
			user := rv.Interface().(*User)
			So(user.ID, ShouldEqual, 1)
			So(user.CreatedAt, ShouldEqual, 100)
			So(user.UpdatedAt, ShouldEqual, 200)
			So(user.Name, ShouldEqual, "alice")
			So(user.Labels, ShouldBeNil)
		})

		Convey("只解码选中的属性", func() {
			rv, err := d.DecodeRow([]string{"name", "age"}, []any{"alice", int64(20)}, Projection([]string{"name", "age"}), codec)
			So(err, ShouldBeNil)
			So(rv.Interface(), ShouldResemble, &User{Name: "alice", Age: 20})
		})

		Convey("缺少列", func() {
			_, err := d.DecodeRow([]string{"name"}, []any{"alice"}, nil, codec)
			So(err, ShouldNotBeNil)
		})

		Convey("列数与值数不一致", func() {
			_, err := d.DecodeRow([]string{"name"}, nil, nil, codec)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestProjection(t *testing.T) {
	Convey("测试 Projection 方法", t, func() {
		So(Projection(nil), ShouldBeNil)
		So(Projection([]string{"*"}), ShouldBeNil)
		So(Projection([]string{"name, age"}), ShouldResemble, map[string]bool{"name": true, "age": true})
	})
}

func TestIdAndTimestamps(t *testing.T) {
	Convey("测试 SetInt 和 GetInt 方法", t, func() {
		d, _ := Of[User]()
		user := &User{}
		d.SetInt(reflect.ValueOf(user), ColumnID, 42)
		d.SetInt(reflect.ValueOf(user), ColumnCreatedAt, 1000)
		d.SetInt(reflect.ValueOf(user), "missing", 1)
		So(user.ID, ShouldEqual, 42)
		So(d.GetInt(reflect.ValueOf(user), ColumnCreatedAt), ShouldEqual, 1000)
		So(d.GetInt(reflect.ValueOf(user), "missing"), ShouldEqual, 0)
	})
}

func TestLiteral(t *testing.T) {
	Convey("测试 Literal 方法", t, func() {
		So(Literal(nil), ShouldEqual, "null")
		So(Literal("it's"), ShouldEqual, "'it''s'")
		So(Literal(true), ShouldEqual, "1")
		So(Literal(int64(50)), ShouldEqual, "50")
		So(Literal(1.25), ShouldEqual, "1.25")
		So(Literal([]byte{0xab, 0x01}), ShouldEqual, "X'AB01'")
	})
}

func TestNewCodec(t *testing.T) {
	Convey("测试 NewCodec 方法", t, func() {
		c, err := NewCodec("")
		So(err, ShouldBeNil)
		So(c, ShouldHaveSameTypeAs, &JSONCodec{})
		c, err = NewCodec("msgpack")
		So(err, ShouldBeNil)
		So(c, ShouldHaveSameTypeAs, &MsgpackCodec{})
		_, err = NewCodec("xml")
		So(err, ShouldNotBeNil)
	})
}
