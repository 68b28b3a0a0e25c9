package rdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/liteorm/log"
	"github.com/hatlonely/liteorm/rdb/database"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDB(t *testing.T) {
	ctx := context.Background()

	Convey("测试 DB", t, func() {
		db := newTestDB(t, nil)
		defer db.Close()

		Convey("版本", func() {
			version, err := db.Version(ctx)
			So(err, ShouldBeNil)
			So(version, ShouldNotEqual, "unknown")
			So(version, ShouldStartWith, "3.")
		})

		Convey("重复同步不产生语句", func() {
			applied, err := db.Sync(ctx, User{}, Book{})
			So(err, ShouldBeNil)
			So(applied, ShouldBeEmpty)

			plan, err := db.Plan(ctx, User{}, &Book{})
			So(err, ShouldBeNil)
			So(plan, ShouldBeEmpty)

			snapshot, err := db.Snapshot(ctx)
			So(err, ShouldBeNil)
			So(snapshot.TableNames(), ShouldResemble, []string{"book", "user"})
			So(snapshot.IndexNames(), ShouldResemble, []string{"idx_book_title", "idx_user_uid"})
		})

		Convey("只同步部分类型时删除其余类型的索引", func() {
			plan, err := db.Plan(ctx, User{})
			So(err, ShouldBeNil)
			So(plan, ShouldHaveLength, 1)
			So(plan[0].SQL, ShouldEqual, `drop index "idx_book_title";`)
		})

		Convey("删除表", func() {
			So(db.Drop(ctx, Book{}), ShouldBeNil)
			snapshot, err := db.Snapshot(ctx)
			So(err, ShouldBeNil)
			So(snapshot.TableNames(), ShouldResemble, []string{"user"})

			err = db.Drop(ctx, Book{})
			So(errors.Is(err, ErrStatementExecution), ShouldBeTrue)
		})

		Convey("关键字作为表名和列名", func() {
			type Order struct {
				Model
				Group string `rdb:"group,index"`
				Limit int    `rdb:"limit"`
			}
			_, err := db.Sync(ctx, User{}, Book{}, Order{})
			So(err, ShouldBeNil)
			plan, err := db.Plan(ctx, User{}, Book{}, Order{})
			So(err, ShouldBeNil)
			So(plan, ShouldBeEmpty)

			orders := MustNewTable[Order](db)
			So(orders.Insert(ctx, &Order{Group: "a", Limit: 3}), ShouldBeNil)
			found, err := orders.FindOne(ctx, `"group" = ?`, "a")
			So(err, ShouldBeNil)
			So(found.Limit, ShouldEqual, 3)
			n, err := orders.Update(ctx, &Order{Model: found.Model, Group: "b"})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			count, err := orders.Count(ctx, `"group" = ?`, "b")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		})

		Convey("不支持的类型", func() {
			_, err := db.Sync(ctx, 42)
			So(err, ShouldNotBeNil)
			err = db.Drop(ctx, "user")
			So(err, ShouldNotBeNil)
		})

		Convey("重复关闭是安全的", func() {
			So(db.Close(), ShouldBeNil)
			So(db.Close(), ShouldBeNil)

			_, err := db.Version(ctx)
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			_, err = db.Sync(ctx, User{})
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			_, err = db.Plan(ctx, User{})
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			_, err = db.Snapshot(ctx)
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			err = MustNewTable[User](db).Insert(ctx, &User{Name: "late"})
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})
	})
}

func TestNewDBWithOptions(t *testing.T) {
	ctx := context.Background()

	Convey("测试 NewDBWithOptions 方法", t, func() {
		Convey("文件数据库自动创建目录", func() {
			path := filepath.Join(t.TempDir(), "a", "b", "orm.db")
			db, err := Open(path)
			So(err, ShouldBeNil)
			_, err = db.Sync(ctx, User{})
			So(err, ShouldBeNil)
			So(MustNewTable[User](db).Insert(ctx, &User{Name: "persisted"}), ShouldBeNil)
			So(db.Close(), ShouldBeNil)

			_, err = os.Stat(path)
			So(err, ShouldBeNil)

			db, err = Open(path)
			So(err, ShouldBeNil)
			defer db.Close()
			user, err := MustNewTable[User](db).First(ctx, "")
			So(err, ShouldBeNil)
			So(user.Name, ShouldEqual, "persisted")
		})

		Convey("msgpack 编码的 json 属性", func() {
			db := newTestDB(t, &Options{Codec: "msgpack"})
			defer db.Close()
			users := MustNewTable[User](db)

			user := &User{Name: "m", Labels: []string{"x"}, Address: &Address{City: "c"}}
			So(users.Insert(ctx, user), ShouldBeNil)
			found, err := users.FindOneByID(ctx, user.ID)
			So(err, ShouldBeNil)
			So(found.Labels, ShouldResemble, []string{"x"})
			So(found.Address, ShouldResemble, &Address{City: "c"})
		})

		Convey("开启观测", func() {
			db := newTestDB(t, &Options{
				EnableMetrics: true,
				EnableLogging: true,
				EnableTracing: true,
				Name:          "rdb_test",
				Registerer:    prometheus.NewRegistry(),
				Logger:        &log.Options{Level: "error"},
			})
			defer db.Close()
			So(db.Executor(), ShouldHaveSameTypeAs, &database.ObservableExecutor{})

			users := MustNewTable[User](db)
			So(users.Insert(ctx, &User{Name: "observed"}), ShouldBeNil)
			count, err := users.Count(ctx, "")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		})

		Convey("非法的配置", func() {
			_, err := NewDBWithOptions(&Options{Driver: "mysql"})
			So(err, ShouldNotBeNil)
			_, err = NewDBWithOptions(&Options{Codec: "xml"})
			So(err, ShouldNotBeNil)
			_, err = NewDBWithOptions(&Options{Logger: &log.Options{Level: "verbose"}})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestOpenConfigFile(t *testing.T) {
	ctx := context.Background()

	Convey("测试 OpenConfigFile 方法", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "orm.yaml")
		content := "driver: sqlite\npath: " + filepath.Join(dir, "data", "orm.db") + "\ncodec: msgpack\nlogger:\n  level: warn\n  format: json\n"
		So(os.WriteFile(path, []byte(content), 0644), ShouldBeNil)

		db, err := OpenConfigFile(path)
		So(err, ShouldBeNil)
		defer db.Close()
		So(db.Codec(), ShouldNotBeNil)

		_, err = db.Sync(ctx, Book{})
		So(err, ShouldBeNil)
		version, err := db.Version(ctx)
		So(err, ShouldBeNil)
		So(version, ShouldNotBeEmpty)

		_, err = OpenConfigFile(filepath.Join(dir, "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}
