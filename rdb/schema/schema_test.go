package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hatlonely/liteorm/rdb/database"
	"github.com/hatlonely/liteorm/rdb/model"
	"github.com/hatlonely/liteorm/rdb/sqlgen"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func sqlOf(statements []sqlgen.Statement) []string {
	result := make([]string, 0, len(statements))
	for _, stmt := range statements {
		result = append(result, stmt.Inline())
	}
	return result
}

func describe(v any) *model.Descriptor {
	return model.MustDescribe(v)
}

// openOracle 用 gorm 的迁移器独立检查表结构，go-sqlite3 依赖 cgo，不可用时返回 nil
func openOracle(t *testing.T, path string) gorm.Migrator {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Logf("gorm oracle unavailable: %v", err)
		return nil
	}
	sqlDB, err := db.DB()
	if err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return db.Migrator()
}

func TestDiff(t *testing.T) {
	type User struct {
		model.Model
		UID  int64  `rdb:"uid,index"`
		Name string `rdb:"name"`
	}

	type Book struct {
		model.Model
		Title string `rdb:"title,index"`
	}

	Convey("测试 Diff 方法", t, func() {
		Convey("空数据库建表和索引", func() {
			snapshot := &Snapshot{Tables: map[string]map[string]string{}, Indexes: map[string]database.Index{}}
			So(sqlOf(Diff(snapshot, describe(User{}), describe(Book{}))), ShouldResemble, []string{
				`create table "user" ("id" integer primary key, "createdAt" integer, "updatedAt" integer, "uid" integer, "name" text);`,
				`create index "idx_user_uid" on "user" ("uid");`,
				`create table "book" ("id" integer primary key, "createdAt" integer, "updatedAt" integer, "title" text);`,
				`create index "idx_book_title" on "book" ("title");`,
			})
		})

		Convey("补齐缺失的列，不修改已有列的类型", func() {
			snapshot := &Snapshot{
				Tables: map[string]map[string]string{
					"user": {"id": "integer", "createdAt": "integer", "updatedAt": "integer", "uid": "text"},
				},
				Indexes: map[string]database.Index{
					"idx_user_uid": {Name: "idx_user_uid", Table: "user", Columns: []string{"uid"}},
				},
			}
			So(sqlOf(Diff(snapshot, describe(User{}))), ShouldResemble, []string{
				`alter table "user" add column "name" text;`,
			})
		})

		Convey("其他名字的索引同样满足要求", func() {
			snapshot := &Snapshot{
				Tables: map[string]map[string]string{
					"user": {"id": "integer", "createdAt": "integer", "updatedAt": "integer", "uid": "integer", "name": "text"},
				},
				Indexes: map[string]database.Index{
					"user_uid": {Name: "user_uid", Table: "user", Columns: []string{"uid"}},
				},
			}
			So(Diff(snapshot, describe(User{})), ShouldBeEmpty)
		})

		Convey("多列索引不满足单列索引的要求", func() {
			snapshot := &Snapshot{
				Tables: map[string]map[string]string{
					"user": {"id": "integer", "createdAt": "integer", "updatedAt": "integer", "uid": "integer", "name": "text"},
				},
				Indexes: map[string]database.Index{
					"user_name_uid": {Name: "user_name_uid", Table: "user", Columns: []string{"name", "uid"}},
				},
			}
			So(sqlOf(Diff(snapshot, describe(User{}))), ShouldResemble, []string{
				`create index "idx_user_uid" on "user" ("uid");`,
				`drop index "user_name_uid";`,
			})
		})

		Convey("删除不再需要的索引，包括未声明类型的索引", func() {
			snapshot := &Snapshot{
				Tables: map[string]map[string]string{
					"user": {"id": "integer", "createdAt": "integer", "updatedAt": "integer", "uid": "integer", "name": "text"},
					"book": {"id": "integer", "createdAt": "integer", "updatedAt": "integer", "title": "text"},
				},
				Indexes: map[string]database.Index{
					"idx_user_uid":   {Name: "idx_user_uid", Table: "user", Columns: []string{"uid"}},
					"idx_user_name":  {Name: "idx_user_name", Table: "user", Columns: []string{"name"}},
					"idx_book_title": {Name: "idx_book_title", Table: "book", Columns: []string{"title"}},
				},
			}
			So(sqlOf(Diff(snapshot, describe(User{}))), ShouldResemble, []string{
				`drop index "idx_book_title";`,
				`drop index "idx_user_name";`,
			})
		})
	})
}

func TestSynchronizer(t *testing.T) {
	ctx := context.Background()

	Convey("测试 Synchronizer", t, func() {
		path := filepath.Join(t.TempDir(), "schema.db")
		executor, err := database.NewSQLiteWithOptions(&database.SQLiteOptions{Path: path})
		So(err, ShouldBeNil)
		defer executor.Close()
		s := NewSynchronizer(executor, nil)

		Convey("重复同步不产生语句", func() {
			type User struct {
				model.Model
				UID    int64    `rdb:"uid,index"`
				Name   string   `rdb:"name"`
				Age    int      `rdb:"age"`
				VIP    bool     `rdb:"vip"`
				Labels []string `rdb:"labels,json"`
			}

			applied, err := s.Sync(ctx, describe(User{}))
			So(err, ShouldBeNil)
			So(applied, ShouldHaveLength, 2)

			applied, err = s.Sync(ctx, describe(User{}))
			So(err, ShouldBeNil)
			So(applied, ShouldBeEmpty)

			snapshot, err := TakeSnapshot(ctx, executor)
			So(err, ShouldBeNil)
			So(snapshot.TableNames(), ShouldResemble, []string{"user"})
			So(snapshot.Tables["user"], ShouldResemble, map[string]string{
				"id": "integer", "createdAt": "integer", "updatedAt": "integer",
				"uid": "integer", "name": "text", "age": "integer", "vip": "blob", "labels": "text",
			})
			So(snapshot.IndexNames(), ShouldResemble, []string{"idx_user_uid"})

			if oracle := openOracle(t, path); oracle != nil {
				So(oracle.HasTable("user"), ShouldBeTrue)
				So(oracle.HasColumn("user", "labels"), ShouldBeTrue)
				So(oracle.HasIndex("user", "idx_user_uid"), ShouldBeTrue)
			}
		})

		Convey("增量添加列", func() {
			{
				type Account struct {
					model.Model
					Name string `rdb:"name"`
				}
				_, err := s.Sync(ctx, describe(Account{}))
				So(err, ShouldBeNil)
			}

			type Account struct {
				model.Model
				Name  string  `rdb:"name"`
				Score float64 `rdb:"score"`
			}
			applied, err := s.Sync(ctx, describe(Account{}))
			So(err, ShouldBeNil)
			So(sqlOf(applied), ShouldResemble, []string{`alter table "account" add column "score" real;`})

			if oracle := openOracle(t, path); oracle != nil {
				So(oracle.HasColumn("account", "score"), ShouldBeTrue)
			}
		})

		Convey("索引从 a 迁移到 b", func() {
			{
				type Account struct {
					model.Model
					A string `rdb:"a,index"`
					B string `rdb:"b"`
				}
				_, err := s.Sync(ctx, describe(Account{}))
				So(err, ShouldBeNil)
			}

			type Account struct {
				model.Model
				A string `rdb:"a"`
				B string `rdb:"b,index"`
			}
			plan, err := s.Plan(ctx, describe(Account{}))
			So(err, ShouldBeNil)
			So(sqlOf(plan), ShouldResemble, []string{
				`create index "idx_account_b" on "account" ("b");`,
				`drop index "idx_account_a";`,
			})

			applied, err := s.Sync(ctx, describe(Account{}))
			So(err, ShouldBeNil)
			So(applied, ShouldResemble, plan)

			snapshot, err := TakeSnapshot(ctx, executor)
			So(err, ShouldBeNil)
			So(snapshot.IndexNames(), ShouldResemble, []string{"idx_account_b"})

			if oracle := openOracle(t, path); oracle != nil {
				So(oracle.HasIndex("account", "idx_account_b"), ShouldBeTrue)
				So(oracle.HasIndex("account", "idx_account_a"), ShouldBeFalse)
			}
		})

		Convey("语句失败时中止同步", func() {
			_, err := executor.Exec(ctx, sqlgen.Statement{SQL: "create table broken (id integer primary key);"})
			So(err, ShouldBeNil)
			// 同名视图使建表失败
			_, err = executor.Exec(ctx, sqlgen.Statement{SQL: "create view item as select * from broken;"})
			So(err, ShouldBeNil)

			type Item struct {
				model.Model
				Code string `rdb:"code,index"`
			}
			type Other struct {
				model.Model
			}
			applied, err := s.Sync(ctx, describe(Other{}), describe(Item{}))
			So(errors.Is(err, database.ErrStatementExecution), ShouldBeTrue)
			So(sqlOf(applied), ShouldResemble, []string{
				`create table "other" ("id" integer primary key, "createdAt" integer, "updatedAt" integer);`,
			})

			snapshot, err := TakeSnapshot(ctx, executor)
			So(err, ShouldBeNil)
			So(snapshot.HasTable("item"), ShouldBeFalse)
			So(snapshot.IndexNames(), ShouldBeEmpty)
		})
	})
}
