package query

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestQueryToSQL(t *testing.T) {
	Convey("测试查询节点 ToSQL 方法", t, func() {
		Convey("TermQuery", func() {
			sql, args, err := Term("status", "active").ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "status = ?")
			So(args, ShouldResemble, []any{"active"})

			sql, args, err = Term("deleted", nil).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "deleted is null")
			So(args, ShouldBeNil)
			So(Term("a", 1).Type(), ShouldEqual, QueryTypeTerm)
		})

		Convey("TermsQuery", func() {
			sql, args, err := Terms("id", 1, 2, 3).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "id in (?, ?, ?)")
			So(args, ShouldResemble, []any{1, 2, 3})

			sql, _, err = Terms("id").ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "0 = 1")
		})

		Convey("RangeQuery", func() {
			sql, args, err := Range("age").WithGte(18).WithLt(60).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "age >= ? and age < ?")
			So(args, ShouldResemble, []any{18, 60})

			sql, args, err = Range("age").ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "1 = 1")
			So(args, ShouldBeNil)

			sql, _, _ = (&RangeQuery{Field: "score", Gt: 1.5, Lte: 9.5}).ToSQL()
			So(sql, ShouldEqual, "score > ? and score <= ?")
		})

		Convey("ExistsQuery", func() {
			sql, args, err := Exists("labels").ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "labels is not null")
			So(args, ShouldBeNil)
		})

		Convey("PrefixQuery 和 WildcardQuery", func() {
			sql, args, err := Prefix("name", "50%_").ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `name like ? escape '\'`)
			So(args, ShouldResemble, []any{`50\%\_%`})

			sql, args, err = Wildcard("name", "a*b?").ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `name like ? escape '\'`)
			So(args, ShouldResemble, []any{"a%b_"})
		})

		Convey("BoolQuery", func() {
			q := Bool().
				WithMust(Term("status", "active")).
				WithFilter(Range("age").WithGte(18)).
				WithShould(Term("tag", "a"), Term("tag", "b")).
				WithMustNot(Term("deleted", true))
			sql, args, err := q.ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "(status = ?) and (age >= ?) and (tag = ? or tag = ?) and (not (deleted = ?))")
			So(args, ShouldResemble, []any{"active", 18, "a", "b", true})

			sql, _, err = Bool().WithShould(Term("a", 1), Term("b", 2), Term("c", 3)).WithMinShouldMatch(2).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "(case when (a = ?) then 1 else 0 end + case when (b = ?) then 1 else 0 end + case when (c = ?) then 1 else 0 end) >= 2")

			sql, args, err = Bool().ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "1 = 1")
			So(args, ShouldBeNil)

			_, _, err = Bool().WithMust(Exists("")).ToSQL()
			So(err, ShouldNotBeNil)
		})
	})
}
