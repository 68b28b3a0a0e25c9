// liteorm 查看 SQLite 数据库的表结构和引擎版本
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/hatlonely/liteorm/rdb"
	"github.com/hatlonely/liteorm/rdb/database"
	"github.com/hatlonely/liteorm/rdb/schema"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var version = "dev"

type Globals struct {
	Config string `name:"config" short:"c" help:"Config file (json, yaml, toml or ini)" type:"path"`
	Path   string `name:"path" short:"p" help:"Database file, ignored when --config is set"`
	Driver string `name:"driver" default:"sqlite" enum:"sqlite,sqlite3" help:"Database driver"`

	out io.Writer
}

func (g *Globals) open() (*rdb.DB, error) {
	if g.Config != "" {
		return rdb.OpenConfigFile(g.Config)
	}
	if g.Path == "" {
		return nil, errors.New("either --config or --path is required")
	}
	return rdb.NewDBWithOptions(&rdb.Options{Driver: g.Driver, Path: g.Path})
}

type CLI struct {
	Globals

	Inspect InspectCmd `cmd:"" help:"Print tables, columns and indexes"`
	Version VersionCmd `cmd:"" help:"Print tool and engine versions"`
}

type InspectCmd struct {
	Format string `name:"format" short:"f" default:"text" enum:"text,json,yaml" help:"Output format: text, json, yaml"`
}

type tableView struct {
	Name    string            `json:"name" yaml:"name"`
	Columns []database.Column `json:"columns" yaml:"columns"`
	Indexes []database.Index  `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

func views(snapshot *schema.Snapshot) []tableView {
	indexes := map[string][]database.Index{}
	for _, name := range snapshot.IndexNames() {
		index := snapshot.Indexes[name]
		indexes[index.Table] = append(indexes[index.Table], index)
	}

	result := make([]tableView, 0, len(snapshot.Tables))
	for _, table := range snapshot.TableNames() {
		columns := make([]database.Column, 0, len(snapshot.Tables[table]))
		for name, typ := range snapshot.Tables[table] {
			columns = append(columns, database.Column{Name: name, Type: typ})
		}
		sort.Slice(columns, func(i, j int) bool { return columns[i].Name < columns[j].Name })
		result = append(result, tableView{Name: table, Columns: columns, Indexes: indexes[table]})
	}
	return result
}

func (c *InspectCmd) Run(g *Globals) error {
	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()

	snapshot, err := db.Snapshot(context.Background())
	if err != nil {
		return err
	}
	tables := views(snapshot)

	switch c.Format {
	case "json":
		encoder := json.NewEncoder(g.out)
		encoder.SetIndent("", "  ")
		return errors.Wrap(encoder.Encode(tables), "encode json failed")
	case "yaml":
		encoder := yaml.NewEncoder(g.out)
		defer encoder.Close()
		return errors.Wrap(encoder.Encode(tables), "encode yaml failed")
	default:
		for _, table := range tables {
			fmt.Fprintf(g.out, "%s\n", table.Name)
			for _, column := range table.Columns {
				fmt.Fprintf(g.out, "  %-24s %s\n", column.Name, column.Type)
			}
			for _, index := range table.Indexes {
				fmt.Fprintf(g.out, "  index %s (%s)\n", index.Name, strings.Join(index.Columns, ", "))
			}
		}
		return nil
	}
}

type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.out, "liteorm %s\n", version)
	if g.Config == "" && g.Path == "" {
		return nil
	}

	db, err := g.open()
	if err != nil {
		return err
	}
	defer db.Close()

	v, err := db.Version(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "sqlite %s\n", v)
	return nil
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	return kong.New(cli, append([]kong.Option{
		kong.Name("liteorm"),
		kong.Description("Inspect SQLite databases managed by liteorm"),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	}, options...)...)
}

func main() {
	cli := &CLI{Globals: Globals{out: os.Stdout}}
	parser, err := newParser(cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(ctx.Run())
}
