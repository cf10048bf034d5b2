package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"mercator-hq/predicate/pkg/catalog"
	"mercator-hq/predicate/pkg/catalog/storage"
	"mercator-hq/predicate/pkg/cli"
	"mercator-hq/predicate/pkg/expr/eval"
	"mercator-hq/predicate/pkg/expr/parser"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Store, list and compose named predicates",
		Long: `Manage the predicate catalog configured under 'catalog' in the config file.

The default memory backend lives only as long as one command, so persistent
use needs the sqlite backend:

  catalog:
    backend: sqlite
    sqlite:
      path: data/predicates.db`,
	}

	cmd.AddCommand(
		newCatalogPutCmd(a),
		newCatalogGetCmd(a),
		newCatalogListCmd(a),
		newCatalogDeleteCmd(a),
		newCatalogComposeCmd(a),
	)
	return cmd
}

// withCatalog opens the catalog, runs fn and closes it again.
func (a *app) withCatalog(command string, fn func(*catalog.Catalog) error) error {
	c, err := a.openCatalog()
	if err != nil {
		return cli.NewConfigError(a.cfgFile, err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close catalog", "error", err)
		}
	}()
	if err := fn(c); err != nil {
		return cli.NewCommandError(command, err)
	}
	return nil
}

func newCatalogPutCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "put FILE...",
		Short: "Store predicate files",
		Long: `Store predicate files in the catalog. Each predicate is named by its
document's 'name' key, or by its file name without extension. An existing
predicate with the same name is replaced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			if name != "" && len(files) > 1 {
				return cli.NewCommandError("catalog put", fmt.Errorf("--name needs exactly one file, got %d", len(files)))
			}
			return a.withCatalog("catalog put", func(c *catalog.Catalog) error {
				w := cmd.OutOrStdout()
				for _, file := range files {
					rec, err := a.putFile(cmd.Context(), c, file, name)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "stored %s (%s)\n", rec.Name, rec.Hash[:12])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "catalog name (single file only)")
	return cmd
}

func (a *app) putFile(ctx context.Context, c *catalog.Catalog, file, name string) (*storage.Record, error) {
	if name == "" {
		return c.PutFile(ctx, file)
	}
	doc, err := a.parser().Parse(file)
	if err != nil {
		return nil, err
	}
	return c.Put(ctx, name, doc)
}

func newCatalogGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Print a stored predicate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.output()
			if err != nil {
				return err
			}
			return a.withCatalog("catalog get", func(c *catalog.Catalog) error {
				entry, err := c.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if format == cli.FormatYAML {
					_, err := cmd.OutOrStdout().Write(entry.Record.Document)
					return err
				}
				return writeDocument(cmd.OutOrStdout(), format, entry.Document)
			})
		},
	}
}

func newCatalogListCmd(a *app) *cobra.Command {
	var q storage.Query

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored predicates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.output()
			if err != nil {
				return err
			}
			return a.withCatalog("catalog list", func(c *catalog.Catalog) error {
				records, err := c.List(cmd.Context(), &q)
				if err != nil {
					return err
				}
				return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), newRecordList(records))
			})
		},
	}

	cmd.Flags().StringVar(&q.Prefix, "prefix", "", "only names with this prefix")
	cmd.Flags().StringVar(&q.Tag, "tag", "", "only predicates carrying this tag")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum number of predicates (0 for all)")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "number of predicates to skip")
	return cmd
}

// recordInfo is the listed form of a stored predicate.
type recordInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Source      string   `json:"source,omitempty" yaml:"source,omitempty"`
	Hash        string   `json:"hash" yaml:"hash"`
	Size        int      `json:"size" yaml:"size"`
	UpdatedAt   string   `json:"updated_at" yaml:"updated_at"`

	updated time.Time
}

type recordList struct {
	Predicates []recordInfo `json:"predicates" yaml:"predicates"`
}

func newRecordList(records []*storage.Record) *recordList {
	list := &recordList{Predicates: make([]recordInfo, len(records))}
	for i, r := range records {
		list.Predicates[i] = recordInfo{
			Name:        r.Name,
			Description: r.Description,
			Tags:        r.Tags,
			Source:      r.Source,
			Hash:        r.Hash,
			Size:        len(r.Document),
			UpdatedAt:   r.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			updated:     r.UpdatedAt,
		}
	}
	return list
}

func (l *recordList) WriteText(w io.Writer) error {
	if len(l.Predicates) == 0 {
		_, err := fmt.Fprintln(w, "no predicates")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTAGS\tSIZE\tUPDATED")
	for _, p := range l.Predicates {
		tags := strings.Join(p.Tags, ",")
		if tags == "" {
			tags = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, tags,
			humanize.Bytes(uint64(p.Size)), humanize.Time(p.updated))
	}
	return tw.Flush()
}

func newCatalogDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME...",
		Short: "Remove stored predicates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, names []string) error {
			return a.withCatalog("catalog delete", func(c *catalog.Catalog) error {
				for _, name := range names {
					if err := c.Delete(cmd.Context(), name); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
				}
				return nil
			})
		},
	}
}

func newCatalogComposeCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "compose NAME...",
		Short: "Conjoin stored predicates",
		Long: `Conjoin stored predicates in the given order. With --store the result is
saved to the catalog under --name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, names []string) error {
			format, err := a.output()
			if err != nil {
				return err
			}
			store, _ := cmd.Flags().GetBool("store")
			if store && name == "" {
				return cli.NewCommandError("catalog compose", fmt.Errorf("--store needs --name"))
			}
			return a.withCatalog("catalog compose", func(c *catalog.Catalog) error {
				lambda, err := c.Compose(cmd.Context(), names...)
				if err != nil {
					return err
				}
				if name == "" {
					name = strings.Join(names, "_and_")
				}
				named := *lambda
				named.Name = name
				doc := &parser.Document{Name: name, Lambda: &named, Free: eval.FreeParameters(&named)}
				if store {
					if _, err := c.Put(cmd.Context(), name, doc); err != nil {
						return err
					}
				}
				return writeDocument(cmd.OutOrStdout(), format, doc)
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the composed predicate")
	cmd.Flags().Bool("store", false, "store the composed predicate under --name")
	return cmd
}
