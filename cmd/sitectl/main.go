// cmd/sitectl/main.go
//
// sitectl – operator CLI for the site engine.
//
// Commands run in-process against the configured stores (conf/global.yaml,
// VITRINE_* overrides).  With --memory they use throwaway in-memory stores,
// which is useful with `provision --wait --preview` to see what a template
// produces without a database.
//
//	sitectl provision --tenant t1 --name "Imob Exemplo" --template moderno \
//	        --pages home,imoveis,contato [--subdomain x] [--wait] [--preview]
//	sitectl publish <site-id>
//	sitectl render <host> [path]
//	sitectl task <task-id>
//	sitectl templates
//	sitectl variants
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/app"
	"github.com/yanizio/vitrine/internal/logger"
	"github.com/yanizio/vitrine/internal/provision"
	"github.com/yanizio/vitrine/internal/render"
	"github.com/yanizio/vitrine/internal/routing"
	"github.com/yanizio/vitrine/internal/variant"
)

type cli struct {
	memory  bool
	verbose bool
	out     io.Writer
	eng     *app.App
	log     *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout}
	root := c.rootCmd()
	err := root.ExecuteContext(ctx)
	if c.eng != nil {
		_ = c.eng.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Provision, publish, and preview tenant sites",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.boot(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVar(&c.memory, "memory", false, "use in-memory stores instead of the configured database")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(c.provisionCmd(), c.publishCmd(), c.renderCmd(), c.taskCmd(), c.templatesCmd(), c.variantsCmd())
	return root
}

func (c *cli) boot(ctx context.Context) error {
	if !c.verbose {
		zap.ReplaceGlobals(zap.NewNop())
	}
	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		return err
	}
	c.log, err = logger.New(logger.Options{
		Root:    cfg.Paths.Root,
		Level:   cfg.Log.Level,
		Tee:     c.verbose,
		Console: os.Stderr,
	})
	if err != nil {
		return err
	}
	c.eng, err = app.Build(ctx, cfg, app.Options{Memory: c.memory}, c.log)
	return err
}

func (c *cli) provisionCmd() *cobra.Command {
	var (
		req     provision.Request
		pages   string
		wait    bool
		preview bool
	)
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a DRAFT site from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			req.PageTypes = splitList(pages)
			res, err := c.eng.Workflow.Provision(ctx, req)
			var ve *provision.ValidationError
			switch {
			case errors.As(err, &ve):
				return fmt.Errorf("invalid %s: %s", ve.Field, ve.Reason)
			case err != nil:
				return err
			}
			if err := c.printJSON(res); err != nil {
				return err
			}
			if !(wait || preview) || res.TaskID == "" {
				return nil
			}

			st, err := c.eng.Queue.Wait(ctx, res.TaskID)
			if err != nil {
				return err
			}
			if !preview {
				return c.printJSON(st)
			}
			page, err := c.eng.Renderer.Render(ctx, res.Subdomain, nil)
			if err != nil {
				return fmt.Errorf("preview: %w", err)
			}
			_, err = io.WriteString(c.out, string(page.HTML)+"\n")
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.TenantID, "tenant", "", "owning tenant id (required)")
	f.StringVar(&req.Name, "name", "", "site name (required)")
	f.StringVar(&req.Subdomain, "subdomain", "", "requested subdomain label")
	f.StringVar(&req.TemplateID, "template", "", "catalog template id")
	f.StringVar(&pages, "pages", "home,imoveis,contato", "comma-separated page types")
	f.BoolVar(&wait, "wait", false, "wait for the background task and print its status")
	f.BoolVar(&preview, "preview", false, "wait, then print the rendered home page")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <site-id>",
		Short: "Mark a site PUBLISHED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.eng.Publish(cmd.Context(), args[0], time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s published\n", args[0])
			return nil
		},
	}
}

func (c *cli) renderCmd() *cobra.Command {
	var meta bool
	cmd := &cobra.Command{
		Use:   "render <host> [path]",
		Short: "Render one page to stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			page, err := c.eng.Renderer.Render(cmd.Context(), args[0], routing.Segments(path))
			var re *render.Error
			switch {
			case errors.Is(err, render.ErrNotFound):
				return fmt.Errorf("%s%s: not found", args[0], path)
			case errors.As(err, &re):
				return fmt.Errorf("render failed at %s: %w", re.Stage, re.Err)
			case err != nil:
				return err
			}
			if meta {
				return c.printJSON(map[string]any{
					"siteId":      page.SiteID,
					"pageId":      page.PageID,
					"type":        page.Type.Key(),
					"slug":        page.Slug,
					"title":       page.Title,
					"description": page.Description,
					"status":      page.Status,
					"maintenance": page.Maintenance,
				})
			}
			_, err = io.WriteString(c.out, string(page.HTML)+"\n")
			return err
		},
	}
	cmd.Flags().BoolVar(&meta, "meta", false, "print page metadata instead of HTML")
	return cmd
}

func (c *cli) taskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task <task-id>",
		Short: "Show background task status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.eng.Queue.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printJSON(st)
		},
	}
}

func (c *cli) templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List catalog templates",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			def := c.eng.Catalog.Default().ID
			for _, id := range c.eng.Catalog.IDs() {
				t, _ := c.eng.Catalog.Lookup(id)
				mark := " "
				if id == def {
					mark = "*"
				}
				fmt.Fprintf(c.out, "%s %-12s %s\n", mark, id, t.Name)
			}
			return nil
		},
	}
}

func (c *cli) variantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List component variants per category",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			writeVariants(c.out, c.eng.Variants)
			return nil
		},
	}
}

// writeVariants prints one line per category; the default id is starred.
func writeVariants(w io.Writer, reg *variant.Registry) {
	for _, cat := range variant.Categories {
		def := reg.Default(cat)
		ids := reg.IDs(cat)
		for i, id := range ids {
			if id == def {
				ids[i] = "*" + id
			}
		}
		fmt.Fprintf(w, "%-14s %s\n", cat, strings.Join(ids, " "))
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
