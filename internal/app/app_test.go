package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/config"
	"github.com/yanizio/vitrine/internal/property"
	"github.com/yanizio/vitrine/internal/provision"
	"github.com/yanizio/vitrine/internal/render"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/task"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Sites:     config.Sites{BaseDomain: "vitrine.test"},
		Render:    config.Render{PropertyLimit: 12, FetchTimeout: time.Second},
		Provision: config.Provision{Workers: 1, QueueSize: 4, TaskTimeout: 5 * time.Second},
	}
}

func TestBuild_ProvisionPublishRender(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, memoryConfig(), Options{Memory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := a.Workflow.Provision(ctx, provision.Request{
		TenantID:   "t1",
		Name:       "Imob Exemplo",
		TemplateID: "moderno",
		PageTypes:  []string{"home", "imoveis"},
	})
	require.NoError(t, err)
	assert.Equal(t, "imobexemplo", res.Subdomain)
	require.NotEmpty(t, res.TaskID)

	st, err := a.Queue.Wait(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.StateDone, st.State)
	assert.Zero(t, st.Failed())

	a.Props.(*property.MemoryStore).Add(property.Raw{
		ID: "p1", TenantID: "t1", Status: property.StatusActive,
		Title: ptr("Casa com quintal"),
	})

	require.NoError(t, a.Publish(ctx, res.SiteID, time.Now()))

	page, err := a.Renderer.Render(ctx, "imobexemplo.vitrine.test", []string{"imoveis"})
	require.NoError(t, err)
	assert.Equal(t, site.StatusPublished, page.Status)
	assert.True(t, strings.Contains(string(page.HTML), "Casa com quintal"), "listing does not show the property")

	_, err = a.Renderer.Render(ctx, "outra.vitrine.test", nil)
	assert.ErrorIs(t, err, render.ErrNotFound)
}

func TestBuild_SecondSiteOfTenantGetsSuffix(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, memoryConfig(), Options{Memory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	req := provision.Request{TenantID: "t1", Name: "Imob Exemplo", TemplateID: "classico", PageTypes: []string{"home"}}
	first, err := a.Workflow.Provision(ctx, req)
	require.NoError(t, err)
	req.Name = "Outra Marca"
	second, err := a.Workflow.Provision(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "imobexemplo", first.Subdomain)
	assert.Regexp(t, `^imobexemplo\d{4}$`, second.Subdomain)
}

func TestBuild_BadCatalogFails(t *testing.T) {
	cfg := memoryConfig()
	cfg.Provision.CatalogFile = "/does/not/exist.yaml"
	_, err := Build(context.Background(), cfg, Options{Memory: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestBuild_CatalogWithUnknownVariantFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw := "default: a\ntemplates:\n  a:\n    name: A\n    variants:\n      header: inexistente\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg := memoryConfig()
	cfg.Provision.CatalogFile = path
	_, err := Build(context.Background(), cfg, Options{Memory: true}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header/inexistente")
}

func ptr[T any](v T) *T { return &v }
