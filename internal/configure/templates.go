package configure

import (
	"path/filepath"

	"licman/internal/config"
	"licman/pkg/fileutil"
	"licman/pkg/templates"
)

// TemplatePair maps a .dist template below etc/ to its rendered file.
type TemplatePair struct {
	Name string
	Src  string
	Dst  string
}

// TemplatePairs lists the templates rendered by configure, in render order.
func TemplatePairs(layout config.Layout) []TemplatePair {
	pair := func(name, src, dst string) TemplatePair {
		return TemplatePair{
			Name: name,
			Src:  filepath.Join(layout.Etc, src),
			Dst:  filepath.Join(layout.Etc, dst),
		}
	}
	return []TemplatePair{
		pair("celery", "supervisor/celery.conf.dist", "supervisor/celery.conf"),
		pair("nginx", "nginx/nginx.dist.conf", "nginx/nginx.conf"),
		pair("supervisord", "supervisor/conf.d/supervisord.conf.dist", "supervisor/conf.d/supervisord.conf"),
		pair("force_ssl", "nginx/force-ssl.dist.conf", "nginx/force-ssl.conf"),
		pair("ssl_params", "nginx/ssl-params.dist.conf", "nginx/ssl-params.conf"),
		pair("queue_manager", "supervisor/queue-manager.conf.dist", "supervisor/queue-manager.conf"),
	}
}

// RenderedFile is the outcome of rendering one pair.
type RenderedFile struct {
	Pair       TemplatePair
	Skipped    bool
	Unreplaced []string
}

// RenderAll renders every pair whose source exists with the flattened
// configuration. Missing sources are skipped.
func RenderAll(pairs []TemplatePair, data templates.TemplateData) ([]RenderedFile, error) {
	results := make([]RenderedFile, 0, len(pairs))
	for _, p := range pairs {
		if !fileutil.FileExists(p.Src) {
			results = append(results, RenderedFile{Pair: p, Skipped: true})
			continue
		}
		missing, err := templates.RenderFile(p.Src, p.Dst, data)
		if err != nil {
			return results, err
		}
		results = append(results, RenderedFile{Pair: p, Unreplaced: missing})
	}
	return results, nil
}
