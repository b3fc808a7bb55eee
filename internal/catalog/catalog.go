package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
	"server/internal/sqlinline"
)

// Template is a named generation preset. A positive CreditCost overrides the
// base generation price.
type Template struct {
	ID          string
	Name        string
	Description string
	Category    string
	CreditCost  int64
}

// Language is an output language offered to callers.
type Language struct {
	ID   string
	Code string
	Name string
}

// Catalog serves templates and languages from Postgres through a short TTL
// cache. The tables change rarely, so a stale read within the TTL is fine.
type Catalog struct {
	sql    infra.SQLExecutor
	logger zerolog.Logger
	ttl    time.Duration

	mu          sync.RWMutex
	templates   []Template
	languages   []Language
	templatesAt time.Time
	languagesAt time.Time
}

const defaultTTL = 5 * time.Minute

func New(sql infra.SQLExecutor, logger zerolog.Logger) *Catalog {
	return &Catalog{sql: sql, logger: logger, ttl: defaultTTL}
}

// Templates returns all templates, refreshing the cache when stale.
func (c *Catalog) Templates(ctx context.Context) ([]Template, error) {
	c.mu.RLock()
	if time.Since(c.templatesAt) < c.ttl && c.templates != nil {
		cached := c.templates
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	rows, err := c.sql.Query(ctx, sqlinline.QListTemplates)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.CreditCost); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	c.mu.Lock()
	c.templates = out
	c.templatesAt = time.Now()
	c.mu.Unlock()
	return out, nil
}

// TemplateByName looks up a template by its public name.
func (c *Catalog) TemplateByName(ctx context.Context, name string) (*Template, bool, error) {
	templates, err := c.Templates(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range templates {
		if templates[i].Name == name {
			return &templates[i], true, nil
		}
	}
	return nil, false, nil
}

// Languages returns all offered languages, refreshing the cache when stale.
func (c *Catalog) Languages(ctx context.Context) ([]Language, error) {
	c.mu.RLock()
	if time.Since(c.languagesAt) < c.ttl && c.languages != nil {
		cached := c.languages
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	rows, err := c.sql.Query(ctx, sqlinline.QListLanguages)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	defer rows.Close()

	var out []Language
	for rows.Next() {
		var l Language
		if err := rows.Scan(&l.ID, &l.Code, &l.Name); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read languages: %w", err)
	}

	c.mu.Lock()
	c.languages = out
	c.languagesAt = time.Now()
	c.mu.Unlock()
	return out, nil
}

// LanguageName resolves a language code to its display name, falling back to
// the code itself for unknown values so prompts stay usable.
func (c *Catalog) LanguageName(ctx context.Context, code string) string {
	if code == "" {
		return ""
	}
	languages, err := c.Languages(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("code", code).Msg("language lookup failed")
		return code
	}
	for _, l := range languages {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}
