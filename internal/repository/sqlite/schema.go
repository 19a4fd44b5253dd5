package sqlite

import (
	"fmt"
	"strings"
)

// Collection names.
const (
	CollectionUsers       = "users"
	CollectionSessions    = "sessions"
	CollectionNewsCache   = "news_cache"
	CollectionPreferences = "user_preferences"
	CollectionArticles    = "user_news_articles"
)

// IndexKind tells the schema how to encode an indexed value.
type IndexKind int

const (
	IndexText IndexKind = iota
	// IndexTime values are JSON timestamps, indexed by julianday so range
	// scans compare instants rather than strings.
	IndexTime
	IndexBool
)

// IndexPolicy decides whether queries may use the index.
type IndexPolicy int

const (
	Indexed IndexPolicy = iota
	// ScanOnly indexes are created but never queried. Lookups on such a
	// field load the collection and filter in memory.
	ScanOnly
)

type Index struct {
	Name    string
	KeyPath string
	Unique  bool
	Kind    IndexKind
	Policy  IndexPolicy
}

// Collection is one named store: a table holding JSON documents keyed by
// KeyPath.
type Collection struct {
	Name    string
	KeyPath string
	Indexes []Index
}

// Index looks up a declared index by name.
func (c Collection) Index(name string) (Index, bool) {
	for _, ix := range c.Indexes {
		if ix.Name == name {
			return ix, true
		}
	}
	return Index{}, false
}

// Schema is the declarative description of the whole database. Bumping
// Version recreates every collection on the next open.
type Schema struct {
	Version     int64
	Collections []Collection
}

// Collection looks up a collection by name.
func (s Schema) Collection(name string) (Collection, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// DefaultSchema is the schema of the application database.
var DefaultSchema = Schema{
	Version: 2,
	Collections: []Collection{
		{
			Name:    CollectionUsers,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "email", KeyPath: "email", Unique: true},
				{Name: "role", KeyPath: "role"},
			},
		},
		{
			Name:    CollectionSessions,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "userId", KeyPath: "userId"},
				{Name: "expiresAt", KeyPath: "expiresAt", Kind: IndexTime},
			},
		},
		{
			Name:    CollectionNewsCache,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "cachedAt", KeyPath: "cachedAt", Kind: IndexTime},
				{Name: "expiresAt", KeyPath: "expiresAt", Kind: IndexTime},
			},
		},
		{
			Name:    CollectionPreferences,
			KeyPath: "id",
		},
		{
			Name:    CollectionArticles,
			KeyPath: "id",
			Indexes: []Index{
				{Name: "authorId", KeyPath: "authorId"},
				{Name: "category", KeyPath: "category"},
				{Name: "isPublished", KeyPath: "isPublished", Kind: IndexBool, Policy: ScanOnly},
				{Name: "createdAt", KeyPath: "createdAt", Kind: IndexTime},
				{Name: "updatedAt", KeyPath: "updatedAt", Kind: IndexTime},
			},
		},
	},
}

// expr is the SQL expression an index covers. Queries must use the exact
// same text or SQLite will not pick the index.
func (ix Index) expr() string {
	e := fmt.Sprintf("json_extract(doc, '$.%s')", ix.KeyPath)
	if ix.Kind == IndexTime {
		return "julianday(" + e + ")"
	}
	return e
}

// arg is the placeholder matching expr.
func (ix Index) arg() string {
	if ix.Kind == IndexTime {
		return "julianday(?)"
	}
	return "?"
}

func indexName(collection string, ix Index) string {
	return "idx_" + collection + "_" + ix.Name
}

// ddl returns the statements that drop and rebuild c.
func (c Collection) ddl() []string {
	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", c.Name),
		fmt.Sprintf("CREATE TABLE %s (id TEXT PRIMARY KEY, doc TEXT NOT NULL)", c.Name),
	}
	for _, ix := range c.Indexes {
		unique := ""
		if ix.Unique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
			unique, indexName(c.Name, ix), c.Name, ix.expr()))
	}
	return stmts
}

func (s Schema) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("schema version must be at least 1, got %d", s.Version)
	}
	seen := make(map[string]bool, len(s.Collections))
	for _, c := range s.Collections {
		if c.Name == "" || strings.ContainsAny(c.Name, " ;'\"") {
			return fmt.Errorf("invalid collection name %q", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate collection %q", c.Name)
		}
		seen[c.Name] = true
		for _, ix := range c.Indexes {
			if ix.Name == "" || strings.ContainsAny(ix.KeyPath, " ;'\"") {
				return fmt.Errorf("invalid index %q on %s", ix.Name, c.Name)
			}
		}
	}
	return nil
}
