package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/btree"
	"gopkg.in/yaml.v3"

	"mit.edu/dsg/physopt/common"
)

// Catalog describes the tables that plan scans read from: their schemas, how
// many partitions (file groups) they are split into, the order their files are
// known to be sorted in, and whether the source is an unbounded stream.
//
// The optimizer never reads data. Everything it knows about a source comes from
// here, so a declared sort order must be trustworthy: a scan built from a table
// with a SortOrder reports that order as its output ordering and the optimizer
// will happily remove sorts on the strength of it.
//
// The catalog is immutable once loaded except through AddTable, which persists
// the new state through the PersistenceProvider before returning.
type Catalog struct {
	catalogState

	// In-memory structures for fast lookups
	tableMap  btree.Map[string, *Table] // TableName -> Table, kept in name order for listings
	columnMap map[string][]*Table       // ColumnName -> List of Tables containing this column
}

// Column represents the basic unit of a table schema.
type Column struct {
	Name     string      `yaml:"name"`
	Type     common.Type `yaml:"type"`
	Nullable bool        `yaml:"nullable,omitempty"`
}

// Schema is the ordered list of columns produced by a table or an operator.
type Schema []Column

// IndexOf returns the position of the named column, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Equal reports whether two schemas have the same column names and types.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Name != other[i].Name || s[i].Type != other[i].Type {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = fmt.Sprintf("%s:%s", c.Name, c.Type)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FileFormat is the physical layout a table's data is stored in.
type FileFormat string

const (
	MemoryFormat  FileFormat = "memory"
	ParquetFormat FileFormat = "parquet"
	CsvFormat     FileFormat = "csv"
)

// SortColumn is one key of a table's declared sort order.
type SortColumn struct {
	Name       string `yaml:"name"`
	Descending bool   `yaml:"descending,omitempty"`
	NullsLast  bool   `yaml:"nulls_last,omitempty"`
}

// TableLayout groups the physical properties of a table that the optimizer
// reasons about.
type TableLayout struct {
	Format     FileFormat   `yaml:"format"`
	Partitions int          `yaml:"partitions"`
	SortOrder  []SortColumn `yaml:"sort_order,omitempty"`
	Unbounded  bool         `yaml:"unbounded,omitempty"`
}

// Table is the primary metadata structure. It groups a table's columns with
// its physical layout under a unique ObjectID.
type Table struct {
	Oid     common.ObjectID `yaml:"oid"`
	Name    string          `yaml:"name"`
	Columns Schema          `yaml:"columns"`
	Layout  TableLayout     `yaml:"layout"`
}

// PersistenceProvider abstracts how the catalog is saved to and loaded from disk.
type PersistenceProvider interface {
	LoadCatalogState() (doc string, err error)
	SaveCatalogState(doc string) error
}

func (t *Table) String() string {
	b, _ := yaml.Marshal(t)
	return string(b)
}

type catalogState struct {
	NextId uint32   `yaml:"next_id"`
	Tables []*Table `yaml:"tables"`
}

func (c *Catalog) String() string {
	b, _ := yaml.Marshal(&c.catalogState)
	return string(b)
}

func (c *Catalog) toYAML() (string, error) {
	b, err := yaml.Marshal(&c.catalogState)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Catalog) fromYAML(doc string) error {
	if err := yaml.Unmarshal([]byte(doc), &c.catalogState); err != nil {
		return err
	}
	for _, t := range c.Tables {
		c.index(t)
	}
	return nil
}

func (c *Catalog) index(t *Table) {
	c.tableMap.Set(t.Name, t)
	for _, f := range t.Columns {
		c.columnMap[f.Name] = append(c.columnMap[f.Name], t)
	}
}

// NewCatalog initializes a catalog. It attempts to load existing state
// from the provider; if no state exists, it starts with an empty catalog.
func NewCatalog(provider PersistenceProvider) (*Catalog, error) {
	result := &Catalog{
		catalogState: catalogState{
			NextId: 0,
			Tables: make([]*Table, 0),
		},
		columnMap: make(map[string][]*Table),
	}

	doc, err := provider.LoadCatalogState()
	if errors.Is(err, os.ErrNotExist) {
		// Start from scratch
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if err = result.fromYAML(doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog state")
	}

	return result, nil
}

// AddTable registers a new table in the catalog.
// It assigns a unique ObjectID to the table and persists the updated state. If the table with that name
// already exists, it returns DuplicateTableError. Every column named by the layout's sort order must
// exist in columns.
func (c *Catalog) AddTable(tableName string, columns []Column, layout TableLayout, provider PersistenceProvider) (*Table, error) {
	if _, exists := c.tableMap.Get(tableName); exists {
		return nil, common.NewPlanError(common.DuplicateTableError, "table '%s' already exists", tableName)
	}

	schema := Schema(columns)
	for _, sc := range layout.SortOrder {
		if schema.IndexOf(sc.Name) < 0 {
			return nil, common.NewPlanError(common.NoSuchTableError,
				"sort column '%s' does not exist in table '%s'", sc.Name, tableName)
		}
	}
	if layout.Partitions <= 0 {
		layout.Partitions = 1
	}
	if layout.Format == "" {
		layout.Format = MemoryFormat
	}

	// oid 0 is reserved for INVALID
	c.NextId++

	t := &Table{
		Oid:     common.ObjectID(c.NextId),
		Name:    tableName,
		Columns: schema,
		Layout:  layout,
	}

	c.Tables = append(c.Tables, t)
	c.index(t)

	doc, err := c.toYAML()
	if err != nil {
		return nil, err
	}
	return t, provider.SaveCatalogState(doc)
}

// GetTableMetadata fetches the schema for a specific table name.
func (c *Catalog) GetTableMetadata(tableName string) (*Table, error) {
	table, exists := c.tableMap.Get(tableName)
	if !exists {
		return nil, common.NewPlanError(common.NoSuchTableError, "table '%s' does not exist", tableName)
	}
	return table, nil
}

// FindTablesWithColumnName returns all tables that contain a column with
// the given name.
func (c *Catalog) FindTablesWithColumnName(columnName string) []*Table {
	return c.columnMap[columnName]
}

// ListTables returns every table ordered by name.
func (c *Catalog) ListTables() []*Table {
	tables := make([]*Table, 0, c.tableMap.Len())
	c.tableMap.Scan(func(_ string, t *Table) bool {
		tables = append(tables, t)
		return true
	})
	return tables
}

const CatalogFileName = "catalog.yaml"

type DiskCatalogManager struct {
	rootPath string
}

func NewDiskCatalogManager(rootPath string) *DiskCatalogManager {
	return &DiskCatalogManager{
		rootPath: rootPath,
	}
}

// LoadCatalogState implements the catalog.PersistenceProvider interface.
func (dcm *DiskCatalogManager) LoadCatalogState() (string, error) {
	path := filepath.Join(dcm.rootPath, CatalogFileName)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err // Let the caller (Catalog) handle os.ErrNotExist
	}
	return string(content), nil
}

// SaveCatalogState implements the catalog.PersistenceProvider interface.
func (dcm *DiskCatalogManager) SaveCatalogState(doc string) error {
	// atomic replace through a temporary file
	tmpPath := filepath.Join(dcm.rootPath, CatalogFileName+".tmp")
	finalPath := filepath.Join(dcm.rootPath, CatalogFileName)

	if err := os.WriteFile(tmpPath, []byte(doc), 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, finalPath)
}

// MemoryCatalogManager keeps the serialized catalog in memory. Useful for
// tests and for catalogs assembled on the fly.
type MemoryCatalogManager struct {
	doc string
}

func NewMemoryCatalogManager() *MemoryCatalogManager {
	return &MemoryCatalogManager{}
}

// LoadCatalogState implements the catalog.PersistenceProvider interface.
func (m *MemoryCatalogManager) LoadCatalogState() (string, error) {
	if m.doc == "" {
		return "", os.ErrNotExist
	}
	return m.doc, nil
}

// SaveCatalogState implements the catalog.PersistenceProvider interface.
func (m *MemoryCatalogManager) SaveCatalogState(doc string) error {
	m.doc = doc
	return nil
}
