package erdgen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// ForeignKey records one column pair of a foreign key constraint. Composite
// constraints appear as one ForeignKey per column pair.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
}

type Schema struct {
	Tables []Table
}

func (s Schema) relationCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.ForeignKeys)
	}
	return n
}

func (t Table) primaryKeyColumn() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

func introspectSchema(ctx context.Context, db *sql.DB, dbType string, tableScope []string, maxTables int) (Schema, error) {
	filter := makeTableFilter(tableScope)

	switch dbType {
	case "sqlite":
		return introspectSQLite(ctx, db, filter, maxTables)
	case "postgres":
		return introspectPostgres(ctx, db, filter, maxTables)
	case "mysql":
		return introspectMySQL(ctx, db, filter, maxTables)
	default:
		return Schema{}, fmt.Errorf("unsupported db type %q", dbType)
	}
}

func introspectSQLite(ctx context.Context, db *sql.DB, filter map[string]struct{}, maxTables int) (Schema, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return Schema{}, err
	}

	tableNames := make([]string, 0)
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			_ = rows.Close()
			return Schema{}, err
		}
		if !allowTableName(tableName, filter) {
			continue
		}
		tableNames = append(tableNames, tableName)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return Schema{}, err
	}
	if err := rows.Close(); err != nil {
		return Schema{}, err
	}

	schema := Schema{Tables: make([]Table, 0, len(tableNames))}
	for _, tableName := range tableNames {
		if len(schema.Tables) >= maxTables {
			break
		}

		columns, err := sqliteColumns(ctx, db, tableName)
		if err != nil {
			return Schema{}, err
		}
		fks, err := sqliteForeignKeys(ctx, db, tableName)
		if err != nil {
			return Schema{}, err
		}

		schema.Tables = append(schema.Tables, Table{Name: tableName, Columns: columns, ForeignKeys: fks})
	}
	return schema, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, tableName string) ([]Column, error) {
	escaped := strings.ReplaceAll(tableName, `"`, `""`)
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, escaped))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make([]Column, 0)
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:       name,
			Type:       strings.ToLower(strings.TrimSpace(colType)),
			NotNull:    notNull != 0,
			PrimaryKey: pk > 0,
		})
	}
	return columns, rows.Err()
}

func sqliteForeignKeys(ctx context.Context, db *sql.DB, tableName string) ([]ForeignKey, error) {
	escaped := strings.ReplaceAll(tableName, `"`, `""`)
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list("%s")`, escaped))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make([]ForeignKey, 0)
	for rows.Next() {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		// "to" is NULL when the constraint references the parent's
		// implicit primary key; resolved at diagram time.
		fks = append(fks, ForeignKey{Column: from, RefTable: refTable, RefColumn: to.String})
	}
	return fks, rows.Err()
}

func introspectPostgres(ctx context.Context, db *sql.DB, filter map[string]struct{}, maxTables int) (Schema, error) {
	tableRows, err := db.QueryContext(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`)
	if err != nil {
		return Schema{}, err
	}
	defer tableRows.Close()

	type pgTable struct {
		schemaName string
		tableName  string
	}
	names := make([]pgTable, 0)
	for tableRows.Next() {
		var schemaName, tableName string
		if err := tableRows.Scan(&schemaName, &tableName); err != nil {
			return Schema{}, err
		}
		if !allowTableName(schemaName+"."+tableName, filter) {
			continue
		}
		names = append(names, pgTable{schemaName: schemaName, tableName: tableName})
	}
	if err := tableRows.Err(); err != nil {
		return Schema{}, err
	}

	schema := Schema{Tables: make([]Table, 0, len(names))}
	for _, n := range names {
		if len(schema.Tables) >= maxTables {
			break
		}

		columns, err := postgresColumns(ctx, db, n.schemaName, n.tableName)
		if err != nil {
			return Schema{}, err
		}
		fks, err := postgresForeignKeys(ctx, db, n.schemaName, n.tableName)
		if err != nil {
			return Schema{}, err
		}

		schema.Tables = append(schema.Tables, Table{
			Name:        n.schemaName + "." + n.tableName,
			Columns:     columns,
			ForeignKeys: fks,
		})
	}
	return schema, nil
}

func postgresColumns(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	columns := make([]Column, 0)
	for rows.Next() {
		var colName, dataType, isNullable string
		if err := rows.Scan(&colName, &dataType, &isNullable); err != nil {
			_ = rows.Close()
			return nil, err
		}
		columns = append(columns, Column{
			Name:    colName,
			Type:    dataType,
			NotNull: isNullable == "NO",
		})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	pkRows, err := db.QueryContext(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer pkRows.Close()

	pks := make(map[string]struct{})
	for pkRows.Next() {
		var colName string
		if err := pkRows.Scan(&colName); err != nil {
			return nil, err
		}
		pks[colName] = struct{}{}
	}
	if err := pkRows.Err(); err != nil {
		return nil, err
	}

	for i := range columns {
		if _, ok := pks[columns[i].Name]; ok {
			columns[i].PrimaryKey = true
		}
	}
	return columns, nil
}

func postgresForeignKeys(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.column_name, ccu.table_schema, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make([]ForeignKey, 0)
	for rows.Next() {
		var colName, refSchema, refTable, refColumn string
		if err := rows.Scan(&colName, &refSchema, &refTable, &refColumn); err != nil {
			return nil, err
		}
		fks = append(fks, ForeignKey{
			Column:    colName,
			RefTable:  refSchema + "." + refTable,
			RefColumn: refColumn,
		})
	}
	return fks, rows.Err()
}

func introspectMySQL(ctx context.Context, db *sql.DB, filter map[string]struct{}, maxTables int) (Schema, error) {
	tableRows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return Schema{}, err
	}
	defer tableRows.Close()

	names := make([]string, 0)
	for tableRows.Next() {
		var tableName string
		if err := tableRows.Scan(&tableName); err != nil {
			return Schema{}, err
		}
		if !allowTableName(tableName, filter) {
			continue
		}
		names = append(names, tableName)
	}
	if err := tableRows.Err(); err != nil {
		return Schema{}, err
	}

	schema := Schema{Tables: make([]Table, 0, len(names))}
	for _, tableName := range names {
		if len(schema.Tables) >= maxTables {
			break
		}

		columns, err := mysqlColumns(ctx, db, tableName)
		if err != nil {
			return Schema{}, err
		}
		fks, err := mysqlForeignKeys(ctx, db, tableName)
		if err != nil {
			return Schema{}, err
		}

		schema.Tables = append(schema.Tables, Table{Name: tableName, Columns: columns, ForeignKeys: fks})
	}
	return schema, nil
}

func mysqlColumns(ctx context.Context, db *sql.DB, tableName string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make([]Column, 0)
	for rows.Next() {
		var colName, dataType, isNullable, columnKey string
		if err := rows.Scan(&colName, &dataType, &isNullable, &columnKey); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:       colName,
			Type:       dataType,
			NotNull:    isNullable == "NO",
			PrimaryKey: columnKey == "PRI",
		})
	}
	return columns, rows.Err()
}

func mysqlForeignKeys(ctx context.Context, db *sql.DB, tableName string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		  AND referenced_table_name IS NOT NULL
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make([]ForeignKey, 0)
	for rows.Next() {
		var colName, refTable, refColumn string
		if err := rows.Scan(&colName, &refTable, &refColumn); err != nil {
			return nil, err
		}
		fks = append(fks, ForeignKey{Column: colName, RefTable: refTable, RefColumn: refColumn})
	}
	return fks, rows.Err()
}

func makeTableFilter(tableScope []string) map[string]struct{} {
	if len(tableScope) == 0 {
		return nil
	}

	filter := make(map[string]struct{}, len(tableScope))
	for _, t := range tableScope {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		filter[t] = struct{}{}
	}

	if len(filter) == 0 {
		return nil
	}
	return filter
}

func allowTableName(name string, filter map[string]struct{}) bool {
	if len(filter) == 0 {
		return true
	}

	n := strings.ToLower(strings.TrimSpace(name))
	if _, ok := filter[n]; ok {
		return true
	}

	parts := strings.Split(n, ".")
	if len(parts) > 1 {
		if _, ok := filter[parts[len(parts)-1]]; ok {
			return true
		}
	}
	return false
}
