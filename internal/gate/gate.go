// Package gate decides whether a candidate SQL statement may be forwarded
// to the database. The gate is pure: the same statement and allow-list
// always produce the same verdict, and nothing is logged here so statement
// text with potentially sensitive literals never reaches a log sink.
package gate

import (
	"errors"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/dishql/dishql/internal/schema"
)

// errStop aborts an AST walk once the first offender is found.
var errStop = errors.New("stop walk")

type Mode int

const (
	ModeReadOnly Mode = iota
	ModeReadWrite
)

type Reason string

const (
	ReasonMutatingStatement Reason = "MUTATING_STATEMENT"
	ReasonUnknownRelation   Reason = "UNKNOWN_RELATION"
	ReasonMultiStatement    Reason = "MULTI_STATEMENT"
	ReasonSyntaxInvalid     Reason = "SYNTAX_INVALID"
)

// Verdict is the gate decision. Detail names the offending verb or
// identifier and never carries literal values from the statement.
type Verdict struct {
	Allowed   bool
	Statement string
	Reason    Reason
	Detail    string
}

type Gate struct {
	catalog *schema.Catalog
	mode    Mode
}

func New(catalog *schema.Catalog, mode Mode) *Gate {
	return &Gate{catalog: catalog, mode: mode}
}

// Check validates one statement. Structural checks (multi-statement,
// syntax) run before semantic ones (verb, relations) so the cheapest
// rejection wins. An allowed statement is returned trimmed but otherwise
// untouched; the gate never rewrites SQL.
func (g *Gate) Check(statement string) Verdict {
	trimmed := strings.TrimSpace(statement)
	if trimmed == "" {
		return reject(ReasonSyntaxInvalid, "")
	}

	pieces, err := sqlparser.SplitStatementToPieces(trimmed)
	if err != nil {
		return reject(ReasonSyntaxInvalid, "")
	}
	nonEmpty := 0
	for _, piece := range pieces {
		if strings.TrimSpace(piece) != "" {
			nonEmpty++
		}
	}
	if nonEmpty > 1 {
		return reject(ReasonMultiStatement, "")
	}

	stmt, err := sqlparser.Parse(trimmed)
	if err != nil {
		return reject(ReasonSyntaxInvalid, "")
	}

	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
	case *sqlparser.Insert, *sqlparser.Update, *sqlparser.Delete:
		if g.mode != ModeReadWrite {
			return reject(ReasonMutatingStatement, verbOf(stmt))
		}
	default:
		return reject(ReasonMutatingStatement, verbOf(stmt))
	}

	if verdict, ok := g.checkRelations(stmt); !ok {
		return verdict
	}

	return Verdict{Allowed: true, Statement: strings.TrimRight(trimmed, "; \t\n")}
}

type statementScope struct {
	// alias (lowered) -> base table name (lowered); empty base marks a
	// derived table whose columns cannot be resolved against the catalog.
	aliases     map[string]string
	tables      []string
	exprAliases map[string]struct{}
}

func (g *Gate) checkRelations(stmt sqlparser.Statement) (Verdict, bool) {
	scope := statementScope{
		aliases:     map[string]string{},
		exprAliases: map[string]struct{}{},
	}

	var offender string
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch n := node.(type) {
		case *sqlparser.AliasedTableExpr:
			switch expr := n.Expr.(type) {
			case sqlparser.TableName:
				if detail, ok := g.recordTable(&scope, expr, n.As.String()); !ok {
					offender = detail
					return false, errStop
				}
			case *sqlparser.Subquery:
				if alias := strings.ToLower(n.As.String()); alias != "" {
					scope.aliases[alias] = ""
				}
			}
		case *sqlparser.Insert:
			if detail, ok := g.recordTable(&scope, n.Table, ""); !ok {
				offender = detail
				return false, errStop
			}
		case *sqlparser.AliasedExpr:
			if alias := strings.ToLower(n.As.String()); alias != "" {
				scope.exprAliases[alias] = struct{}{}
			}
		}
		return true, nil
	}, stmt)
	if offender != "" {
		return reject(ReasonUnknownRelation, offender), false
	}

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch n := node.(type) {
		case *sqlparser.ColName:
			if detail, ok := g.checkColumn(scope, n); !ok {
				offender = detail
				return false, errStop
			}
		case *sqlparser.StarExpr:
			qualifier := strings.ToLower(n.TableName.Name.String())
			if qualifier == "" {
				return true, nil
			}
			if _, ok := scope.aliases[qualifier]; !ok {
				offender = qualifier
				return false, errStop
			}
		case *sqlparser.Insert:
			table := strings.ToLower(n.Table.Name.String())
			for _, column := range n.Columns {
				if !g.catalog.HasColumn(table, column.String()) {
					offender = table + "." + column.Lowered()
					return false, errStop
				}
			}
		}
		return true, nil
	}, stmt)
	if offender != "" {
		return reject(ReasonUnknownRelation, offender), false
	}

	return Verdict{}, true
}

func (g *Gate) recordTable(scope *statementScope, table sqlparser.TableName, alias string) (string, bool) {
	name := table.Name.String()
	qualifier := table.Qualifier.String()
	if qualifier != "" && !strings.EqualFold(qualifier, "public") {
		return strings.ToLower(qualifier + "." + name), false
	}
	if !g.catalog.HasTable(name) {
		return strings.ToLower(name), false
	}
	if alias == "" {
		alias = name
	}
	scope.aliases[strings.ToLower(alias)] = strings.ToLower(name)
	scope.tables = append(scope.tables, strings.ToLower(name))
	return "", true
}

func (g *Gate) checkColumn(scope statementScope, col *sqlparser.ColName) (string, bool) {
	name := col.Name.String()
	qualifier := strings.ToLower(col.Qualifier.Name.String())

	if qualifier != "" {
		base, ok := scope.aliases[qualifier]
		if !ok {
			return qualifier + "." + strings.ToLower(name), false
		}
		if base == "" {
			// Derived-table column; the subquery's own references were
			// already checked.
			return "", true
		}
		if !g.catalog.HasColumn(base, name) {
			return base + "." + strings.ToLower(name), false
		}
		return "", true
	}

	if len(scope.tables) == 0 {
		return "", true
	}
	if _, ok := scope.exprAliases[strings.ToLower(name)]; ok {
		return "", true
	}
	for _, table := range scope.tables {
		if g.catalog.HasColumn(table, name) {
			return "", true
		}
	}
	return strings.ToLower(name), false
}

func verbOf(stmt sqlparser.Statement) string {
	switch n := stmt.(type) {
	case *sqlparser.Insert:
		return strings.ToUpper(n.Action)
	case *sqlparser.Update:
		return "UPDATE"
	case *sqlparser.Delete:
		return "DELETE"
	case *sqlparser.DDL:
		return strings.ToUpper(n.Action)
	case *sqlparser.DBDDL:
		return strings.ToUpper(n.Action)
	case *sqlparser.Set:
		return "SET"
	case *sqlparser.Use:
		return "USE"
	case *sqlparser.Show:
		return "SHOW"
	case *sqlparser.Begin:
		return "BEGIN"
	case *sqlparser.Commit:
		return "COMMIT"
	case *sqlparser.Rollback:
		return "ROLLBACK"
	default:
		return "STATEMENT"
	}
}

func reject(reason Reason, detail string) Verdict {
	return Verdict{Allowed: false, Reason: reason, Detail: detail}
}
