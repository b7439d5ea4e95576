package notify

import (
	"fmt"
	"sort"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Tables lists the base tables a SELECT statement reads, schema-qualified
// (unqualified names are assumed public). From-clause relations, joins,
// subselects and set operations are walked; CTE names are not tables and
// are excluded, their bodies are walked instead.
func Tables(sql string) ([]string, error) {
	res, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	seen := make(map[string]struct{})
	ctes := make(map[string]struct{})

	var walkSelect func(s *pg_query.SelectStmt)
	var walkFrom func(n *pg_query.Node)

	walkSelect = func(s *pg_query.SelectStmt) {
		if s == nil {
			return
		}
		if s.WithClause != nil {
			for _, item := range s.WithClause.Ctes {
				cte := item.GetCommonTableExpr()
				if cte == nil {
					continue
				}
				ctes[cte.Ctename] = struct{}{}
				walkSelect(cte.Ctequery.GetSelectStmt())
			}
		}
		for _, f := range s.FromClause {
			walkFrom(f)
		}
		walkSelect(s.Larg)
		walkSelect(s.Rarg)
	}

	walkFrom = func(n *pg_query.Node) {
		if n == nil {
			return
		}
		if rv := n.GetRangeVar(); rv != nil {
			if _, isCte := ctes[rv.Relname]; isCte && rv.Schemaname == "" {
				return
			}
			name := rv.Relname
			if rv.Schemaname != "" {
				name = rv.Schemaname + "." + rv.Relname
			} else {
				name = "public." + rv.Relname
			}
			seen[name] = struct{}{}
			return
		}
		if je := n.GetJoinExpr(); je != nil {
			walkFrom(je.Larg)
			walkFrom(je.Rarg)
			return
		}
		if rs := n.GetRangeSubselect(); rs != nil {
			walkSelect(rs.Subquery.GetSelectStmt())
		}
	}

	for _, raw := range res.Stmts {
		sel := raw.Stmt.GetSelectStmt()
		if sel == nil {
			return nil, fmt.Errorf("only SELECT statements have table deps")
		}
		walkSelect(sel)
	}

	tables := make([]string, 0, len(seen))
	for t := range seen {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables, nil
}
