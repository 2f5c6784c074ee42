package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// FunctionList returns functions whose name matches pattern (a LIKE
// substring, empty matches everything), capped at limit.
func (db *DB) FunctionList(pattern string, limit int) ([]FunctionSummary, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	rows, err := db.Query(queryFunctionList, "%"+pattern+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FunctionSummary{}
	for rows.Next() {
		var f FunctionSummary
		if err := rows.Scan(&f.Name, &f.File, &f.Cyclomatic, &f.Cognitive, &f.BranchPercentage, &f.StatementPercentage); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FunctionDetail returns one function's identity, complexity, coverage
// percentages, and its full branch/statement point lists.
func (db *DB) FunctionDetail(name string) (*FunctionDetail, error) {
	var fd FunctionDetail
	err := db.QueryRow(queryFunctionByName, name).Scan(
		&fd.Name, &fd.File, &fd.Cyclomatic, &fd.Cognitive, &fd.BranchPercentage, &fd.StatementPercentage)
	if err != nil {
		return nil, err
	}

	branches, err := db.branchPoints(name)
	if err != nil {
		return nil, err
	}
	fd.Branches = branches

	statements, err := db.statementPoints(name)
	if err != nil {
		return nil, err
	}
	fd.Statements = statements

	return &fd, nil
}

func (db *DB) branchPoints(function string) ([]BranchPointRow, error) {
	rows, err := db.Query(queryBranchPointsByFunction, function)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BranchPointRow{}
	for rows.Next() {
		var bp BranchPointRow
		if err := rows.Scan(&bp.ID, &bp.BlockID, &bp.SuccIndex, &bp.Target, &bp.Kind, &bp.Label, &bp.Line, &bp.Col); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

func (db *DB) statementPoints(function string) ([]StatementPointRow, error) {
	rows, err := db.Query(queryStatementPointsByFunction, function)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StatementPointRow{}
	for rows.Next() {
		var sp StatementPointRow
		if err := rows.Scan(&sp.StmtID, &sp.BlockID, &sp.Line, &sp.Kind); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// CFG returns the control-flow graph (blocks + successors) for one
// function, shaped for a graph-rendering frontend.
func (db *DB) CFG(function string) (*CFGResponse, error) {
	var entry, exit int
	err := db.QueryRow(queryFunctionEntryExit, function).Scan(&entry, &exit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("function %q not found: %w", function, err)
	}
	if err != nil {
		return nil, err
	}

	var file string
	_ = db.QueryRow(`SELECT file FROM functions WHERE name = ?`, function).Scan(&file)

	rows, err := db.Query(queryBlocksByFunction, function)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []Block{}
	for rows.Next() {
		var blk Block
		var label sql.NullString
		var successorsJSON string
		if err := rows.Scan(&blk.ID, &blk.Kind, &blk.StartLine, &blk.EndLine, &label, &successorsJSON); err != nil {
			return nil, err
		}
		blk.Label = nullStringJSON{label}
		if successorsJSON != "" {
			_ = json.Unmarshal([]byte(successorsJSON), &blk.Successors)
		}
		blocks = append(blocks, blk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &CFGResponse{Function: function, File: file, Entry: entry, Exit: exit, Blocks: blocks}, nil
}

// Coverage returns the project-wide rollup for one dimension ("branch"
// or "statement") plus its per-function breakdown.
func (db *DB) Coverage(dimension string) (*CoverageSummary, error) {
	rows, err := db.Query(queryCoverageByDimension, dimension)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cs := &CoverageSummary{Dimension: dimension, Functions: []FunctionCoverage{}}
	for rows.Next() {
		var fc FunctionCoverage
		if err := rows.Scan(&fc.Function, &fc.Covered, &fc.Total, &fc.Percentage); err != nil {
			return nil, err
		}
		cs.Functions = append(cs.Functions, fc)
		cs.Covered += fc.Covered
		cs.Total += fc.Total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cs.Total == 0 {
		cs.Percentage = 100.0
	} else {
		cs.Percentage = float64(cs.Covered) / float64(cs.Total) * 100.0
	}
	return cs, nil
}
