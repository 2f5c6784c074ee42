package main

const queryFunctionList = `
SELECT f.name, f.file,
       COALESCE(c.cyclomatic, 0), COALESCE(c.cognitive, 0),
       COALESCE(bc.percentage, 100.0), COALESCE(sc.percentage, 100.0)
FROM functions f
LEFT JOIN complexity c ON c.function = f.name
LEFT JOIN coverage_summary bc ON bc.function = f.name AND bc.dimension = 'branch'
LEFT JOIN coverage_summary sc ON sc.function = f.name AND sc.dimension = 'statement'
WHERE f.name LIKE ?
ORDER BY f.name
LIMIT ?
`

const queryFunctionByName = `
SELECT f.name, f.file,
       COALESCE(c.cyclomatic, 0), COALESCE(c.cognitive, 0),
       COALESCE(bc.percentage, 100.0), COALESCE(sc.percentage, 100.0)
FROM functions f
LEFT JOIN complexity c ON c.function = f.name
LEFT JOIN coverage_summary bc ON bc.function = f.name AND bc.dimension = 'branch'
LEFT JOIN coverage_summary sc ON sc.function = f.name AND sc.dimension = 'statement'
WHERE f.name = ?
`

const queryBranchPointsByFunction = `
SELECT id, block_id, succ_index, target, kind, label, line, col
FROM branch_points
WHERE function = ?
ORDER BY block_id, succ_index
`

const queryStatementPointsByFunction = `
SELECT stmt_id, block_id, line, kind
FROM statement_points
WHERE function = ?
ORDER BY stmt_id
`

const queryBlocksByFunction = `
SELECT block_id, kind, start_line, end_line, label, successors
FROM blocks
WHERE function = ?
ORDER BY block_id
`

const queryFunctionEntryExit = `
SELECT entry_block, exit_block FROM functions WHERE name = ?
`

const queryCoverageByDimension = `
SELECT function, covered, total, percentage
FROM coverage_summary
WHERE dimension = ?
ORDER BY function
`
