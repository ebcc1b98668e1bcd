package drug

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// trigramThreshold is lowered from the pg_trgm default (0.3) so the fuzzy
// pass tolerates one-or-two character typos.
const trigramThreshold = 0.2

type indexPG struct {
	pool *pgxpool.Pool
}

func NewIndex(pool *pgxpool.Pool) Index {
	return &indexPG{pool: pool}
}

const brandColumns = `identifier, brand_name, generic_identifier, license_status`

// SearchRanked acquires one connection for all passes so the set_limit call,
// which is session-scoped, covers the fuzzy query. The connection is released
// on every exit path.
func (s *indexPG) SearchRanked(ctx context.Context, q string, limit int) ([][]Brand, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT set_limit($1)`, trigramThreshold); err != nil {
		return nil, err
	}

	var passes [][]Brand

	tokens := strings.Fields(q)
	if len(tokens) >= 2 {
		var clauses []string
		var args []interface{}
		for i, tok := range tokens {
			clauses = append(clauses, fmt.Sprintf("brand_name ILIKE $%d", i+1))
			args = append(args, "%"+tok+"%")
		}
		query := fmt.Sprintf(
			`SELECT %s FROM drug_brands WHERE %s ORDER BY similarity(brand_name, $%d) DESC LIMIT $%d`,
			brandColumns, strings.Join(clauses, " AND "), len(tokens)+1, len(tokens)+2,
		)
		args = append(args, q, limit)

		tokenAnd, err := s.query(ctx, conn, query, args...)
		if err != nil {
			return nil, err
		}
		passes = append(passes, tokenAnd)
	}

	contains, err := s.query(ctx, conn, `
		SELECT `+brandColumns+` FROM drug_brands
		WHERE brand_name ILIKE $1
		ORDER BY similarity(brand_name, $2) DESC LIMIT $3`,
		"%"+q+"%", q, limit)
	if err != nil {
		return nil, err
	}
	passes = append(passes, contains)

	fuzzy, err := s.query(ctx, conn, `
		SELECT `+brandColumns+` FROM drug_brands
		WHERE brand_name % $1
		ORDER BY similarity(brand_name, $2) DESC LIMIT $3`,
		q, q, limit)
	if err != nil {
		return nil, err
	}
	passes = append(passes, fuzzy)

	return passes, nil
}

func (s *indexPG) query(ctx context.Context, conn *pgxpool.Conn, sql string, args ...interface{}) ([]Brand, error) {
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBrands(rows)
}

func scanBrands(rows pgx.Rows) ([]Brand, error) {
	var out []Brand
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.Identifier, &b.BrandName, &b.GenericIdentifier, &b.LicenseStatus); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
