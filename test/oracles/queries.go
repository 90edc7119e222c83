package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All lists invariant checks over the record tables. Each query returns rows
// only when its invariant is broken.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_unique_record_number",
			SQL: `SELECT AGRMNT_NO, COUNT(*) FROM T_MST_CUS_LDS_AGRMNT_INFO_DT
                  GROUP BY AGRMNT_NO HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_key_prefixes",
			SQL: `SELECT SFDC_ID, AGRMNT_NO FROM T_MST_CUS_LDS_AGRMNT_INFO_DT
                  WHERE AGRMNT_NO NOT LIKE 'EN%' OR SFDC_ID NOT LIKE 'EXT_AGR_%'`,
		},
		{
			Name: "O3_orphan_records",
			SQL: `SELECT AGR.AGRMNT_NO FROM T_MST_CUS_LDS_AGRMNT_INFO_DT AGR
                  LEFT JOIN T_MST_CUS_ACT_DT ACT ON ACT.SFDC_ID = AGR.ACT_SFDC_ID
                  WHERE ACT.SFDC_ID IS NULL`,
		},
		{
			Name: "O4_fixed_columns",
			SQL: `SELECT AGRMNT_NO FROM T_MST_CUS_LDS_AGRMNT_INFO_DT
                  WHERE AGRMNT_NAGRMNT <> '不成約' OR DEL_FLG <> 'FALSE'
                     OR ENTRY_PG_ID <> 'CUSEXT' OR UPDATE_PG_ID <> 'CUSEXT'`,
		},
		{
			Name: "O5_entry_before_update",
			SQL:  `SELECT AGRMNT_NO, ENTRY_DT, UPDATE_DT FROM T_MST_CUS_LDS_AGRMNT_INFO_DT WHERE ENTRY_DT > UPDATE_DT`,
		},
		{
			Name: "O6_entry_actor_immutable",
			SQL:  `SELECT AGRMNT_NO, ENTRY_BY FROM T_MST_CUS_LDS_AGRMNT_INFO_DT WHERE ENTRY_BY LIKE 'UPD-%'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
