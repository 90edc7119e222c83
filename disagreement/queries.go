package disagreement

// Fixed column values owned by this store.
const (
	recordType    = "不成約"
	notDeleted    = "FALSE"
	programID     = "CUSEXT"
	branchCode    = "1"
	headquarterCd = "0"
)

const summaryColumns = `
	SELECT AGR.AGRMNT_NO,
	       COALESCE(AGR.COMPE_ATER_CMPNY1, ''),
	       COALESCE(AGR.COMPE_ATER_CMPNY1_PRDCT, ''),
	       COALESCE(AGR.MEMO, ''),
	       to_char(AGR.ENTRY_DT, 'YYYY/MM/DD'),
	       to_char(AGR.UPDATE_DT, 'YYYY/MM/DD')`

const detailColumns = `
	SELECT AGR.AGRMNT_NO,
	       AGR.ACT_SFDC_ID,
	       COALESCE(AGR.ACT_SUBJECT, ''),
	       COALESCE(ACT.ACT_SUBJECT, ''),
	       COALESCE(AGR.HOUSEHOLD_ID, ''),
	       COALESCE(AGR.TEL_NG, ''),
	       COALESCE(AGR.CNFDNC_NG, ''),
	       COALESCE(AGR.FRM_ACQUAINTANCE_APPS, ''),
	       COALESCE(AGR.UNDERTAKE_NG, ''),
	       COALESCE(AGR.MEMO, ''),
	       COALESCE(AGR.COMPE_ATER_CMPNY1, ''),
	       COALESCE(AGR.COMPE_ATER_CMPNY1_PRDCT, ''),
	       COALESCE(AGR.COMPE_ATER_CMPNY2, ''),
	       COALESCE(AGR.COMPE_ATER_CMPNY2_PRDCT, ''),
	       COALESCE(AGR.COMPE_ATER_CMPNY3, ''),
	       COALESCE(AGR.COMPE_ATER_CMPNY3_PRDCT, ''),
	       AGR.ENTRY_PG_ID,
	       to_char(AGR.ENTRY_DT, 'YYYY/MM/DD HH24:MI'),
	       AGR.ENTRY_BY,
	       AGR.UPDATE_PG_ID,
	       to_char(AGR.UPDATE_DT, 'YYYY/MM/DD HH24:MI'),
	       AGR.UPDATE_BY`

const joinActivity = `
	  FROM T_MST_CUS_LDS_AGRMNT_INFO_DT AGR
	  JOIN T_MST_CUS_ACT_DT ACT ON ACT.SFDC_ID = AGR.ACT_SFDC_ID`

const (
	branchPredicate        = ` WHERE ACT.REGIST_KBN = '` + branchCode + `'`
	headquarterPredicate   = ` WHERE ACT.REGIST_KBN = '` + headquarterCd + `'`
	listFilter             = ` AND AGR.ACT_SFDC_ID = $1 AND AGR.AGRMNT_NAGRMNT = '` + recordType + `'`
	detailFilter           = ` AND AGR.AGRMNT_NO = $1`
	orderByEntry           = ` ORDER BY AGR.ENTRY_DT`
	listBranchQuery        = summaryColumns + joinActivity + branchPredicate + listFilter + orderByEntry
	listHeadquarterQuery   = summaryColumns + joinActivity + headquarterPredicate + listFilter + orderByEntry
	detailBranchQuery      = detailColumns + joinActivity + branchPredicate + detailFilter + orderByEntry
	detailHeadquarterQuery = detailColumns + joinActivity + headquarterPredicate + detailFilter + orderByEntry
)

// queryFor picks one of the four read shapes. Every variable value is bound
// as $1.
func queryFor(detail bool, scope Scope) string {
	switch {
	case detail && scope == ScopeHeadquarters:
		return detailHeadquarterQuery
	case detail:
		return detailBranchQuery
	case scope == ScopeHeadquarters:
		return listHeadquarterQuery
	default:
		return listBranchQuery
	}
}

const insertQuery = `
	INSERT INTO T_MST_CUS_LDS_AGRMNT_INFO_DT (
		SFDC_ID, AGRMNT_NO, ACT_SFDC_ID, AGRMNT_NAGRMNT, ACT_SUBJECT, HOUSEHOLD_ID,
		TEL_NG, CNFDNC_NG, FRM_ACQUAINTANCE_APPS, UNDERTAKE_NG, MEMO,
		COMPE_ATER_CMPNY1, COMPE_ATER_CMPNY1_PRDCT,
		COMPE_ATER_CMPNY2, COMPE_ATER_CMPNY2_PRDCT,
		COMPE_ATER_CMPNY3, COMPE_ATER_CMPNY3_PRDCT,
		DEL_FLG, ENTRY_PG_ID, ENTRY_DT, ENTRY_BY, UPDATE_PG_ID, UPDATE_DT, UPDATE_BY
	) VALUES (
		'EXT_AGR_' || nextval('SEQ_MST_CUS_AGRMNT_ID_EXT'),
		'EN' || nextval('SEQ_MST_CUS_AGRMNT_NO_EXT'),
		$1, '` + recordType + `', $2, $3,
		$4, $5, $6, $7, $8,
		$9, $10,
		$11, $12,
		$13, $14,
		'` + notDeleted + `', '` + programID + `', LOCALTIMESTAMP, $15, '` + programID + `', LOCALTIMESTAMP, $15
	)
	RETURNING AGRMNT_NO`

const updateQuery = `
	UPDATE T_MST_CUS_LDS_AGRMNT_INFO_DT
	   SET ACT_SUBJECT = $2,
	       TEL_NG = $3,
	       CNFDNC_NG = $4,
	       FRM_ACQUAINTANCE_APPS = $5,
	       UNDERTAKE_NG = $6,
	       MEMO = $7,
	       COMPE_ATER_CMPNY1 = $8,
	       COMPE_ATER_CMPNY1_PRDCT = $9,
	       COMPE_ATER_CMPNY2 = $10,
	       COMPE_ATER_CMPNY2_PRDCT = $11,
	       COMPE_ATER_CMPNY3 = $12,
	       COMPE_ATER_CMPNY3_PRDCT = $13,
	       UPDATE_PG_ID = '` + programID + `',
	       UPDATE_DT = LOCALTIMESTAMP,
	       UPDATE_BY = $14
	 WHERE AGRMNT_NO = $1`

const deleteQuery = `DELETE FROM T_MST_CUS_LDS_AGRMNT_INFO_DT WHERE AGRMNT_NO = $1`

const deleteForActivityQuery = `DELETE FROM T_MST_CUS_LDS_AGRMNT_INFO_DT WHERE ACT_SFDC_ID = $1`
