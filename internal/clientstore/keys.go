package clientstore

// Keys under which the shell persists its state.
const (
	KeyCompanies          = "agendai_companies"
	KeyPlans              = "agendai_plans"
	KeyAuth               = "agendai_auth"
	KeyToken              = "agendai_token"
	KeyCompaniesCleared   = "agendai_companies_cleared"
	KeyPlansCleared       = "agendai_plans_cleared"
	KeyCompaniesTombstone = "agendai_companies_tombstones"
	KeyDeletionLog        = "agendai_deletion_log"
	KeyCompaniesBackup    = "agendai_companies_backup"
)

// ClearedKey returns the "cleared" flag key of a collection.
func ClearedKey(collection string) string {
	return collection + "_cleared"
}

// MaxDeletionLog bounds the deletion log; the oldest entries are evicted first.
const MaxDeletionLog = 100
