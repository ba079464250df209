package points

// JoinSeed is the balance a family starts with in a group, applied both to
// the founding family at group creation and to every family joining later.
const JoinSeed = 10

// Balance represents a family's running points balance within one group.
// There is at most one row per (family, group) pair; a missing row reads as
// zero. Balances may go negative without limit: points represent debt, not
// a spending cap.
type Balance struct {
	ID       int64 `json:"id"`
	FamilyID int64 `json:"family_id"`
	GroupID  int64 `json:"group_id"`
	Points   int   `json:"points"`

	// Populated via JOIN
	FamilyName string `json:"family_name,omitempty"`
}
