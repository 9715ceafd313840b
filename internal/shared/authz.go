package shared

// Capabilities checked by the authorization guard.
const (
	PermInventoryView = "inventory.view"
	PermInventoryEdit = "inventory.edit"
	PermReportsView   = "reports.view"
	PermMasterView    = "masterdata.view"
	PermMasterEdit    = "masterdata.edit"
	PermOpsView       = "ops.view"
)

// AllScopes lists every capability known to the application.
func AllScopes() []string {
	return []string{
		PermInventoryView,
		PermInventoryEdit,
		PermReportsView,
		PermMasterView,
		PermMasterEdit,
		PermOpsView,
	}
}
