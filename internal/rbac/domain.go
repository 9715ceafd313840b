// Package rbac resolves who is calling and what they may do.
package rbac

import (
	"net/http"
	"strings"

	"github.com/odyssey-erp/storeledger/internal/shared"
)

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Grant is what a user holds: the superuser flag and the union of
// permissions of their roles.
type Grant struct {
	Superuser   bool
	Permissions []string
}

// Rule maps requests to the capability they need. Method is empty for any
// method; ReadPerm applies to GET and HEAD and WritePerm to everything else.
// An empty permission only requires an authenticated caller.
type Rule struct {
	Method    string
	Path      string
	Exact     bool
	ReadPerm  string
	WritePerm string
}

// DefaultRules is the authorization table of the application, most
// specific prefix first.
var DefaultRules = []Rule{
	{Path: "/", Exact: true, ReadPerm: shared.PermReportsView},
	{Path: "/inventory", ReadPerm: shared.PermInventoryEdit, WritePerm: shared.PermInventoryEdit},
	{Path: "/masterdata", ReadPerm: shared.PermMasterView, WritePerm: shared.PermMasterEdit},
	{Path: "/stores", ReadPerm: shared.PermReportsView},
	{Path: "/products", Exact: true, ReadPerm: shared.PermInventoryView},
	{Path: "/products", ReadPerm: shared.PermReportsView},
	{Path: "/reports/stock", ReadPerm: shared.PermInventoryView},
	{Path: "/reports", ReadPerm: shared.PermReportsView},
	{Path: "/metrics", ReadPerm: shared.PermOpsView},
	{Path: "/jobs", ReadPerm: shared.PermOpsView, WritePerm: shared.PermOpsView},
	{Path: "/ops", ReadPerm: shared.PermOpsView, WritePerm: shared.PermOpsView},
	{Path: "/audit", ReadPerm: shared.PermOpsView, WritePerm: shared.PermOpsView},
	{Path: "/account"},
}

// match reports whether the rule covers path.
func (r Rule) match(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if r.Exact {
		return path == r.Path
	}
	return path == r.Path || strings.HasPrefix(path, r.Path+"/") || strings.HasPrefix(path, r.Path+".")
}

// required returns the permission needed for method.
func (r Rule) required(method string) string {
	if method == http.MethodGet || method == http.MethodHead {
		return r.ReadPerm
	}
	return r.WritePerm
}
